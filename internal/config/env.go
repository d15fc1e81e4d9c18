package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// lookupFunc — сигнатура os.LookupEnv; в тестах подменяется картой.
type lookupFunc func(key string) (string, bool)

// loadFromEnv перекрывает cfg переменными окружения.
// Пустая переменная считается незаданной.
func loadFromEnv(cfg *Config, lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.setString("APP_ENV", &cfg.Env)
	e.setInt("PORT", &cfg.Port)
	e.setDuration("REQUEST_TIMEOUT", &cfg.RequestTimeout)
	e.setString("STATIC_DIR", &cfg.StaticDir)
	e.setBool("TRUST_PROXY", &cfg.TrustProxy)
	e.setString("DASHBOARD_TZ", &cfg.DashboardTZ)

	e.setString("STORE_DRIVER", &cfg.Store.Driver)
	e.setString("DATA_FILE", &cfg.Store.DataFile)
	e.setString("SQLITE_PATH", &cfg.Store.SQLitePath)
	e.setString("MONGODB_URI", &cfg.Store.MongoURI)
	e.setString("MONGODB_DATABASE", &cfg.Store.MongoDatabase)
	e.setBool("DB_DEBUG", &cfg.Store.Debug)

	e.setString("JWT_SECRET", &cfg.JWT.Secret)
	e.setDuration("JWT_TTL", &cfg.JWT.TTL)
	e.setString("JWT_ISSUER", &cfg.JWT.Issuer)
	e.setInt("BCRYPT_COST", &cfg.JWT.BcryptCost)

	e.setString("REDIS_ADDR", &cfg.Redis.Addr)
	e.setString("REDIS_PASSWORD", &cfg.Redis.Password)
	e.setInt("REDIS_DB", &cfg.Redis.DB)
	e.setString("REDIS_KEY_PREFIX", &cfg.Redis.KeyPrefix)

	e.setBool("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	e.setInt("RATE_LIMIT_REQUESTS", &cfg.RateLimit.Requests)
	e.setDuration("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)

	e.setList("CORS_ALLOWED_ORIGINS", &cfg.CORS.AllowedOrigins)

	e.setString("LOG_LEVEL", &cfg.Log.Level)
	e.setString("LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(e.errs...)
}

type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) setString(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) setInt(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (e *envReader) setBool(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}

// setDuration принимает "15m"/"168h" или целое число секунд.
func (e *envReader) setDuration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

// setList разбирает значения через запятую.
func (e *envReader) setList(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

// Package config собирает настройки сервера из нескольких источников.
//
// Порядок (каждый следующий перекрывает предыдущий):
//  1. значения по умолчанию;
//  2. TOML-файл (-config или TASKMASTER_CONFIG);
//  3. файл .env (переменные, которых ещё нет в окружении);
//  4. переменные окружения;
//  5. флаги командной строки.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Окружения приложения.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Драйверы хранилища.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// devJWTSecret используется только при APP_ENV=development без JWT_SECRET.
const devJWTSecret = "taskmaster-development-secret"

// Config — итоговые настройки процесса.
type Config struct {
	Env            string        `toml:"env"`
	Port           int           `toml:"port"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	StaticDir      string        `toml:"static_dir"`
	TrustProxy     bool          `toml:"trust_proxy"`
	DashboardTZ    string        `toml:"dashboard_tz"`

	Store     StoreConfig     `toml:"store"`
	JWT       JWTConfig       `toml:"jwt"`
	Redis     RedisConfig     `toml:"redis"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	CORS      CORSConfig      `toml:"cors"`
	Log       LogConfig       `toml:"log"`
}

// StoreConfig выбирает и настраивает хранилище.
type StoreConfig struct {
	Driver        string `toml:"driver"`
	DataFile      string `toml:"data_file"`
	SQLitePath    string `toml:"sqlite_path"`
	MongoURI      string `toml:"mongodb_uri"`
	MongoDatabase string `toml:"mongodb_database"`
	Debug         bool   `toml:"debug"`
}

// JWTConfig — выпуск токенов и хэширование паролей.
type JWTConfig struct {
	Secret     string        `toml:"secret"`
	TTL        time.Duration `toml:"ttl"`
	Issuer     string        `toml:"issuer"`
	BcryptCost int           `toml:"bcrypt_cost"`
}

// RedisConfig — подключение к Redis для общего rate limit. Пустой Addr — Redis не используется.
type RedisConfig struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

// RateLimitConfig — лимит запросов с одного IP.
type RateLimitConfig struct {
	Enabled  bool          `toml:"enabled"`
	Requests int           `toml:"requests"`
	Window   time.Duration `toml:"window"`
}

// CORSConfig — разрешённые источники.
type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// LogConfig — уровень и формат логов.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default возвращает настройки по умолчанию.
func Default() *Config {
	return &Config{
		Env:            EnvDevelopment,
		Port:           5000,
		RequestTimeout: 10 * time.Second,
		DashboardTZ:    "UTC",
		Store: StoreConfig{
			Driver:        DriverMemory,
			DataFile:      "taskmaster.json",
			SQLitePath:    "taskmaster.db",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "taskmaster",
		},
		JWT: JWTConfig{
			TTL:    7 * 24 * time.Hour,
			Issuer: "taskmaster",
		},
		Redis: RedisConfig{
			KeyPrefix: "taskmaster:ratelimit:",
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 100,
			Window:   15 * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:5500", "http://localhost:5000"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// IsDevelopment сообщает, что сервер запущен в режиме разработки.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Addr — адрес для http.Server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Location загружает часовой пояс дашборда.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DashboardTZ)
	if err != nil {
		return nil, fmt.Errorf("dashboard timezone %q: %w", c.DashboardTZ, err)
	}
	return loc, nil
}

// finalize нормализует значения и проверяет обязательные поля.
func (c *Config) finalize() error {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))

	var errs []error

	switch c.Store.Driver {
	case DriverMemory, DriverFile, DriverSQLite, DriverMongo:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}

	if c.JWT.Secret == "" {
		if c.IsDevelopment() {
			c.JWT.Secret = devJWTSecret
		} else {
			errs = append(errs, errors.New("JWT_SECRET is required outside development"))
		}
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, fmt.Errorf("invalid JWT TTL %s", c.JWT.TTL))
	}

	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("rate limit requires positive requests and window"))
	}

	if c.DashboardTZ == "" {
		c.DashboardTZ = "UTC"
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

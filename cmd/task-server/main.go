package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/redis/go-redis/v9"

	"taskmaster/internal/auth"
	"taskmaster/internal/config"
	"taskmaster/internal/dashboard"
	"taskmaster/internal/logging"
	"taskmaster/internal/ratelimit"
	"taskmaster/internal/server"
	"taskmaster/internal/storage"
	"taskmaster/internal/tasks"
	"taskmaster/internal/validation"
)

const (
	startupTimeout  = 15 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Здесь только:
// - чтение конфигурации;
// - создание зависимостей;
// - запуск HTTP-сервера и корректная остановка.
func main() {
	cfg, err := config.LoadFlags(os.Args[1:])
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(2)
	}

	log, err := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		slog.Error("logger error", "error", err)
		os.Exit(2)
	}
	slog.SetDefault(log)

	startCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	// Инициализируем хранилище.
	store, err := storage.Open(startCtx, cfg.Store)
	if err != nil {
		log.Error("store open failed", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	log.Info("store ready", "driver", cfg.Store.Driver)

	loc, err := cfg.Location()
	if err != nil {
		log.Error("dashboard timezone", "error", err)
		os.Exit(1)
	}

	// Сервисы.
	v := validation.New()
	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		SecretKey:     cfg.JWT.Secret,
		TokenDuration: cfg.JWT.TTL,
		Issuer:        cfg.JWT.Issuer,
	})
	authSvc := auth.NewService(store, auth.NewPasswordHasher(cfg.JWT.BcryptCost), jwtManager, v)
	taskSvc := tasks.NewService(store, v)
	agg := dashboard.NewAggregator(store, dashboard.WithLocation(loc))

	limiter, redisClient := newLimiter(startCtx, cfg, log)

	handler := server.NewRouter(server.Deps{
		Log:            log,
		Dev:            cfg.IsDevelopment(),
		Tasks:          taskSvc,
		Auth:           authSvc,
		Dashboard:      agg,
		Limiter:        limiter,
		CORSOrigins:    cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		TrustProxy:     cfg.TrustProxy,
		StaticDir:      cfg.StaticDir,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server running", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server start error", "error", err)
			os.Exit(1)
		}
	}()

	ops := map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			log.Info("graceful shutdown initiated")
			return srv.Shutdown(ctx)
		},
		"store": func(ctx context.Context) error {
			return store.Close(ctx)
		},
	}
	if redisClient != nil {
		ops["redis"] = func(context.Context) error {
			return redisClient.Close()
		}
	}

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, ops)
	exitCode := <-wait
	log.Info("application exited", "code", exitCode)
	os.Exit(exitCode)
}

// newLimiter выбирает хранилище счётчиков rate limit. При заданном REDIS_ADDR
// счётчики общие для всех экземпляров; недоступный Redis не мешает старту,
// запросы в этом случае пропускаются.
func newLimiter(ctx context.Context, cfg *config.Config, log *slog.Logger) (ratelimit.Limiter, *redis.Client) {
	if !cfg.RateLimit.Enabled {
		log.Info("rate limit disabled")
		return nil, nil
	}
	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, rate limit fails open until it recovers",
			"addr", cfg.Redis.Addr, "error", err)
	}
	l := ratelimit.NewRedisLimiter(client, cfg.Redis.KeyPrefix, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	return l, client
}

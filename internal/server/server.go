// Package server собирает HTTP-роутер сервиса из модулей.
//
// Здесь только сборка: middleware, монтирование модулей и общие эндпоинты.
// Логика живёт в модулях: handler -> service -> store.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	gorillahandlers "github.com/gorilla/handlers"

	"taskmaster/internal/auth"
	"taskmaster/internal/dashboard"
	appMiddleware "taskmaster/internal/middleware"
	"taskmaster/internal/ratelimit"
	"taskmaster/internal/tasks"
	"taskmaster/internal/web"
)

// Deps — зависимости роутера.
type Deps struct {
	Log       *slog.Logger
	Dev       bool
	Tasks     *tasks.Service
	Auth      *auth.Service
	Dashboard *dashboard.Aggregator

	// Limiter == nil — ограничение частоты выключено.
	Limiter        ratelimit.Limiter
	CORSOrigins    []string
	RequestTimeout time.Duration
	TrustProxy     bool
	StaticDir      string

	// Now подменяет часы health-эндпоинта (для тестов).
	Now func() time.Time
}

// NewRouter возвращает готовый http.Handler сервиса.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	rs := web.NewResponder(d.Log, d.Dev)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	if d.TrustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(appMiddleware.LoggingMiddleware(d.Log))
	r.Use(appMiddleware.Recoverer(d.Log, d.Dev))

	requireAuth := appMiddleware.BearerAuth(d.Auth)

	r.Route("/api", func(api chi.Router) {
		if d.Limiter != nil {
			api.Use(ratelimit.Middleware(d.Limiter, d.Log))
		}
		api.Use(appMiddleware.JSONHeaderMiddleware)
		api.Use(appMiddleware.RequestTimeoutMiddleware(d.RequestTimeout))

		api.Get("/health", health(d.Now))
		api.Mount("/auth", auth.NewHandler(d.Auth, rs).Routes(requireAuth))

		api.Group(func(private chi.Router) {
			private.Use(requireAuth)
			private.Mount("/tasks", tasks.NewHandler(d.Tasks, rs).Routes())
			private.Mount("/dashboard", dashboard.NewHandler(d.Dashboard, rs).Routes())
		})

		api.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			web.Error(w, http.StatusNotFound, "Route not found")
		})
	})

	if d.StaticDir != "" {
		r.NotFound(spaHandler(d.StaticDir).ServeHTTP)
	}

	return cors(d.CORSOrigins)(r)
}

// cors настраивает CORS через gorilla/handlers.
func cors(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"}),
		gorillahandlers.ExposedHeaders([]string{"RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After"}),
		gorillahandlers.AllowCredentials(),
	)
}

// health обрабатывает GET /api/health
func health(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		web.JSON(w, http.StatusOK, map[string]any{
			"status":    "OK",
			"timestamp": now().UTC(),
			"message":   "TaskMaster API is running!",
		})
	}
}

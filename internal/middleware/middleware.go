// Package middleware содержит HTTP‑middleware: функции-обёртки над http.Handler,
// которые добавляют общий функционал (логирование, аутентификация, заголовки,
// восстановление после паники) вокруг основного обработчика.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"taskmaster/internal/web"
)

// LoggingMiddleware измеряет время обработки запроса и пишет запись в лог
// после того, как основной обработчик завершил работу.
//
// Статус берём из обёртки chi над ResponseWriter, request id — из
// chi middleware.RequestID (если он стоит в цепочке раньше).
func LoggingMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAttrs(r.Context(), levelFor(status), "request served",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
				slog.String("request_id", chiMiddleware.GetReqID(r.Context())),
			)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// JSONHeaderMiddleware проставляет заголовок Content-Type для JSON‑ответов.
//
// Заголовки нужно выставлять ДО записи тела ответа.
func JSONHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// Recoverer перехватывает панику обработчика и отвечает JSON 500.
// Подробности паники уходят клиенту только в режиме разработки.
func Recoverer(log *slog.Logger, dev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					// Штатный способ оборвать ответ — не глотаем.
					panic(rec)
				}

				log.ErrorContext(r.Context(), "panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()))

				msg := "Internal server error"
				if dev {
					msg = fmt.Sprint(rec)
				}
				web.JSON(w, http.StatusInternalServerError, map[string]string{
					"error":   "Something went wrong!",
					"message": msg,
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// TokenVerifier проверяет bearer-токен и возвращает ID пользователя.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

type ctxKey struct{}

// WithUserID кладёт ID аутентифицированного пользователя в контекст.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID достаёт ID пользователя, положенный BearerAuth.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// BearerAuth защищает эндпоинт токеном из заголовка
// "Authorization: Bearer <token>".
//
// Если токена нет или он не прошёл проверку, middleware отвечает 401
// и НЕ вызывает next. Иначе ID пользователя уходит дальше через контекст.
func BearerAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			token = strings.TrimSpace(token)
			if !found || token == "" {
				web.Error(w, http.StatusUnauthorized, "Access token required")
				return
			}

			userID, err := v.VerifyToken(token)
			if err != nil || userID == "" {
				web.Error(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

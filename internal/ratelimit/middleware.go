package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"taskmaster/internal/web"
)

// TooManyRequestsMessage — тело ответа 429.
const TooManyRequestsMessage = "Too many requests from this IP, please try again later."

// Middleware ограничивает запросы по IP клиента.
//
// Ошибка хранилища счётчиков не блокирует запрос: он пропускается,
// а ошибка пишется в лог.
func Middleware(l Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)

			res, err := l.Allow(r.Context(), key)
			if err != nil {
				log.Warn("rate limiter unavailable, request allowed",
					slog.String("ip", key),
					slog.Any("err", err),
				)
				next.ServeHTTP(w, r)
				return
			}

			reset := secondsUntil(res.ResetAt)
			h := w.Header()
			h.Set("RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("RateLimit-Reset", strconv.Itoa(reset))

			if !res.Allowed {
				h.Set("Retry-After", strconv.Itoa(reset))
				web.Error(w, http.StatusTooManyRequests, TooManyRequestsMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP возвращает IP из RemoteAddr (его уже переписал middleware.RealIP,
// если серверу разрешено доверять прокси).
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func secondsUntil(t time.Time) int {
	d := time.Until(t).Seconds()
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d))
}

// Package web содержит общие для всех HTTP-модулей помощники:
// запись JSON-ответов, разбор тела запроса и перевод ошибок в коды ответа.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"taskmaster/internal/validation"
)

// MaxBodyBytes — предел тела запроса (как express.json({limit: '10mb'})).
const MaxBodyBytes = 10 << 20

// ErrInvalidBody — тело запроса не разобралось как JSON.
var ErrInvalidBody = errors.New("invalid request body")

// JSON пишет v со статусом status.
// Content-Type выставляет JSONHeaderMiddleware, но дублируем на случай
// использования вне цепочки.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error пишет {"error": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// Errors пишет {"errors": [...]} — формат ошибок валидации.
func Errors(w http.ResponseWriter, status int, msgs []string) {
	JSON(w, status, map[string][]string{"errors": msgs})
}

// DecodeJSON читает тело запроса в dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Join(ErrInvalidBody, err)
	}
	return nil
}

// Responder переводит ошибки сервисов в HTTP-ответы и логирует внутренние сбои.
// В режиме разработки (dev) текст внутренней ошибки уходит клиенту в поле message.
type Responder struct {
	log *slog.Logger
	dev bool
}

// NewResponder создаёт Responder.
func NewResponder(log *slog.Logger, dev bool) *Responder {
	if log == nil {
		log = slog.Default()
	}
	return &Responder{log: log, dev: dev}
}

// Logger возвращает логгер ответчика.
func (rs *Responder) Logger() *slog.Logger { return rs.log }

// Fail обрабатывает ошибки, общие для всех обработчиков:
// невалидное тело, ошибки валидации, отмену/таймаут, всё прочее — 500.
// internalMsg — то, что увидит клиент при 500 ("Failed to fetch tasks").
func (rs *Responder) Fail(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	var vErr *validation.Error
	switch {
	case errors.Is(err, ErrInvalidBody):
		Errors(w, http.StatusBadRequest, []string{"Invalid request body"})
	case errors.As(err, &vErr):
		Errors(w, http.StatusBadRequest, vErr.Messages)
	case HandleContextError(w, err):
	default:
		rs.Internal(w, r, err, internalMsg)
	}
}

// Internal логирует err и отвечает 500.
func (rs *Responder) Internal(w http.ResponseWriter, r *http.Request, err error, msg string) {
	rs.log.ErrorContext(r.Context(), msg,
		"error", err,
		"method", r.Method,
		"path", r.URL.Path)

	body := map[string]string{"error": msg}
	if rs.dev && err != nil {
		body["message"] = err.Error()
	}
	JSON(w, http.StatusInternalServerError, body)
}

// HandleContextError делает понятную обработку ошибок отмены/таймаута.
// Возвращает true, если ошибка обработана.
func HandleContextError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, context.Canceled):
		// Клиент ушёл или сервер завершается: отвечать уже некому.
		return true
	case errors.Is(err, context.DeadlineExceeded):
		Error(w, http.StatusRequestTimeout, "Request timeout")
		return true
	default:
		return false
	}
}

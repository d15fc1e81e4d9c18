package tasks

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	appMiddleware "taskmaster/internal/middleware"
	"taskmaster/internal/validation"
	"taskmaster/internal/web"
)

// Handler — HTTP слой модуля задач.
//
// Здесь лежит всё, что относится к HTTP: роуты, парсинг JSON и query,
// коды ответов. Состояние и бизнес-логика живут в Service:
// handler -> service -> store.
type Handler struct {
	svc *Service
	rs  *web.Responder
}

// NewHandler создаёт Handler.
func NewHandler(svc *Service, rs *web.Responder) *Handler {
	return &Handler{svc: svc, rs: rs}
}

// Routes собирает роутер задач. Монтируется на /api/tasks;
// BearerAuth навешивается снаружи, при сборке сервера.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.listTasks)
	r.Post("/", h.createTask)
	r.Get("/{id}", h.getTaskByID)
	r.Put("/{id}", h.updateTask)
	r.Delete("/{id}", h.deleteTask)

	return r
}

// listTasks обрабатывает GET /api/tasks?status&priority&category&page&limit
func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	res, err := h.svc.ListTasks(r.Context(), ownerID, parseListQuery(r))
	if err != nil {
		h.rs.Fail(w, r, err, "Failed to fetch tasks")
		return
	}
	web.JSON(w, http.StatusOK, res)
}

// getTaskByID обрабатывает GET /api/tasks/{id}
func (h *Handler) getTaskByID(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	task, err := h.svc.GetTask(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch task")
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{"task": task})
}

// createTask обрабатывает POST /api/tasks
func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := web.DecodeJSON(w, r, &req); err != nil {
		// Поле неверного типа не прячет ошибки остальных полей.
		if typeErr, ok := validation.TypeError(err, createMessages); ok {
			err = validation.Merge(req, typeErr, h.svc.ValidateCreate(req))
		}
		h.rs.Fail(w, r, err, "Failed to create task")
		return
	}

	task, err := h.svc.CreateTask(r.Context(), ownerID, req)
	if err != nil {
		h.rs.Fail(w, r, err, "Failed to create task")
		return
	}
	web.JSON(w, http.StatusCreated, map[string]any{
		"message": "Task created successfully",
		"task":    task,
	})
}

// updateTask обрабатывает PUT /api/tasks/{id}
//
// Меняются только присланные поля; id и владелец из тела игнорируются.
func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := web.DecodeJSON(w, r, &req); err != nil {
		if typeErr, ok := validation.TypeError(err, updateMessages); ok {
			err = validation.Merge(req, typeErr, h.svc.ValidateUpdate(req))
		}
		h.rs.Fail(w, r, err, "Failed to update task")
		return
	}

	task, err := h.svc.UpdateTask(r.Context(), ownerID, chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err, "Failed to update task")
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{
		"message": "Task updated successfully",
		"task":    task,
	})
}

// deleteTask обрабатывает DELETE /api/tasks/{id}
func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteTask(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "Failed to delete task")
		return
	}
	web.JSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

// fail добавляет к общей обработке ошибок 404 для чужой/несуществующей задачи.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	if errors.Is(err, ErrNotFound) {
		web.Error(w, http.StatusNotFound, "Task not found")
		return
	}
	h.rs.Fail(w, r, err, internalMsg)
}

// owner достаёт ID пользователя, положенный BearerAuth.
// Без него (роут смонтирован без аутентификации) отвечаем 401.
func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := appMiddleware.UserID(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "Access token required")
	}
	return id, ok
}

// parseListQuery разбирает query-параметры списка.
// Нечисловые page/limit превращаются в 0 и отсекаются валидацией.
func parseListQuery(r *http.Request) ListQuery {
	q := r.URL.Query()
	return ListQuery{
		Status:   strings.TrimSpace(q.Get("status")),
		Priority: strings.TrimSpace(q.Get("priority")),
		Category: strings.TrimSpace(q.Get("category")),
		Page:     parseIntParam(q.Get("page"), DefaultPage),
		Limit:    parseIntParam(q.Get("limit"), DefaultLimit),
	}
}

func parseIntParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

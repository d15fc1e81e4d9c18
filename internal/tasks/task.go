package tasks

import (
	"strings"
	"time"

	"taskmaster/internal/validation"
)

// Статусы задачи.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Приоритеты задачи.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task — модель задачи.
//
// UserID — владелец; выставляется сервером при создании и больше не меняется.
// CreatedAt/UpdatedAt ведёт хранилище, клиент их не задаёт.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Category    *string    `json:"category"`
	DueDate     *time.Time `json:"dueDate"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateTaskRequest описывает контракт входящего JSON для создания задачи.
type CreateTaskRequest struct {
	Title       string   `json:"title" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      string   `json:"status" validate:"omitempty,oneof=todo in-progress completed"`
	Category    *string  `json:"category" validate:"omitempty,max=50"`
	DueDate     *string  `json:"dueDate" validate:"omitempty,isodate"`
	Tags        []string `json:"tags" validate:"omitempty,dive,max=20"`
}

var createMessages = validation.Messages{
	"title":       "Title is required and must be less than 100 characters",
	"description": "Description must be less than 500 characters",
	"priority":    "Priority must be low, medium, or high",
	"status":      "Status must be todo, in-progress, or completed",
	"category":    "Category must be less than 50 characters",
	"dueDate":     "Due date must be a valid date",
	"tags":        "Each tag must be less than 20 characters",
	"tags.type":   "Tags must be an array",
}

// UpdateTaskRequest — частичное обновление: nil означает "поле не прислали".
//
// Пустые category и dueDate очищают значение.
type UpdateTaskRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string   `json:"description" validate:"omitempty,max=500"`
	Priority    *string   `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      *string   `json:"status" validate:"omitempty,oneof=todo in-progress completed"`
	Category    *string   `json:"category" validate:"omitempty,max=50"`
	DueDate     *string   `json:"dueDate" validate:"omitempty,isodate"`
	Tags        *[]string `json:"tags" validate:"omitempty,dive,max=20"`

	clearCategory bool
	clearDueDate  bool
}

var updateMessages = validation.Messages{
	"title":       "Title must be less than 100 characters",
	"description": "Description must be less than 500 characters",
	"priority":    "Priority must be low, medium, or high",
	"status":      "Status must be todo, in-progress, or completed",
	"category":    "Category must be less than 50 characters",
	"dueDate":     "Due date must be a valid date",
	"tags":        "Each tag must be less than 20 characters",
	"tags.type":   "Tags must be an array",
}

// ListQuery — параметры GET /api/tasks после разбора query-строки.
// Нераспознанные page/limit приходят нулями и отсекаются правилами min.
type ListQuery struct {
	Status   string `json:"status" validate:"omitempty,oneof=todo in-progress completed"`
	Priority string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Category string `json:"category" validate:"max=50"`
	Page     int    `json:"page" validate:"min=1"`
	Limit    int    `json:"limit" validate:"min=1,max=100"`
}

var listMessages = validation.Messages{
	"status":   "Status must be todo, in-progress, or completed",
	"priority": "Priority must be low, medium, or high",
	"category": "Category must be less than 50 characters",
	"page":     "Page must be a positive integer",
	"limit":    "Limit must be between 1 and 100",
}

// Значения пагинации по умолчанию.
const (
	DefaultPage  = 1
	DefaultLimit = 50
)

// Pagination — метаданные страницы списка.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalTasks  int64 `json:"totalTasks"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

// ListResult — страница задач и её метаданные.
type ListResult struct {
	Tasks      []Task     `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}

// Filter — фильтр списка; пустое поле означает "не фильтровать".
type Filter struct {
	Status   string
	Priority string
	Category string
}

// Match сообщает, проходит ли задача фильтр.
func (f Filter) Match(t Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Category != "" && (t.Category == nil || *t.Category != f.Category) {
		return false
	}
	return true
}

// Patch — изменения, которые хранилище применяет к задаче.
type Patch struct {
	Title         *string
	Description   *string
	Status        *string
	Priority      *string
	Category      *string
	ClearCategory bool
	DueDate       *time.Time
	ClearDueDate  bool
	Tags          *[]string
}

// Apply применяет только присланные поля.
func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	switch {
	case p.ClearCategory:
		t.Category = nil
	case p.Category != nil:
		c := *p.Category
		t.Category = &c
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.Tags != nil {
		t.Tags = append([]string{}, (*p.Tags)...)
	}
}

// trimPtr обрезает пробелы у значения по указателю, если оно есть.
func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func trimAll(ss []string) {
	for i := range ss {
		ss[i] = strings.TrimSpace(ss[i])
	}
}

// normalize повторяет санитайзеры: trim строк перед проверкой.
func (r *CreateTaskRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	trimPtr(r.Category)
	if r.Category != nil && *r.Category == "" {
		r.Category = nil
	}
	trimPtr(r.DueDate)
	if r.DueDate != nil && *r.DueDate == "" {
		r.DueDate = nil
	}
	trimAll(r.Tags)
}

func (r *UpdateTaskRequest) normalize() {
	trimPtr(r.Title)
	trimPtr(r.Description)
	trimPtr(r.Category)
	if r.Category != nil && *r.Category == "" {
		r.Category, r.clearCategory = nil, true
	}
	trimPtr(r.DueDate)
	if r.DueDate != nil && *r.DueDate == "" {
		r.DueDate, r.clearDueDate = nil, true
	}
	if r.Tags != nil {
		trimAll(*r.Tags)
	}
}

package tasks

import (
	"context"
	"fmt"
	"math"

	"taskmaster/internal/validation"
)

// Service — слой бизнес-логики задач: handler -> service -> store.
//
// Владелец (ownerID) всегда передаётся явно: сервис ничего не знает
// об HTTP и контексте аутентификации.
type Service struct {
	store     Store
	validator *validation.Validator
}

// NewService создаёт сервис поверх хранилища.
func NewService(store Store, v *validation.Validator) *Service {
	return &Service{store: store, validator: v}
}

// ListTasks возвращает страницу задач владельца и метаданные пагинации.
func (s *Service) ListTasks(ctx context.Context, ownerID string, q ListQuery) (*ListResult, error) {
	// Зачем идти в хранилище, если контекст уже отменён
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.Check(q, listMessages); err != nil {
		return nil, err
	}

	f := Filter{Status: q.Status, Priority: q.Priority, Category: q.Category}
	skip := pageOffset(q.Page, q.Limit)

	items, err := s.store.ListTasks(ctx, ownerID, f, skip, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	total, err := s.store.CountTasks(ctx, ownerID, f)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	limit := int64(q.Limit)
	return &ListResult{
		Tasks: items,
		Pagination: Pagination{
			CurrentPage: q.Page,
			TotalPages:  int((total + limit - 1) / limit),
			TotalTasks:  total,
			HasNext:     int64(skip) < total-int64(len(items)),
			HasPrev:     q.Page > 1,
		},
	}, nil
}

// GetTask возвращает задачу по id.
func (s *Service) GetTask(ctx context.Context, ownerID, id string) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.GetTask(ctx, ownerID, id)
}

// CreateTask проверяет запрос, подставляет значения по умолчанию и сохраняет задачу.
// Владелец берётся из ownerID, а не из тела запроса.
func (s *Service) CreateTask(ctx context.Context, ownerID string, req CreateTaskRequest) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req.normalize()
	if err := s.validator.Check(req, createMessages); err != nil {
		return nil, err
	}

	task := &Task{
		UserID:      ownerID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Category:    req.Category,
		Tags:        append([]string{}, req.Tags...),
	}
	if task.Status == "" {
		task.Status = StatusTodo
	}
	if task.Priority == "" {
		task.Priority = PriorityMedium
	}
	if req.DueDate != nil {
		// Формат уже проверен правилом isodate.
		due, err := validation.ParseDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		task.DueDate = &due
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// ValidateCreate проверяет запрос на создание, ничего не сохраняя.
func (s *Service) ValidateCreate(req CreateTaskRequest) error {
	req.normalize()
	return s.validator.Check(req, createMessages)
}

// ValidateUpdate проверяет запрос на обновление, ничего не сохраняя.
func (s *Service) ValidateUpdate(req UpdateTaskRequest) error {
	req.normalize()
	return s.validator.Check(req, updateMessages)
}

// UpdateTask обновляет только присланные поля.
// Проверка идёт до обращения к хранилищу: невалидный запрос ничего не меняет.
func (s *Service) UpdateTask(ctx context.Context, ownerID, id string, req UpdateTaskRequest) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req.normalize()
	if err := s.validator.Check(req, updateMessages); err != nil {
		return nil, err
	}

	p := Patch{
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		Priority:      req.Priority,
		Category:      req.Category,
		ClearCategory: req.clearCategory,
		ClearDueDate:  req.clearDueDate,
		Tags:          req.Tags,
	}
	if req.DueDate != nil {
		due, err := validation.ParseDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		p.DueDate = &due
	}

	return s.store.UpdateTask(ctx, ownerID, id, p)
}

// DeleteTask удаляет задачу владельца.
func (s *Service) DeleteTask(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.DeleteTask(ctx, ownerID, id)
}

// pageOffset возвращает число пропускаемых задач. Страница, смещение которой
// не помещается в int, заведомо пуста: смещение прижимается к math.MaxInt.
func pageOffset(page, limit int) int {
	if page <= 1 || limit <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

package tasks

import (
	"context"
	"errors"
)

// ErrNotFound — задачи нет или она принадлежит другому пользователю.
// Снаружи эти случаи неотличимы.
var ErrNotFound = errors.New("task not found")

// Store — контракт хранилища задач.
//
// Каждый метод ограничен владельцем (ownerID): чужие задачи для него
// не существуют. Атомарна только одна запись; составные чтения
// транзакций не дают.
type Store interface {
	// CreateTask выдаёт ID, проставляет CreatedAt/UpdatedAt и сохраняет задачу.
	CreateTask(ctx context.Context, t *Task) error

	// GetTask возвращает задачу владельца или ErrNotFound.
	GetTask(ctx context.Context, ownerID, id string) (*Task, error)

	// ListTasks возвращает страницу задач, отсортированную по CreatedAt (новые первыми).
	ListTasks(ctx context.Context, ownerID string, f Filter, skip, limit int) ([]Task, error)

	// CountTasks считает задачи владельца под фильтром.
	CountTasks(ctx context.Context, ownerID string, f Filter) (int64, error)

	// UpdateTask применяет Patch, обновляет UpdatedAt и возвращает результат.
	UpdateTask(ctx context.Context, ownerID, id string, p Patch) (*Task, error)

	// DeleteTask удаляет задачу владельца или возвращает ErrNotFound.
	DeleteTask(ctx context.Context, ownerID, id string) error
}

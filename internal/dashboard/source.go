package dashboard

import (
	"context"
	"time"

	"taskmaster/internal/tasks"
)

// Field — поле задачи, по которому хранилище умеет группировать.
type Field string

// Поля группировки.
const (
	FieldStatus   Field = "status"
	FieldPriority Field = "priority"
	FieldCategory Field = "category"
)

// Source — read-only запросы к хранилищу, из которых собирается статистика.
// Все запросы ограничены владельцем. Между вызовами снимок не фиксируется.
type Source interface {
	// GroupCount считает задачи владельца по значениям field.
	GroupCount(ctx context.Context, ownerID string, field Field) ([]Group, error)

	// CreatedPerDay считает задачи, созданные не раньше since, по дням в loc.
	CreatedPerDay(ctx context.Context, ownerID string, since time.Time, loc *time.Location) ([]DayCount, error)

	// CountOverdue считает невыполненные задачи с dueDate < now.
	CountOverdue(ctx context.Context, ownerID string, now time.Time) (int64, error)

	// CountDueBetween считает невыполненные задачи с from <= dueDate < to.
	CountDueBetween(ctx context.Context, ownerID string, from, to time.Time) (int64, error)

	// RecentTasks возвращает limit задач, изменённых последними.
	RecentTasks(ctx context.Context, ownerID string, limit int) ([]tasks.Task, error)
}

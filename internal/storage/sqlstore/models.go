package sqlstore

import (
	"time"

	"taskmaster/internal/auth"
	"taskmaster/internal/tasks"
)

// taskRecord — строка таблицы tasks.
// Время ведёт сам Store (часы подменяются в тестах), поэтому автозаполнение gorm выключено.
type taskRecord struct {
	ID          string     `gorm:"primaryKey;size:36"`
	UserID      string     `gorm:"size:36;not null;index:idx_tasks_user_created,priority:1;index:idx_tasks_user_updated,priority:1"`
	Title       string     `gorm:"size:100;not null"`
	Description string     `gorm:"size:500"`
	Status      string     `gorm:"size:20;not null;index"`
	Priority    string     `gorm:"size:10;not null"`
	Category    *string    `gorm:"size:50"`
	DueDate     *time.Time `gorm:"index"`
	Tags        []string   `gorm:"serializer:json"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime:false;index:idx_tasks_user_created,priority:2"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime:false;index:idx_tasks_user_updated,priority:2"`
}

// TableName returns the table name for taskRecord.
func (taskRecord) TableName() string {
	return "tasks"
}

func newTaskRecord(t *tasks.Task) taskRecord {
	rec := taskRecord{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Category:    t.Category,
		Tags:        t.Tags,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
	if t.DueDate != nil {
		d := t.DueDate.UTC()
		rec.DueDate = &d
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	return rec
}

func (r taskRecord) toTask() tasks.Task {
	t := tasks.Task{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Category:    r.Category,
		Tags:        r.Tags,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.DueDate != nil {
		d := r.DueDate.UTC()
		t.DueDate = &d
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t
}

func toTasks(recs []taskRecord) []tasks.Task {
	out := make([]tasks.Task, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toTask())
	}
	return out
}

// userRecord — строка таблицы users.
type userRecord struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Username     string    `gorm:"size:30;not null"`
	Email        string    `gorm:"size:254;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:60;not null"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime:false"`
}

// TableName returns the table name for userRecord.
func (userRecord) TableName() string {
	return "users"
}

func (r userRecord) toUser() *auth.User {
	return &auth.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

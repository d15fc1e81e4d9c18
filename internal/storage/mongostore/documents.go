package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskmaster/internal/auth"
	"taskmaster/internal/tasks"
)

// taskDoc — документ коллекции tasks.
// category и due_date без omitempty: отсутствие значения хранится как null,
// и $group собирает такие задачи в одну группу.
type taskDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"user_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Status      string             `bson:"status"`
	Priority    string             `bson:"priority"`
	Category    *string            `bson:"category"`
	DueDate     *time.Time         `bson:"due_date"`
	Tags        []string           `bson:"tags"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func newTaskDoc(t *tasks.Task) taskDoc {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return taskDoc{
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Category:    t.Category,
		DueDate:     t.DueDate,
		Tags:        tags,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d taskDoc) toTask() tasks.Task {
	t := tasks.Task{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		Priority:    d.Priority,
		Category:    d.Category,
		Tags:        d.Tags,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.DueDate != nil {
		due := d.DueDate.UTC()
		t.DueDate = &due
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t
}

// userDoc — документ коллекции users.
type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func (d userDoc) toUser() *auth.User {
	return &auth.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// groupDoc — строка результата $group.
type groupDoc struct {
	Key   *string `bson:"_id"`
	Count int64   `bson:"count"`
}

// Package sqlstore — хранилище на SQLite через gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskmaster/internal/auth"
	"taskmaster/internal/dashboard"
	"taskmaster/internal/tasks"
)

// Store реализует tasks.Store, dashboard.Source и auth.UserStore поверх gorm.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var (
	_ tasks.Store      = (*Store)(nil)
	_ dashboard.Source = (*Store)(nil)
	_ auth.UserStore   = (*Store)(nil)
)

// Option настраивает Store.
type Option func(*options)

type options struct {
	now      func() time.Time
	logLevel logger.LogLevel
}

// WithClock подменяет часы (для тестов).
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithDebug включает SQL-лог gorm.
func WithDebug(on bool) Option {
	return func(o *options) {
		if on {
			o.logLevel = logger.Info
		}
	}
}

// Open подключается к файлу SQLite (":memory:" — база в памяти)
// и применяет миграции.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{now: time.Now, logLevel: logger.Silent}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(o.logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite пишет одним писателем; одно соединение заодно держит ":memory:" общей.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&taskRecord{}, &userRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, now: o.now}, nil
}

// Close закрывает соединение с базой.
func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// owned — запрос к задачам одного владельца.
func (s *Store) owned(ctx context.Context, ownerID string) *gorm.DB {
	return s.db.WithContext(ctx).Model(&taskRecord{}).Where("user_id = ?", ownerID)
}

func applyFilter(q *gorm.DB, f tasks.Filter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	return q
}

// --- задачи ---

// CreateTask сохраняет новую задачу.
func (s *Store) CreateTask(ctx context.Context, t *tasks.Task) error {
	now := s.now().UTC()
	t.ID = uuid.NewString()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}

	rec := newTaskRecord(t)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTask ищет задачу владельца.
func (s *Store) GetTask(ctx context.Context, ownerID, id string) (*tasks.Task, error) {
	var rec taskRecord
	if err := s.owned(ctx, ownerID).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tasks.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	t := rec.toTask()
	return &t, nil
}

// ListTasks возвращает страницу, новые задачи первыми.
func (s *Store) ListTasks(ctx context.Context, ownerID string, f tasks.Filter, skip, limit int) ([]tasks.Task, error) {
	if skip < 0 {
		skip = 0
	}
	var recs []taskRecord
	q := applyFilter(s.owned(ctx, ownerID), f).
		Order("created_at DESC").
		Order("id").
		Offset(skip)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return toTasks(recs), nil
}

// CountTasks считает задачи владельца под фильтром.
func (s *Store) CountTasks(ctx context.Context, ownerID string, f tasks.Filter) (int64, error) {
	var n int64
	if err := applyFilter(s.owned(ctx, ownerID), f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

// UpdateTask читает задачу, применяет Patch и сохраняет в одной транзакции.
func (s *Store) UpdateTask(ctx context.Context, ownerID, id string, p tasks.Patch) (*tasks.Task, error) {
	var out tasks.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec taskRecord
		if err := tx.Where("user_id = ? AND id = ?", ownerID, id).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return tasks.ErrNotFound
			}
			return fmt.Errorf("failed to find task: %w", err)
		}

		t := rec.toTask()
		p.Apply(&t)
		t.UpdatedAt = s.now().UTC()

		updated := newTaskRecord(&t)
		if err := tx.Save(&updated).Error; err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		out = updated.toTask()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask удаляет задачу владельца.
func (s *Store) DeleteTask(ctx context.Context, ownerID, id string) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", ownerID, id).
		Delete(&taskRecord{})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected == 0 {
		return tasks.ErrNotFound
	}
	return nil
}

// --- статистика ---

// groupColumns — белый список колонок для GROUP BY.
var groupColumns = map[dashboard.Field]string{
	dashboard.FieldStatus:   "status",
	dashboard.FieldPriority: "priority",
	dashboard.FieldCategory: "category",
}

type groupRow struct {
	Grp   *string `gorm:"column:grp"`
	Count int64   `gorm:"column:cnt"`
}

// GroupCount группирует задачи владельца по полю.
func (s *Store) GroupCount(ctx context.Context, ownerID string, field dashboard.Field) ([]dashboard.Group, error) {
	col, ok := groupColumns[field]
	if !ok {
		return nil, fmt.Errorf("unknown group field %q", field)
	}

	var rows []groupRow
	err := s.owned(ctx, ownerID).
		Select(col + " AS grp, COUNT(*) AS cnt").
		Group(col).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group tasks by %s: %w", col, err)
	}

	groups := make([]dashboard.Group, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, dashboard.Group{Key: r.Grp, Count: r.Count})
	}
	return groups, nil
}

// CreatedPerDay выбирает даты создания и раскладывает их по дням в loc.
// strftime в SQLite знает только UTC и localtime, поэтому дни считаются в Go.
func (s *Store) CreatedPerDay(ctx context.Context, ownerID string, since time.Time, loc *time.Location) ([]dashboard.DayCount, error) {
	var created []time.Time
	err := s.owned(ctx, ownerID).
		Where("created_at >= ?", since.UTC()).
		Pluck("created_at", &created).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}
	return dashboard.BucketByDay(created, loc), nil
}

// CountOverdue считает невыполненные задачи со сроком раньше now.
func (s *Store) CountOverdue(ctx context.Context, ownerID string, now time.Time) (int64, error) {
	var n int64
	err := s.owned(ctx, ownerID).
		Where("due_date IS NOT NULL AND due_date < ?", now.UTC()).
		Where("status <> ?", tasks.StatusCompleted).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue tasks: %w", err)
	}
	return n, nil
}

// CountDueBetween считает невыполненные задачи со сроком в [from, to).
func (s *Store) CountDueBetween(ctx context.Context, ownerID string, from, to time.Time) (int64, error) {
	var n int64
	err := s.owned(ctx, ownerID).
		Where("due_date >= ? AND due_date < ?", from.UTC(), to.UTC()).
		Where("status <> ?", tasks.StatusCompleted).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks due: %w", err)
	}
	return n, nil
}

// RecentTasks возвращает limit задач, изменённых последними.
func (s *Store) RecentTasks(ctx context.Context, ownerID string, limit int) ([]tasks.Task, error) {
	var recs []taskRecord
	if err := s.owned(ctx, ownerID).Order("updated_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent tasks: %w", err)
	}
	return toTasks(recs), nil
}

// --- пользователи ---

// CreateUser сохраняет пользователя; дубликат email ловит уникальный индекс.
func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	now := s.now().UTC()
	rec := userRecord{
		ID:           uuid.NewString(),
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return auth.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	u.ID, u.CreatedAt, u.UpdatedAt = rec.ID, rec.CreatedAt, rec.UpdatedAt
	return nil
}

// FindUserByEmail ищет пользователя по email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

// FindUserByID ищет пользователя по ID.
func (s *Store) FindUserByID(ctx context.Context, id string) (*auth.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Store) findUser(ctx context.Context, query string, arg any) (*auth.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).Where(query, arg).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return rec.toUser(), nil
}

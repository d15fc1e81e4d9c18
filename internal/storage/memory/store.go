// Package memory — хранилище задач и пользователей в памяти процесса.
//
// Опционально все данные сбрасываются в JSON-файл при каждой записи и
// читаются из него при старте (драйвер "file"). Без файла хранилище
// служит подделкой базы в тестах.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskmaster/internal/auth"
	"taskmaster/internal/dashboard"
	"taskmaster/internal/tasks"
)

// Store хранит данные в слайсах под RWMutex.
//
// Изменения сначала готовятся в копии ("кандидате"), сохраняются на диск
// и только потом коммитятся в память: упавшая запись файла не оставляет
// расхождений между памятью и диском.
type Store struct {
	mu    sync.RWMutex
	tasks []tasks.Task
	users []auth.User

	file string
	now  func() time.Time
}

// Option настраивает Store.
type Option func(*Store)

// WithClock подменяет часы (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New создаёт пустое хранилище без файла.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open создаёт хранилище, привязанное к файлу path, и загружает его содержимое.
// Отсутствующий файл — нормальная ситуация для первого запуска.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := New(opts...)
	s.file = path

	snap, err := loadSnapshot(ctx, path)
	if err != nil {
		return nil, err
	}
	s.tasks = snap.Tasks
	s.users = snap.userList()
	return s, nil
}

// Close ничего не держит; нужен для общего интерфейса хранилищ.
func (s *Store) Close(context.Context) error { return nil }

var (
	_ tasks.Store      = (*Store)(nil)
	_ dashboard.Source = (*Store)(nil)
	_ auth.UserStore   = (*Store)(nil)
)

// --- задачи ---

// CreateTask выдаёт UUID и время создания и сохраняет задачу.
// Заранее заданный CreatedAt сохраняется (используется при импорте и в тестах).
func (s *Store) CreateTask(ctx context.Context, t *tasks.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

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

	candidate := make([]tasks.Task, 0, len(s.tasks)+1)
	candidate = append(candidate, s.tasks...)
	candidate = append(candidate, cloneTask(*t))

	if err := s.persist(ctx, candidate, s.users); err != nil {
		return err
	}
	s.tasks = candidate
	return nil
}

// GetTask возвращает копию задачи владельца.
func (s *Store) GetTask(ctx context.Context, ownerID, id string) (*tasks.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(ownerID, id)
	if idx == -1 {
		return nil, tasks.ErrNotFound
	}
	t := cloneTask(s.tasks[idx])
	return &t, nil
}

// ListTasks возвращает страницу, новые задачи первыми.
func (s *Store) ListTasks(ctx context.Context, ownerID string, f tasks.Filter, skip, limit int) ([]tasks.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := s.owned(ownerID, f.Match)
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if skip < 0 {
		skip = 0
	}
	if skip >= len(matched) {
		return []tasks.Task{}, nil
	}
	end := len(matched)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return matched[skip:end], nil
}

// CountTasks считает задачи владельца под фильтром.
func (s *Store) CountTasks(ctx context.Context, ownerID string, f tasks.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for i := range s.tasks {
		if s.tasks[i].UserID == ownerID && f.Match(s.tasks[i]) {
			n++
		}
	}
	return n, nil
}

// UpdateTask применяет Patch к задаче владельца.
func (s *Store) UpdateTask(ctx context.Context, ownerID, id string, p tasks.Patch) (*tasks.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(ownerID, id)
	if idx == -1 {
		return nil, tasks.ErrNotFound
	}

	updated := cloneTask(s.tasks[idx])
	p.Apply(&updated)
	updated.UpdatedAt = s.now().UTC()

	candidate := make([]tasks.Task, len(s.tasks))
	copy(candidate, s.tasks)
	candidate[idx] = updated

	if err := s.persist(ctx, candidate, s.users); err != nil {
		return nil, err
	}
	s.tasks = candidate

	out := cloneTask(updated)
	return &out, nil
}

// DeleteTask удаляет задачу владельца.
func (s *Store) DeleteTask(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(ownerID, id)
	if idx == -1 {
		return tasks.ErrNotFound
	}

	candidate := make([]tasks.Task, 0, len(s.tasks)-1)
	candidate = append(candidate, s.tasks[:idx]...)
	candidate = append(candidate, s.tasks[idx+1:]...)

	if err := s.persist(ctx, candidate, s.users); err != nil {
		return err
	}
	s.tasks = candidate
	return nil
}

// --- статистика ---

// GroupCount группирует задачи владельца по полю.
func (s *Store) GroupCount(ctx context.Context, ownerID string, field dashboard.Field) ([]dashboard.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		nullCount int64
		order     []string
		counts    = make(map[string]int64)
	)
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.UserID != ownerID {
			continue
		}
		key, ok := fieldValue(t, field)
		if !ok {
			nullCount++
			continue
		}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	groups := make([]dashboard.Group, 0, len(order)+1)
	for _, key := range order {
		k := key
		groups = append(groups, dashboard.Group{Key: &k, Count: counts[key]})
	}
	if nullCount > 0 {
		groups = append(groups, dashboard.Group{Count: nullCount})
	}
	return groups, nil
}

// CreatedPerDay считает создания по дням начиная с since.
func (s *Store) CreatedPerDay(ctx context.Context, ownerID string, since time.Time, loc *time.Location) ([]dashboard.DayCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var created []time.Time
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.UserID == ownerID && !t.CreatedAt.Before(since) {
			created = append(created, t.CreatedAt)
		}
	}
	return dashboard.BucketByDay(created, loc), nil
}

// CountOverdue считает невыполненные задачи со сроком раньше now.
func (s *Store) CountOverdue(ctx context.Context, ownerID string, now time.Time) (int64, error) {
	return s.countOpen(ctx, ownerID, func(due time.Time) bool { return due.Before(now) })
}

// CountDueBetween считает невыполненные задачи со сроком в [from, to).
func (s *Store) CountDueBetween(ctx context.Context, ownerID string, from, to time.Time) (int64, error) {
	return s.countOpen(ctx, ownerID, func(due time.Time) bool {
		return !due.Before(from) && due.Before(to)
	})
}

// RecentTasks возвращает limit задач, изменённых последними.
func (s *Store) RecentTasks(ctx context.Context, ownerID string, limit int) ([]tasks.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	owned := s.owned(ownerID, nil)
	s.mu.RUnlock()

	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].UpdatedAt.After(owned[j].UpdatedAt)
	})
	if limit > 0 && len(owned) > limit {
		owned = owned[:limit]
	}
	return owned, nil
}

func (s *Store) countOpen(ctx context.Context, ownerID string, dueMatch func(time.Time) bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.UserID != ownerID || t.DueDate == nil || t.Status == tasks.StatusCompleted {
			continue
		}
		if dueMatch(*t.DueDate) {
			n++
		}
	}
	return n, nil
}

// --- пользователи ---

// CreateUser сохраняет пользователя; email уникален.
func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if strings.EqualFold(s.users[i].Email, u.Email) {
			return auth.ErrUserExists
		}
	}

	now := s.now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now

	candidate := make([]auth.User, 0, len(s.users)+1)
	candidate = append(candidate, s.users...)
	candidate = append(candidate, *u)

	if err := s.persist(ctx, s.tasks, candidate); err != nil {
		return err
	}
	s.users = candidate
	return nil
}

// FindUserByEmail ищет пользователя по email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.findUser(ctx, func(u *auth.User) bool { return strings.EqualFold(u.Email, email) })
}

// FindUserByID ищет пользователя по ID.
func (s *Store) FindUserByID(ctx context.Context, id string) (*auth.User, error) {
	return s.findUser(ctx, func(u *auth.User) bool { return u.ID == id })
}

func (s *Store) findUser(ctx context.Context, match func(*auth.User) bool) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.users {
		if match(&s.users[i]) {
			u := s.users[i]
			return &u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

// --- helpers ---

// indexOf ищет задачу владельца; вызывается под блокировкой.
func (s *Store) indexOf(ownerID, id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id && s.tasks[i].UserID == ownerID {
			return i
		}
	}
	return -1
}

// owned копирует задачи владельца, прошедшие match (nil — все);
// вызывается под блокировкой.
func (s *Store) owned(ownerID string, match func(tasks.Task) bool) []tasks.Task {
	out := make([]tasks.Task, 0)
	for i := range s.tasks {
		t := s.tasks[i]
		if t.UserID != ownerID || (match != nil && !match(t)) {
			continue
		}
		out = append(out, cloneTask(t))
	}
	return out
}

// fieldValue возвращает значение поля группировки; false — поле не задано.
func fieldValue(t *tasks.Task, field dashboard.Field) (string, bool) {
	switch field {
	case dashboard.FieldStatus:
		return t.Status, true
	case dashboard.FieldPriority:
		return t.Priority, true
	case dashboard.FieldCategory:
		if t.Category == nil {
			return "", false
		}
		return *t.Category, true
	default:
		return "", false
	}
}

// cloneTask делает глубокую копию, чтобы наружу не утекали указатели на
// внутреннее состояние.
func cloneTask(t tasks.Task) tasks.Task {
	if t.Category != nil {
		c := *t.Category
		t.Category = &c
	}
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	t.Tags = append([]string{}, t.Tags...)
	return t
}

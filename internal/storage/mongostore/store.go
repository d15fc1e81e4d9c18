// Package mongostore — хранилище на MongoDB.
//
// Идентификаторы — ObjectID в hex. Невалидный hex в пути запроса означает
// "не найдено", а не ошибку разбора.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskmaster/internal/auth"
	"taskmaster/internal/dashboard"
	"taskmaster/internal/tasks"
)

const (
	tasksCollection = "tasks"
	usersCollection = "users"
)

// Store реализует tasks.Store, dashboard.Source и auth.UserStore поверх MongoDB.
type Store struct {
	client *mongo.Client
	tasks  *mongo.Collection
	users  *mongo.Collection
	now    func() time.Time
}

var (
	_ tasks.Store      = (*Store)(nil)
	_ dashboard.Source = (*Store)(nil)
	_ auth.UserStore   = (*Store)(nil)
)

// Option настраивает Store.
type Option func(*Store)

// WithClock подменяет часы (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open подключается к MongoDB, проверяет связь и создаёт индексы.
func Open(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		tasks:  db.Collection(tasksCollection),
		users:  db.Collection(usersCollection),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.tasks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "due_date", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create task indexes: %w", err)
	}

	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// Close отключается от сервера.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func ownerFilter(ownerID string, f tasks.Filter) bson.M {
	m := bson.M{"user_id": ownerID}
	if f.Status != "" {
		m["status"] = f.Status
	}
	if f.Priority != "" {
		m["priority"] = f.Priority
	}
	if f.Category != "" {
		m["category"] = f.Category
	}
	return m
}

// --- задачи ---

// CreateTask вставляет документ и возвращает ID в t.
func (s *Store) CreateTask(ctx context.Context, t *tasks.Task) error {
	now := s.now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}

	doc := newTaskDoc(t)
	doc.ID = primitive.NewObjectID()
	if _, err := s.tasks.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	t.ID = doc.ID.Hex()
	return nil
}

// GetTask ищет задачу владельца.
func (s *Store) GetTask(ctx context.Context, ownerID, id string) (*tasks.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, tasks.ErrNotFound
	}

	var doc taskDoc
	err = s.tasks.FindOne(ctx, bson.M{"_id": oid, "user_id": ownerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, tasks.ErrNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	t := doc.toTask()
	return &t, nil
}

// ListTasks возвращает страницу, новые задачи первыми.
func (s *Store) ListTasks(ctx context.Context, ownerID string, f tasks.Filter, skip, limit int) ([]tasks.Task, error) {
	if skip < 0 {
		skip = 0
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(skip))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.find(ctx, ownerFilter(ownerID, f), opts)
}

// CountTasks считает задачи владельца под фильтром.
func (s *Store) CountTasks(ctx context.Context, ownerID string, f tasks.Filter) (int64, error) {
	n, err := s.tasks.CountDocuments(ctx, ownerFilter(ownerID, f))
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// UpdateTask применяет Patch одним findOneAndUpdate.
func (s *Store) UpdateTask(ctx context.Context, ownerID, id string, p tasks.Patch) (*tasks.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, tasks.ErrNotFound
	}

	set := bson.M{"updated_at": s.now().UTC()}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.Priority != nil {
		set["priority"] = *p.Priority
	}
	switch {
	case p.ClearCategory:
		set["category"] = nil
	case p.Category != nil:
		set["category"] = *p.Category
	}
	switch {
	case p.ClearDueDate:
		set["due_date"] = nil
	case p.DueDate != nil:
		set["due_date"] = p.DueDate.UTC()
	}
	if p.Tags != nil {
		tags := *p.Tags
		if tags == nil {
			tags = []string{}
		}
		set["tags"] = tags
	}

	var doc taskDoc
	err = s.tasks.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "user_id": ownerID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, tasks.ErrNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	t := doc.toTask()
	return &t, nil
}

// DeleteTask удаляет задачу владельца.
func (s *Store) DeleteTask(ctx context.Context, ownerID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return tasks.ErrNotFound
	}

	res, err := s.tasks.DeleteOne(ctx, bson.M{"_id": oid, "user_id": ownerID})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return tasks.ErrNotFound
	}
	return nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]tasks.Task, error) {
	cur, err := s.tasks.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	out := make([]tasks.Task, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toTask())
	}
	return out, nil
}

// --- статистика ---

// GroupCount группирует задачи владельца по полю через $group.
func (s *Store) GroupCount(ctx context.Context, ownerID string, field dashboard.Field) ([]dashboard.Group, error) {
	switch field {
	case dashboard.FieldStatus, dashboard.FieldPriority, dashboard.FieldCategory:
	default:
		return nil, fmt.Errorf("unknown group field %q", field)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": ownerID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$" + string(field),
			"count": bson.M{"$sum": 1},
		}}},
	}

	var rows []groupDoc
	if err := s.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("group tasks by %s: %w", field, err)
	}

	groups := make([]dashboard.Group, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, dashboard.Group{Key: r.Key, Count: r.Count})
	}
	return groups, nil
}

// CreatedPerDay группирует даты создания по дням в loc средствами $dateToString.
func (s *Store) CreatedPerDay(ctx context.Context, ownerID string, since time.Time, loc *time.Location) ([]dashboard.DayCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id":    ownerID,
			"created_at": bson.M{"$gte": since.UTC()},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format":   "%Y-%m-%d",
				"date":     "$created_at",
				"timezone": timezone(loc, since),
			}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	var rows []groupDoc
	if err := s.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("activity: %w", err)
	}

	days := make([]dashboard.DayCount, 0, len(rows))
	for _, r := range rows {
		if r.Key == nil {
			continue
		}
		days = append(days, dashboard.DayCount{Date: *r.Key, Count: r.Count})
	}
	return days, nil
}

// CountOverdue считает невыполненные задачи со сроком раньше now.
func (s *Store) CountOverdue(ctx context.Context, ownerID string, now time.Time) (int64, error) {
	n, err := s.tasks.CountDocuments(ctx, bson.M{
		"user_id":  ownerID,
		"due_date": bson.M{"$ne": nil, "$lt": now.UTC()},
		"status":   bson.M{"$ne": tasks.StatusCompleted},
	})
	if err != nil {
		return 0, fmt.Errorf("count overdue tasks: %w", err)
	}
	return n, nil
}

// CountDueBetween считает невыполненные задачи со сроком в [from, to).
func (s *Store) CountDueBetween(ctx context.Context, ownerID string, from, to time.Time) (int64, error) {
	n, err := s.tasks.CountDocuments(ctx, bson.M{
		"user_id":  ownerID,
		"due_date": bson.M{"$gte": from.UTC(), "$lt": to.UTC()},
		"status":   bson.M{"$ne": tasks.StatusCompleted},
	})
	if err != nil {
		return 0, fmt.Errorf("count tasks due: %w", err)
	}
	return n, nil
}

// RecentTasks возвращает limit задач, изменённых последними, только с полями проекции.
func (s *Store) RecentTasks(ctx context.Context, ownerID string, limit int) ([]tasks.Task, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{
			"title": 1, "status": 1, "priority": 1, "category": 1,
			"user_id": 1, "updated_at": 1,
		})
	return s.find(ctx, bson.M{"user_id": ownerID}, opts)
}

func (s *Store) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cur, err := s.tasks.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

// timezone переводит loc в формат, понятный MongoDB: имя зоны Olson или
// смещение "+hh:mm" для Local, у которого имени нет.
func timezone(loc *time.Location, at time.Time) string {
	if loc == nil {
		return "UTC"
	}
	if name := loc.String(); name != "Local" {
		return name
	}
	_, offset := at.In(loc).Zone()
	sign := '+'
	if offset < 0 {
		sign, offset = '-', -offset
	}
	return fmt.Sprintf("%c%02d:%02d", sign, offset/3600, offset%3600/60)
}

// --- пользователи ---

// CreateUser вставляет пользователя; дубликат email ловит уникальный индекс.
func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	now := s.now().UTC()
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return auth.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, u.CreatedAt, u.UpdatedAt = doc.ID.Hex(), now, now
	return nil
}

// FindUserByEmail ищет пользователя по email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

// FindUserByID ищет пользователя по ID.
func (s *Store) FindUserByID(ctx context.Context, id string) (*auth.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, auth.ErrUserNotFound
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*auth.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toUser(), nil
}

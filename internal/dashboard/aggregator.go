package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrNotAuthorized — запрос статистики без владельца.
var ErrNotAuthorized = errors.New("not authorized")

// ActivityDays — глубина гистограммы активности в календарных днях.
const ActivityDays = 7

// ActivitySince — начало окна активности для момента now: тот же час
// ActivityDays календарных дней назад в loc, даже через переход на летнее время.
func ActivitySince(now time.Time, loc *time.Location) time.Time {
	return now.In(loc).AddDate(0, 0, -ActivityDays)
}

// RecentLimit — сколько задач отдаёт лента последних изменений.
const RecentLimit = 10

// Aggregator собирает Stats из шести независимых запросов к Source.
//
// Запросы идут параллельно и не образуют транзакцию: при одновременных
// изменениях части ответа могут видеть чуть разные состояния. Для личного
// таск-менеджера это допустимо.
type Aggregator struct {
	src Source
	loc *time.Location
}

// Option настраивает Aggregator.
type Option func(*Aggregator)

// WithLocation задаёт часовой пояс, в котором считаются дни
// (activity и dueToday). По умолчанию UTC.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// NewAggregator создаёт Aggregator поверх src.
func NewAggregator(src Source, opts ...Option) *Aggregator {
	a := &Aggregator{src: src, loc: time.UTC}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Location возвращает часовой пояс дней.
func (a *Aggregator) Location() *time.Location { return a.loc }

// ComputeStats считает статистику владельца на момент now. Ничего не меняет.
// Первая упавшая подзадача отменяет остальные.
func (a *Aggregator) ComputeStats(ctx context.Context, ownerID string, now time.Time) (*Stats, error) {
	if ownerID == "" {
		return nil, ErrNotAuthorized
	}

	var (
		statusGroups   []Group
		priorityGroups []Group
		categoryGroups []Group
		days           []DayCount
		overdue        int64
		dueToday       int64
	)

	dayStart := StartOfDay(now, a.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		statusGroups, err = a.src.GroupCount(gctx, ownerID, FieldStatus)
		return wrap("status counts", err)
	})
	g.Go(func() (err error) {
		priorityGroups, err = a.src.GroupCount(gctx, ownerID, FieldPriority)
		return wrap("priority counts", err)
	})
	g.Go(func() (err error) {
		categoryGroups, err = a.src.GroupCount(gctx, ownerID, FieldCategory)
		return wrap("category counts", err)
	})
	g.Go(func() (err error) {
		days, err = a.src.CreatedPerDay(gctx, ownerID, ActivitySince(now, a.loc), a.loc)
		return wrap("activity", err)
	})
	g.Go(func() (err error) {
		overdue, err = a.src.CountOverdue(gctx, ownerID, now)
		return wrap("overdue", err)
	})
	g.Go(func() (err error) {
		dueToday, err = a.src.CountDueBetween(gctx, ownerID, dayStart, dayEnd)
		return wrap("due today", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Stats{
		Tasks:      SummarizeStatus(statusGroups),
		Priority:   SummarizePriority(priorityGroups),
		Categories: CategoryList(categoryGroups),
		Activity:   ActivityList(days),
		Alerts:     Alerts{Overdue: overdue, DueToday: dueToday},
	}, nil
}

// Recent возвращает RecentLimit последних изменённых задач в проекции.
func (a *Aggregator) Recent(ctx context.Context, ownerID string) ([]RecentTask, error) {
	if ownerID == "" {
		return nil, ErrNotAuthorized
	}
	ts, err := a.src.RecentTasks(ctx, ownerID, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent tasks: %w", err)
	}
	return ProjectRecent(ts), nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

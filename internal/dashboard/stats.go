// Package dashboard считает сводную статистику по задачам одного пользователя.
//
// Хранилище отдаёт сырые группировки через Source, а чистые функции этого
// файла собирают из них ответ. Поэтому логику сводки можно проверить на
// срезах, без базы данных.
package dashboard

import (
	"sort"
	"time"

	"taskmaster/internal/tasks"
)

// DateLayout — формат дня в гистограмме активности.
const DateLayout = "2006-01-02"

// Group — результат группировки: значение поля и число задач с ним.
// Key == nil — у задач поле не задано (например, без категории).
type Group struct {
	Key   *string
	Count int64
}

// TaskCounts — счётчики по статусам.
type TaskCounts struct {
	Total      int64 `json:"total"`
	Todo       int64 `json:"todo"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
}

// PriorityCounts — счётчики по приоритетам.
type PriorityCounts struct {
	High   int64 `json:"high"`
	Medium int64 `json:"medium"`
	Low    int64 `json:"low"`
}

// CategoryCount — элемент гистограммы категорий; Name == nil — без категории.
type CategoryCount struct {
	Name  *string `json:"name"`
	Count int64   `json:"count"`
}

// DayCount — число задач, созданных за день.
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Alerts — просроченные задачи и задачи на сегодня (кроме выполненных).
type Alerts struct {
	Overdue  int64 `json:"overdue"`
	DueToday int64 `json:"dueToday"`
}

// Stats — ответ GET /api/dashboard/stats.
type Stats struct {
	Tasks      TaskCounts      `json:"tasks"`
	Priority   PriorityCounts  `json:"priority"`
	Categories []CategoryCount `json:"categories"`
	Activity   []DayCount      `json:"activity"`
	Alerts     Alerts          `json:"alerts"`
}

// SummarizeStatus сворачивает группы по статусу.
//
// Total — сумма ВСЕХ групп, включая статусы вне todo/in-progress/completed;
// такие задачи не попадают ни в один именованный счётчик.
func SummarizeStatus(groups []Group) TaskCounts {
	var c TaskCounts
	for _, g := range groups {
		c.Total += g.Count
		if g.Key == nil {
			continue
		}
		switch *g.Key {
		case tasks.StatusTodo:
			c.Todo += g.Count
		case tasks.StatusInProgress:
			c.InProgress += g.Count
		case tasks.StatusCompleted:
			c.Completed += g.Count
		}
	}
	return c
}

// SummarizePriority сворачивает группы по приоритету; отсутствующие — 0.
func SummarizePriority(groups []Group) PriorityCounts {
	var c PriorityCounts
	for _, g := range groups {
		if g.Key == nil {
			continue
		}
		switch *g.Key {
		case tasks.PriorityHigh:
			c.High += g.Count
		case tasks.PriorityMedium:
			c.Medium += g.Count
		case tasks.PriorityLow:
			c.Low += g.Count
		}
	}
	return c
}

// CategoryList превращает группы по категории в список; порядок не гарантируется.
func CategoryList(groups []Group) []CategoryCount {
	out := make([]CategoryCount, 0, len(groups))
	for _, g := range groups {
		out = append(out, CategoryCount{Name: g.Key, Count: g.Count})
	}
	return out
}

// ActivityList упорядочивает дни по возрастанию и выкидывает пустые:
// гистограмма разреженная.
func ActivityList(days []DayCount) []DayCount {
	out := make([]DayCount, 0, len(days))
	for _, d := range days {
		if d.Count > 0 {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// BucketByDay раскладывает метки времени по дням в loc.
// Нужен хранилищам, которые не умеют группировать по дате сами.
func BucketByDay(times []time.Time, loc *time.Location) []DayCount {
	counts := make(map[string]int64)
	for _, t := range times {
		counts[t.In(loc).Format(DateLayout)]++
	}
	out := make([]DayCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, DayCount{Date: day, Count: n})
	}
	return ActivityList(out)
}

// StartOfDay возвращает полночь дня, содержащего t, в loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// RecentTask — проекция задачи для GET /api/dashboard/recent.
type RecentTask struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	Category  *string   `json:"category"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProjectRecent оставляет только поля, нужные ленте последних изменений.
func ProjectRecent(ts []tasks.Task) []RecentTask {
	out := make([]RecentTask, 0, len(ts))
	for _, t := range ts {
		out = append(out, RecentTask{
			ID:        t.ID,
			Title:     t.Title,
			Status:    t.Status,
			Priority:  t.Priority,
			Category:  t.Category,
			UpdatedAt: t.UpdatedAt,
		})
	}
	return out
}

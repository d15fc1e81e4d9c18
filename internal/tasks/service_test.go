package tasks_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmaster/internal/storage/memory"
	"taskmaster/internal/tasks"
	"taskmaster/internal/validation"
)

func ptr[T any](v T) *T { return &v }

func newService(t *testing.T) (*tasks.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return tasks.NewService(store, validation.New()), store
}

func validationMessages(t *testing.T, err error) []string {
	t.Helper()
	var vErr *validation.Error
	require.True(t, errors.As(err, &vErr), "expected validation error, got %v", err)
	return vErr.Messages
}

func TestCreateTask_Defaults(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, "alice", tasks.CreateTaskRequest{Title: "  Buy milk  "})
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "alice", task.UserID)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, tasks.StatusTodo, task.Status)
	assert.Equal(t, tasks.PriorityMedium, task.Priority)
	assert.Nil(t, task.Category)
	assert.Nil(t, task.DueDate)
	assert.Equal(t, []string{}, task.Tags)
	assert.False(t, task.CreatedAt.IsZero())
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
}

func TestCreateTask_KeepsTagOrderAndParsesDueDate(t *testing.T) {
	svc, _ := newService(t)

	task, err := svc.CreateTask(context.Background(), "alice", tasks.CreateTaskRequest{
		Title:    "Report",
		Priority: tasks.PriorityHigh,
		Status:   tasks.StatusInProgress,
		Category: ptr(" Work "),
		DueDate:  ptr("2024-05-01"),
		Tags:     []string{"zeta", " alpha ", "mid"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, task.Tags)
	require.NotNil(t, task.Category)
	assert.Equal(t, "Work", *task.Category)
	require.NotNil(t, task.DueDate)
	assert.True(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Equal(*task.DueDate))
}

func TestCreateTask_BlankCategoryIsNull(t *testing.T) {
	svc, _ := newService(t)

	task, err := svc.CreateTask(context.Background(), "alice", tasks.CreateTaskRequest{
		Title:    "x",
		Category: ptr("   "),
		DueDate:  ptr(""),
	})
	require.NoError(t, err)
	assert.Nil(t, task.Category)
	assert.Nil(t, task.DueDate)
}

func TestCreateTask_ReportsEveryViolation(t *testing.T) {
	svc, store := newService(t)

	_, err := svc.CreateTask(context.Background(), "alice", tasks.CreateTaskRequest{
		Title:       "",
		Description: strings.Repeat("d", 501),
		Priority:    "urgent",
		Status:      "done",
		Category:    ptr(strings.Repeat("c", 51)),
		DueDate:     ptr("not a date"),
		Tags:        []string{strings.Repeat("t", 21)},
	})

	assert.Equal(t, []string{
		"Title is required and must be less than 100 characters",
		"Description must be less than 500 characters",
		"Priority must be low, medium, or high",
		"Status must be todo, in-progress, or completed",
		"Category must be less than 50 characters",
		"Due date must be a valid date",
		"Each tag must be less than 20 characters",
	}, validationMessages(t, err))

	n, err := store.CountTasks(context.Background(), "alice", tasks.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateTask_TitleBoundary(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, "alice", tasks.CreateTaskRequest{Title: strings.Repeat("a", 100)})
	assert.NoError(t, err)

	_, err = svc.CreateTask(ctx, "alice", tasks.CreateTaskRequest{Title: strings.Repeat("a", 101)})
	assert.Error(t, err)
}

func TestListTasks_Pagination(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		require.NoError(t, store.CreateTask(ctx, &tasks.Task{
			UserID:    "alice",
			Title:     "t",
			Status:    tasks.StatusTodo,
			Priority:  tasks.PriorityLow,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	res, err := svc.ListTasks(ctx, "alice", tasks.ListQuery{Page: 2, Limit: 10})
	require.NoError(t, err)

	assert.Len(t, res.Tasks, 10)
	assert.Equal(t, tasks.Pagination{
		CurrentPage: 2,
		TotalPages:  3,
		TotalTasks:  25,
		HasNext:     true,
		HasPrev:     true,
	}, res.Pagination)
	// Новые первыми: вторая страница начинается с 11-й по новизне задачи.
	assert.True(t, base.Add(14*time.Minute).Equal(res.Tasks[0].CreatedAt))

	last, err := svc.ListTasks(ctx, "alice", tasks.ListQuery{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, last.Tasks, 5)
	assert.False(t, last.Pagination.HasNext)
}

func TestListTasks_PageBeyondIntRange(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateTask(ctx, &tasks.Task{UserID: "alice", Title: "t", Status: tasks.StatusTodo}))
	}

	// (page-1)*limit не помещается в int.
	res, err := svc.ListTasks(ctx, "alice", tasks.ListQuery{Page: 2305843009213693953, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, res.Tasks)
	assert.Equal(t, int64(3), res.Pagination.TotalTasks)
	assert.Equal(t, 1, res.Pagination.TotalPages)
	assert.False(t, res.Pagination.HasNext)
	assert.True(t, res.Pagination.HasPrev)
}

func TestListTasks_FiltersAndOwnerScope(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, "alice", tasks.CreateTaskRequest{Title: "a1", Status: tasks.StatusCompleted, Category: ptr("Home")})
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, "alice", tasks.CreateTaskRequest{Title: "a2", Category: ptr("Work")})
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, "bob", tasks.CreateTaskRequest{Title: "b1", Status: tasks.StatusCompleted, Category: ptr("Home")})
	require.NoError(t, err)

	res, err := svc.ListTasks(ctx, "alice", tasks.ListQuery{Status: tasks.StatusCompleted, Page: 1, Limit: 50})
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "a1", res.Tasks[0].Title)

	res, err = svc.ListTasks(ctx, "alice", tasks.ListQuery{Category: "Work", Page: 1, Limit: 50})
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "a2", res.Tasks[0].Title)

	empty, err := svc.ListTasks(ctx, "carol", tasks.ListQuery{Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, empty.Tasks)
	assert.Equal(t, 0, empty.Pagination.TotalPages)
}

func TestListTasks_InvalidQuery(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.ListTasks(context.Background(), "alice", tasks.ListQuery{Status: "nope", Page: 0, Limit: 101})
	assert.Equal(t, []string{
		"Status must be todo, in-progress, or completed",
		"Page must be a positive integer",
		"Limit must be between 1 and 100",
	}, validationMessages(t, err))
}

func TestUpdateTask_PartialUpdate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, "alice", tasks.CreateTaskRequest{
		Title:    "Original",
		Priority: tasks.PriorityLow,
		Category: ptr("Work"),
		DueDate:  ptr("2024-05-01"),
		Tags:     []string{"a"},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateTask(ctx, "alice", created.ID, tasks.UpdateTaskRequest{
		Status: ptr(tasks.StatusCompleted),
	})
	require.NoError(t, err)

	assert.Equal(t, tasks.StatusCompleted, updated.Status)
	assert.Equal(t, "Original", updated.Title)
	assert.Equal(t, tasks.PriorityLow, updated.Priority)
	assert.Equal(t, []string{"a"}, updated.Tags)
	require.NotNil(t, updated.Category)
	assert.Equal(t, "Work", *updated.Category)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
}

func TestUpdateTask_ClearsCategoryAndDueDate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, "alice", tasks.CreateTaskRequest{
		Title:    "x",
		Category: ptr("Work"),
		DueDate:  ptr("2024-05-01"),
	})
	require.NoError(t, err)

	updated, err := svc.UpdateTask(ctx, "alice", created.ID, tasks.UpdateTaskRequest{
		Category: ptr(""),
		DueDate:  ptr(" "),
		Tags:     ptr([]string{}),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.Category)
	assert.Nil(t, updated.DueDate)
	assert.Equal(t, []string{}, updated.Tags)
}

func TestUpdateTask_InvalidLeavesTaskUnchanged(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, "alice", tasks.CreateTaskRequest{Title: "keep"})
	require.NoError(t, err)

	_, err = svc.UpdateTask(ctx, "alice", created.ID, tasks.UpdateTaskRequest{
		Title:    ptr(""),
		Priority: ptr("urgent"),
	})
	assert.Equal(t, []string{
		"Title must be less than 100 characters",
		"Priority must be low, medium, or high",
	}, validationMessages(t, err))

	got, err := svc.GetTask(ctx, "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Title)
	assert.Equal(t, tasks.PriorityMedium, got.Priority)
}

func TestOwnerIsolation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, "alice", tasks.CreateTaskRequest{Title: "private"})
	require.NoError(t, err)

	_, err = svc.GetTask(ctx, "bob", created.ID)
	assert.ErrorIs(t, err, tasks.ErrNotFound)

	_, err = svc.UpdateTask(ctx, "bob", created.ID, tasks.UpdateTaskRequest{Title: ptr("hijack")})
	assert.ErrorIs(t, err, tasks.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteTask(ctx, "bob", created.ID), tasks.ErrNotFound)

	got, err := svc.GetTask(ctx, "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "private", got.Title)
}

func TestDeleteTask(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, "alice", tasks.CreateTaskRequest{Title: "bye"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, "alice", created.ID))
	_, err = svc.GetTask(ctx, "alice", created.ID)
	assert.ErrorIs(t, err, tasks.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteTask(ctx, "alice", created.ID), tasks.ErrNotFound)
}

func TestService_CanceledContext(t *testing.T) {
	svc, _ := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CreateTask(ctx, "alice", tasks.CreateTaskRequest{Title: "x"})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.ListTasks(ctx, "alice", tasks.ListQuery{Page: 1, Limit: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

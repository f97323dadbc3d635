package services

import (
	"context"
	"testing"
	"time"

	"github.com/IsnuMdr/todo-app/internal/cascade"
	"github.com/IsnuMdr/todo-app/internal/common"
	"github.com/IsnuMdr/todo-app/internal/models"
	"github.com/IsnuMdr/todo-app/internal/repositories/todos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func login(t *testing.T, f *fixture, email string) *models.Identity {
	t.Helper()
	res, err := f.sessions.LoginOrRegister(context.Background(), email, "pw1234")
	require.NoError(t, err)
	return res.Identity
}

// assertMirrorsRepo checks the cache equals what the repository returns.
func assertMirrorsRepo(t *testing.T, f *fixture) {
	t.Helper()
	list, err := f.repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, list, f.todos.Todos())
}

func create(t *testing.T, f *fixture, title string) *models.Task {
	t.Helper()
	task, err := f.todos.Create(context.Background(), models.TaskInput{Title: title, ScheduledAt: "2025-01-01T10:00:00Z"})
	require.NoError(t, err)
	return task
}

func TestScenario_BuyMilk(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cascade.KeepParent)
	login(t, f, "a@x.io")

	create(t, f, "Older")
	task := create(t, f, "Buy milk")
	assert.False(t, task.Completed)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, task.ID, f.todos.Todos()[0].ID, "new task is listed first")

	list, err := f.repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.ID, list[0].ID)

	task, err = f.todos.AddSubtask(ctx, task.ID, "2% milk")
	require.NoError(t, err)
	require.Len(t, task.Subtasks, 1)
	assert.False(t, task.Completed)

	task, err = f.todos.ToggleSubtask(ctx, task.ID, task.Subtasks[0].ID)
	require.NoError(t, err)
	assert.True(t, task.Subtasks[0].Completed)
	assert.True(t, task.Completed, "only subtask complete completes the parent")

	task, err = f.todos.ToggleTask(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, task.Completed)
	assert.True(t, task.Subtasks[0].Completed, "un-completing the parent leaves subtasks")

	assertMirrorsRepo(t, f)
}

func TestScenario_LogoutHidesCachedData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cascade.KeepParent)
	login(t, f, "a@x.io")
	create(t, f, "private")
	require.Len(t, f.todos.Todos(), 1)

	require.NoError(t, f.sessions.Logout(ctx))
	assert.Empty(t, f.todos.Todos())

	_, err := f.repo.List(ctx)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	require.ErrorIs(t, f.todos.Load(ctx), common.ErrorUnauthorized)

	_, err = f.todos.Create(ctx, models.TaskInput{Title: "x", ScheduledAt: "2025-01-01T10:00:00Z"})
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestIdentitySwitchReloadsCache(t *testing.T) {
	f := newFixture(t, cascade.KeepParent)
	login(t, f, "a@x.io")
	aTask := create(t, f, "a's task")

	login(t, f, "b@x.io")
	assert.Empty(t, f.todos.Todos(), "b never sees a's tasks")
	bTask := create(t, f, "b's task")

	login(t, f, "a@x.io")
	cached := f.todos.Todos()
	require.Len(t, cached, 1)
	assert.Equal(t, aTask.ID, cached[0].ID)
	assert.NotEqual(t, bTask.ID, cached[0].ID)
}

func TestToggleTask_CompletesSubtasksWithSingleUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cascade.KeepParent)
	login(t, f, "a@x.io")

	counting := &countingRepo{Repository: f.repo}
	store := NewTodoStore(counting, nil, cascade.KeepParent, f.todos.log, f.rec)
	require.NoError(t, store.Load(ctx))

	task := create(t, f, "parent")
	subs := []models.Subtask{{Title: "one"}, {Title: "two"}, {Title: "three"}}
	_, err := f.repo.Update(ctx, task.ID, models.TaskPatch{Subtasks: &subs})
	require.NoError(t, err)
	require.NoError(t, store.Load(ctx))

	got, err := store.ToggleTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counting.updates)
	assert.True(t, got.Completed)
	for _, s := range got.Subtasks {
		assert.True(t, s.Completed)
	}

	persisted, err := f.repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, got, persisted)
}

func TestToggleSubtask_PartialAndPolicy(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		policy     cascade.Policy
		wantParent bool
	}{
		{policy: cascade.KeepParent, wantParent: true},
		{policy: cascade.ReopenParent, wantParent: false},
	} {
		t.Run(tc.policy.String(), func(t *testing.T) {
			f := newFixture(t, tc.policy)
			login(t, f, "a@x.io")
			task := create(t, f, "parent")
			task, err := f.todos.AddSubtask(ctx, task.ID, "one")
			require.NoError(t, err)
			task, err = f.todos.AddSubtask(ctx, task.ID, "two")
			require.NoError(t, err)

			task, err = f.todos.ToggleSubtask(ctx, task.ID, task.Subtasks[0].ID)
			require.NoError(t, err)
			assert.False(t, task.Completed, "strict subset leaves parent incomplete")

			task, err = f.todos.ToggleSubtask(ctx, task.ID, task.Subtasks[1].ID)
			require.NoError(t, err)
			assert.True(t, task.Completed)

			task, err = f.todos.ToggleSubtask(ctx, task.ID, task.Subtasks[1].ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantParent, task.Completed)

			assertMirrorsRepo(t, f)
		})
	}
}

func TestSubtaskCommands(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cascade.KeepParent)
	login(t, f, "a@x.io")
	task := create(t, f, "parent")

	task, err := f.todos.AddSubtask(ctx, task.ID, "  first ")
	require.NoError(t, err)
	subID := task.Subtasks[0].ID
	assert.Equal(t, "first", task.Subtasks[0].Title)

	task, err = f.todos.RenameSubtask(ctx, task.ID, subID, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "renamed", task.Subtasks[0].Title)
	assert.Equal(t, subID, task.Subtasks[0].ID)

	_, err = f.todos.RenameSubtask(ctx, task.ID, subID, "   ")
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = f.todos.RenameSubtask(ctx, task.ID, "missing", "x")
	require.ErrorIs(t, err, common.ErrorNotFound)
	_, err = f.todos.ToggleSubtask(ctx, task.ID, "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)

	task, err = f.todos.DeleteSubtask(ctx, task.ID, subID)
	require.NoError(t, err)
	assert.Empty(t, task.Subtasks)

	_, err = f.todos.DeleteSubtask(ctx, task.ID, subID)
	require.ErrorIs(t, err, common.ErrorNotFound)

	assertMirrorsRepo(t, f)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cascade.KeepParent)
	login(t, f, "a@x.io")
	keep := create(t, f, "keep")
	drop := create(t, f, "drop")

	title := "kept and renamed"
	updated, err := f.todos.Update(ctx, keep.ID, models.TaskPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	cached, ok := f.todos.Get(keep.ID)
	require.True(t, ok)
	assert.Equal(t, title, cached.Title)

	removed, err := f.todos.Delete(ctx, drop.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	_, ok = f.todos.Get(drop.ID)
	assert.False(t, ok)

	removed, err = f.todos.Delete(ctx, drop.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = f.todos.Update(ctx, "missing", models.TaskPatch{Title: &title})
	require.ErrorIs(t, err, common.ErrorNotFound)

	assertMirrorsRepo(t, f)
	assert.Equal(t, 1, f.rec.commands["update/error"])
}

func TestForeignTaskCannotBeTouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cascade.KeepParent)
	login(t, f, "a@x.io")
	aTask := create(t, f, "a only")

	login(t, f, "b@x.io")
	_, err := f.todos.ToggleTask(ctx, aTask.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
	removed, err := f.todos.Delete(ctx, aTask.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	login(t, f, "a@x.io")
	got, err := f.repo.GetByID(ctx, aTask.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cascade.KeepParent)
	login(t, f, "a@x.io")

	create(t, f, "overdue")
	done := create(t, f, "done")
	_, err := f.todos.Create(ctx, models.TaskInput{Title: "future", ScheduledAt: "2030-01-01T00:00:00Z"})
	require.NoError(t, err)
	_, err = f.todos.ToggleTask(ctx, done.ID)
	require.NoError(t, err)

	st := f.todos.Stats(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, models.Stats{Total: 3, Completed: 1, Active: 2, Overdue: 1}, st)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cascade.KeepParent)
	login(t, f, "a@x.io")

	var sizes []int
	unsubscribe := f.todos.Subscribe(func(list []models.Task) { sizes = append(sizes, len(list)) })

	create(t, f, "one")
	create(t, f, "two")
	require.NoError(t, f.sessions.Logout(ctx))
	unsubscribe()
	login(t, f, "a@x.io")

	assert.Equal(t, []int{1, 2, 0}, sizes)
	assert.Equal(t, 2, f.rec.cached)
}

type countingRepo struct {
	todos.Repository
	updates int
}

func (c *countingRepo) Update(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	c.updates++
	return c.Repository.Update(ctx, id, patch)
}

func TestMutationOnUncachedTaskRefreshesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cascade.KeepParent)
	login(t, f, "a@x.io")
	cached := create(t, f, "cached")

	// Written behind the store's back, as another process would.
	outside, err := f.repo.Create(ctx, models.TaskInput{Title: "outside", ScheduledAt: "2025-01-01T10:00:00Z"})
	require.NoError(t, err)
	_, ok := f.todos.Get(outside.ID)
	require.False(t, ok)

	toggled, err := f.todos.ToggleTask(ctx, outside.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	got, ok := f.todos.Get(outside.ID)
	require.True(t, ok)
	assert.True(t, got.Completed)
	_, ok = f.todos.Get(cached.ID)
	assert.True(t, ok)
	assertMirrorsRepo(t, f)

	title := "renamed outside"
	other, err := f.repo.Create(ctx, models.TaskInput{Title: "second outside", ScheduledAt: "2025-01-01T10:00:00Z"})
	require.NoError(t, err)
	_, err = f.todos.Update(ctx, other.ID, models.TaskPatch{Title: &title})
	require.NoError(t, err)
	assertMirrorsRepo(t, f)
}

func TestUpdate_DuplicateSubtaskIDsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cascade.KeepParent)
	login(t, f, "a@x.io")
	task := create(t, f, "parent")

	dup := []models.Subtask{{ID: "s1", Title: "one"}, {ID: "s1", Title: "two"}}
	_, err := f.todos.Update(ctx, task.ID, models.TaskPatch{Subtasks: &dup})
	require.ErrorIs(t, err, common.ErrValidation)

	persisted, err := f.repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, persisted.Subtasks)
	assertMirrorsRepo(t, f)

	task, err = f.todos.AddSubtask(ctx, task.ID, "one")
	require.NoError(t, err)
	task, err = f.todos.AddSubtask(ctx, task.ID, "two")
	require.NoError(t, err)
	assert.NotEqual(t, task.Subtasks[0].ID, task.Subtasks[1].ID)
}

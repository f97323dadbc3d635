package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/IsnuMdr/todo-app/internal/cascade"
	"github.com/IsnuMdr/todo-app/internal/logging"
	"github.com/IsnuMdr/todo-app/internal/metrics"
	"github.com/IsnuMdr/todo-app/internal/repositories/todos"
	"github.com/IsnuMdr/todo-app/internal/services"
	"github.com/IsnuMdr/todo-app/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	sessions *services.SessionManager
	todos    *services.TodoStore
	printed  *[]string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	stubTerminal(t, false, nil)

	store := storage.New(storage.NewMemoryStore(), logging.Nop())
	sessions := services.NewSessionManager(store, nil, []byte("cli-test"), logging.Nop(), metrics.Nop())
	repo := todos.NewDurableRepository(store, sessions)
	todoStore := services.NewTodoStore(repo, sessions, cascade.KeepParent, logging.Nop(), metrics.Nop())
	t.Cleanup(func() {
		todoStore.Close()
		sessions.Close()
	})
	return &env{sessions: sessions, todos: todoStore, printed: capturePrintln(t)}
}

// run feeds lines to a fresh App and returns everything it wrote.
func (e *env) run(t *testing.T, lines ...string) string {
	t.Helper()
	*e.printed = nil
	var out bytes.Buffer
	app := NewApp(e.sessions, e.todos, strings.NewReader(strings.Join(lines, "\n")+"\n"), &out)
	app.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	app.Run(context.Background())
	return out.String() + strings.Join(*e.printed, "\n")
}

func TestApp_LoginAddAndList(t *testing.T) {
	e := newEnv(t)

	out := e.run(t, "list")
	assert.Contains(t, out, "Error: not logged in")

	out = e.run(t,
		"login", "a@x.io", "pw1234",
		"add", "Buy milk", "2025-01-01T10:00:00Z",
		"add", "Later", "2030-01-01T00:00:00Z",
		"list",
		"stats",
		"whoami",
	)
	assert.Contains(t, out, "Account created for a@x.io")
	assert.Contains(t, out, "Active (2)")
	assert.Contains(t, out, "Completed (0)")
	assert.Contains(t, out, "Buy milk  2025-01-01 10:00 UTC  overdue")
	assert.Contains(t, out, "Total: 2  Active: 2  Completed: 0  Overdue: 1")
	assert.Contains(t, out, "a@x.io (local")
	assert.Contains(t, out, "todo(a@x.io)>")

	list := e.todos.Todos()
	require.Len(t, list, 2)
	assert.Equal(t, "Later", list[0].Title)

	out = e.run(t, "logout", "login", "a@x.io", "wrong-pw")
	assert.Contains(t, out, "Logged out")
	assert.Contains(t, out, "Error: invalid email or password")
}

func TestApp_SubtaskCascade(t *testing.T) {
	e := newEnv(t)
	e.run(t, "login", "a@x.io", "pw1234", "add", "Buy milk", "2025-01-01T10:00:00Z")

	taskID := e.todos.Todos()[0].ID
	e.run(t, "sub "+taskID[:6], "2% milk")

	task := e.todos.Todos()[0]
	require.Len(t, task.Subtasks, 1)
	assert.False(t, task.Completed)
	subID := task.Subtasks[0].ID

	out := e.run(t, "subdone "+taskID+" "+subID[:6], "list done")
	assert.Contains(t, out, "Completed (1)")
	assert.True(t, e.todos.Todos()[0].Completed)

	e.run(t, "done "+taskID)
	task = e.todos.Todos()[0]
	assert.False(t, task.Completed)
	assert.True(t, task.Subtasks[0].Completed)

	e.run(t, "subren "+taskID+" "+subID, "oat milk")
	assert.Equal(t, "oat milk", e.todos.Todos()[0].Subtasks[0].Title)

	e.run(t, "subrm "+taskID+" "+subID)
	assert.Empty(t, e.todos.Todos()[0].Subtasks)
}

func TestApp_EditAndDelete(t *testing.T) {
	e := newEnv(t)
	e.run(t, "login", "a@x.io", "pw1234", "add", "Draft", "2025-01-01T10:00:00Z")
	id := e.todos.Todos()[0].ID

	out := e.run(t, "edit "+id, "", "")
	assert.Contains(t, out, "Nothing to change")

	e.run(t, "edit "+id, "Final", "2025-02-01T00:00:00Z")
	task := e.todos.Todos()[0]
	assert.Equal(t, "Final", task.Title)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), task.ScheduledAt)

	out = e.run(t, "edit", "rm nope", "rm "+id)
	assert.Contains(t, out, "Error: usage: edit <id>")
	assert.Contains(t, out, "not found")
	assert.Contains(t, out, `Deleted "Final"`)
	assert.Empty(t, e.todos.Todos())
}

func TestApp_AddValidationError(t *testing.T) {
	e := newEnv(t)
	e.run(t, "login", "a@x.io", "pw1234")

	out := e.run(t, "add", "   ", "2025-01-01T10:00:00Z", "add", "ok", "tomorrow")
	assert.Equal(t, 2, strings.Count(out, "Error:"))
	assert.Empty(t, e.todos.Todos())
}

func TestResolveTask_Ambiguous(t *testing.T) {
	e := newEnv(t)
	e.run(t, "login", "a@x.io", "pw1234")
	app := NewApp(e.sessions, e.todos, strings.NewReader(""), &bytes.Buffer{})

	_, err := app.resolveTask("")
	require.Error(t, err)
	e.run(t, "add", "one", "2025-01-01T10:00:00Z", "add", "two", "2025-01-01T10:00:00Z")
	_, err = app.resolveTask("")
	require.ErrorIs(t, err, errAmbiguous)
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/IsnuMdr/todo-app/internal/models"
	"github.com/IsnuMdr/todo-app/internal/services"
)

// SessionService is the part of services.SessionManager the CLI drives.
type SessionService interface {
	LoginOrRegister(ctx context.Context, email, secret string) (*services.LoginResult, error)
	LoginWithExternalProvider(ctx context.Context, redirectTarget string) error
	Logout(ctx context.Context) error
	CurrentIdentity(ctx context.Context) (*models.Identity, error)
	IsAuthenticated(ctx context.Context) bool
	Subscribe(fn func(*models.Identity)) func()
}

// TodoService is the part of services.TodoStore the CLI drives.
type TodoService interface {
	Todos() []models.Task
	Create(ctx context.Context, in models.TaskInput) (*models.Task, error)
	Update(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, id string) (bool, error)
	ToggleTask(ctx context.Context, id string) (*models.Task, error)
	ToggleSubtask(ctx context.Context, taskID, subtaskID string) (*models.Task, error)
	AddSubtask(ctx context.Context, taskID, title string) (*models.Task, error)
	RenameSubtask(ctx context.Context, taskID, subtaskID, title string) (*models.Task, error)
	DeleteSubtask(ctx context.Context, taskID, subtaskID string) (*models.Task, error)
	Stats(now time.Time) models.Stats
}

type App struct {
	sessions SessionService
	todos    TodoService
	reader   *bufio.Reader
	out      io.Writer
	now      func() time.Time
}

func NewApp(sessions SessionService, todos TodoService, in io.Reader, out io.Writer) *App {
	return &App{
		sessions: sessions,
		todos:    todos,
		reader:   bufio.NewReader(in),
		out:      out,
		now:      time.Now,
	}
}

// Run prints a greeting and serves the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	unsubscribe := a.sessions.Subscribe(a.onIdentityChange)
	defer unsubscribe()

	fmt.Fprintln(a.out, "Welcome to Todo CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

// onIdentityChange reports external logins, which complete in the browser
// while the REPL waits for input.
func (a *App) onIdentityChange(id *models.Identity) {
	if id.IsExternal() {
		fmt.Fprintf(a.out, "\nSigned in as %s\n", id.Email)
	}
}

func (a *App) isLoggedIn() bool {
	return a.sessions.IsAuthenticated(context.Background())
}

func (a *App) getStatus() string {
	id, err := a.sessions.CurrentIdentity(context.Background())
	if err != nil || id == nil {
		return ""
	}
	return fmt.Sprintf("(%s)", id.Email)
}

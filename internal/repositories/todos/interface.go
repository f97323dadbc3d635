package todos

import (
	"context"

	"github.com/IsnuMdr/todo-app/internal/models"
)

// CurrentUser resolves the identity the repository acts for. A nil
// identity means nobody is logged in.
type CurrentUser interface {
	CurrentIdentity(ctx context.Context) (*models.Identity, error)
}

// Repository describes CRUD over the current identity's tasks.
type Repository interface {
	// List returns the identity's tasks, newest first.
	List(ctx context.Context) ([]models.Task, error)

	// GetByID returns common.ErrorNotFound for missing and foreign ids alike.
	GetByID(ctx context.Context, id string) (*models.Task, error)

	Create(ctx context.Context, in models.TaskInput) (*models.Task, error)

	// Update merges patch into the task. A missing or foreign id yields
	// common.ErrorNotFound and nothing is written.
	Update(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error)

	// Delete reports whether a task was actually removed.
	Delete(ctx context.Context, id string) (bool, error)
}

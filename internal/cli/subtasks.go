package cli

import (
	"context"

	"github.com/IsnuMdr/todo-app/internal/models"
)

// subtaskArgs resolves "<task> <subtask>" arguments.
func (a *App) subtaskArgs(args []string, use string) (models.Task, models.Subtask, error) {
	if len(args) != 2 {
		return models.Task{}, models.Subtask{}, usage(use)
	}
	t, err := a.resolveTask(args[0])
	if err != nil {
		return models.Task{}, models.Subtask{}, err
	}
	s, err := resolveSubtask(t, args[1])
	if err != nil {
		return models.Task{}, models.Subtask{}, err
	}
	return t, s, nil
}

func (a *App) AddSubtask(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("sub <id>")
	}
	t, err := a.resolveTask(args[0])
	if err != nil {
		return err
	}
	title, err := getSimpleText(a.reader, "Subtask title", a.out)
	if err != nil {
		return err
	}
	updated, err := a.todos.AddSubtask(ctx, t.ID, title)
	if err != nil {
		return err
	}
	printTask(a.out, *updated, a.now())
	return nil
}

func (a *App) RenameSubtask(ctx context.Context, args []string) error {
	t, s, err := a.subtaskArgs(args, "subren <id> <sub>")
	if err != nil {
		return err
	}
	title, err := getSimpleText(a.reader, "New title", a.out)
	if err != nil {
		return err
	}
	updated, err := a.todos.RenameSubtask(ctx, t.ID, s.ID, title)
	if err != nil {
		return err
	}
	printTask(a.out, *updated, a.now())
	return nil
}

func (a *App) ToggleSubtask(ctx context.Context, args []string) error {
	t, s, err := a.subtaskArgs(args, "subdone <id> <sub>")
	if err != nil {
		return err
	}
	updated, err := a.todos.ToggleSubtask(ctx, t.ID, s.ID)
	if err != nil {
		return err
	}
	printTask(a.out, *updated, a.now())
	return nil
}

func (a *App) DeleteSubtask(ctx context.Context, args []string) error {
	t, s, err := a.subtaskArgs(args, "subrm <id> <sub>")
	if err != nil {
		return err
	}
	updated, err := a.todos.DeleteSubtask(ctx, t.ID, s.ID)
	if err != nil {
		return err
	}
	printTask(a.out, *updated, a.now())
	return nil
}

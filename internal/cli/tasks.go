package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/IsnuMdr/todo-app/internal/common"
	"github.com/IsnuMdr/todo-app/internal/models"
)

var errAmbiguous = errors.New("ambiguous id prefix")

func usage(s string) error {
	return fmt.Errorf("usage: %s", s)
}

// resolveTask finds the cached task whose ID starts with prefix.
func (a *App) resolveTask(prefix string) (models.Task, error) {
	if !a.isLoggedIn() {
		return models.Task{}, common.ErrorUnauthorized
	}
	var found []models.Task
	for _, t := range a.todos.Todos() {
		if t.ID == prefix {
			return t, nil
		}
		if strings.HasPrefix(t.ID, prefix) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return models.Task{}, fmt.Errorf("task %s: %w", prefix, common.ErrorNotFound)
	case 1:
		return found[0], nil
	default:
		return models.Task{}, fmt.Errorf("task %s: %w", prefix, errAmbiguous)
	}
}

func resolveSubtask(t models.Task, prefix string) (models.Subtask, error) {
	var found []models.Subtask
	for _, s := range t.Subtasks {
		if s.ID == prefix {
			return s, nil
		}
		if strings.HasPrefix(s.ID, prefix) {
			found = append(found, s)
		}
	}
	switch len(found) {
	case 0:
		return models.Subtask{}, fmt.Errorf("subtask %s: %w", prefix, common.ErrorNotFound)
	case 1:
		return found[0], nil
	default:
		return models.Subtask{}, fmt.Errorf("subtask %s: %w", prefix, errAmbiguous)
	}
}

// List prints active tasks, then completed ones. "active" or "done" limits
// the output to one section.
func (a *App) List(ctx context.Context, args []string) error {
	if !a.isLoggedIn() {
		return common.ErrorUnauthorized
	}
	filter := ""
	if len(args) > 0 {
		filter = args[0]
	}

	var active, done []models.Task
	for _, t := range a.todos.Todos() {
		if t.Completed {
			done = append(done, t)
		} else {
			active = append(active, t)
		}
	}

	now := a.now()
	switch filter {
	case "":
		printSection(a.out, "Active", active, now)
		printSection(a.out, "Completed", done, now)
	case "active":
		printSection(a.out, "Active", active, now)
	case "done", "completed":
		printSection(a.out, "Completed", done, now)
	default:
		return usage("list [active|done]")
	}
	return nil
}

func (a *App) Add(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrorUnauthorized
	}
	title, err := getSimpleText(a.reader, "Title", a.out)
	if err != nil {
		return err
	}
	at, err := getSimpleText(a.reader, "Scheduled at (e.g. 2025-01-01T10:00:00Z)", a.out)
	if err != nil {
		return err
	}

	t, err := a.todos.Create(ctx, models.TaskInput{Title: title, ScheduledAt: at})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s\n", shortID(t.ID))
	return nil
}

// Edit changes a task's title and schedule; empty answers keep the field.
func (a *App) Edit(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("edit <id>")
	}
	t, err := a.resolveTask(args[0])
	if err != nil {
		return err
	}

	var patch models.TaskPatch
	title, err := getSimpleText(a.reader, fmt.Sprintf("Title [%s]", t.Title), a.out)
	if err != nil {
		return err
	}
	if title != "" {
		patch.Title = &title
	}
	at, err := getSimpleText(a.reader, fmt.Sprintf("Scheduled at [%s]", formatTime(t.ScheduledAt)), a.out)
	if err != nil {
		return err
	}
	if at != "" {
		patch.ScheduledAt = &at
	}

	if patch.Title == nil && patch.ScheduledAt == nil {
		fmt.Fprintln(a.out, "Nothing to change")
		return nil
	}
	if _, err := a.todos.Update(ctx, t.ID, patch); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Updated")
	return nil
}

func (a *App) Toggle(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("done <id>")
	}
	t, err := a.resolveTask(args[0])
	if err != nil {
		return err
	}
	updated, err := a.todos.ToggleTask(ctx, t.ID)
	if err != nil {
		return err
	}
	printTask(a.out, *updated, a.now())
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rm <id>")
	}
	t, err := a.resolveTask(args[0])
	if err != nil {
		return err
	}
	removed, err := a.todos.Delete(ctx, t.ID)
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintf(a.out, "Deleted %q\n", t.Title)
	}
	return nil
}

func (a *App) Stats(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrorUnauthorized
	}
	st := a.todos.Stats(a.now())
	fmt.Fprintf(a.out, "Total: %d  Active: %d  Completed: %d  Overdue: %d\n",
		st.Total, st.Active, st.Completed, st.Overdue)
	return nil
}

// Package cascade applies the parent/subtask completion rules to a task.
//
// All functions work on copies: the task passed in, including its Subtasks
// slice, is never modified.
package cascade

import (
	"fmt"

	"github.com/IsnuMdr/todo-app/internal/common"
	"github.com/IsnuMdr/todo-app/internal/models"
)

// Policy decides what happens to a completed parent when one of its
// subtasks becomes incomplete.
type Policy int

const (
	// KeepParent leaves the parent completed.
	KeepParent Policy = iota
	// ReopenParent marks the parent incomplete again.
	ReopenParent
)

func (p Policy) String() string {
	if p == ReopenParent {
		return "reopen-parent"
	}
	return "keep-parent"
}

// AllComplete reports whether every subtask is completed. An empty list
// counts as complete.
func AllComplete(subtasks []models.Subtask) bool {
	for _, s := range subtasks {
		if !s.Completed {
			return false
		}
	}
	return true
}

// ToggleTask flips the task's completion. Completing a task completes all
// of its subtasks; reopening it leaves them as they are.
func ToggleTask(task models.Task) models.Task {
	out := task.Clone()
	out.Completed = !task.Completed
	if out.Completed {
		for i := range out.Subtasks {
			out.Subtasks[i].Completed = true
		}
	}
	return out
}

// ToggleSubtask flips one subtask and recomputes the parent.
func ToggleSubtask(task models.Task, subtaskID string, policy Policy) (models.Task, error) {
	out := task.Clone()

	idx := -1
	for i, s := range out.Subtasks {
		if s.ID == subtaskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return task, fmt.Errorf("subtask %s: %w", subtaskID, common.ErrorNotFound)
	}

	out.Subtasks[idx].Completed = !out.Subtasks[idx].Completed

	switch {
	case AllComplete(out.Subtasks):
		out.Completed = true
	case policy == ReopenParent:
		out.Completed = false
	}
	return out, nil
}

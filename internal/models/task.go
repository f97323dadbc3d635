package models

import "time"

type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Task is one todo item owned by a single identity.
type Task struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Completed   bool      `json:"completed"`
	Subtasks    []Subtask `json:"subtasks"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Clone returns a copy of t whose Subtasks slice is not shared with t.
func (t Task) Clone() Task {
	c := t
	if t.Subtasks != nil {
		c.Subtasks = make([]Subtask, len(t.Subtasks))
		copy(c.Subtasks, t.Subtasks)
	}
	return c
}

// IsOverdue reports whether the task is incomplete and scheduled before now.
func (t Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.ScheduledAt.Before(now)
}

// TaskInput carries the user-supplied fields of a new task.
type TaskInput struct {
	Title       string
	ScheduledAt string
}

// TaskPatch is a partial update; nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	ScheduledAt *string
	Completed   *bool
	Subtasks    *[]Subtask
}

// Stats summarises a task list.
type Stats struct {
	Total     int
	Completed int
	Active    int
	Overdue   int
}

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/IsnuMdr/todo-app/internal/models"
)

const shortIDLen = 8

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 MST")
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func printSection(w io.Writer, name string, list []models.Task, now time.Time) {
	fmt.Fprintf(w, "%s (%d)\n", name, len(list))
	for _, t := range list {
		printTask(w, t, now)
	}
}

func printTask(w io.Writer, t models.Task, now time.Time) {
	overdue := ""
	if t.IsOverdue(now) {
		overdue = "  overdue"
	}
	fmt.Fprintf(w, "  %s %s  %s  %s%s\n", checkbox(t.Completed), shortID(t.ID), t.Title, formatTime(t.ScheduledAt), overdue)
	for _, s := range t.Subtasks {
		fmt.Fprintf(w, "      %s %s  %s\n", checkbox(s.Completed), shortID(s.ID), s.Title)
	}
}

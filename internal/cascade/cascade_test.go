package cascade

import (
	"testing"

	"github.com/IsnuMdr/todo-app/internal/common"
	"github.com/IsnuMdr/todo-app/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(completed bool, subs ...bool) models.Task {
	t := models.Task{ID: "t1", Title: "Ship", Completed: completed, Subtasks: []models.Subtask{}}
	for i, c := range subs {
		t.Subtasks = append(t.Subtasks, models.Subtask{ID: string(rune('a' + i)), Title: "s", Completed: c})
	}
	return t
}

func completions(t models.Task) []bool {
	out := make([]bool, len(t.Subtasks))
	for i, s := range t.Subtasks {
		out[i] = s.Completed
	}
	return out
}

func TestToggleTask(t *testing.T) {
	tests := []struct {
		name     string
		in       models.Task
		wantDone bool
		wantSubs []bool
	}{
		{name: "complete forces subtasks", in: task(false, false, true, false), wantDone: true, wantSubs: []bool{true, true, true}},
		{name: "reopen leaves subtasks", in: task(true, true, true), wantDone: false, wantSubs: []bool{true, true}},
		{name: "no subtasks", in: task(false), wantDone: true, wantSubs: []bool{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := completions(tt.in)
			got := ToggleTask(tt.in)

			assert.Equal(t, tt.wantDone, got.Completed)
			assert.Equal(t, tt.wantSubs, completions(got))
			assert.Equal(t, before, completions(tt.in), "input must not change")
		})
	}
}

func TestToggleTask_TwiceKeepsForcedSubtasks(t *testing.T) {
	in := task(false, false, false)
	got := ToggleTask(ToggleTask(in))
	assert.False(t, got.Completed)
	assert.Equal(t, []bool{true, true}, completions(got))
}

func TestToggleSubtask(t *testing.T) {
	tests := []struct {
		name     string
		in       models.Task
		id       string
		policy   Policy
		wantDone bool
		wantSubs []bool
	}{
		{name: "last open subtask completes parent", in: task(false, true, false), id: "b", wantDone: true, wantSubs: []bool{true, true}},
		{name: "partial leaves parent open", in: task(false, false, false), id: "a", wantDone: false, wantSubs: []bool{true, false}},
		{name: "uncheck keeps parent by default", in: task(true, true, true), id: "a", policy: KeepParent, wantDone: true, wantSubs: []bool{false, true}},
		{name: "uncheck reopens parent when configured", in: task(true, true, true), id: "a", policy: ReopenParent, wantDone: false, wantSubs: []bool{false, true}},
		{name: "single subtask", in: task(false, false), id: "a", wantDone: true, wantSubs: []bool{true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := completions(tt.in)
			got, err := ToggleSubtask(tt.in, tt.id, tt.policy)
			require.NoError(t, err)

			assert.Equal(t, tt.wantDone, got.Completed)
			assert.Equal(t, tt.wantSubs, completions(got))
			assert.Equal(t, before, completions(tt.in), "input must not change")
		})
	}
}

func TestToggleSubtask_Unknown(t *testing.T) {
	in := task(false, false)
	got, err := ToggleSubtask(in, "zzz", KeepParent)
	require.ErrorIs(t, err, common.ErrorNotFound)
	assert.Equal(t, in, got)
}

func TestAllComplete(t *testing.T) {
	assert.True(t, AllComplete(nil))
	assert.True(t, AllComplete(task(false, true, true).Subtasks))
	assert.False(t, AllComplete(task(false, true, false).Subtasks))
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "keep-parent", KeepParent.String())
	assert.Equal(t, "reopen-parent", ReopenParent.String())
}

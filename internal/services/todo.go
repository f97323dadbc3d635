package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IsnuMdr/todo-app/internal/cascade"
	"github.com/IsnuMdr/todo-app/internal/common"
	"github.com/IsnuMdr/todo-app/internal/logging"
	"github.com/IsnuMdr/todo-app/internal/metrics"
	"github.com/IsnuMdr/todo-app/internal/models"
	"github.com/IsnuMdr/todo-app/internal/repositories/todos"
	"github.com/google/uuid"
)

// IdentityNotifier reports identity changes; SessionManager implements it.
type IdentityNotifier interface {
	Subscribe(fn func(*models.Identity)) func()
}

// TodoStore mirrors the current identity's tasks in memory. Every mutation
// goes through the repository first and only then touches the cache, so the
// cache never shows anything the repository would not return.
type TodoStore struct {
	repo    todos.Repository
	policy  cascade.Policy
	log     logging.Logger
	metrics metrics.Recorder

	// opMu serialises commands; mu guards cache for readers.
	opMu  sync.Mutex
	mu    sync.RWMutex
	cache []models.Task

	subs        common.Observers[[]models.Task]
	unsubscribe func()
}

func NewTodoStore(repo todos.Repository, identities IdentityNotifier, policy cascade.Policy, log logging.Logger, rec metrics.Recorder) *TodoStore {
	s := &TodoStore{
		repo:    repo,
		policy:  policy,
		log:     log,
		metrics: rec,
	}
	if identities != nil {
		s.unsubscribe = identities.Subscribe(s.onIdentityChange)
	}
	return s
}

func (s *TodoStore) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Subscribe registers fn for cache changes. fn gets a copy of the list.
func (s *TodoStore) Subscribe(fn func([]models.Task)) func() {
	return s.subs.Add(fn)
}

func (s *TodoStore) onIdentityChange(id *models.Identity) {
	ctx := context.Background()
	if id == nil {
		_ = s.run("reset", func() error {
			s.setCache(nil)
			return nil
		})
		return
	}
	if err := s.Load(ctx); err != nil {
		s.log.Error(ctx, "reloading todos failed", "identity", id.ID, "err", err)
	}
}

// run executes a command under opMu, then records it and, on success,
// notifies subscribers with the new snapshot outside the lock.
func (s *TodoStore) run(command string, fn func() error) error {
	s.opMu.Lock()
	err := fn()
	snapshot := s.Todos()
	s.opMu.Unlock()

	s.metrics.RecordCommand(command, metrics.Outcome(err))
	if err != nil {
		return err
	}
	s.metrics.SetCachedTodos(len(snapshot))
	s.subs.Notify(snapshot)
	return nil
}

func (s *TodoStore) setCache(list []models.Task) {
	s.mu.Lock()
	s.cache = list
	s.mu.Unlock()
}

// replace swaps the cached entry for t. It reports false when t is not
// cached, for example after a failed Load or a write by another process.
func (s *TodoStore) replace(t models.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cache {
		if s.cache[i].ID == t.ID {
			s.cache[i] = t
			return true
		}
	}
	return false
}

// reload refetches the whole list. Callers hold opMu.
func (s *TodoStore) reload(ctx context.Context) error {
	list, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	s.setCache(list)
	return nil
}

// Load replaces the cache with the repository's list. Without a signed-in
// identity the cache is emptied and common.ErrorUnauthorized returned.
func (s *TodoStore) Load(ctx context.Context) error {
	return s.run("load", func() error {
		if err := s.reload(ctx); err != nil {
			if errors.Is(err, common.ErrorUnauthorized) {
				s.setCache(nil)
			}
			return err
		}
		s.log.Debug(ctx, "todos loaded", "count", len(s.Todos()))
		return nil
	})
}

// Todos returns a copy of the cached tasks, newest first.
func (s *TodoStore) Todos() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, len(s.cache))
	for i, t := range s.cache {
		out[i] = t.Clone()
	}
	return out
}

// Get returns the cached task with id.
func (s *TodoStore) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.cache {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return models.Task{}, false
}

func (s *TodoStore) Create(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	var created *models.Task
	err := s.run("create", func() error {
		t, err := s.repo.Create(ctx, in)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.cache = append([]models.Task{t.Clone()}, s.cache...)
		s.mu.Unlock()
		created = t
		return nil
	})
	return created, err
}

func (s *TodoStore) Update(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	return s.update(ctx, "update", id, func(models.Task) (models.TaskPatch, error) {
		return patch, nil
	})
}

// update reads the task from the repository, derives a patch from it and
// persists that patch with a single Update.
func (s *TodoStore) update(ctx context.Context, command, id string, derive func(models.Task) (models.TaskPatch, error)) (*models.Task, error) {
	var updated *models.Task
	err := s.run(command, func() error {
		cur, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch, err := derive(*cur)
		if err != nil {
			return err
		}
		t, err := s.repo.Update(ctx, id, patch)
		if err != nil {
			return err
		}
		if !s.replace(t.Clone()) {
			s.log.Warn(ctx, "updated task missing from cache, reloading", "id", id)
			if err := s.reload(ctx); err != nil {
				return fmt.Errorf("reload after %s: %w", command, err)
			}
		}
		updated = t
		return nil
	})
	return updated, err
}

func (s *TodoStore) Delete(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.run("delete", func() error {
		ok, err := s.repo.Delete(ctx, id)
		if err != nil {
			return err
		}
		removed = ok
		if ok {
			s.mu.Lock()
			for i := range s.cache {
				if s.cache[i].ID == id {
					s.cache = append(s.cache[:i], s.cache[i+1:]...)
					break
				}
			}
			s.mu.Unlock()
		}
		return nil
	})
	return removed, err
}

func cascadePatch(t models.Task) models.TaskPatch {
	completed := t.Completed
	subs := t.Subtasks
	return models.TaskPatch{Completed: &completed, Subtasks: &subs}
}

// ToggleTask flips a task; completing it completes all of its subtasks.
func (s *TodoStore) ToggleTask(ctx context.Context, id string) (*models.Task, error) {
	return s.update(ctx, "toggle_task", id, func(cur models.Task) (models.TaskPatch, error) {
		return cascadePatch(cascade.ToggleTask(cur)), nil
	})
}

// ToggleSubtask flips a subtask and recomputes its parent.
func (s *TodoStore) ToggleSubtask(ctx context.Context, taskID, subtaskID string) (*models.Task, error) {
	return s.update(ctx, "toggle_subtask", taskID, func(cur models.Task) (models.TaskPatch, error) {
		next, err := cascade.ToggleSubtask(cur, subtaskID, s.policy)
		if err != nil {
			return models.TaskPatch{}, err
		}
		return cascadePatch(next), nil
	})
}

func (s *TodoStore) AddSubtask(ctx context.Context, taskID, title string) (*models.Task, error) {
	return s.update(ctx, "add_subtask", taskID, func(cur models.Task) (models.TaskPatch, error) {
		subs := append(cur.Clone().Subtasks, models.Subtask{ID: uuid.NewString(), Title: title})
		return models.TaskPatch{Subtasks: &subs}, nil
	})
}

func (s *TodoStore) RenameSubtask(ctx context.Context, taskID, subtaskID, title string) (*models.Task, error) {
	return s.update(ctx, "rename_subtask", taskID, func(cur models.Task) (models.TaskPatch, error) {
		subs := cur.Clone().Subtasks
		i := subtaskIndex(subs, subtaskID)
		if i < 0 {
			return models.TaskPatch{}, fmt.Errorf("subtask %s: %w", subtaskID, common.ErrorNotFound)
		}
		subs[i].Title = title
		return models.TaskPatch{Subtasks: &subs}, nil
	})
}

func (s *TodoStore) DeleteSubtask(ctx context.Context, taskID, subtaskID string) (*models.Task, error) {
	return s.update(ctx, "delete_subtask", taskID, func(cur models.Task) (models.TaskPatch, error) {
		subs := cur.Clone().Subtasks
		i := subtaskIndex(subs, subtaskID)
		if i < 0 {
			return models.TaskPatch{}, fmt.Errorf("subtask %s: %w", subtaskID, common.ErrorNotFound)
		}
		subs = append(subs[:i], subs[i+1:]...)
		return models.TaskPatch{Subtasks: &subs}, nil
	})
}

func subtaskIndex(subs []models.Subtask, id string) int {
	for i := range subs {
		if subs[i].ID == id {
			return i
		}
	}
	return -1
}

// Stats summarises the cached tasks as of now.
func (s *TodoStore) Stats(now time.Time) models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st models.Stats
	for _, t := range s.cache {
		st.Total++
		if t.Completed {
			st.Completed++
		} else {
			st.Active++
		}
		if t.IsOverdue(now) {
			st.Overdue++
		}
	}
	return st
}

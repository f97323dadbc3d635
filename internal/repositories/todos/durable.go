package todos

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IsnuMdr/todo-app/internal/common"
	"github.com/IsnuMdr/todo-app/internal/models"
	"github.com/IsnuMdr/todo-app/internal/storage"
	"github.com/google/uuid"
)

type DurableRepository struct {
	store storage.DurableStore
	users CurrentUser

	mu  sync.Mutex
	now func() time.Time
}

var _ Repository = (*DurableRepository)(nil)

func NewDurableRepository(store storage.DurableStore, users CurrentUser) *DurableRepository {
	return &DurableRepository{
		store: store,
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *DurableRepository) owner(ctx context.Context) (string, error) {
	id, err := r.users.CurrentIdentity(ctx)
	if err != nil {
		return "", err
	}
	if id == nil {
		return "", common.ErrorUnauthorized
	}
	return id.ID, nil
}

func (r *DurableRepository) load(ctx context.Context) ([]models.Task, error) {
	var all []models.Task
	if _, err := r.store.Get(ctx, common.KeyTodos, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func (r *DurableRepository) save(ctx context.Context, all []models.Task) error {
	if all == nil {
		all = []models.Task{}
	}
	return r.store.Set(ctx, common.KeyTodos, all)
}

func find(all []models.Task, owner, id string) int {
	for i := range all {
		if all[i].ID == id && all[i].OwnerID == owner {
			return i
		}
	}
	return -1
}

func (r *DurableRepository) List(ctx context.Context) ([]models.Task, error) {
	owner, err := r.owner(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Task, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].OwnerID == owner {
			out = append(out, all[i].Clone())
		}
	}
	return out, nil
}

func (r *DurableRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	owner, err := r.owner(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	i := find(all, owner, id)
	if i < 0 {
		return nil, fmt.Errorf("task %s: %w", id, common.ErrorNotFound)
	}
	t := all[i].Clone()
	return &t, nil
}

func (r *DurableRepository) Create(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	owner, err := r.owner(ctx)
	if err != nil {
		return nil, err
	}

	title, scheduledAt, err := in.Validate()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	now := r.now()
	t := models.Task{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		Title:       title,
		ScheduledAt: scheduledAt,
		Completed:   false,
		Subtasks:    []models.Subtask{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.save(ctx, append(all, t)); err != nil {
		return nil, err
	}
	out := t.Clone()
	return &out, nil
}

func (r *DurableRepository) Update(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	owner, err := r.owner(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	i := find(all, owner, id)
	if i < 0 {
		return nil, fmt.Errorf("task %s: %w", id, common.ErrorNotFound)
	}

	t, err := applyPatch(all[i], patch)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt = r.now()
	all[i] = t

	if err := r.save(ctx, all); err != nil {
		return nil, err
	}
	out := t.Clone()
	return &out, nil
}

func (r *DurableRepository) Delete(ctx context.Context, id string) (bool, error) {
	owner, err := r.owner(ctx)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return false, err
	}

	i := find(all, owner, id)
	if i < 0 {
		return false, nil
	}

	all = append(all[:i], all[i+1:]...)
	if err := r.save(ctx, all); err != nil {
		return false, err
	}
	return true, nil
}

// applyPatch validates patch and returns t with it merged. ID, OwnerID and
// CreatedAt are never touched. Subtask ids must be unique within the task.
func applyPatch(t models.Task, patch models.TaskPatch) (models.Task, error) {
	out := t.Clone()

	if patch.Title != nil {
		title, err := models.NormalizeTaskTitle(*patch.Title)
		if err != nil {
			return t, err
		}
		out.Title = title
	}
	if patch.ScheduledAt != nil {
		at, err := models.ParseSchedule(*patch.ScheduledAt)
		if err != nil {
			return t, err
		}
		out.ScheduledAt = at
	}
	if patch.Completed != nil {
		out.Completed = *patch.Completed
	}
	if patch.Subtasks != nil {
		subs := make([]models.Subtask, len(*patch.Subtasks))
		seen := make(map[string]struct{}, len(subs))
		for i, s := range *patch.Subtasks {
			title, err := models.NormalizeTitle(s.Title)
			if err != nil {
				return t, fmt.Errorf("subtask %d: %w", i, err)
			}
			s.Title = title
			if s.ID == "" {
				s.ID = uuid.NewString()
			}
			if _, dup := seen[s.ID]; dup {
				return t, fmt.Errorf("%w: duplicate subtask id %q", common.ErrValidation, s.ID)
			}
			seen[s.ID] = struct{}{}
			subs[i] = s
		}
		out.Subtasks = subs
	}
	return out, nil
}

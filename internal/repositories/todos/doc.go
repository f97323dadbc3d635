// Package todos provides the per-identity persistence layer for tasks.
//
// # Overview
//
// All tasks of all identities live in one JSON array under the "todos" key of
// a storage.DurableStore. Every operation resolves the current identity first
// and only ever sees or touches tasks whose OwnerID matches it.
//
// Each call is one read of the whole collection, a transformation and, for
// mutations, one write back. Calls within a process are serialised by a
// mutex; two processes sharing the same store can still race.
//
// Typical Usage
//
//	repo := todos.NewDurableRepository(store, sessions)
//	task, _ := repo.Create(ctx, models.TaskInput{Title: "Buy milk", ScheduledAt: "2025-01-01T10:00:00Z"})
//	list, _ := repo.List(ctx)
//	_, _ = repo.Update(ctx, task.ID, models.TaskPatch{Completed: &done})
//	removed, _ := repo.Delete(ctx, task.ID)
package todos

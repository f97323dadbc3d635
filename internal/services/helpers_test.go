package services

import (
	"context"
	"sync"
	"testing"

	"github.com/IsnuMdr/todo-app/internal/cascade"
	"github.com/IsnuMdr/todo-app/internal/common"
	"github.com/IsnuMdr/todo-app/internal/logging"
	"github.com/IsnuMdr/todo-app/internal/metrics"
	"github.com/IsnuMdr/todo-app/internal/oauth"
	"github.com/IsnuMdr/todo-app/internal/repositories/todos"
	"github.com/IsnuMdr/todo-app/internal/storage"
)

type fakeProvider struct {
	mu          sync.Mutex
	active      *oauth.Session
	activeErr   error
	initiated   []string
	initiateErr error
	signOutErr  error
	signOuts    int

	subs common.Observers[*oauth.Session]
}

func (f *fakeProvider) Initiate(_ context.Context, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initiated = append(f.initiated, target)
	return f.initiateErr
}

func (f *fakeProvider) ActiveSession(context.Context) (*oauth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, f.activeErr
}

func (f *fakeProvider) Subscribe(fn func(*oauth.Session)) func() {
	return f.subs.Add(fn)
}

func (f *fakeProvider) SignOut(context.Context) error {
	f.mu.Lock()
	f.signOuts++
	f.active = nil
	err := f.signOutErr
	f.mu.Unlock()

	f.subs.Notify(nil)
	return err
}

// emit simulates the provider completing (s != nil) or ending (nil) a session.
func (f *fakeProvider) emit(s *oauth.Session) {
	f.mu.Lock()
	f.active = s
	f.mu.Unlock()
	f.subs.Notify(s)
}

type fakeRecorder struct {
	mu       sync.Mutex
	commands map[string]int
	logins   map[string]int
	cached   int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{commands: map[string]int{}, logins: map[string]int{}}
}

func (r *fakeRecorder) RecordCommand(command, outcome string) {
	r.mu.Lock()
	r.commands[command+"/"+outcome]++
	r.mu.Unlock()
}

func (r *fakeRecorder) RecordLogin(mode, outcome string) {
	r.mu.Lock()
	r.logins[mode+"/"+outcome]++
	r.mu.Unlock()
}

func (r *fakeRecorder) SetCachedTodos(n int) {
	r.mu.Lock()
	r.cached = n
	r.mu.Unlock()
}

var _ metrics.Recorder = (*fakeRecorder)(nil)

var testSecret = []byte("test-session-secret")

type fixture struct {
	store    *storage.Store
	provider *fakeProvider
	sessions *SessionManager
	repo     *todos.DurableRepository
	todos    *TodoStore
	rec      *fakeRecorder
}

func newFixture(t *testing.T, policy cascade.Policy) *fixture {
	t.Helper()
	f := &fixture{
		store:    storage.New(storage.NewMemoryStore(), logging.Nop()),
		provider: &fakeProvider{},
		rec:      newFakeRecorder(),
	}
	f.sessions = NewSessionManager(f.store, f.provider, testSecret, logging.Nop(), f.rec)
	f.repo = todos.NewDurableRepository(f.store, f.sessions)
	f.todos = NewTodoStore(f.repo, f.sessions, policy, logging.Nop(), f.rec)
	t.Cleanup(func() {
		f.todos.Close()
		f.sessions.Close()
	})
	return f
}

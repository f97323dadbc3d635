// Package services contains the application services of the todo client:
// the session manager (local and external sign-in) and the todo store that
// caches the current identity's tasks.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IsnuMdr/todo-app/internal/auth"
	"github.com/IsnuMdr/todo-app/internal/common"
	"github.com/IsnuMdr/todo-app/internal/cryptox"
	"github.com/IsnuMdr/todo-app/internal/logging"
	"github.com/IsnuMdr/todo-app/internal/metrics"
	"github.com/IsnuMdr/todo-app/internal/models"
	"github.com/IsnuMdr/todo-app/internal/oauth"
	"github.com/IsnuMdr/todo-app/internal/storage"
	"github.com/google/uuid"
)

const (
	modeLocal    = "local"
	modeExternal = "external"
)

// LoginResult is returned by LoginOrRegister.
type LoginResult struct {
	Identity      *models.Identity
	IsNewIdentity bool
}

// SessionManager owns the durable "user" and "auth_token" keys. It signs
// identities in with a local email/secret pair or through an external
// provider, and tells subscribers whenever the current identity changes.
type SessionManager struct {
	store       storage.DurableStore
	provider    oauth.Provider
	tokenSecret []byte
	log         logging.Logger
	metrics     metrics.Recorder

	// mu serialises read-modify-write cycles over the durable keys.
	mu   sync.Mutex
	subs common.Observers[*models.Identity]
	now  func() time.Time

	unsubscribeProvider func()
}

// NewSessionManager wires the manager to store. provider may be nil when
// external sign-in is not configured; otherwise the manager subscribes to it
// immediately.
func NewSessionManager(store storage.DurableStore, provider oauth.Provider, tokenSecret []byte, log logging.Logger, rec metrics.Recorder) *SessionManager {
	m := &SessionManager{
		store:       store,
		provider:    provider,
		tokenSecret: tokenSecret,
		log:         log,
		metrics:     rec,
		now:         func() time.Time { return time.Now().UTC() },
	}
	if provider != nil {
		m.unsubscribeProvider = provider.Subscribe(m.onProviderChange)
	}
	return m
}

// Close detaches from the provider.
func (m *SessionManager) Close() {
	if m.unsubscribeProvider != nil {
		m.unsubscribeProvider()
	}
}

// Subscribe registers fn for identity changes. fn receives nil on logout.
func (m *SessionManager) Subscribe(fn func(*models.Identity)) func() {
	return m.subs.Add(fn)
}

func (m *SessionManager) loadCredentials(ctx context.Context) ([]models.Credential, error) {
	var creds []models.Credential
	if _, err := m.store.Get(ctx, common.KeyUsers, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}

func findCredential(creds []models.Credential, email string) int {
	for i := range creds {
		if creds[i].Email == email {
			return i
		}
	}
	return -1
}

func (m *SessionManager) persistSession(ctx context.Context, id *models.Identity, mode string) error {
	token, err := auth.GenerateToken(id.ID, mode, m.tokenSecret, 0)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	return m.store.Set(ctx, common.KeySession, models.Session{Token: token, Identity: id})
}

// LoginOrRegister signs in the identity registered under email, creating
// it on first use. A wrong secret, or a record that has no local secret,
// fails with common.ErrInvalidCredentials and writes nothing.
func (m *SessionManager) LoginOrRegister(ctx context.Context, email, secret string) (*LoginResult, error) {
	res, err := m.loginOrRegister(ctx, email, secret)
	m.metrics.RecordLogin(modeLocal, metrics.Outcome(err))
	if err != nil {
		m.log.Warn(ctx, "login failed", "email", email, "err", err)
		return nil, err
	}

	m.log.Info(ctx, "login succeeded", "email", res.Identity.Email, "mode", modeLocal, "new", res.IsNewIdentity)
	m.subs.Notify(res.Identity)
	return res, nil
}

func (m *SessionManager) loginOrRegister(ctx context.Context, email, secret string) (*LoginResult, error) {
	email, err := models.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateSecret(secret); err != nil {
		return nil, err
	}

	pw := []byte(secret)
	defer common.WipeByteArray(pw)

	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.loadCredentials(ctx)
	if err != nil {
		return nil, err
	}

	res := &LoginResult{}
	if i := findCredential(creds, email); i >= 0 {
		c := creds[i]
		if !c.HasLocalSecret() || !cryptox.CheckSecret(pw, c.Salt, c.Verifier) {
			return nil, common.ErrInvalidCredentials
		}
		res.Identity = c.Identity()
	} else {
		salt := common.GenerateRandByteArray(cryptox.SaltSize)
		c := models.Credential{
			ID:        uuid.NewString(),
			Email:     email,
			Salt:      salt,
			Verifier:  cryptox.NewVerifier(pw, salt),
			Kind:      models.KindLocal,
			CreatedAt: m.now(),
		}
		if err := m.store.Set(ctx, common.KeyUsers, append(creds, c)); err != nil {
			return nil, err
		}
		res.Identity = c.Identity()
		res.IsNewIdentity = true
	}

	if err := m.persistSession(ctx, res.Identity, modeLocal); err != nil {
		return nil, err
	}
	return res, nil
}

// LoginWithExternalProvider starts the provider's sign-in flow and returns
// at once. The outcome arrives later through Subscribe; the error only says
// whether the flow could be started.
func (m *SessionManager) LoginWithExternalProvider(ctx context.Context, redirectTarget string) error {
	if m.provider == nil {
		return errors.New("external sign-in is not configured")
	}
	if err := m.provider.Initiate(ctx, redirectTarget); err != nil {
		m.metrics.RecordLogin(modeExternal, metrics.OutcomeError)
		return fmt.Errorf("start external sign-in: %w", err)
	}
	return nil
}

// SyncExternalSession adopts the provider's active session, if any. It is
// meant to run once at start-up; an external session replaces whatever
// local session was persisted.
func (m *SessionManager) SyncExternalSession(ctx context.Context) (*models.Identity, error) {
	if m.provider == nil {
		return nil, nil
	}
	s, err := m.provider.ActiveSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("active external session: %w", err)
	}
	if s == nil {
		return nil, nil
	}
	return m.adoptExternal(ctx, s)
}

func (m *SessionManager) onProviderChange(s *oauth.Session) {
	ctx := context.Background()

	if s != nil {
		if _, err := m.adoptExternal(ctx, s); err != nil {
			m.log.Error(ctx, "external session sync failed", "err", err)
		}
		return
	}

	m.mu.Lock()
	removed, err := m.removeSessionIf(ctx, func(cur *models.Session) bool {
		return cur.Identity.IsExternal()
	})
	m.mu.Unlock()

	if err != nil {
		m.log.Error(ctx, "clearing external session failed", "err", err)
		return
	}
	if removed {
		m.log.Info(ctx, "external sign-out observed")
		m.subs.Notify(nil)
	}
}

// adoptExternal upserts the record for s.Email and persists a session for it.
func (m *SessionManager) adoptExternal(ctx context.Context, s *oauth.Session) (*models.Identity, error) {
	id, err := m.upsertExternal(ctx, s)
	m.metrics.RecordLogin(modeExternal, metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	m.log.Info(ctx, "login succeeded", "email", id.Email, "mode", modeExternal, "provider", s.Profile.Provider)
	m.subs.Notify(id)
	return id, nil
}

func (m *SessionManager) upsertExternal(ctx context.Context, s *oauth.Session) (*models.Identity, error) {
	email, err := models.NormalizeEmail(s.Email)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.loadCredentials(ctx)
	if err != nil {
		return nil, err
	}

	profile := s.Profile
	c := models.Credential{
		ID:        uuid.NewString(),
		Email:     email,
		Kind:      models.KindExternal,
		External:  &profile,
		CreatedAt: m.now(),
	}

	if i := findCredential(creds, email); i >= 0 {
		// The record is replaced wholesale; only the id survives so the
		// identity's tasks stay reachable. Re-syncing the same external
		// account also keeps its creation time.
		c.ID = creds[i].ID
		if sameExternalAccount(creds[i], profile) {
			c.CreatedAt = creds[i].CreatedAt
		}
		creds[i] = c
	} else {
		creds = append(creds, c)
	}

	if err := m.store.Set(ctx, common.KeyUsers, creds); err != nil {
		return nil, err
	}

	id := c.Identity()
	if err := m.persistSession(ctx, id, modeExternal); err != nil {
		return nil, err
	}
	return id, nil
}

func sameExternalAccount(c models.Credential, p models.ExternalProfile) bool {
	return c.Kind == models.KindExternal && c.External != nil &&
		c.External.Provider == p.Provider && c.External.ProviderUserID == p.ProviderUserID
}

// CurrentIdentity returns the identity of the persisted session, or nil
// when nobody is signed in. A session whose token does not verify is
// treated as absent.
func (m *SessionManager) CurrentIdentity(ctx context.Context) (*models.Identity, error) {
	var s models.Session
	found, err := m.store.Get(ctx, common.KeySession, &s)
	if err != nil {
		return nil, err
	}
	if !found || s.Identity == nil {
		return nil, nil
	}

	sub, err := auth.GetIdentityIDFromToken(s.Token, m.tokenSecret)
	if err != nil || sub != s.Identity.ID {
		m.log.Warn(ctx, "ignoring session with invalid token", "err", err)
		return nil, nil
	}
	return s.Identity, nil
}

func (m *SessionManager) IsAuthenticated(ctx context.Context) bool {
	return m.store.Has(ctx, common.KeySession)
}

// Logout signs out of the provider when it holds an active session, then
// removes the persisted session whatever its kind. Provider failures are
// logged and do not stop the local logout.
func (m *SessionManager) Logout(ctx context.Context) error {
	if m.provider != nil {
		active, err := m.provider.ActiveSession(ctx)
		if err != nil {
			m.log.Warn(ctx, "checking external session failed", "err", err)
		}
		if active != nil {
			if err := m.provider.SignOut(ctx); err != nil {
				m.log.Warn(ctx, "external sign-out failed", "err", err)
			}
		}
	}

	m.mu.Lock()
	removed, err := m.removeSessionIf(ctx, func(*models.Session) bool { return true })
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if removed {
		m.log.Info(ctx, "logged out")
		m.subs.Notify(nil)
	}
	return nil
}

// removeSessionIf deletes the persisted session when match accepts it.
// Callers hold m.mu.
func (m *SessionManager) removeSessionIf(ctx context.Context, match func(*models.Session) bool) (bool, error) {
	var cur models.Session
	found, err := m.store.Get(ctx, common.KeySession, &cur)
	if err != nil {
		return false, err
	}
	if !found || !match(&cur) {
		return false, nil
	}
	if err := m.store.Remove(ctx, common.KeySession); err != nil {
		return false, err
	}
	return true, nil
}

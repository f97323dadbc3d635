// Package oauth implements the external sign-in collaborator: a Provider
// interface the session manager consumes, and a Google auth-code flow
// completed through a loopback HTTP callback.
package oauth

import (
	"context"
	"time"

	"github.com/IsnuMdr/todo-app/internal/models"
)

// Session is an active external sign-in.
type Session struct {
	AccessToken string                 `json:"accessToken"`
	Email       string                 `json:"email"`
	Profile     models.ExternalProfile `json:"profile"`
	ExpiresAt   time.Time              `json:"expiresAt,omitzero"`
}

// Expired reports whether the session carries an expiry that has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Provider is an external identity provider.
//
// Initiate only starts the flow; its outcome is delivered to subscribers
// as a non-nil Session. A sign-out is delivered as nil.
type Provider interface {
	Initiate(ctx context.Context, redirectTarget string) error
	ActiveSession(ctx context.Context) (*Session, error)
	Subscribe(fn func(*Session)) (unsubscribe func())
	SignOut(ctx context.Context) error
}

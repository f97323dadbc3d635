// Package models defines the records persisted by the todo data layer.
package models

import "time"

// IdentityKind tags how an identity was established.
type IdentityKind string

const (
	KindLocal    IdentityKind = "local"
	KindExternal IdentityKind = "external"
)

// ExternalProfile holds the attributes an OAuth provider reports.
type ExternalProfile struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"providerUserId"`
	Name           string `json:"name,omitempty"`
	Picture        string `json:"picture,omitempty"`
}

// Identity is the authenticated principal. It never carries a secret.
type Identity struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	CreatedAt time.Time        `json:"createdAt"`
	Kind      IdentityKind     `json:"kind"`
	External  *ExternalProfile `json:"external,omitempty"`
}

// IsExternal reports whether the identity came from an OAuth provider.
func (i *Identity) IsExternal() bool {
	return i != nil && i.Kind == KindExternal
}

// Credential is the durable record behind an Identity. Salt and Verifier are
// empty for records synced from an external provider.
type Credential struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	Salt      []byte           `json:"salt,omitempty"`
	Verifier  []byte           `json:"verifier,omitempty"`
	Kind      IdentityKind     `json:"kind"`
	External  *ExternalProfile `json:"external,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// HasLocalSecret reports whether the record can be checked against a secret.
func (c *Credential) HasLocalSecret() bool {
	return len(c.Verifier) > 0 && len(c.Salt) > 0
}

// Identity projects the secret-free view of the record.
func (c *Credential) Identity() *Identity {
	id := &Identity{
		ID:        c.ID,
		Email:     c.Email,
		CreatedAt: c.CreatedAt,
		Kind:      c.Kind,
	}
	if c.External != nil {
		ext := *c.External
		id.External = &ext
	}
	return id
}

// Session is the persisted login: a token plus the identity it was issued for.
type Session struct {
	Token    string    `json:"token"`
	Identity *Identity `json:"identity"`
}

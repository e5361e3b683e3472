package model

import (
	"strings"
	"time"
)

// Identity is the authenticated principal handed to the core by the identity
// provider. The core reads it, never writes it.
type Identity struct {
	ID        string            `json:"id"`
	Email     string            `json:"email"`
	Metadata  map[string]string `json:"metadata,omitempty"` // signup metadata, e.g. "name"
	CreatedAt time.Time         `json:"createdAt"`
}

// DefaultProfileName is used when neither signup metadata nor the email
// yields a usable display name.
const DefaultProfileName = "Volunteer"

// DisplayName derives the name a new profile starts with: signup metadata
// first, then the local part of the email, then DefaultProfileName.
func (i Identity) DisplayName() string {
	for _, key := range []string{"name", "full_name"} {
		if v := strings.TrimSpace(i.Metadata[key]); v != "" {
			return v
		}
	}
	if local, _, ok := strings.Cut(strings.TrimSpace(i.Email), "@"); ok && local != "" {
		return local
	}
	return DefaultProfileName
}

// Account is the credential row behind the local identity provider.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity returns the principal view of the account.
func (a *Account) Identity() *Identity {
	id := &Identity{
		ID:        a.ID,
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
	}
	if a.Name != "" {
		id.Metadata = map[string]string{"name": a.Name}
	}
	return id
}

// Credentials bundle a principal with its session token.
type Credentials struct {
	Identity  *Identity `json:"identity"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

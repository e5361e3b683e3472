// Package identity defines the session lifecycle events the engagement core
// reacts to, and a local provider that emits them.
//
// The core never authenticates anyone itself. It reads the current identity
// from a Provider and subscribes to its events:
//
//	SignedIn        a session was established for Identity
//	SignedOut       the session ended; Identity is nil
//	TokenRefreshed  the same session got a new token
//	Other           any other notification, e.g. a restored session
package identity

import "github.com/sakif/engage/internal/model"

type EventKind string

const (
	SignedIn       EventKind = "signed-in"
	SignedOut      EventKind = "signed-out"
	TokenRefreshed EventKind = "token-refreshed"
	Other          EventKind = "other"
)

// Event is one session lifecycle notification. Identity is nil for SignedOut
// and may be nil for Other.
type Event struct {
	Kind     EventKind
	Identity *model.Identity
}

// Provider is the session source the profile lifecycle is driven by.
type Provider interface {
	// CurrentIdentity returns the signed-in identity, or nil.
	CurrentIdentity() *model.Identity
	// Subscribe registers fn for every future event and returns a function
	// that removes it.
	Subscribe(fn func(Event)) (unsubscribe func())
}

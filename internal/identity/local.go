package identity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/model"
)

// Authenticator is the account backend Local delegates to.
// service.AuthService implements it.
type Authenticator interface {
	SignUp(ctx context.Context, email, password, name string) (*model.Credentials, error)
	SignIn(ctx context.Context, email, password string) (*model.Credentials, error)
	Authenticate(ctx context.Context, token string) (*model.Identity, error)
	Refresh(ctx context.Context, token string) (*model.Credentials, error)
	SignOut(ctx context.Context, token string) error
}

var _ Provider = (*Local)(nil)

// Local is a single-client session backed by an Authenticator. It holds the
// current credentials and delivers events synchronously, in subscription
// order, after its own state has been updated.
type Local struct {
	auth   Authenticator
	logger *slog.Logger

	mu     sync.Mutex
	creds  *model.Credentials
	subs   []subscriber
	nextID int
}

type subscriber struct {
	id int
	fn func(Event)
}

func NewLocal(auth Authenticator, logger *slog.Logger) *Local {
	return &Local{auth: auth, logger: logger}
}

func (l *Local) CurrentIdentity() *model.Identity {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.creds == nil {
		return nil
	}
	return l.creds.Identity
}

// Token returns the current session token, or "".
func (l *Local) Token() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.creds == nil {
		return ""
	}
	return l.creds.Token
}

func (l *Local) Subscribe(fn func(Event)) func() {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.subs = append(l.subs, subscriber{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, s := range l.subs {
				if s.id == id {
					l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (l *Local) SignUp(ctx context.Context, email, password, name string) (*model.Identity, error) {
	creds, err := l.auth.SignUp(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	l.set(creds, SignedIn)
	return creds.Identity, nil
}

func (l *Local) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	creds, err := l.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	l.set(creds, SignedIn)
	return creds.Identity, nil
}

// Restore resumes a session from a stored token and announces it as Other.
func (l *Local) Restore(ctx context.Context, token string) (*model.Identity, error) {
	identity, err := l.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	l.set(&model.Credentials{Identity: identity, Token: token}, Other)
	return identity, nil
}

// Refresh swaps the current token for a new one.
func (l *Local) Refresh(ctx context.Context) error {
	token := l.Token()
	if token == "" {
		return apperror.Unauthorized("no active session")
	}
	creds, err := l.auth.Refresh(ctx, token)
	if err != nil {
		return err
	}
	l.set(creds, TokenRefreshed)
	return nil
}

// SignOut clears the session locally even if revoking the token fails.
func (l *Local) SignOut(ctx context.Context) error {
	token := l.Token()
	l.set(nil, SignedOut)
	if token == "" {
		return nil
	}
	if err := l.auth.SignOut(ctx, token); err != nil {
		l.logger.Warn("revoking session token failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (l *Local) set(creds *model.Credentials, kind EventKind) {
	l.mu.Lock()
	l.creds = creds
	subs := make([]subscriber, len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()

	ev := Event{Kind: kind}
	if creds != nil {
		ev.Identity = creds.Identity
	}
	for _, s := range subs {
		s.fn(ev)
	}
}

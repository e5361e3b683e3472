package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/identity"
	"github.com/sakif/engage/internal/model"
)

// AuthStatus is the lifecycle position of a client session.
type AuthStatus string

const (
	Unauthenticated AuthStatus = "unauthenticated"
	Resolving       AuthStatus = "resolving"
	Authenticated   AuthStatus = "authenticated"
	ProfileError    AuthStatus = "profile_error"
)

// SessionState is an immutable snapshot. Generation increases with every
// committed transition, so observers can drop out-of-order snapshots.
type SessionState struct {
	Status     AuthStatus      `json:"status"`
	Identity   *model.Identity `json:"identity,omitempty"`
	Profile    *model.Profile  `json:"profile,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Generation uint64          `json:"generation"`
}

// ProfileResolver is the part of ProfileService a Session drives.
type ProfileResolver interface {
	EnsureProfile(ctx context.Context, identity *model.Identity) (*model.Profile, error)
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
}

// ErrNotRetryable is returned by Retry outside the ProfileError state.
var ErrNotRetryable = errors.New("session: retry is only possible after a profile error")

// Session is the per-client profile lifecycle state machine.
//
// TRANSITIONS:
//
//	Unauthenticated --signed-in-->            Resolving
//	Resolving       --profile ok-->           Authenticated
//	Resolving       --profile failed-->       ProfileError
//	Authenticated   --refreshed/other-->      Authenticated (profile re-fetched)
//	ProfileError    --Retry()/other-->        Resolving
//	any             --signed-out-->           Unauthenticated (synchronous)
//
// Store calls run on their own goroutines and never under mu. Each one
// captures the generation it started in; when it finishes, its result is
// committed only if no transition happened in between and the identity is
// still the active one. That is how a sign-out preempts a pending
// EnsureProfile: the sign-out bumps the generation and the late result is
// dropped.
type Session struct {
	provider identity.Provider
	profiles ProfileResolver
	logger   *slog.Logger

	mu        sync.Mutex
	ctx       context.Context
	state     SessionState
	gen       uint64
	observers []sessionObserver
	nextObs   int
	detach    func()

	inflight sync.WaitGroup
}

type sessionObserver struct {
	id int
	fn func(SessionState)
}

func NewSession(provider identity.Provider, profiles ProfileResolver, logger *slog.Logger) *Session {
	return &Session{
		provider: provider,
		profiles: profiles,
		logger:   logger,
		ctx:      context.Background(),
		state:    SessionState{Status: Unauthenticated},
	}
}

// Start resolves the provider's current identity, if any. ctx is used for
// every store call the session makes afterwards.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if id := s.provider.CurrentIdentity(); id != nil {
		s.HandleEvent(identity.Event{Kind: identity.SignedIn, Identity: id})
	}
}

// Attach subscribes the session to provider events. Calling it twice is a
// no-op.
func (s *Session) Attach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detach != nil {
		return
	}
	s.detach = s.provider.Subscribe(s.HandleEvent)
}

// Detach stops listening to the provider.
func (s *Session) Detach() {
	s.mu.Lock()
	detach := s.detach
	s.detach = nil
	s.mu.Unlock()
	if detach != nil {
		detach()
	}
}

// State returns the current snapshot.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every committed state. Snapshots may arrive
// from resolution goroutines.
func (s *Session) Subscribe(fn func(SessionState)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextObs++
	id := s.nextObs
	s.observers = append(s.observers, sessionObserver{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Wait blocks until every pending profile call has finished.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// HandleEvent applies one provider event. It never blocks on the store.
//
// The transition is chosen and applied under mu, so events delivered from
// several goroutines each see the state the previous one left. Store calls
// start only after mu is released.
func (s *Session) HandleEvent(ev identity.Event) {
	if ev.Kind == identity.SignedOut {
		s.signOut()
		return
	}
	if ev.Identity == nil {
		if ev.Kind == identity.SignedIn {
			s.logger.Warn("signed-in event without identity ignored")
		}
		return
	}

	s.mu.Lock()
	run := s.transitionLocked(ev)
	s.mu.Unlock()

	if run != nil {
		run()
	}
}

// transitionLocked decides what ev does to the current state. It must be
// called with mu held; the returned func, if any, runs after unlocking.
func (s *Session) transitionLocked(ev identity.Event) func() {
	cur := s.state
	sameIdentity := cur.Identity != nil && cur.Identity.ID == ev.Identity.ID

	switch {
	case ev.Kind == identity.SignedIn && !(sameIdentity && cur.Status == Resolving):
		return s.resolveLocked(ev.Identity)
	case ev.Kind == identity.SignedIn:
		// same identity already resolving
		return nil
	case cur.Status == Unauthenticated:
		// restored session
		return s.resolveLocked(ev.Identity)
	case !sameIdentity:
		return s.resolveLocked(ev.Identity)
	case cur.Status == Authenticated:
		return s.refetchLocked(ev.Identity)
	case cur.Status == ProfileError && ev.Kind == identity.Other:
		return s.resolveLocked(ev.Identity)
	}
	return nil
}

// Retry re-runs profile resolution after a ProfileError.
func (s *Session) Retry() error {
	s.mu.Lock()
	cur := s.state
	if cur.Status != ProfileError || cur.Identity == nil {
		s.mu.Unlock()
		return ErrNotRetryable
	}
	run := s.resolveLocked(cur.Identity)
	s.mu.Unlock()

	run()
	return nil
}

func (s *Session) signOut() {
	s.mu.Lock()
	s.gen++
	s.state = SessionState{Status: Unauthenticated, Generation: s.gen}
	snap, obs := s.state, s.snapshotObservers()
	s.mu.Unlock()

	s.logger.Info("session signed out")
	notify(obs, snap)
}

// resolveLocked moves to Resolving for id under mu and returns the func that
// notifies observers and runs EnsureProfile in the background.
func (s *Session) resolveLocked(id *model.Identity) func() {
	s.gen++
	gen := s.gen
	ctx := s.ctx
	s.state = SessionState{Status: Resolving, Identity: id, Generation: gen}
	snap, obs := s.state, s.snapshotObservers()
	s.inflight.Add(1)

	return func() {
		notify(obs, snap)

		go func() {
			defer s.inflight.Done()

			profile, err := s.profiles.EnsureProfile(ctx, id)

			next := SessionState{Status: Authenticated, Identity: id, Profile: profile}
			if err != nil {
				next = SessionState{Status: ProfileError, Identity: id, Reason: apperror.Reason(err)}
			}
			if !s.commit(gen, id.ID, next) {
				s.logger.Debug("discarded stale profile resolution", slog.String("userID", id.ID))
				return
			}
			if err != nil {
				s.logger.Warn("profile resolution failed",
					slog.String("userID", id.ID),
					slog.String("error", err.Error()),
				)
			}
		}()
	}
}

// refetchLocked reloads the profile of an authenticated session. A failed
// fetch keeps the cached profile. Called with mu held.
func (s *Session) refetchLocked(id *model.Identity) func() {
	gen := s.gen
	ctx := s.ctx
	s.inflight.Add(1)

	return func() {
		go func() {
			defer s.inflight.Done()

			profile, err := s.profiles.GetProfile(ctx, id.ID)
			if err != nil {
				s.logger.Warn("profile refresh failed, keeping cached profile",
					slog.String("userID", id.ID),
					slog.String("error", err.Error()),
				)
				return
			}
			s.commit(gen, id.ID, SessionState{Status: Authenticated, Identity: id, Profile: profile})
		}()
	}
}

// commit applies next if the session is still at generation gen for userID.
func (s *Session) commit(gen uint64, userID string, next SessionState) bool {
	s.mu.Lock()
	if s.gen != gen || s.state.Identity == nil || s.state.Identity.ID != userID {
		s.mu.Unlock()
		return false
	}
	s.gen++
	next.Generation = s.gen
	s.state = next
	snap, obs := s.state, s.snapshotObservers()
	s.mu.Unlock()

	notify(obs, snap)
	return true
}

// snapshotObservers must be called with mu held.
func (s *Session) snapshotObservers() []sessionObserver {
	obs := make([]sessionObserver, len(s.observers))
	copy(obs, s.observers)
	return obs
}

func notify(obs []sessionObserver, snap SessionState) {
	for _, o := range obs {
		o.fn(snap)
	}
}

// Package service contains the business logic of the engagement core.
//
// THE LAYERS:
//
//	Handler (HTTP)    → parses requests, writes responses
//	Service (rules)   → validates, enforces invariants, orchestrates
//	Repository (data) → reads/writes the record store
//
// Every service takes repository INTERFACES, never *sqlite.DB, so tests run
// against small in-memory fakes and the store can be swapped in main.go.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/auth"
	"github.com/sakif/engage/internal/model"
	"github.com/sakif/engage/internal/repository"
)

// AuthService backs the local identity provider: email/password accounts,
// signed session tokens and token revocation on sign-out.
//
//	AuthHandler (HTTP) → AuthService → AccountRepository (DB)
//	                                 ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	accounts  repository.AccountRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger

	mu      sync.Mutex
	revoked map[string]time.Time // token id → token expiry
}

func NewAuthService(
	accounts repository.AccountRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		revoked:   make(map[string]time.Time),
	}
}

const MaxAccountNameLength = 100

// normalizeEmail is applied on every path that takes an email, so sign-up
// and sign-in agree on the key.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates an account and returns a session for it. A taken email is
// apperror.ErrConflict.
func (s *AuthService) SignUp(ctx context.Context, email, password, name string) (*model.Credentials, error) {
	email = normalizeEmail(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	name = strings.TrimSpace(name)
	if len(name) > MaxAccountNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxAccountNameLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordLength) {
			return nil, apperror.ValidationFailed("password", err.Error())
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	account := &model.Account{Email: email, Name: name, PasswordHash: hash}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("service/auth: creating account: %w", err)
	}

	s.logger.Info("account created",
		slog.String("userID", account.ID),
		slog.String("email", account.Email),
	)
	return s.issue(account.Identity())
}

// SignIn verifies email and password. Unknown email and wrong password give
// the same error so callers cannot probe for accounts.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*model.Credentials, error) {
	email = normalizeEmail(email)
	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: loading account: %w", err)
	}

	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("sign-in rejected", slog.String("userID", account.ID))
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	s.logger.Info("signed in", slog.String("userID", account.ID))
	return s.issue(account.Identity())
}

// Authenticate resolves a session token to its identity.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Identity, error) {
	sess, err := s.validate(token)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetAccountByID(ctx, sess.Subject)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("service/auth: loading account %s: %w", sess.Subject, err)
	}
	return account.Identity(), nil
}

// Refresh exchanges a valid token for a fresh one and revokes the old one.
func (s *AuthService) Refresh(ctx context.Context, token string) (*model.Credentials, error) {
	sess, err := s.validate(token)
	if err != nil {
		return nil, err
	}
	identity, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	creds, err := s.issue(identity)
	if err != nil {
		return nil, err
	}
	s.revoke(sess)

	s.logger.Debug("token refreshed", slog.String("userID", identity.ID))
	return creds, nil
}

// SignOut revokes token. Signing out with an already invalid token is not an
// error.
func (s *AuthService) SignOut(_ context.Context, token string) error {
	sess, err := s.tokens.Validate(token)
	if err != nil {
		return nil
	}
	s.revoke(sess)
	s.logger.Info("signed out", slog.String("userID", sess.Subject))
	return nil
}

func (s *AuthService) issue(identity *model.Identity) (*model.Credentials, error) {
	sess, err := s.tokens.Issue(identity.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", identity.ID, err)
	}
	return &model.Credentials{Identity: identity, Token: sess.Token, ExpiresAt: sess.ExpiresAt}, nil
}

func (s *AuthService) validate(token string) (*auth.Session, error) {
	sess, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized("valid authentication required")
	}

	s.mu.Lock()
	_, revoked := s.revoked[sess.TokenID]
	s.mu.Unlock()
	if revoked {
		return nil, apperror.Unauthorized("session has been signed out")
	}
	return sess, nil
}

// revoke records the token id until the token would have expired anyway.
// Expired entries are pruned on each call.
func (s *AuthService) revoke(sess *auth.Session) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[sess.TokenID] = sess.ExpiresAt
}

// Package auth provides the credential primitives behind the local identity
// provider: signed session tokens and password hashing.
//
// SESSION TOKEN FLOW:
//  1. Client signs up or signs in with email + password
//  2. Server verifies the password against the stored bcrypt hash
//  3. Server issues a signed session token (HS256 JWT, 24h lifetime)
//  4. Client sends it back as "Authorization: Bearer <token>"
//  5. Middleware validates the token and resolves the identity for the request
//
// Each token carries a unique ID (the "jti" claim). Refresh issues a fresh
// token; sign-out revokes the current one by ID so it stops validating even
// before it expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	// SessionLifetime is how long an issued session token remains valid.
	SessionLifetime = 24 * time.Hour

	issuer = "engage"
)

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService signs and verifies session tokens with a shared HMAC secret.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// Session describes a validated token.
type Session struct {
	Token     string
	TokenID   string
	Subject   string
	ExpiresAt time.Time
}

type claims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs a session token for subject with the default lifetime.
func (s *TokenService) Issue(subject string) (*Session, error) {
	return s.IssueWithDuration(subject, SessionLifetime)
}

// IssueWithDuration creates a token with a custom lifetime. Tests use a
// negative duration to produce expired tokens.
func (s *TokenService) IssueWithDuration(subject string, d time.Duration) (*Session, error) {
	now := s.now()
	expires := now.Add(d)
	id := xid.New().String()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("auth: signing token: %w", err)
	}

	return &Session{Token: signed, TokenID: id, Subject: subject, ExpiresAt: expires}, nil
}

// Validate parses and verifies a token string.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid
//   - ExpiresAt is present and in the future
//   - Issuer is "engage"
//   - Algorithm is HS256 (no "none", no algorithm confusion)
func (s *TokenService) Validate(tokenStr string) (*Session, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}

	sess := &Session{Token: tokenStr, TokenID: c.ID, Subject: c.Subject}
	if c.ExpiresAt != nil {
		sess.ExpiresAt = c.ExpiresAt.Time
	}
	return sess, nil
}

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// newTestTokenService uses a fixed secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_ValidSecret(t *testing.T) {
	_, err := NewTokenService("this-is-16-chars")
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error for valid secret: %v", err)
	}
}

// =========================================================================
// ISSUE / VALIDATE
// =========================================================================

func TestIssue_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	sess, err := ts.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.Count(sess.Token, ".") != 2 {
		t.Errorf("Issue() token doesn't look like a JWT: %q", sess.Token)
	}
	if sess.TokenID == "" {
		t.Error("Issue() left TokenID empty")
	}
	if d := time.Until(sess.ExpiresAt); d < 23*time.Hour || d > 25*time.Hour {
		t.Errorf("ExpiresAt is %v from now, want ~24h", d)
	}
}

func TestIssue_TokenIDsAreUnique(t *testing.T) {
	ts := newTestTokenService(t)

	a, _ := ts.Issue("user-1")
	b, _ := ts.Issue("user-1")

	if a.TokenID == b.TokenID || a.Token == b.Token {
		t.Error("Issue() produced the same token twice for one subject")
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	issued, err := ts.Issue("user-abc-123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := ts.Validate(issued.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got.Subject != "user-abc-123" {
		t.Errorf("Validate() subject = %q, want %q", got.Subject, "user-abc-123")
	}
	if got.TokenID != issued.TokenID {
		t.Errorf("Validate() token id = %q, want %q", got.TokenID, issued.TokenID)
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	sess, err := ts.IssueWithDuration("user-123", -1*time.Second)
	if err != nil {
		t.Fatalf("IssueWithDuration() error = %v", err)
	}

	_, err = ts.Validate(sess.Token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Validate() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)
	sess, _ := ts.Issue("user-123")

	tampered := sess.Token[:len(sess.Token)-3] + "xxx"

	if _, err := ts.Validate(tampered); err == nil {
		t.Fatal("Validate() should return an error for a tampered token")
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService("correct-secret-32-chars-long!!!!")
	ts2, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!")

	sess, _ := ts1.Issue("user-123")

	if _, err := ts2.Validate(sess.Token); err == nil {
		t.Fatal("Validate() should fail when using a different secret")
	}
}

func TestValidate_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	for _, tok := range []string{"", "not.a.jwt.token", "abc"} {
		if _, err := ts.Validate(tok); err == nil {
			t.Errorf("Validate(%q) should fail", tok)
		}
	}
}

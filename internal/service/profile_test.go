package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/model"
)

func newTestProfileService(repo *fakeProfileRepo) *ProfileService {
	return NewProfileService(repo, testLogger())
}

// =========================================================================
// EnsureProfile TESTS
// =========================================================================

func TestEnsureProfile_CreatesWithZeroCounters(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := newTestProfileService(repo)

	id := &model.Identity{ID: "u1", Email: "ada@example.com", Metadata: map[string]string{"name": "Ada"}}
	p, err := svc.EnsureProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("EnsureProfile() error = %v", err)
	}

	if p.ID != "u1" || p.Name != "Ada" || p.Email != "ada@example.com" {
		t.Errorf("profile = %+v", p)
	}
	if p.VolunteerHours != 0 || p.EventsAttended != 0 || p.DonationsMade != 0 {
		t.Errorf("counters not zero: %+v", p)
	}
	if repo.inserts != 1 {
		t.Errorf("inserts = %d, want 1", repo.inserts)
	}
}

func TestEnsureProfile_DisplayNameFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		identity model.Identity
		want     string
	}{
		{"full_name metadata", model.Identity{ID: "a", Email: "x@y.z", Metadata: map[string]string{"full_name": "Grace Hopper"}}, "Grace Hopper"},
		{"email local part", model.Identity{ID: "b", Email: "linus@example.com"}, "linus"},
		{"placeholder", model.Identity{ID: "c"}, model.DefaultProfileName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestProfileService(newFakeProfileRepo())
			p, err := svc.EnsureProfile(context.Background(), &tt.identity)
			if err != nil {
				t.Fatalf("EnsureProfile() error = %v", err)
			}
			if p.Name != tt.want {
				t.Errorf("Name = %q, want %q", p.Name, tt.want)
			}
		})
	}
}

func TestEnsureProfile_ExistingIsReturnedUnchanged(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.profiles["u1"] = &model.Profile{ID: "u1", Name: "Edited Name", VolunteerHours: 12}
	svc := newTestProfileService(repo)

	p, err := svc.EnsureProfile(context.Background(), &model.Identity{ID: "u1", Metadata: map[string]string{"name": "Signup Name"}})
	if err != nil {
		t.Fatalf("EnsureProfile() error = %v", err)
	}
	if p.Name != "Edited Name" || p.VolunteerHours != 12 {
		t.Errorf("existing profile was altered: %+v", p)
	}
	if repo.inserts != 0 {
		t.Errorf("inserts = %d, want 0", repo.inserts)
	}
}

// Both callers miss on the fetch (the barrier makes sure of it), both
// insert, the loser hits the uniqueness constraint and re-fetches.
func TestEnsureProfile_ConcurrentCallsCreateOneRow(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.barrier = &sync.WaitGroup{}
	repo.barrier.Add(2)
	repo.barrierN = 2
	svc := newTestProfileService(repo)

	identity := &model.Identity{ID: "u1", Email: "ada@example.com"}
	var (
		wg      sync.WaitGroup
		results [2]*model.Profile
		errs    [2]error
	)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.EnsureProfile(context.Background(), identity)
		}()
	}
	wg.Wait()

	for i := range 2 {
		if errs[i] != nil {
			t.Fatalf("call %d error = %v", i, errs[i])
		}
	}
	if results[0].ID != results[1].ID {
		t.Errorf("ids differ: %q vs %q", results[0].ID, results[1].ID)
	}
	if len(repo.profiles) != 1 || repo.inserts != 1 {
		t.Errorf("rows = %d, successful inserts = %d, want 1 and 1", len(repo.profiles), repo.inserts)
	}
}

func TestEnsureProfile_StoreFailureIsReason(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.getErr = errors.New("sqlite: database is locked")
	svc := newTestProfileService(repo)

	_, err := svc.EnsureProfile(context.Background(), &model.Identity{ID: "u1"})
	if err == nil {
		t.Fatal("EnsureProfile() should surface store failures")
	}
	if !strings.Contains(apperror.Reason(err), "database is locked") {
		t.Errorf("reason = %q, want the store message", apperror.Reason(err))
	}
}

func TestEnsureProfile_InsertFailureIsNotSwallowed(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.insertErr = errors.New("disk full")
	svc := newTestProfileService(repo)

	if _, err := svc.EnsureProfile(context.Background(), &model.Identity{ID: "u1"}); err == nil {
		t.Fatal("EnsureProfile() should fail when insert fails for a non-conflict reason")
	}
}

func TestEnsureProfile_RequiresIdentity(t *testing.T) {
	svc := newTestProfileService(newFakeProfileRepo())

	for _, id := range []*model.Identity{nil, {ID: "  "}} {
		if _, err := svc.EnsureProfile(context.Background(), id); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("EnsureProfile(%v) error = %v, want ErrValidation", id, err)
		}
	}
}

// =========================================================================
// UpdateProfile TESTS
// =========================================================================

func strPtr(s string) *string { return &s }

func TestUpdateProfile_Validation(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.profiles["u1"] = &model.Profile{ID: "u1", Name: "Ada"}
	svc := newTestProfileService(repo)

	tests := []struct {
		name   string
		update model.ProfileUpdate
	}{
		{"empty update", model.ProfileUpdate{}},
		{"blank name", model.ProfileUpdate{Name: strPtr("   ")}},
		{"long name", model.ProfileUpdate{Name: strPtr(strings.Repeat("x", MaxProfileNameLength+1))}},
		{"non-http avatar", model.ProfileUpdate{AvatarURL: strPtr("ftp://example.com/a.png")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(context.Background(), "u1", tt.update)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("UpdateProfile() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestUpdateProfile_TrimsAndSaves(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.profiles["u1"] = &model.Profile{ID: "u1", Name: "Ada", Email: "ada@example.com"}
	svc := newTestProfileService(repo)

	p, err := svc.UpdateProfile(context.Background(), "u1", model.ProfileUpdate{
		Name:      strPtr("  Ada Lovelace  "),
		AvatarURL: strPtr("https://example.com/ada.png"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if p.Name != "Ada Lovelace" || p.AvatarURL != "https://example.com/ada.png" {
		t.Errorf("profile = %+v", p)
	}
	if p.Email != "ada@example.com" {
		t.Errorf("Email changed to %q", p.Email)
	}
}

func TestUpdateProfile_ClearAvatar(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.profiles["u1"] = &model.Profile{ID: "u1", Name: "Ada", AvatarURL: "https://example.com/a.png"}
	svc := newTestProfileService(repo)

	p, err := svc.UpdateProfile(context.Background(), "u1", model.ProfileUpdate{AvatarURL: strPtr("")})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if p.AvatarURL != "" {
		t.Errorf("AvatarURL = %q, want cleared", p.AvatarURL)
	}
}

func TestUpdateProfile_NotFound(t *testing.T) {
	svc := newTestProfileService(newFakeProfileRepo())

	_, err := svc.UpdateProfile(context.Background(), "ghost", model.ProfileUpdate{Name: strPtr("x")})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateProfile() error = %v, want ErrNotFound", err)
	}
}

func TestRefreshStats_NotFound(t *testing.T) {
	svc := newTestProfileService(newFakeProfileRepo())

	_, err := svc.RefreshStats(context.Background(), "ghost")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("RefreshStats() error = %v, want ErrNotFound", err)
	}
}

// Package repository declares the record store the engagement core runs on.
//
// The store is the sole source of truth and offers five primitives: insert,
// upsert-by-unique-key, update-by-id, select-one and
// select-many-with-filter-order-and-limit. Each interface below is one
// collection, and each method is one of those primitives with the filter,
// ordering and limit baked into its signature:
//
//	insert     → InsertProfile, Create*
//	upsert     → UpsertPreferences
//	update     → UpdateProfile, UpdateNotificationSettings, UpdateAttendance
//	selectOne  → GetProfile, GetPreferences, GetAccountBy*
//	selectMany → ListOpportunities, List* (user filter, date DESC, limit)
//
// Error contract for every implementation:
//   - a missing row is apperror.ErrNotFound
//   - a uniqueness violation is apperror.ErrConflict
//   - anything else is a store failure, wrapped with context
package repository

import (
	"context"

	"github.com/sakif/engage/internal/model"
)

type ProfileRepository interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	// InsertProfile fails with ErrConflict when a profile with the same id
	// already exists.
	InsertProfile(ctx context.Context, profile *model.Profile) error
	UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error)
	// RecomputeProfileStats rewrites the counters from the activity
	// collections in one statement.
	RecomputeProfileStats(ctx context.Context, id string) (*model.Profile, error)
}

type PreferencesRepository interface {
	GetPreferences(ctx context.Context, userID string) (*model.Preferences, error)
	// UpsertPreferences is an atomic insert-or-update keyed on user_id.
	UpsertPreferences(ctx context.Context, in model.PreferencesInput) (*model.Preferences, error)
	UpdateNotificationSettings(ctx context.Context, userID string, patch model.NotificationPatch) (*model.Preferences, error)
}

// OpportunityFilter narrows ListOpportunities. An empty InterestAreas means
// no interest-area restriction. Results are newest first.
type OpportunityFilter struct {
	InterestAreas []string
	Limit         int
}

type OpportunityRepository interface {
	ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]model.Opportunity, error)
}

// ActivityReader is the read side the aggregator fans out over. Every list is
// filtered by user, ordered by its own date column descending and bounded by
// limit.
type ActivityReader interface {
	ListVolunteerSessions(ctx context.Context, userID string, limit int) ([]model.VolunteerSession, error)
	ListEventRegistrations(ctx context.Context, userID string, limit int) ([]model.EventRegistration, error)
	ListDonations(ctx context.Context, userID string, limit int) ([]model.Donation, error)
}

type ActivityWriter interface {
	CreateVolunteerSession(ctx context.Context, session *model.VolunteerSession) error
	CreateEventRegistration(ctx context.Context, reg *model.EventRegistration) error
	// UpdateAttendance only touches registrations owned by userID.
	UpdateAttendance(ctx context.Context, userID, id string, status model.AttendanceStatus) (*model.EventRegistration, error)
	CreateDonation(ctx context.Context, donation *model.Donation) error
}

type ActivityRepository interface {
	ActivityReader
	ActivityWriter
}

// AccountRepository backs the local identity provider.
type AccountRepository interface {
	// CreateAccount fails with ErrConflict when the email is taken.
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
}

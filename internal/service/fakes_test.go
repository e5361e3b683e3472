package service

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/model"
	"github.com/sakif/engage/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
//
// Hand-written in-memory repositories: each one does exactly what the test
// needs and nothing else, so the behavior under test stays visible.
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- profiles ---

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	inserts  int

	getErr    error
	insertErr error

	// barrier, when set, holds the first barrierN GetProfile calls until
	// all of them have arrived, so racing callers all miss together.
	barrier  *sync.WaitGroup
	barrierN int
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*model.Profile)}
}

func (f *fakeProfileRepo) GetProfile(_ context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	wait := false
	if f.barrier != nil && f.barrierN > 0 {
		f.barrierN--
		wait = true
	}
	f.mu.Unlock()
	if wait {
		f.barrier.Done()
		f.barrier.Wait()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperror.NotFound("profile", id)
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProfileRepo) InsertProfile(_ context.Context, p *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, exists := f.profiles[p.ID]; exists {
		return apperror.Conflict("profile", p.ID)
	}
	f.inserts++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	copied := *p
	f.profiles[p.ID] = &copied
	return nil
}

func (f *fakeProfileRepo) UpdateProfile(_ context.Context, id string, u model.ProfileUpdate) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperror.NotFound("profile", id)
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.AvatarURL != nil {
		p.AvatarURL = *u.AvatarURL
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProfileRepo) RecomputeProfileStats(_ context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperror.NotFound("profile", id)
	}
	copied := *p
	return &copied, nil
}

// --- preferences ---

type fakePreferencesRepo struct {
	mu      sync.Mutex
	rows    map[string]*model.Preferences
	nextID  int
	getErr  error
	saveErr error
	getHits int
}

func newFakePreferencesRepo() *fakePreferencesRepo {
	return &fakePreferencesRepo{rows: make(map[string]*model.Preferences)}
}

func (f *fakePreferencesRepo) set(p *model.Preferences) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[p.UserID] = p
}

func (f *fakePreferencesRepo) GetPreferences(_ context.Context, userID string) (*model.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getHits++
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.rows[userID]
	if !ok {
		return nil, apperror.NotFound("preferences", userID)
	}
	copied := *p
	return &copied, nil
}

// UpsertPreferences mirrors the store semantics: one row per user, omitted
// notification flags enabled on insert and kept on update.
func (f *fakePreferencesRepo) UpsertPreferences(_ context.Context, in model.PreferencesInput) (*model.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	p, ok := f.rows[in.UserID]
	if !ok {
		f.nextID++
		p = &model.Preferences{
			ID:            "pref-" + string(rune('0'+f.nextID)),
			UserID:        in.UserID,
			Notifications: model.DefaultNotificationSettings(),
			CreatedAt:     time.Now(),
		}
		f.rows[in.UserID] = p
	}
	p.InterestAreas = model.NormalizeTags(in.InterestAreas)
	p.TimePreferences = model.NormalizeTags(in.TimePreferences)
	p.CommitmentLevels = model.NormalizeTags(in.CommitmentLevels)
	p.Notifications = in.Notifications.Apply(p.Notifications)
	p.UpdatedAt = time.Now()
	copied := *p
	return &copied, nil
}

func (f *fakePreferencesRepo) UpdateNotificationSettings(_ context.Context, userID string, patch model.NotificationPatch) (*model.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return nil, apperror.NotFound("preferences", userID)
	}
	p.Notifications = patch.Apply(p.Notifications)
	copied := *p
	return &copied, nil
}

// --- opportunities ---

type fakeOpportunityRepo struct {
	opps       []model.Opportunity
	err        error
	lastFilter repository.OpportunityFilter
	calls      int
}

// ListOpportunities returns newest first, like the store.
func (f *fakeOpportunityRepo) ListOpportunities(_ context.Context, filter repository.OpportunityFilter) ([]model.Opportunity, error) {
	f.calls++
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Opportunity
	for _, o := range f.opps {
		if len(filter.InterestAreas) > 0 && !slices.Contains(filter.InterestAreas, o.InterestArea) {
			continue
		}
		out = append(out, o)
	}
	slices.SortStableFunc(out, func(a, b model.Opportunity) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// --- activities ---

type fakeActivityRepo struct {
	mu sync.Mutex

	sessions      []model.VolunteerSession
	registrations []model.EventRegistration
	donations     []model.Donation

	sessionsErr      error
	registrationsErr error
	donationsErr     error
	createErr        error

	limits []int
	nextID int
}

func truncate[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func (f *fakeActivityRepo) recordLimit(limit int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
}

// The list methods return rows in the order the test set them up, which is
// expected to be date-descending already.
func (f *fakeActivityRepo) ListVolunteerSessions(_ context.Context, _ string, limit int) ([]model.VolunteerSession, error) {
	f.recordLimit(limit)
	if f.sessionsErr != nil {
		return nil, f.sessionsErr
	}
	return truncate(f.sessions, limit), nil
}

func (f *fakeActivityRepo) ListEventRegistrations(_ context.Context, _ string, limit int) ([]model.EventRegistration, error) {
	f.recordLimit(limit)
	if f.registrationsErr != nil {
		return nil, f.registrationsErr
	}
	return truncate(f.registrations, limit), nil
}

func (f *fakeActivityRepo) ListDonations(_ context.Context, _ string, limit int) ([]model.Donation, error) {
	f.recordLimit(limit)
	if f.donationsErr != nil {
		return nil, f.donationsErr
	}
	return truncate(f.donations, limit), nil
}

func (f *fakeActivityRepo) id(prefix string) string {
	f.nextID++
	return prefix + "-" + string(rune('0'+f.nextID))
}

func (f *fakeActivityRepo) CreateVolunteerSession(_ context.Context, s *model.VolunteerSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	s.ID = f.id("session")
	f.sessions = append(f.sessions, *s)
	return nil
}

func (f *fakeActivityRepo) CreateEventRegistration(_ context.Context, r *model.EventRegistration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	r.ID = f.id("reg")
	f.registrations = append(f.registrations, *r)
	return nil
}

func (f *fakeActivityRepo) UpdateAttendance(_ context.Context, userID, id string, status model.AttendanceStatus) (*model.EventRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.registrations {
		r := &f.registrations[i]
		if r.ID == id && r.UserID == userID {
			r.AttendanceStatus = status
			copied := *r
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("event registration", id)
}

func (f *fakeActivityRepo) CreateDonation(_ context.Context, d *model.Donation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	d.ID = f.id("donation")
	f.donations = append(f.donations, *d)
	return nil
}

// --- accounts ---

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account // by id
	nextID   int
	getErr   error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*model.Account)}
}

func (f *fakeAccountRepo) CreateAccount(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.Email == a.Email {
			return apperror.Conflict("account", a.Email)
		}
	}
	f.nextID++
	a.ID = "acct-" + string(rune('0'+f.nextID))
	a.CreatedAt = time.Now()
	copied := *a
	f.accounts[a.ID] = &copied
	return nil
}

func (f *fakeAccountRepo) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAccountRepo) GetAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, a := range f.accounts {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("account", email)
}

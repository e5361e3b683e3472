package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/model"
	"github.com/sakif/engage/internal/repository"
)

var _ repository.ProfileRepository = (*DB)(nil)

const profileColumns = `id, name, email, avatar_url, volunteer_hours, events_attended, donations_made, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.AvatarURL,
		&p.VolunteerHours, &p.EventsAttended, &p.DonationsMade,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile selects the profile whose id equals the identity id.
func (db *DB) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	p, err := scanProfile(db.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", id)
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}
	return p, nil
}

// InsertProfile writes a new profile. The primary key on id is what keeps
// two racing creators from producing two rows: the loser gets ErrConflict.
func (db *DB) InsertProfile(ctx context.Context, p *model.Profile) error {
	now := db.now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Email, p.AvatarURL,
		p.VolunteerHours, p.EventsAttended, p.DonationsMade,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("profile", p.ID)
		}
		return fmt.Errorf("sqlite: inserting profile %s: %w", p.ID, err)
	}
	return nil
}

// UpdateProfile writes the non-nil fields of update and returns the stored row.
func (db *DB) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error) {
	var (
		sets []string
		args []any
	)
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.AvatarURL != nil {
		sets = append(sets, "avatar_url = ?")
		args = append(args, *update.AvatarURL)
	}
	if len(sets) == 0 {
		return nil, apperror.ValidationFailed("profile", "no profile fields to update")
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, db.now(), id)

	result, err := db.conn.ExecContext(ctx,
		`UPDATE user_profiles SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating profile %s: %w", id, err)
	}
	if err := expectRow(result, "profile", id); err != nil {
		return nil, err
	}
	return db.GetProfile(ctx, id)
}

// RecomputeProfileStats derives the counters from the activity tables:
// hours are the floor of completed session hours, events count attended
// registrations, donations count completed donations.
func (db *DB) RecomputeProfileStats(ctx context.Context, id string) (*model.Profile, error) {
	result, err := db.conn.ExecContext(ctx, `
		UPDATE user_profiles SET
			volunteer_hours = (
				SELECT CAST(COALESCE(SUM(hours_worked), 0) AS INTEGER)
				FROM user_volunteer_sessions
				WHERE user_id = ?1 AND status = 'completed'),
			events_attended = (
				SELECT COUNT(*) FROM user_event_registrations
				WHERE user_id = ?1 AND attendance_status = 'attended'),
			donations_made = (
				SELECT COUNT(*) FROM user_donations
				WHERE user_id = ?1 AND status = 'completed'),
			updated_at = ?2
		WHERE id = ?1`,
		id, db.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recomputing stats for %s: %w", id, err)
	}
	if err := expectRow(result, "profile", id); err != nil {
		return nil, err
	}
	return db.GetProfile(ctx, id)
}

// expectRow turns "0 rows affected" into NotFound.
func expectRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/model"
	"github.com/sakif/engage/internal/repository"
)

var _ repository.PreferencesRepository = (*DB)(nil)

const preferencesColumns = `id, user_id, interest_areas, time_preferences, commitment_levels,
	notify_email, notify_push, notify_weekly_digest, notify_opportunity_alerts, notify_reminders,
	created_at, updated_at`

func scanPreferences(row interface{ Scan(...any) error }) (*model.Preferences, error) {
	var (
		p                         model.Preferences
		interests, times, commits string
	)
	err := row.Scan(
		&p.ID, &p.UserID, &interests, &times, &commits,
		&p.Notifications.Email, &p.Notifications.Push, &p.Notifications.WeeklyDigest,
		&p.Notifications.OpportunityAlerts, &p.Notifications.Reminders,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, col := range []struct {
		raw string
		dst *[]string
	}{
		{interests, &p.InterestAreas},
		{times, &p.TimePreferences},
		{commits, &p.CommitmentLevels},
	} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return nil, fmt.Errorf("decoding tag list: %w", err)
		}
		if *col.dst == nil {
			*col.dst = []string{}
		}
	}
	return &p, nil
}

func (db *DB) GetPreferences(ctx context.Context, userID string) (*model.Preferences, error) {
	return getPreferences(ctx, db.conn, userID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getPreferences(ctx context.Context, q queryRower, userID string) (*model.Preferences, error) {
	p, err := scanPreferences(q.QueryRowContext(ctx,
		`SELECT `+preferencesColumns+` FROM user_volunteer_preferences WHERE user_id = ?`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("preferences", userID)
		}
		return nil, fmt.Errorf("sqlite: getting preferences for %s: %w", userID, err)
	}
	return p, nil
}

// UpsertPreferences inserts or replaces the user's preference row in one
// statement keyed on the UNIQUE user_id. The insert branch writes the patch
// applied over model.DefaultNotificationSettings; the update branch binds
// omitted flags as NULL so COALESCE keeps the stored value. The row is read
// back inside the same transaction.
func (db *DB) UpsertPreferences(ctx context.Context, in model.PreferencesInput) (*model.Preferences, error) {
	interests, err := json.Marshal(model.NormalizeTags(in.InterestAreas))
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding interest areas: %w", err)
	}
	times, err := json.Marshal(model.NormalizeTags(in.TimePreferences))
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding time preferences: %w", err)
	}
	commits, err := json.Marshal(model.NormalizeTags(in.CommitmentLevels))
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding commitment levels: %w", err)
	}

	n := in.Notifications
	if n == nil {
		n = &model.NotificationPatch{}
	}
	initial := n.Apply(model.DefaultNotificationSettings())

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning preferences upsert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_volunteer_preferences (`+preferencesColumns+`)
		VALUES (?1, ?2, ?3, ?4, ?5, ?12, ?13, ?14, ?15, ?16, ?11, ?11)
		ON CONFLICT(user_id) DO UPDATE SET
			interest_areas            = excluded.interest_areas,
			time_preferences          = excluded.time_preferences,
			commitment_levels         = excluded.commitment_levels,
			notify_email              = COALESCE(?6, notify_email),
			notify_push               = COALESCE(?7, notify_push),
			notify_weekly_digest      = COALESCE(?8, notify_weekly_digest),
			notify_opportunity_alerts = COALESCE(?9, notify_opportunity_alerts),
			notify_reminders          = COALESCE(?10, notify_reminders),
			updated_at                = excluded.updated_at`,
		xid.New().String(), in.UserID, string(interests), string(times), string(commits),
		nullBool(n.Email), nullBool(n.Push), nullBool(n.WeeklyDigest),
		nullBool(n.OpportunityAlerts), nullBool(n.Reminders),
		db.now(),
		initial.Email, initial.Push, initial.WeeklyDigest, initial.OpportunityAlerts, initial.Reminders,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: upserting preferences for %s: %w", in.UserID, err)
	}

	p, err := getPreferences(ctx, tx, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing preferences upsert: %w", err)
	}
	return p, nil
}

// UpdateNotificationSettings patches only the notification columns.
func (db *DB) UpdateNotificationSettings(ctx context.Context, userID string, patch model.NotificationPatch) (*model.Preferences, error) {
	result, err := db.conn.ExecContext(ctx, `
		UPDATE user_volunteer_preferences SET
			notify_email              = COALESCE(?1, notify_email),
			notify_push               = COALESCE(?2, notify_push),
			notify_weekly_digest      = COALESCE(?3, notify_weekly_digest),
			notify_opportunity_alerts = COALESCE(?4, notify_opportunity_alerts),
			notify_reminders          = COALESCE(?5, notify_reminders),
			updated_at                = ?6
		WHERE user_id = ?7`,
		nullBool(patch.Email), nullBool(patch.Push), nullBool(patch.WeeklyDigest),
		nullBool(patch.OpportunityAlerts), nullBool(patch.Reminders),
		db.now(), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating notification settings for %s: %w", userID, err)
	}
	if err := expectRow(result, "preferences", userID); err != nil {
		return nil, err
	}
	return db.GetPreferences(ctx, userID)
}

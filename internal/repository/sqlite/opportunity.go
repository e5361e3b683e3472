package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/engage/internal/model"
	"github.com/sakif/engage/internal/repository"
)

var _ repository.OpportunityRepository = (*DB)(nil)

// ListOpportunities returns opportunities newest first, optionally restricted
// to a set of interest areas with an IN filter.
func (db *DB) ListOpportunities(ctx context.Context, filter repository.OpportunityFilter) ([]model.Opportunity, error) {
	query := `SELECT id, title, interest_area, location, date, description, created_at
		FROM volunteer_opportunities`
	var args []any

	if len(filter.InterestAreas) > 0 {
		query += ` WHERE interest_area IN (` + placeholders(len(filter.InterestAreas)) + `)`
		for _, area := range filter.InterestAreas {
			args = append(args, area)
		}
	}

	limit := clampLimit(filter.Limit)
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing opportunities: %w", err)
	}
	defer rows.Close()

	opps := make([]model.Opportunity, 0, limit)
	for rows.Next() {
		var (
			o    model.Opportunity
			area sql.NullString
			date sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.Title, &area, &o.Location, &date, &o.Description, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning opportunity row: %w", err)
		}
		o.InterestArea = area.String
		if date.Valid {
			d, err := time.Parse(time.RFC3339Nano, date.String)
			if err != nil {
				return nil, fmt.Errorf("sqlite: parsing date of opportunity %s: %w", o.ID, err)
			}
			o.Date = &d
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating opportunities: %w", err)
	}
	return opps, nil
}

// CreateOpportunity inserts a catalogue entry. Opportunities are read-only to
// the engagement core; this exists for seeding and tests.
func (db *DB) CreateOpportunity(ctx context.Context, o *model.Opportunity) error {
	if o.ID == "" {
		o.ID = xid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = db.now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO volunteer_opportunities (id, title, interest_area, location, date, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Title, nullString(o.InterestArea), o.Location, localDate(o.Date), o.Description, o.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating opportunity: %w", err)
	}
	return nil
}

// localDate keeps the offset the date was given in.
func localDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}

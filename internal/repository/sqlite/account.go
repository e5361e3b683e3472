package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/model"
	"github.com/sakif/engage/internal/repository"
)

var _ repository.AccountRepository = (*DB)(nil)

// CreateAccount inserts a credential row. Emails are stored lower-cased; the
// UNIQUE constraint on email reports duplicates as ErrConflict.
func (db *DB) CreateAccount(ctx context.Context, a *model.Account) error {
	a.ID = xid.New().String()
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	now := db.now()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, email, name, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.Name, a.PasswordHash, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("account", a.Email)
		}
		return fmt.Errorf("sqlite: inserting account (email=%s): %w", a.Email, err)
	}
	return nil
}

func (db *DB) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return db.getAccount(ctx, "id", id)
}

func (db *DB) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return db.getAccount(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// getAccount selects by a fixed column name; column never comes from input.
func (db *DB) getAccount(ctx context.Context, column, value string) (*model.Account, error) {
	var a model.Account
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM accounts WHERE `+column+` = ?`,
		value,
	).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", value)
		}
		return nil, fmt.Errorf("sqlite: getting account by %s: %w", column, err)
	}
	return &a, nil
}

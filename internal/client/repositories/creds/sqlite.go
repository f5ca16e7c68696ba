package creds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/avolkova/keepsafe/internal/client/models"
	"github.com/avolkova/keepsafe/internal/common"
	"github.com/avolkova/keepsafe/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, c *models.Credential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (email, user_id, full_name, salt, hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			user_id = excluded.user_id,
			full_name = excluded.full_name,
			salt = excluded.salt,
			hash = excluded.hash
	`, c.Email, c.UserID, c.FullName, c.Salt, c.Hash)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", common.StorageError(err))
	}
	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, c *models.Credential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (email, user_id, full_name, salt, hash)
		VALUES (?, ?, ?, ?, ?)
	`, c.Email, c.UserID, c.FullName, c.Salt, c.Hash)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrDuplicateAccount
		}
		return fmt.Errorf("failed to insert credential: %w", common.StorageError(err))
	}
	return nil
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	c := &models.Credential{}
	err := r.db.QueryRowContext(ctx, `
		SELECT email, user_id, full_name, salt, hash
		FROM credentials WHERE email = ?
	`, email).Scan(&c.Email, &c.UserID, &c.FullName, &c.Salt, &c.Hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", common.StorageError(err))
	}
	return c, nil
}

// isUniqueViolation matches SQLite's constraint error without depending on
// driver-specific error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

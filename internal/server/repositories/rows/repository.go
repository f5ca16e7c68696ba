// Package rows persists the per-user, per-table records.
package rows

import (
	"context"

	"github.com/avolkova/keepsafe/internal/api"
	"github.com/avolkova/keepsafe/internal/server/models"
)

type Repository interface {
	// List returns the user's rows in table, ordered by created_at ascending.
	List(ctx context.Context, userID string, table api.Table) ([]models.Row, error)

	// Get returns one row or common.ErrNotFound.
	Get(ctx context.Context, userID string, table api.Table, id string) (*models.Row, error)

	// Upsert inserts the row or fully replaces an existing one.
	Upsert(ctx context.Context, row *models.Row) error

	// Update replaces the row's fields document and bumps updated_at.
	// common.ErrNotFound when the row does not exist.
	Update(ctx context.Context, userID string, table api.Table, id string, fields []byte) error

	// Delete removes the row; common.ErrNotFound when it does not exist.
	Delete(ctx context.Context, userID string, table api.Table, id string) error
}

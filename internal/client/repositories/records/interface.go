package records

import (
	"context"

	"github.com/avolkova/keepsafe/internal/client/models"
)

// Repository describes CRUD and query operations for vault records in the
// local store. Implementations are backed by a local SQLite database; every
// operation is scoped to one user.
type Repository interface {
	// Get returns a record by table and id, or common.ErrNotFound.
	Get(ctx context.Context, userID string, table models.Table, id string) (*models.Record, error)

	// GetAll returns every record of one table, in no particular order.
	GetAll(ctx context.Context, userID string, table models.Table) ([]models.Record, error)

	// Put upserts a record by id, overwriting any prior value entirely and
	// setting the given sync status.
	Put(ctx context.Context, table models.Table, rec *models.Record, status models.SyncStatus) error

	// ReplaceAll deletes the table's rows and inserts recs with the given
	// status. Callers needing atomicity run it inside a transaction.
	ReplaceAll(ctx context.Context, userID string, table models.Table, recs []models.Record, status models.SyncStatus) error

	// Delete removes a record permanently. Deleting an absent record is a no-op.
	Delete(ctx context.Context, userID string, table models.Table, id string) error

	// SetStatus flips the sync status of one record.
	SetStatus(ctx context.Context, userID string, table models.Table, id string, status models.SyncStatus) error

	// PendingCount counts records awaiting sync across all tables.
	PendingCount(ctx context.Context, userID string) (int, error)

	// PendingIDs returns the identifiers of records awaiting sync across all
	// tables, as a set for the UI's badge rendering.
	PendingIDs(ctx context.Context, userID string) (map[string]struct{}, error)
}

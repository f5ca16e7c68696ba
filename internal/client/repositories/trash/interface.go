package trash

import (
	"context"
	"time"

	"github.com/avolkova/keepsafe/internal/client/models"
)

// Repository stores soft-deleted records for the retention window. Moving a
// live record in and out of trash atomically is the store's job; this
// repository only handles trash rows themselves.
type Repository interface {
	// Insert stores a trash item. Item ids are unique per store.
	Insert(ctx context.Context, item *models.TrashItem) error

	// Get returns one trash item, or common.ErrNotFound.
	Get(ctx context.Context, userID, id string) (*models.TrashItem, error)

	// GetAll returns the user's trash, most recently deleted first.
	GetAll(ctx context.Context, userID string) ([]models.TrashItem, error)

	// Delete removes one trash item. Reports whether a row existed.
	Delete(ctx context.Context, userID, id string) (bool, error)

	// DeleteExpired purges items with expires_at <= now and returns the count.
	DeleteExpired(ctx context.Context, userID string, now time.Time) (int64, error)
}

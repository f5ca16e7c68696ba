package pending

import (
	"context"

	"github.com/avolkova/keepsafe/internal/client/models"
)

// Repository is the ordered log of not-yet-confirmed mutations. The only
// ordering guarantee is (timestamp, seq) ascending; entries leave the log
// only after the remote call for that exact action succeeds.
type Repository interface {
	// Add appends an action and fills in its store-assigned Seq.
	Add(ctx context.Context, a *models.PendingAction) error

	// List returns the user's actions ordered by (timestamp, seq) ascending.
	List(ctx context.Context, userID string) ([]models.PendingAction, error)

	// Remove deletes one action by id. Removing an absent action is a no-op.
	Remove(ctx context.Context, userID, id string) error

	// Count returns the number of queued actions for the user.
	Count(ctx context.Context, userID string) (int, error)
}

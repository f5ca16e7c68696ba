package creds

import (
	"context"

	"github.com/avolkova/keepsafe/internal/client/models"
)

// Repository stores offline login material, one row per known local account.
type Repository interface {
	// Upsert stores or replaces the credential for its email.
	Upsert(ctx context.Context, c *models.Credential) error

	// Insert stores a new credential; a second row for the same email fails
	// with common.ErrDuplicateAccount.
	Insert(ctx context.Context, c *models.Credential) error

	// GetByEmail returns a credential, or common.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*models.Credential, error)
}

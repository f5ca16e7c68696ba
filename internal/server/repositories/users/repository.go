// Package users persists registered accounts.
package users

import (
	"context"

	"github.com/avolkova/keepsafe/internal/server/models"
)

type Repository interface {
	// Create inserts the user and fills in its generated id. A second user
	// with the same email fails with common.ErrDuplicateAccount.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns the user or common.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns the user or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)
}

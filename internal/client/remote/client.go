// Package remote defines the client's narrow view of the remote vault
// service: per-table CRUD keyed by identifier plus the authentication
// endpoints. The sync engine only ever talks to the Client interface, so
// tests substitute a fake and the transport can change without touching the
// engine.
package remote

import (
	"context"

	"github.com/avolkova/keepsafe/internal/client/models"
)

// Client is the remote vault service.
//
// Error contract: implementations translate transport and server failures
// into the common sentinels — common.ErrRemoteUnavailable when the request
// never reached a healthy server, common.ErrRemoteRejected when the server
// refused it, common.ErrUnauthenticated on auth failures, and
// common.ErrNotFound / common.ErrDuplicateAccount where those apply.
type Client interface {
	Close() error

	// SetToken installs an access token for subsequent requests, e.g. one
	// persisted from an earlier sign-in when resuming after a restart.
	// SignUp and SignIn install their own token on success.
	SetToken(token string)

	// SignUp creates an account and returns an authenticated session.
	SignUp(ctx context.Context, email, password, fullName string) (*models.Session, error)

	// SignIn authenticates and returns a session with a fresh access token.
	SignIn(ctx context.Context, email, password string) (*models.Session, error)

	// Session resolves the user behind the client's current access token.
	Session(ctx context.Context) (*models.Session, error)

	// Ping checks service liveness. Used by the connectivity monitor.
	Ping(ctx context.Context) error

	// List returns all of the user's rows in table, ordered by created_at
	// ascending. Used for full rehydration.
	List(ctx context.Context, table models.Table) ([]models.Record, error)

	// Upsert inserts or fully replaces a record. Inserts deliberately go
	// through upsert semantics so that replay-after-partial-success is
	// idempotent.
	Upsert(ctx context.Context, table models.Table, rec models.Record) error

	// Update applies only the given fields to an existing record.
	Update(ctx context.Context, table models.Table, id string, fields map[string]any) error

	// Delete removes a record by identifier.
	Delete(ctx context.Context, table models.Table, id string) error
}

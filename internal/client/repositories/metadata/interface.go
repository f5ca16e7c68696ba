package metadata

import "context"

// Repository is a small key/value area for client bookkeeping that is not a
// record: the persisted current-user pointer lives here.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

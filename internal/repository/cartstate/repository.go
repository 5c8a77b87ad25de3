package cartstate

import "context"

// Repository is a key-value medium for serialized cart snapshots.
// Load returns domain.ErrNotFound for keys that were never saved.
type Repository interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

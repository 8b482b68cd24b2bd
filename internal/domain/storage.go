package domain

import "context"

// Object is a stored blob with its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// ObjectStore is the durable key->bytes store (S3-compatible in production).
// Get fails with ErrNotFound for a missing key and ErrStorageUnavailable otherwise.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
}

package storage

import (
	"context"
	"errors"
)

// Well-known keys used by the storefront. They match the keys the deployed
// web client writes, so a snapshot taken from one can be restored by the other.
const (
	KeyCart        = "cartItems"
	KeyUser        = "user"
	KeyToken       = "token"
	KeyTokenExpiry = "tokenExpiry"
)

// ErrNotFound is returned when a key has no persisted value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a local-storage-equivalent key/value store. Values are opaque
// JSON-encoded blobs; callers own the encoding.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

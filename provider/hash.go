package provider

import (
	"context"
	"time"
)

// Hash exposes the fields of one hash resource as a Provider, so caching and
// invalidation operations can target grouped storage.
// TTLs are ignored: hash fields carry no individual expiry.
type Hash struct {
	hs       HashStore
	resource string
}

var _ Provider = (*Hash)(nil)

// NewHash binds a HashStore to a resource key.
func NewHash(hs HashStore, resource string) *Hash {
	return &Hash{hs: hs, resource: resource}
}

// Resource returns the hash key this view is bound to.
func (h *Hash) Resource() string { return h.resource }

func (h *Hash) Get(ctx context.Context, field string) ([]byte, bool, error) {
	return h.hs.HGet(ctx, h.resource, field)
}

func (h *Hash) Set(ctx context.Context, field string, value []byte, _ time.Duration) error {
	return h.hs.HSet(ctx, h.resource, field, value)
}

func (h *Hash) Del(ctx context.Context, fields ...string) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	return h.hs.HDel(ctx, h.resource, fields...)
}

// Has reports whether field is present.
func (h *Hash) Has(ctx context.Context, field string) (bool, error) {
	return h.hs.HExists(ctx, h.resource, field)
}

// Len returns the number of fields.
func (h *Hash) Len(ctx context.Context) (int64, error) {
	return h.hs.HLen(ctx, h.resource)
}

// Fields returns all field names.
func (h *Hash) Fields(ctx context.Context) ([]string, error) {
	return h.hs.HKeys(ctx, h.resource)
}

// Clear removes the whole hash.
func (h *Hash) Clear(ctx context.Context) error {
	_, err := h.hs.Del(ctx, h.resource)
	return err
}

// Close is a no-op; the underlying store is owned elsewhere.
func (h *Hash) Close(context.Context) error { return nil }

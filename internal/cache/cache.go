package cache

import (
	"context"
	"time"

	"github.com/pitchside/internal/domain"
)

// Entry is a cached value with the instant it was written
type Entry struct {
	Key       string
	Data      []byte
	Timestamp time.Time
}

// Backend persists entries. Backends enforce no expiry; staleness is the
// reader's decision.
type Backend interface {
	Load(ctx context.Context, key string) (Entry, bool, error)
	Save(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Cache layers a wall-clock TTL over a Backend
type Cache struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache
type Option func(*Cache)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache over backend with the given TTL
func New(backend Backend, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the validity window
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// IsStale reports whether now - entry.Timestamp >= TTL
func (c *Cache) IsStale(entry Entry) bool {
	return c.now().Sub(entry.Timestamp) >= c.ttl
}

// Get returns the data under key when an entry exists and is still fresh
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok, err := c.backend.Load(ctx, key)
	if err != nil {
		return nil, false, domain.WrapStorageOperation("load "+key, err)
	}
	if !ok || c.IsStale(entry) {
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Put overwrites the entry under key, stamping it with the current time
func (c *Cache) Put(ctx context.Context, key string, data []byte) error {
	entry := Entry{
		Key:       key,
		Data:      data,
		Timestamp: c.now(),
	}
	if err := c.backend.Save(ctx, entry); err != nil {
		return domain.WrapStorageOperation("save "+key, err)
	}
	return nil
}

// Invalidate removes the entry under key
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.backend.Delete(ctx, key); err != nil {
		return domain.WrapStorageOperation("delete "+key, err)
	}
	return nil
}

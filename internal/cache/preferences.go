package cache

import (
	"context"
	"time"

	"github.com/pitchside/internal/domain"
)

// Preferences is durable key/value storage with no expiry, sharing a Backend
// with the TTL cache.
type Preferences struct {
	backend Backend
}

// NewPreferences wraps backend
func NewPreferences(backend Backend) *Preferences {
	return &Preferences{backend: backend}
}

// Get returns the stored value for key
func (p *Preferences) Get(ctx context.Context, key string) (string, bool, error) {
	entry, ok, err := p.backend.Load(ctx, key)
	if err != nil {
		return "", false, domain.WrapStorageOperation("load "+key, err)
	}
	if !ok {
		return "", false, nil
	}
	return string(entry.Data), true, nil
}

// Set stores value under key
func (p *Preferences) Set(ctx context.Context, key, value string) error {
	if err := p.backend.Save(ctx, Entry{Key: key, Data: []byte(value), Timestamp: time.Now()}); err != nil {
		return domain.WrapStorageOperation("save "+key, err)
	}
	return nil
}

// Remove deletes key
func (p *Preferences) Remove(ctx context.Context, key string) error {
	if err := p.backend.Delete(ctx, key); err != nil {
		return domain.WrapStorageOperation("delete "+key, err)
	}
	return nil
}

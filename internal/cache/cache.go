// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores registry responses keyed by source and normalized
// title. Every implementation is safe for concurrent use.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/citeverify/pkg/types"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a key-value store with per-entry expiry.
type Cache interface {
	// Get returns the stored value or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl. A non-positive ttl stores the
	// entry without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Purger is implemented by stores that can drop entries in bulk.
type Purger interface {
	// Purge removes expired entries, or every entry when all is true, and
	// returns the number removed.
	Purge(ctx context.Context, all bool) (int64, error)
}

// Nop never stores anything. Every Get misses.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, error)                { return nil, ErrMiss }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Open builds the store selected by cfg.Backend. The returned close
// function releases any connection and is never nil.
func Open(ctx context.Context, cfg types.CacheConfig) (Cache, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case types.CacheNone:
		return Nop{}, noop, nil
	case types.CacheMemory, "":
		return NewMemory(), noop, nil
	case types.CacheSQLite:
		s, err := OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case types.CacheRedis:
		r, err := DialRedis(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		return r, r.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

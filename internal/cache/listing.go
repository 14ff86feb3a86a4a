// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// listing.go provides a Valkey-backed cache for encoded category listings.
// Entries are keyed by a generation number that every category write
// advances, since any page or tree shape could be affected.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const (
	// listingKeyPrefix is the Valkey key prefix for cached listings.
	listingKeyPrefix = "categories:list:"

	// generationKey holds the current listing generation. It sits outside
	// listingKeyPrefix and has no TTL.
	generationKey = "categories:list-generation"

	// DefaultListingTTL is how long a cached listing lives.
	DefaultListingTTL = 30 * time.Second
)

// errGenerationMoved reports a Set skipped because a write retired its
// generation. It is not a Valkey failure.
var errGenerationMoved = errors.New("listing generation moved")

// ListingCache stores encoded category listings in Valkey behind a circuit
// breaker, so an unhealthy Valkey degrades to cache misses instead of slow
// requests.
//
// InvalidateAll increments the generation; entries of older generations
// are never read again and expire with their TTL. When InvalidateAll fails
// the cache marks itself stale and reports no generation until a later
// invalidation succeeds.
type ListingCache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
	stale   atomic.Bool
}

// NewListingCache creates a listing cache backed by the given Valkey client.
func NewListingCache(client *redis.Client, ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	return &ListingCache{
		client:  client,
		ttl:     ttl,
		breaker: newBreaker("valkey-listing-cache"),
	}
}

// newBreaker trips after five consecutive failures and lets one request
// through again after ten seconds.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, redis.Nil) ||
				errors.Is(err, redis.TxFailedErr) ||
				errors.Is(err, errGenerationMoved)
		},
	})
}

func entryKey(generation int64, key string) string {
	return listingKeyPrefix + strconv.FormatInt(generation, 10) + ":" + key
}

// Generation returns the current listing generation. A generation that
// was never written is 0.
func (lc *ListingCache) Generation(ctx context.Context) (int64, error) {
	if lc.stale.Load() {
		if err := lc.InvalidateAll(ctx); err != nil {
			return 0, err
		}
	}

	gen, err := lc.breaker.Execute(func() (interface{}, error) {
		return lc.client.Get(ctx, generationKey).Int64()
	})
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read listing generation: %w", err)
	}
	return gen.(int64), nil
}

// Get returns the cached listing for key in the given generation.
func (lc *ListingCache) Get(ctx context.Context, generation int64, key string) ([]byte, bool) {
	val, err := lc.breaker.Execute(func() (interface{}, error) {
		return lc.client.Get(ctx, entryKey(generation, key)).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("listing cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("listing cache hit", "key", key, "generation", generation)
	return val.([]byte), true
}

// Set stores an encoded listing with the configured TTL, unless a write
// has advanced the generation since the caller read it. The check and the
// write run in one WATCH transaction on the generation key.
func (lc *ListingCache) Set(ctx context.Context, generation int64, key string, value []byte) {
	if lc.stale.Load() {
		return
	}
	_, err := lc.breaker.Execute(func() (interface{}, error) {
		return nil, lc.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, generationKey).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if current != generation {
				return errGenerationMoved
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, entryKey(generation, key), value, lc.ttl)
				return nil
			})
			return err
		}, generationKey)
	})
	switch {
	case err == nil:
	case errors.Is(err, errGenerationMoved), errors.Is(err, redis.TxFailedErr):
		slog.Debug("listing cache set skipped, generation moved", "key", key, "generation", generation)
	default:
		slog.Warn("listing cache set error", "key", key, "error", err)
	}
}

// InvalidateAll retires every cached listing by advancing the generation.
func (lc *ListingCache) InvalidateAll(ctx context.Context) error {
	lc.stale.Store(true)

	gen, err := lc.breaker.Execute(func() (interface{}, error) {
		return lc.client.Incr(ctx, generationKey).Result()
	})
	if err != nil {
		return fmt.Errorf("invalidate listing cache: %w", err)
	}

	lc.stale.Store(false)
	slog.Debug("listing cache generation advanced", "generation", gen.(int64))
	return nil
}

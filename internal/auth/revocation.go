// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces revoked-token keys in Valkey.
const keyPrefix = "revoked:"

// Revoker records tokens invalidated by logout until they would have
// expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// tokenKey hashes the token so raw credentials never reach Valkey.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// RevocationList stores revoked tokens in Valkey with a TTL matching the
// token's remaining lifetime.
type RevocationList struct {
	client *redis.Client
}

// NewRevocationList creates a revocation list backed by the given Valkey client.
func NewRevocationList(client *redis.Client) *RevocationList {
	return &RevocationList{client: client}
}

// Revoke blacklists token until expiresAt. Already expired tokens are ignored.
func (l *RevocationList) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, tokenKey(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether token was revoked. Lookup failures are returned
// so callers can reject the request.
func (l *RevocationList) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := l.client.Exists(ctx, tokenKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// MemoryRevocationList is an in-process Revoker used when Valkey is
// disabled. Revocations do not survive a restart and are not shared
// between instances.
type MemoryRevocationList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList creates an empty in-process revocation list.
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{revoked: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, exp := range l.revoked {
		if !exp.After(now) {
			delete(l.revoked, k)
		}
	}
	if expiresAt.After(now) {
		l.revoked[tokenKey(token)] = expiresAt
	}
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, token string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	exp, ok := l.revoked[tokenKey(token)]
	return ok && exp.After(l.now()), nil
}

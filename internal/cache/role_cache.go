package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/campusconnect/event-service/internal/models"
)

// RoleCache stores resolved roles per user id.
type RoleCache struct {
	helper *CacheHelper
	ttl    time.Duration
}

func NewRoleCache(cm *CacheManager, ttl time.Duration) *RoleCache {
	if ttl <= 0 {
		ttl = RoleKeyspace.TTL
	}
	return &RoleCache{helper: cm.Role, ttl: ttl}
}

// Get returns the cached role. ok is false on a miss or when Redis is unavailable.
func (c *RoleCache) Get(ctx context.Context, userID string) (models.UserRole, bool) {
	value, err := c.helper.GetString(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
			logCacheError(ctx, "Role cache read failed", err, "user_id", userID)
		}
		return "", false
	}
	return models.ParseRole(value), true
}

func (c *RoleCache) Set(ctx context.Context, userID string, role models.UserRole) {
	if err := c.helper.SetString(ctx, userID, string(role), c.ttl); err != nil {
		logCacheError(ctx, "Role cache write failed", err, "user_id", userID)
	}
}

// Delete must succeed before a sign-out is reported as done.
func (c *RoleCache) Delete(ctx context.Context, userID string) error {
	if err := c.helper.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cached role: %w", err)
	}
	return nil
}

// SessionRevocations remembers signed-out tokens until they expire.
// Without Redis it falls back to process memory.
type SessionRevocations struct {
	helper *CacheHelper
	now    func() time.Time

	mu    sync.Mutex
	local map[string]time.Time
}

func NewSessionRevocations(cm *CacheManager) *SessionRevocations {
	return &SessionRevocations{
		helper: cm.Session,
		now:    time.Now,
		local:  make(map[string]time.Time),
	}
}

// Revoke marks token as signed out until expiresAt.
func (r *SessionRevocations) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := RevokedKeyspace.TTL
	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(r.now())
	}
	if ttl <= 0 {
		return nil
	}

	key := tokenKey(token)
	err := r.helper.SetString(ctx, key, "1", ttl)
	if err == nil && r.helper.client != nil {
		return nil
	}
	if err != nil {
		logCacheError(ctx, "Session revocation write failed, keeping it in memory", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.local[key] = r.now().Add(ttl)
	return nil
}

func (r *SessionRevocations) IsRevoked(ctx context.Context, token string) bool {
	key := tokenKey(token)

	r.mu.Lock()
	if until, ok := r.local[key]; ok {
		if r.now().Before(until) {
			r.mu.Unlock()
			return true
		}
		delete(r.local, key)
	}
	r.mu.Unlock()

	exists, err := r.helper.Exists(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheNotAvailable) {
			logCacheError(ctx, "Session revocation read failed", err)
		}
		return false
	}
	return exists
}

// tokenKey avoids keeping raw bearer tokens in Redis
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

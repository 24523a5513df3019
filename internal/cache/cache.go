// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"mcp-prenatal-log/internal/models"
)

const keyPrefix = "food-profile:"

// Entry is the stored form of a cached profile.
type Entry struct {
	Profile   models.FoodProfile `json:"profile"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// ResolutionCache maps food references to normalized profiles. Expired
// entries read as misses but stay in the store until overwritten. Failures of
// the underlying store never fail a lookup; they degrade to a miss.
type ResolutionCache struct {
	kv     KVStore
	logger *zap.Logger
	group  singleflight.Group
	now    func() time.Time
}

func NewResolutionCache(kv KVStore, logger *zap.Logger) *ResolutionCache {
	return &ResolutionCache{
		kv:     kv,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the cached profile for ref while it is fresh.
func (c *ResolutionCache) Get(ctx context.Context, ref models.FoodReference) (models.FoodProfile, bool) {
	if c.kv == nil {
		return models.FoodProfile{}, false
	}
	key := keyPrefix + ref.Key()
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("Resolution cache read failed, continuing without cache",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return models.FoodProfile{}, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.logger.Warn("Discarding undecodable cache entry",
			zap.String("key", key),
			zap.Error(err),
		)
		return models.FoodProfile{}, false
	}
	if !c.now().Before(entry.ExpiresAt) {
		c.logger.Debug("Cache entry expired",
			zap.String("key", key),
			zap.Time("expires_at", entry.ExpiresAt),
		)
		return models.FoodProfile{}, false
	}
	entry.Profile.Nutrients = entry.Profile.Nutrients.Clone()
	return entry.Profile, true
}

// Put stores profile under ref until now+ttl. Store failures are logged and
// swallowed.
func (c *ResolutionCache) Put(ctx context.Context, ref models.FoodReference, profile models.FoodProfile, ttl time.Duration) {
	if c.kv == nil {
		return
	}
	key := keyPrefix + ref.Key()
	entry := Entry{Profile: profile, ExpiresAt: c.now().Add(ttl)}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Error("Failed to marshal cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	// Expiry is checked on read; the store keeps the value until it is overwritten.
	if err := c.kv.Set(ctx, key, string(data), 0); err != nil {
		c.logger.Warn("Resolution cache write failed, continuing without cache",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	c.logger.Debug("Cached food profile",
		zap.String("key", key),
		zap.String("source", profile.SourceName),
		zap.Time("expires_at", entry.ExpiresAt),
	)
}

// Do runs fn at most once at a time per reference. Concurrent callers for the
// same reference wait for and share the in-flight result. fn runs under a
// context that ignores the callers' cancellation, so a caller that gives up
// only stops waiting.
func (c *ResolutionCache) Do(ctx context.Context, ref models.FoodReference, fn func(context.Context) (models.FoodProfile, error)) (models.FoodProfile, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(ref.Key(), func() (interface{}, error) {
		return fn(detached)
	})

	select {
	case <-ctx.Done():
		return models.FoodProfile{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.FoodProfile{}, res.Err
		}
		profile := res.Val.(models.FoodProfile)
		if res.Shared {
			// waiters must not share the nutrient map
			profile = profile.Snapshot()
		}
		return profile, nil
	}
}

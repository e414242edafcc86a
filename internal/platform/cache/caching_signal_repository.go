// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chart_backend/internal/feature/signals/domain/entity"
	"chart_backend/internal/feature/signals/usecase"
)

// CachingSignalRepository decorates a SignalRepository with Redis caching
// of list queries. Writes and alert transitions invalidate the owning
// user's cached lists, so readers never observe a stale alert_sent flag
// for longer than one invalidation round-trip.
type CachingSignalRepository struct {
	inner     usecase.SignalRepository
	marker    usecase.AlertMarker
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var (
	_ usecase.SignalRepository = (*CachingSignalRepository)(nil)
	_ usecase.AlertMarker      = (*CachingSignalRepository)(nil)
)

// NewCachingSignalRepository decorates inner with Redis caching.
// If ttl is 0, it defaults to 30 seconds. If namespace is empty, it uses
// "signals". inner must also implement usecase.AlertMarker.
func NewCachingSignalRepository(rdb *redis.Client, ttl time.Duration, inner usecase.SignalRepository, marker usecase.AlertMarker, namespace string) *CachingSignalRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if namespace == "" {
		namespace = "signals"
	}
	return &CachingSignalRepository{
		inner:     inner,
		marker:    marker,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Save persists the signal and invalidates the user's cached lists.
func (c *CachingSignalRepository) Save(ctx context.Context, signal *entity.TradingSignal) error {
	if err := c.inner.Save(ctx, signal); err != nil {
		return err
	}
	c.invalidateUser(ctx, signal.UserID)
	return nil
}

// FindByID always goes to the underlying repository. Single-record reads
// are cheap and must see the authoritative alert_sent value.
func (c *CachingSignalRepository) FindByID(ctx context.Context, userID uint, id string) (*entity.TradingSignal, error) {
	return c.inner.FindByID(ctx, userID, id)
}

// List retrieves signals, checking cache first then falling back to the database.
func (c *CachingSignalRepository) List(ctx context.Context, userID uint, q usecase.SignalQuery) ([]entity.TradingSignal, error) {
	if c.rdb == nil {
		return c.inner.List(ctx, userID, q)
	}

	key := c.listKey(userID, q)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.TradingSignal
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.List(ctx, userID, q)
	if err != nil {
		return nil, err
	}

	// Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	return out, nil
}

// MarkAlerted forwards the compare-and-set to the underlying marker and,
// when this call performed the transition, invalidates cached lists for
// every user (the signal's owner is not known from the ID alone here, and
// the alert flip must become visible promptly).
func (c *CachingSignalRepository) MarkAlerted(ctx context.Context, signalID string) (bool, error) {
	first, err := c.marker.MarkAlerted(ctx, signalID)
	if err != nil {
		return first, err
	}
	if first && c.rdb != nil {
		_ = c.deleteByPattern(ctx, c.namespace+":*")
	}
	return first, nil
}

// invalidateUser drops all cached list entries for one user.
func (c *CachingSignalRepository) invalidateUser(ctx context.Context, userID uint) {
	if c.rdb == nil {
		return
	}
	_ = c.deleteByPattern(ctx, fmt.Sprintf("%s:%d:*", c.namespace, userID))
}

// listKey generates a cache key for a specific list query.
func (c *CachingSignalRepository) listKey(userID uint, q usecase.SignalQuery) string {
	return fmt.Sprintf("%s:%d:%s:%d:%d", c.namespace, userID, q.Status, q.Since, q.Limit)
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingSignalRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

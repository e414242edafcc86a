package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	signaladapters "chart_backend/internal/feature/signals/adapters"
	signalsusecase "chart_backend/internal/feature/signals/usecase"
	"chart_backend/internal/platform/cache"
	"chart_backend/internal/platform/notify"
)

const signalCacheTTL = 30 * time.Second

// NewSignalRepository creates the signal repository. If Redis is available,
// list queries are cached; otherwise the bare GORM repository is returned.
// The returned value implements both SignalRepository and AlertMarker.
func NewSignalRepository(db *gorm.DB, rdb *redis.Client) (signalsusecase.SignalRepository, signalsusecase.AlertMarker) {
	repo := signaladapters.NewSignalRepository(db)
	if rdb == nil {
		return repo, repo
	}
	cached := cache.NewCachingSignalRepository(rdb, signalCacheTTL, repo, repo, "signals")
	return cached, cached
}

// NewSignalPublisher creates the change-notification publisher, or nil when
// Redis is unavailable (polling paths still observe new signals).
func NewSignalPublisher(rdb *redis.Client) signalsusecase.SignalPublisher {
	if rdb == nil {
		return nil
	}
	return notify.NewRedisSignalChannel(rdb, notify.DefaultChannel)
}

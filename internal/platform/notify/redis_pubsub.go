// Package notify provides the change-notification channel for newly
// persisted trading signals, backed by Redis pub/sub.
//
// Delivery is at-least-once from the consumer's point of view: a subscriber
// may see a signal that a polling path has already picked up. The alert
// dispatch gate's idempotence is what makes this safe, so the channel makes
// no deduplication effort of its own.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"chart_backend/internal/feature/signals/domain/entity"
	"chart_backend/internal/feature/signals/usecase"
)

// DefaultChannel is the Redis channel new signals are published on.
const DefaultChannel = "signals:new"

// RedisSignalChannel publishes and subscribes to new-signal notifications.
type RedisSignalChannel struct {
	client  *redis.Client
	channel string
}

var _ usecase.SignalPublisher = (*RedisSignalChannel)(nil)

// NewRedisSignalChannel creates a RedisSignalChannel. If channel is empty,
// DefaultChannel is used.
func NewRedisSignalChannel(client *redis.Client, channel string) *RedisSignalChannel {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSignalChannel{client: client, channel: channel}
}

// Publish sends a newly persisted signal to the channel.
func (c *RedisSignalChannel) Publish(ctx context.Context, signal entity.TradingSignal) error {
	data, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	if err := c.client.Publish(ctx, c.channel, data).Err(); err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

// Subscribe delivers decoded signals until ctx is cancelled. Messages that
// fail to decode are logged and skipped; they never stop the stream.
func (c *RedisSignalChannel) Subscribe(ctx context.Context) (<-chan entity.TradingSignal, error) {
	sub := c.client.Subscribe(ctx, c.channel)
	// Force the subscription to be established before returning
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", c.channel, err)
	}

	out := make(chan entity.TradingSignal)
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Close(); err != nil {
				slog.Warn("failed to close signal subscription", "error", err)
			}
		}()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var signal entity.TradingSignal
				if err := json.Unmarshal([]byte(msg.Payload), &signal); err != nil {
					slog.Warn("dropping undecodable signal notification", "error", err)
					continue
				}
				select {
				case out <- signal:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantumlab/labtrack/internal/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Broadcaster publishes events to users. Without Redis events go straight to the
// local hub; with Redis they go through a pub/sub channel so every API instance
// delivers to the clients it holds.
type Broadcaster struct {
	hub     *Hub
	redis   *redis.Client
	channel string
	logger  zerolog.Logger
	now     func() time.Time
}

// NewBroadcaster wires a hub to an optional Redis client
func NewBroadcaster(hub *Hub, redisClient *redis.Client, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = "labtrack:events"
	}
	return &Broadcaster{
		hub:     hub,
		redis:   redisClient,
		channel: channel,
		logger:  logger.With().Str("component", "broadcaster").Logger(),
		now:     time.Now,
	}
}

// Publish sends an event of the given type to userID
func (b *Broadcaster) Publish(ctx context.Context, userID int64, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	event := &Event{Type: eventType, UserID: userID, Payload: body, Timestamp: b.now()}
	metrics.RealtimeEvents.WithLabelValues(eventType).Inc()

	if b.redis == nil {
		b.hub.Deliver(event)
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := b.redis.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Listen relays events from Redis to the local hub until ctx is cancelled.
// It returns immediately when Redis is not configured.
func (b *Broadcaster) Listen(ctx context.Context) {
	if b.redis == nil {
		return
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			b.logger.Warn().Err(err).Msg("Redis subscription close error")
		}
	}()

	b.logger.Info().Str("channel", b.channel).Msg("Relaying realtime events through Redis")
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn().Err(err).Msg("Discarding malformed realtime event")
				continue
			}
			b.hub.Deliver(&event)
		}
	}
}

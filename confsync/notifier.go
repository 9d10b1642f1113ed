package confsync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Notifier publishes configuration update events.
type Notifier struct {
	client  redis.Cmdable
	channel string
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithNotifyChannel overrides the Pub/Sub channel. Defaults to DefaultChannel.
func WithNotifyChannel(channel string) NotifierOption {
	return func(n *Notifier) {
		if channel != "" {
			n.channel = channel
		}
	}
}

// NewNotifier creates a Notifier on the given Redis client.
func NewNotifier(client redis.Cmdable, opts ...NotifierOption) *Notifier {
	if client == nil {
		panic("confsync: redis client cannot be nil")
	}
	n := &Notifier{
		client:  client,
		channel: DefaultChannel,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Publish sends one update event. An empty EventID is filled with a fresh
// UUID so subscribers can correlate their logs with the publisher's.
func (n *Notifier) Publish(ctx context.Context, event UpdateEvent) error {
	if err := event.validate(); err != nil {
		return err
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("confsync: failed to encode update event: %w", err)
	}

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		log.Error().Err(err).Str("event_id", event.EventID).Str("route", event.RouteID).Msg("failed to publish config update")
		return fmt.Errorf("confsync: failed to publish update event: %w", err)
	}

	log.Info().Str("event_id", event.EventID).Str("route", event.RouteID).Str("channel", n.channel).Msg("config update published")
	return nil
}

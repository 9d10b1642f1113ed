package confsync

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/rategate/rategate/limiter"
)

// Listener subscribes to the update channel and applies incoming events to a
// Resolver. One Listener runs per process.
type Listener struct {
	client   redis.UniversalClient
	resolver *limiter.Resolver
	channel  string
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithListenChannel overrides the Pub/Sub channel. Defaults to DefaultChannel.
func WithListenChannel(channel string) ListenerOption {
	return func(l *Listener) {
		if channel != "" {
			l.channel = channel
		}
	}
}

// NewListener creates a Listener that feeds resolver.
func NewListener(client redis.UniversalClient, resolver *limiter.Resolver, opts ...ListenerOption) *Listener {
	if client == nil {
		panic("confsync: redis client cannot be nil")
	}
	if resolver == nil {
		panic("confsync: resolver cannot be nil")
	}
	l := &Listener{
		client:   client,
		resolver: resolver,
		channel:  DefaultChannel,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run subscribes and processes events until ctx is cancelled. A bad event
// never stops the loop: decode and validation failures are logged and the
// resolver keeps its previous state.
func (l *Listener) Run(ctx context.Context) error {
	sub := l.client.Subscribe(ctx, l.channel)
	defer sub.Close()

	// Force the subscription to be established before we report running.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	log.Info().Str("channel", l.channel).Msg("config update listener started")
	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("channel", l.channel).Msg("config update listener stopping")
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				log.Warn().Str("channel", l.channel).Msg("config update subscription closed")
				return nil
			}
			l.apply([]byte(msg.Payload))
		}
	}
}

// apply decodes and applies one event payload.
func (l *Listener) apply(payload []byte) {
	var event UpdateEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Warn().Err(err).Msg("discarding undecodable config update event")
		return
	}
	if err := event.validate(); err != nil {
		log.Warn().Err(err).Str("event_id", event.EventID).Msg("discarding invalid config update event")
		return
	}
	if err := l.resolver.Update(event.RouteID, event.ConfigUpdate); err != nil {
		log.Warn().Err(err).Str("event_id", event.EventID).Str("route", event.RouteID).Msg("config update rejected")
		return
	}
	log.Debug().Str("event_id", event.EventID).Str("route", event.RouteID).Msg("config update applied")
}

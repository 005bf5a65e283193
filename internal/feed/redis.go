package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"geoquiz/internal/session"

	"github.com/redis/go-redis/v9"
)

// Redis relays change events over Redis pub/sub, one channel per game.
type Redis struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedis(client *redis.Client, prefix string, logger *slog.Logger) *Redis {
	if prefix == "" {
		prefix = "geoquiz:game:"
	}
	return &Redis{client: client, prefix: prefix, logger: logger}
}

func (r *Redis) channel(gameID string) string {
	return r.prefix + gameID
}

func (r *Redis) Publish(ctx context.Context, event session.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel(event.GameID), payload).Err(); err != nil {
		return fmt.Errorf("%w: publishing: %v", session.ErrTransport, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, gameID string) (session.Subscription, error) {
	ps := r.client.Subscribe(ctx, r.channel(gameID))
	// Receive blocks until the server confirms the subscription, so events
	// published after Subscribe returns are not missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: subscribing: %v", session.ErrTransport, err)
	}

	s := newStream(defaultBuffer, func() { _ = ps.Close() })
	s.endWithContext(ctx)

	go func() {
		for msg := range ps.Channel() {
			var event session.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Warn("dropping malformed redis event", "channel", msg.Channel, "error", err)
				continue
			}
			if !s.send(event) {
				s.end(ErrLagged)
				return
			}
		}
		s.end(session.ErrSubscriptionClosed)
	}()
	return s, nil
}

// Check pings redis.
func (r *Redis) Check(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

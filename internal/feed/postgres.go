package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"geoquiz/internal/session"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const DefaultPostgresChannel = "geoquiz_events"

// ErrNotListening is returned by Subscribe while the listener connection is
// down; nothing published in that window would reach the subscription.
var ErrNotListening = fmt.Errorf("%w: change listener not connected", session.ErrTransport)

// Postgres relays change events through LISTEN/NOTIFY so that every server
// process sharing the database sees every write.
type Postgres struct {
	pool    *pgxpool.Pool
	channel string
	local   *Broker
	logger  *slog.Logger
	backoff time.Duration

	mu        sync.Mutex
	listening bool
}

func NewPostgres(pool *pgxpool.Pool, channel string, logger *slog.Logger) *Postgres {
	if channel == "" {
		channel = DefaultPostgresChannel
	}
	return &Postgres{
		pool:    pool,
		channel: channel,
		local:   NewBroker(defaultBuffer),
		logger:  logger,
		backoff: time.Second,
	}
}

// Publish sends event with pg_notify. Delivery to listeners happens when the
// surrounding transaction, if any, commits.
func (p *Postgres) Publish(ctx context.Context, event session.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := p.pool.Exec(ctx, "SELECT pg_notify($1, $2)", p.channel, string(payload)); err != nil {
		return fmt.Errorf("%w: notifying: %v", session.ErrTransport, err)
	}
	return nil
}

// Subscribe fails with ErrNotListening until Run has an active LISTEN.
func (p *Postgres) Subscribe(ctx context.Context, gameID string) (session.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.listening {
		return nil, ErrNotListening
	}
	return p.local.Subscribe(ctx, gameID)
}

func (p *Postgres) setListening() {
	p.mu.Lock()
	p.listening = true
	p.mu.Unlock()
}

// stopListening refuses new subscriptions and ends the existing ones with
// err, so consumers resubscribe once the listener is back and refetch.
func (p *Postgres) stopListening(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listening = false
	p.local.DropAll(err)
}

// Run listens until ctx ends. Whenever the listening connection is lost all
// local subscriptions are dropped so their consumers refetch.
func (p *Postgres) Run(ctx context.Context) error {
	for {
		err := p.listen(ctx)
		if ctx.Err() != nil {
			p.stopListening(ctx.Err())
			return nil
		}
		p.logger.Warn("postgres listener lost", "channel", p.channel, "error", err)
		p.stopListening(fmt.Errorf("%w: listener lost: %v", session.ErrSubscriptionClosed, err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.backoff):
		}
	}
}

func (p *Postgres) listen(ctx context.Context) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{p.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listening: %w", err)
	}
	p.setListening()
	p.logger.Info("postgres listener ready", "channel", p.channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		var event session.Event
		if err := json.Unmarshal([]byte(n.Payload), &event); err != nil {
			p.logger.Warn("dropping malformed notification", "error", err)
			continue
		}
		if event.GameID == "" {
			continue
		}
		_ = p.local.Publish(ctx, event)
	}
}

// Check pings the pool.
func (p *Postgres) Check(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return errors.Join(session.ErrTransport, err)
	}
	return nil
}

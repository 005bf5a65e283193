package feed

import (
	"context"
	"sync"

	"geoquiz/internal/session"
)

// Broker is an in-process pub/sub for change events, keyed by game ID.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[*stream]struct{}
	buffer int
}

func NewBroker(buffer int) *Broker {
	return &Broker{
		subs:   make(map[string]map[*stream]struct{}),
		buffer: buffer,
	}
}

// Subscribe returns a subscription that receives events for gameID until it
// is closed, ctx ends, or the consumer falls behind.
func (b *Broker) Subscribe(ctx context.Context, gameID string) (session.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var s *stream
	s = newStream(b.buffer, func() { b.remove(gameID, s) })

	b.mu.Lock()
	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[*stream]struct{})
	}
	b.subs[gameID][s] = struct{}{}
	b.mu.Unlock()

	s.endWithContext(ctx)
	return s, nil
}

func (b *Broker) remove(gameID string, s *stream) {
	b.mu.Lock()
	delete(b.subs[gameID], s)
	if len(b.subs[gameID]) == 0 {
		delete(b.subs, gameID)
	}
	b.mu.Unlock()
}

// Publish delivers event to every subscriber of its game. A subscriber with
// a full buffer is dropped with ErrLagged rather than silently missing events.
func (b *Broker) Publish(_ context.Context, event session.Event) error {
	var lagged []*stream
	b.mu.RLock()
	for s := range b.subs[event.GameID] {
		if !s.send(event) {
			lagged = append(lagged, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range lagged {
		s.end(ErrLagged)
	}
	return nil
}

// DropAll ends every subscription with err. Feeds relaying from a remote
// source call it when the source connection is lost.
func (b *Broker) DropAll(err error) {
	b.mu.RLock()
	all := make([]*stream, 0)
	for _, group := range b.subs {
		for s := range group {
			all = append(all, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range all {
		s.end(err)
	}
}

// Subscribers returns the number of live subscriptions for gameID.
func (b *Broker) Subscribers(gameID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[gameID])
}

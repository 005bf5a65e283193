// Package feed carries session change events from the writer to every
// subscribed client: in process, over Postgres LISTEN/NOTIFY, or over Redis
// pub/sub.
package feed

import (
	"context"
	"fmt"
	"sync"

	"geoquiz/internal/session"
)

// Feed publishes change events and hands out per-game subscriptions.
type Feed interface {
	Publish(ctx context.Context, event session.Event) error
	Subscribe(ctx context.Context, gameID string) (session.Subscription, error)
}

const defaultBuffer = 64

// ErrLagged ends a subscription whose consumer fell behind. The consumer
// is expected to refetch.
var ErrLagged = fmt.Errorf("%w: subscriber fell behind", session.ErrSubscriptionClosed)

// stream is the Subscription handed to consumers. Sends never block and
// never race the close.
type stream struct {
	ch      chan session.Event
	mu      sync.Mutex
	closed  bool
	err     error
	onClose func()
}

func newStream(buffer int, onClose func()) *stream {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &stream{ch: make(chan session.Event, buffer), onClose: onClose}
}

func (s *stream) Events() <-chan session.Event { return s.ch }

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stream) Close() error {
	s.end(nil)
	return nil
}

// send reports false when the stream is closed or its buffer is full.
func (s *stream) send(ev session.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (s *stream) end(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
	s.mu.Unlock()
	if s.onClose != nil {
		s.onClose()
	}
}

// endWithContext ends s when ctx is cancelled.
func (s *stream) endWithContext(ctx context.Context) {
	if ctx.Done() == nil {
		return
	}
	go func() {
		<-ctx.Done()
		s.end(ctx.Err())
	}()
}

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"geoquiz/internal/geo"
	"geoquiz/internal/reveal"
	"geoquiz/internal/session"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Type  string        `json:"type"`
	Event session.Event `json:"event"`
	Error string        `json:"error"`
}

// Subscribe opens the game's websocket and streams its change events. The
// initial snapshot is skipped; callers refetch after subscribing.
func (c *Client) Subscribe(ctx context.Context, gameID string) (session.Subscription, error) {
	s, err := c.subscribe(ctx, gameID, nil, nil)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// MapCommand is one reveal step sent to host screens.
type MapCommand struct {
	Op         string         `json:"op"`
	Point      *geo.Point     `json:"point,omitempty"`
	Zoom       int            `json:"zoom,omitempty"`
	DurationMS int64          `json:"duration_ms,omitempty"`
	Marker     *reveal.Marker `json:"marker,omitempty"`
	Points     []geo.Point    `json:"points,omitempty"`
}

// SubscribeHost subscribes as the game's host. onMap is called from the
// reader goroutine for every map command of a reveal sequence.
func (c *Client) SubscribeHost(ctx context.Context, gameID, hostID string, onMap func(MapCommand)) (session.Subscription, error) {
	s, err := c.subscribe(ctx, gameID, url.Values{"role": {"host"}, "host_id": {hostID}}, func(data []byte) {
		var cmd struct {
			Type string `json:"type"`
			MapCommand
		}
		if json.Unmarshal(data, &cmd) == nil && cmd.Type == "map" && onMap != nil {
			onMap(cmd.MapCommand)
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Client) subscribe(ctx context.Context, gameID string, query url.Values, raw func([]byte)) (*subscription, error) {
	u := "ws" + strings.TrimPrefix(c.base, "http") + "/ws/games/" + url.PathEscape(gameID)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	conn, resp, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, statusError(resp.StatusCode, nil)
		}
		return nil, fmt.Errorf("%w: dialing websocket: %v", session.ErrTransport, err)
	}
	var first envelope
	if err := conn.ReadJSON(&first); err != nil || first.Type != "snapshot" {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: expected snapshot", session.ErrTransport)
	}

	s := &subscription{
		conn: conn,
		ch:   make(chan session.Event, 64),
		done: make(chan struct{}),
		raw:  raw,
	}
	go s.read()
	go func() {
		select {
		case <-ctx.Done():
			s.finish(ctx.Err())
		case <-s.done:
		}
	}()
	return s, nil
}

type subscription struct {
	conn *websocket.Conn
	ch   chan session.Event
	done chan struct{}
	once sync.Once
	mu   sync.Mutex
	err  error
	// raw receives non-event messages when set.
	raw func([]byte)
}

func (s *subscription) Events() <-chan session.Event { return s.ch }

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) Close() error {
	s.finish(nil)
	return nil
}

func (s *subscription) finish(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *subscription) read() {
	defer close(s.ch)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.finish(fmt.Errorf("%w: %v", session.ErrSubscriptionClosed, err))
			return
		}
		var msg envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "event":
			select {
			case s.ch <- msg.Event:
			case <-s.done:
				return
			}
		case "error":
			s.finish(fmt.Errorf("%w: %s", session.ErrSubscriptionClosed, msg.Error))
			return
		default:
			if s.raw != nil {
				s.raw(data)
			}
		}
	}
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"geoquiz/internal/geo"
	"geoquiz/internal/reveal"
	"geoquiz/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

// Websocket message types.
const (
	msgSnapshot = "snapshot"
	msgEvent    = "event"
	msgMap      = "map"
	msgError    = "error"
)

type wsSnapshot struct {
	Type string `json:"type"`
	GameResponse
}

type wsEvent struct {
	Type  string        `json:"type"`
	Event session.Event `json:"event"`
}

type wsError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// mapCommand is one reveal step for host screens.
type mapCommand struct {
	Type       string         `json:"type"`
	Op         string         `json:"op"`
	Point      *geo.Point     `json:"point,omitempty"`
	Zoom       int            `json:"zoom,omitempty"`
	DurationMS int64          `json:"duration_ms,omitempty"`
	Marker     *reveal.Marker `json:"marker,omitempty"`
	Points     []geo.Point    `json:"points,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*wsClient]struct{}
	hosts  map[string]map[*wsClient]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		groups: make(map[string]map[*wsClient]struct{}),
		hosts:  make(map[string]map[*wsClient]struct{}),
	}
}

func (h *wsHub) Add(gameID string, client *wsClient, isHost bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	addClient(h.groups, gameID, client)
	if isHost {
		addClient(h.hosts, gameID, client)
	}
}

func (h *wsHub) Remove(gameID string, client *wsClient) {
	h.mu.Lock()
	removeClient(h.groups, gameID, client)
	removeClient(h.hosts, gameID, client)
	h.mu.Unlock()
	_ = client.conn.Close()
}

func (h *wsHub) Hosts(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hosts[gameID])
}

// BroadcastHosts sends payload to every host connection of the game.
func (h *wsHub) BroadcastHosts(gameID string, payload any) {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.hosts[gameID]))
	for client := range h.hosts[gameID] {
		clients = append(clients, client)
	}
	h.mu.Unlock()
	for _, client := range clients {
		if err := client.send(payload); err != nil {
			h.Remove(gameID, client)
		}
	}
}

func (h *wsHub) CloseAll() {
	h.mu.Lock()
	var clients []*wsClient
	for _, group := range h.groups {
		for client := range group {
			clients = append(clients, client)
		}
	}
	h.groups = make(map[string]map[*wsClient]struct{})
	h.hosts = make(map[string]map[*wsClient]struct{})
	h.mu.Unlock()
	for _, client := range clients {
		_ = client.conn.Close()
	}
}

func addClient(groups map[string]map[*wsClient]struct{}, gameID string, client *wsClient) {
	group := groups[gameID]
	if group == nil {
		group = make(map[*wsClient]struct{})
		groups[gameID] = group
	}
	group[client] = struct{}{}
}

func removeClient(groups map[string]map[*wsClient]struct{}, gameID string, client *wsClient) {
	group := groups[gameID]
	if group == nil {
		return
	}
	delete(group, client)
	if len(group) == 0 {
		delete(groups, gameID)
	}
}

// mapView drives the maps of a game's host screens.
type mapView struct {
	hub    *wsHub
	gameID string
}

func (v *mapView) Center(ctx context.Context, p geo.Point, zoom int, duration time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.hub.BroadcastHosts(v.gameID, mapCommand{Type: msgMap, Op: "center", Point: &p, Zoom: zoom, DurationMS: duration.Milliseconds()})
	return nil
}

func (v *mapView) ShowMarker(ctx context.Context, m reveal.Marker) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.hub.BroadcastHosts(v.gameID, mapCommand{Type: msgMap, Op: "marker", Marker: &m})
	return nil
}

func (v *mapView) FitBounds(ctx context.Context, points []geo.Point, duration time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.hub.BroadcastHosts(v.gameID, mapCommand{Type: msgMap, Op: "fit", Points: points, DurationMS: duration.Milliseconds()})
	return nil
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebsocket streams a game's changes: a snapshot first, then every
// event from the store's change feed. The client refetches on reconnect.
func (s *Server) handleWebsocket(c *gin.Context) {
	gameID := c.Param("id")
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	isHost := c.Query("role") == "host"
	if isHost {
		if err := s.machine.Authorize(ctx, gameID, c.Query("host_id")); err != nil {
			s.fail(c, err)
			return
		}
	}
	sub, err := s.machine.Store().Subscribe(ctx, gameID)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer sub.Close()
	state, err := s.gameState(ctx, gameID)
	if err != nil {
		s.fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	client := &wsClient{conn: conn}
	log := s.log.With("game_id", gameID, "host", isHost)
	log.Info("ws connected", "remote", c.Request.RemoteAddr)
	s.ws.Add(gameID, client, isHost)
	defer s.ws.Remove(gameID, client)
	if isHost {
		s.hosts.Ensure(gameID)
	}

	gate := newAnswerGate(isHost, state.Game)
	if err := client.send(wsSnapshot{Type: msgSnapshot, GameResponse: state}); err != nil {
		return
	}
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				log.Info("ws disconnected", "error", err)
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				log.Warn("ws subscription ended", "error", sub.Err())
				_ = client.send(wsError{Type: msgError, Error: session.Message(sub.Err())})
				return
			}
			for _, out := range gate.filter(ev) {
				if err := client.send(wsEvent{Type: msgEvent, Event: out}); err != nil {
					return
				}
			}
		}
	}
}

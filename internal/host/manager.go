package host

import (
	"context"
	"log/slog"
	"sync"

	"geoquiz/internal/game"
	"geoquiz/internal/reveal"
)

// ViewFunc returns the map view a game's reveal sequence drives.
type ViewFunc func(gameID string) reveal.MapView

// Manager keeps one running Session per hosted game.
type Manager struct {
	ctx     context.Context
	machine *game.Machine
	viewFor ViewFunc
	log     *slog.Logger
	opts    Options

	mu       sync.Mutex
	sessions map[string]*entry
	wg       sync.WaitGroup
}

type entry struct {
	session *Session
	cancel  context.CancelFunc
}

// NewManager returns a Manager whose sessions live until ctx ends.
func NewManager(ctx context.Context, machine *game.Machine, viewFor ViewFunc, log *slog.Logger, opts Options) *Manager {
	return &Manager{
		ctx:      ctx,
		machine:  machine,
		viewFor:  viewFor,
		log:      log,
		opts:     opts,
		sessions: make(map[string]*entry),
	}
}

// Ensure returns the running session for gameID, starting one if needed.
func (m *Manager) Ensure(gameID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[gameID]; ok {
		return e.session
	}
	s := NewSession(m.machine, gameID, m.viewFor(gameID), m.log, m.opts)
	ctx, cancel := context.WithCancel(m.ctx)
	e := &entry{session: s, cancel: cancel}
	m.sessions[gameID] = e

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		if err := s.Run(ctx); err != nil && ctx.Err() == nil {
			m.log.Warn("host session stopped", "game_id", gameID, "error", err)
		}
		m.mu.Lock()
		if m.sessions[gameID] == e {
			delete(m.sessions, gameID)
		}
		m.mu.Unlock()
	}()
	return s
}

func (m *Manager) Get(gameID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[gameID]
	if !ok {
		return nil, false
	}
	return e.session, true
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop cancels every session and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	for _, e := range m.sessions {
		e.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// Package mirror keeps a local copy of one game's state current from a full
// fetch plus the change feed. Hosts and players use it the same way.
package mirror

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"geoquiz/internal/session"
)

// Source is the read side of the session store.
type Source interface {
	GetGame(ctx context.Context, id string) (session.Game, error)
	ListPlayers(ctx context.Context, gameID string) ([]session.Player, error)
	ListAnswers(ctx context.Context, gameID string, questionID int) ([]session.Answer, error)
	Subscribe(ctx context.Context, gameID string) (session.Subscription, error)
}

// Snapshot is a copy of the mirrored state. Answers holds the answers of the
// game's current round.
type Snapshot struct {
	Game      session.Game
	Players   []session.Player
	Answers   []session.Answer
	Loaded    bool
	Connected bool
	// Err is the last transport error, cleared by the next successful fetch.
	Err error
}

func (s Snapshot) AllAnswered() bool {
	return session.AllAnswered(s.Players)
}

func (s Snapshot) Player(id string) (session.Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return session.Player{}, false
}

type Options struct {
	RefetchInterval    time.Duration
	ResubscribeBackoff time.Duration
	// OnChange is called from the reconciler goroutine after every change.
	OnChange func(Snapshot)
}

const (
	defaultRefetchInterval    = 15 * time.Second
	defaultResubscribeBackoff = time.Second
	maxResubscribeBackoff     = 30 * time.Second
)

type Mirror struct {
	src    Source
	gameID string
	opts   Options
	log    *slog.Logger

	mu        sync.Mutex
	game      session.Game
	loaded    bool
	players   []session.Player
	answers   map[string]session.Answer
	connected bool
	lastErr   error
}

func New(src Source, gameID string, log *slog.Logger, opts Options) *Mirror {
	if opts.RefetchInterval <= 0 {
		opts.RefetchInterval = defaultRefetchInterval
	}
	if opts.ResubscribeBackoff <= 0 {
		opts.ResubscribeBackoff = defaultResubscribeBackoff
	}
	return &Mirror{
		src:     src,
		gameID:  gameID,
		opts:    opts,
		log:     log.With("game_id", gameID),
		answers: make(map[string]session.Answer),
	}
}

func (m *Mirror) GameID() string {
	return m.gameID
}

// Run subscribes, fetches the full state and applies events until ctx ends.
// A dropped subscription is re-established with backoff and followed by a
// full refetch, since the feed does not replay missed events.
func (m *Mirror) Run(ctx context.Context) error {
	backoff := m.opts.ResubscribeBackoff
	for {
		sub, err := m.src.Subscribe(ctx, m.gameID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.setErr(err)
			m.log.Warn("subscribe failed", "error", err, "retry_in", backoff)
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff)
			continue
		}

		if err := m.Refetch(ctx); err != nil {
			m.log.Warn("initial fetch failed", "error", err)
		}
		m.setConnected(true)
		err = m.consume(ctx, sub)
		_ = sub.Close()
		m.setConnected(false)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.setErr(err)
		m.log.Warn("subscription dropped", "error", err)
		backoff = m.opts.ResubscribeBackoff
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
	}
}

func (m *Mirror) consume(ctx context.Context, sub session.Subscription) error {
	ticker := time.NewTicker(m.opts.RefetchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.Events():
			if !ok {
				if err := sub.Err(); err != nil {
					return err
				}
				return session.ErrSubscriptionClosed
			}
			m.Apply(ev)
		case <-ticker.C:
			if err := m.Refetch(ctx); err != nil {
				m.log.Warn("periodic refetch failed", "error", err)
			}
		}
	}
}

// Refetch replaces the mirrored state with a full read. Answers are read
// only once the round is revealed.
func (m *Mirror) Refetch(ctx context.Context) error {
	g, err := m.src.GetGame(ctx, m.gameID)
	if err != nil {
		m.setErr(err)
		return err
	}
	players, err := m.src.ListPlayers(ctx, m.gameID)
	if err != nil {
		m.setErr(err)
		return err
	}
	var answers []session.Answer
	if g.Status == session.StatusRevealing || g.Status == session.StatusFinished {
		answers, err = m.src.ListAnswers(ctx, m.gameID, g.CurrentQuestion)
		if err != nil {
			m.setErr(err)
			return err
		}
	}

	m.mu.Lock()
	m.setGameLocked(g)
	m.players = append(m.players[:0:0], players...)
	for _, a := range answers {
		m.addAnswerLocked(a)
	}
	m.loaded = true
	m.lastErr = nil
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

// Apply merges one change event. Players merge by id; answers are deduped by
// id; a game event older than the mirrored version is ignored.
func (m *Mirror) Apply(ev session.Event) {
	if ev.GameID != "" && ev.GameID != m.gameID {
		return
	}
	m.mu.Lock()
	changed := false
	switch ev.Table {
	case session.TableGames:
		if ev.Game != nil && ev.Game.ID == m.gameID {
			changed = m.setGameLocked(*ev.Game)
		}
	case session.TablePlayers:
		if ev.Player != nil {
			if ev.Type == session.EventDelete {
				changed = m.removePlayerLocked(ev.Player.ID)
			} else {
				m.upsertPlayerLocked(*ev.Player)
				changed = true
			}
		}
	case session.TableAnswers:
		if ev.Answer != nil && ev.Type != session.EventDelete {
			changed = m.addAnswerLocked(*ev.Answer)
		}
	}
	var snap Snapshot
	if changed {
		snap = m.snapshotLocked()
	}
	m.mu.Unlock()

	if changed {
		m.notify(snap)
	}
}

func (m *Mirror) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Mirror) setGameLocked(g session.Game) bool {
	if m.loaded || m.game.ID != "" {
		if g.Version != 0 && g.Version < m.game.Version {
			return false
		}
	}
	if g.HostID == "" {
		g.HostID = m.game.HostID
	}
	if g.QuestionIDs == nil {
		g.QuestionIDs = m.game.QuestionIDs
	}
	m.game = g
	for id, a := range m.answers {
		if a.QuestionID < g.CurrentQuestion {
			delete(m.answers, id)
		}
	}
	return true
}

func (m *Mirror) upsertPlayerLocked(p session.Player) {
	for i := range m.players {
		if m.players[i].ID == p.ID {
			m.players[i] = p
			return
		}
	}
	m.players = append(m.players, p)
}

func (m *Mirror) removePlayerLocked(id string) bool {
	for i := range m.players {
		if m.players[i].ID == id {
			m.players = append(m.players[:i], m.players[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Mirror) addAnswerLocked(a session.Answer) bool {
	if a.QuestionID < m.game.CurrentQuestion {
		return false
	}
	if _, ok := m.answers[a.ID]; ok {
		return false
	}
	m.answers[a.ID] = a
	return true
}

func (m *Mirror) snapshotLocked() Snapshot {
	snap := Snapshot{
		Game:      m.game,
		Players:   append([]session.Player(nil), m.players...),
		Answers:   make([]session.Answer, 0, len(m.answers)),
		Loaded:    m.loaded,
		Connected: m.connected,
		Err:       m.lastErr,
	}
	snap.Game.QuestionIDs = append([]int(nil), m.game.QuestionIDs...)
	for _, a := range m.answers {
		if a.QuestionID == m.game.CurrentQuestion {
			snap.Answers = append(snap.Answers, a)
		}
	}
	sort.Slice(snap.Answers, func(i, j int) bool {
		if !snap.Answers[i].CreatedAt.Equal(snap.Answers[j].CreatedAt) {
			return snap.Answers[i].CreatedAt.Before(snap.Answers[j].CreatedAt)
		}
		return snap.Answers[i].ID < snap.Answers[j].ID
	})
	return snap
}

func (m *Mirror) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
}

func (m *Mirror) setErr(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Mirror) notify(snap Snapshot) {
	if m.opts.OnChange != nil {
		m.opts.OnChange(snap)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxResubscribeBackoff {
		d = maxResubscribeBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

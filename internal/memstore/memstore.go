// Package memstore is an in-process session.Store. It backs tests and
// single-process deployments started with STORE_BACKEND=memory.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"geoquiz/internal/feed"
	"geoquiz/internal/session"

	"github.com/google/uuid"
)

type answerKey struct {
	gameID     string
	playerID   string
	questionID int
}

type Store struct {
	mu      sync.Mutex
	games   map[string]*session.Game
	players map[string]*session.Player
	order   map[string][]string
	answers map[answerKey]*session.Answer
	feed    *feed.Broker
	now     func() time.Time
}

func New() *Store {
	return &Store{
		games:   make(map[string]*session.Game),
		players: make(map[string]*session.Player),
		order:   make(map[string][]string),
		answers: make(map[answerKey]*session.Answer),
		feed:    feed.NewBroker(0),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ session.Store = (*Store)(nil)

// publish is called with s.mu held so subscribers see changes in write order.
func (s *Store) publish(ctx context.Context, ev session.Event) {
	_ = s.feed.Publish(ctx, ev)
}

func (s *Store) CreateGame(ctx context.Context, game session.Game) (session.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.games {
		if existing.Code == game.Code && existing.Status != session.StatusFinished {
			return session.Game{}, session.ErrCodeTaken
		}
	}
	if game.ID == "" {
		game.ID = uuid.NewString()
	}
	if _, ok := s.games[game.ID]; ok {
		return session.Game{}, fmt.Errorf("%w: game %s exists", session.ErrConflict, game.ID)
	}
	if game.Status == "" {
		game.Status = session.StatusWaiting
	}
	game.Version = 1
	game.CreatedAt = s.now()
	game.QuestionIDs = append([]int(nil), game.QuestionIDs...)
	stored := game
	s.games[game.ID] = &stored
	s.publish(ctx, session.GameEvent(session.EventInsert, game))
	return game, nil
}

func (s *Store) GetGame(_ context.Context, id string) (session.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return session.Game{}, session.ErrNotFound
	}
	return copyGame(g), nil
}

func (s *Store) FindGameByCode(_ context.Context, code string) (session.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.games {
		if g.Code == code && g.Status != session.StatusFinished {
			return copyGame(g), nil
		}
	}
	return session.Game{}, session.ErrNotFound
}

func (s *Store) UpdateGame(ctx context.Context, id string, update session.GameUpdate, expected *session.Status) (session.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return session.Game{}, session.ErrNotFound
	}
	if expected != nil && g.Status != *expected {
		return session.Game{}, fmt.Errorf("%w: game is %s, expected %s", session.ErrConflict, g.Status, *expected)
	}
	if update.Status != nil {
		g.Status = *update.Status
	}
	if update.CurrentQuestion != nil {
		g.CurrentQuestion = *update.CurrentQuestion
	}
	g.Version++
	out := copyGame(g)
	s.publish(ctx, session.GameEvent(session.EventUpdate, out))
	return out, nil
}

func (s *Store) ListPlayers(_ context.Context, gameID string) ([]session.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.order[gameID]
	out := make([]session.Player, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.players[id])
	}
	return out, nil
}

func (s *Store) InsertPlayer(ctx context.Context, player session.Player) (session.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[player.GameID]; !ok {
		return session.Player{}, session.ErrNotFound
	}
	if player.ID == "" {
		player.ID = uuid.NewString()
	}
	if _, ok := s.players[player.ID]; ok {
		return session.Player{}, fmt.Errorf("%w: player %s exists", session.ErrConflict, player.ID)
	}
	player.CreatedAt = s.now()
	stored := player
	s.players[player.ID] = &stored
	s.order[player.GameID] = append(s.order[player.GameID], player.ID)
	s.publish(ctx, session.PlayerEvent(session.EventInsert, player))
	return player, nil
}

func (s *Store) UpdatePlayer(ctx context.Context, id string, update session.PlayerUpdate) (session.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return session.Player{}, session.ErrNotFound
	}
	if update.WhenAnswered != nil && p.HasAnswered != *update.WhenAnswered {
		return session.Player{}, fmt.Errorf("%w: has_answered is %v", session.ErrConflict, p.HasAnswered)
	}
	p.Score += update.AddScore
	if update.HasAnswered != nil {
		p.HasAnswered = *update.HasAnswered
	}
	out := *p
	s.publish(ctx, session.PlayerEvent(session.EventUpdate, out))
	return out, nil
}

func (s *Store) ResetAnswered(ctx context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order[gameID] {
		p := s.players[id]
		if p.HasAnswered {
			p.HasAnswered = false
			s.publish(ctx, session.PlayerEvent(session.EventUpdate, *p))
		}
	}
	return nil
}

func (s *Store) InsertAnswer(ctx context.Context, answer session.Answer) (session.Answer, error) {
	key := answerKey{gameID: answer.GameID, playerID: answer.PlayerID, questionID: answer.QuestionID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.answers[key]; ok {
		return session.Answer{}, session.ErrAnswerExists
	}
	if answer.ID == "" {
		answer.ID = uuid.NewString()
	}
	answer.CreatedAt = s.now()
	stored := answer
	s.answers[key] = &stored
	s.publish(ctx, session.AnswerEvent(session.EventInsert, answer))
	return answer, nil
}

func (s *Store) FindAnswer(_ context.Context, gameID, playerID string, questionID int) (session.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[answerKey{gameID: gameID, playerID: playerID, questionID: questionID}]
	if !ok {
		return session.Answer{}, session.ErrNotFound
	}
	return *a, nil
}

func (s *Store) ListAnswers(_ context.Context, gameID string, questionID int) ([]session.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]session.Answer, 0)
	for key, a := range s.answers {
		if key.gameID == gameID && key.questionID == questionID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Subscribe(ctx context.Context, gameID string) (session.Subscription, error) {
	return s.feed.Subscribe(ctx, gameID)
}

// Check always succeeds; it lets the store sit in the health report.
func (s *Store) Check(context.Context) error {
	return nil
}

func copyGame(g *session.Game) session.Game {
	out := *g
	out.QuestionIDs = append([]int(nil), g.QuestionIDs...)
	return out
}

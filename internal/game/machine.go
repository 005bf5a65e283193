// Package game owns the lifecycle of a game session. Machine is the only
// writer of a game's status and current round; every write carries the
// status it expects to replace so concurrent hosts cannot both win.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"geoquiz/internal/questions"
	"geoquiz/internal/session"

	"github.com/google/uuid"
)

const (
	DefaultRounds   = 5
	maxCodeAttempts = 5
)

type Machine struct {
	store   session.Store
	bank    *questions.Bank
	log     *slog.Logger
	rounds  int
	newCode func() string
}

// NewMachine returns a Machine planning rounds questions per game when the
// caller does not ask for a count.
func NewMachine(store session.Store, bank *questions.Bank, log *slog.Logger, rounds int) *Machine {
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	return &Machine{
		store:   store,
		bank:    bank,
		log:     log,
		rounds:  rounds,
		newCode: session.NewJoinCode,
	}
}

func (m *Machine) Store() session.Store {
	return m.store
}

func (m *Machine) Bank() *questions.Bank {
	return m.bank
}

// CreateGame plans the rounds and stores a new waiting game under a fresh
// join code. The returned game carries the host id; it is the only place
// the host id is handed out.
func (m *Machine) CreateGame(ctx context.Context, rounds int) (session.Game, error) {
	if rounds <= 0 {
		rounds = m.rounds
	}
	plan := m.bank.Pick(rounds)
	if len(plan) == 0 {
		return session.Game{}, fmt.Errorf("%w: question bank is empty", session.ErrValidation)
	}
	hostID := uuid.NewString()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		g, err := m.store.CreateGame(ctx, session.Game{
			Code:        m.newCode(),
			Status:      session.StatusWaiting,
			HostID:      hostID,
			QuestionIDs: plan,
		})
		if errors.Is(err, session.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return session.Game{}, fmt.Errorf("creating game: %w", err)
		}
		m.log.Info("game created", "game_id", g.ID, "code", g.Code, "rounds", g.RoundCount())
		return g, nil
	}
	return session.Game{}, fmt.Errorf("creating game: %w after %d attempts", session.ErrCodeTaken, maxCodeAttempts)
}

// Join adds a player to the waiting game holding code.
func (m *Machine) Join(ctx context.Context, code, initials string) (session.Game, session.Player, error) {
	initials, err := session.NormalizeInitials(initials)
	if err != nil {
		return session.Game{}, session.Player{}, err
	}
	code, err = session.NormalizeCode(code)
	if err != nil {
		return session.Game{}, session.Player{}, err
	}
	g, err := m.store.FindGameByCode(ctx, code)
	if err != nil {
		return session.Game{}, session.Player{}, err
	}
	if g.Status != session.StatusWaiting {
		return session.Game{}, session.Player{}, session.ErrGameAlreadyStarted
	}
	p, err := m.store.InsertPlayer(ctx, session.Player{GameID: g.ID, Initials: initials})
	if err != nil {
		return session.Game{}, session.Player{}, fmt.Errorf("joining game: %w", err)
	}
	m.log.Info("player joined", "game_id", g.ID, "player_id", p.ID, "initials", p.Initials)
	return g.Public(), p, nil
}

// Start moves a waiting game with at least one player to round 0.
func (m *Machine) Start(ctx context.Context, gameID string) (session.Game, error) {
	g, err := m.store.GetGame(ctx, gameID)
	if err != nil {
		return session.Game{}, err
	}
	if g.Status != session.StatusWaiting {
		return session.Game{}, fmt.Errorf("%w: game is %s", session.ErrInvalidTransition, g.Status)
	}
	players, err := m.store.ListPlayers(ctx, gameID)
	if err != nil {
		return session.Game{}, err
	}
	if len(players) == 0 {
		return session.Game{}, session.ErrNoPlayers
	}
	updated, err := m.store.UpdateGame(ctx, gameID, session.GameUpdate{
		Status:          session.Ptr(session.StatusPlaying),
		CurrentQuestion: session.Ptr(0),
	}, session.Ptr(session.StatusWaiting))
	if err != nil {
		return session.Game{}, fmt.Errorf("starting game: %w", err)
	}
	m.transitioned(g, updated)
	return updated, nil
}

// Reveal is the outcome of a reveal call. Fresh is false when the game was
// already revealing and nothing was written.
type Reveal struct {
	Game     session.Game
	Question session.Question
	Answers  []session.Answer
	Fresh    bool
}

// Reveal closes the current round. It re-verifies that every player has an
// answer for the round before writing, and fetches the reveal set from the
// store after the write. Calling it on a revealing game is a no-op.
func (m *Machine) Reveal(ctx context.Context, gameID string) (Reveal, error) {
	g, err := m.store.GetGame(ctx, gameID)
	if err != nil {
		return Reveal{}, err
	}
	if g.Status == session.StatusRevealing {
		return m.currentReveal(ctx, g)
	}
	if err := checkTransition(g.Status, session.StatusRevealing); err != nil {
		return Reveal{}, err
	}

	players, err := m.store.ListPlayers(ctx, gameID)
	if err != nil {
		return Reveal{}, err
	}
	if !session.AllAnswered(players) {
		return Reveal{}, session.ErrNotAllAnswered
	}
	answers, err := m.store.ListAnswers(ctx, gameID, g.CurrentQuestion)
	if err != nil {
		return Reveal{}, err
	}
	if missing := unanswered(players, answers); len(missing) > 0 {
		return Reveal{}, fmt.Errorf("%w: %d player(s) flagged without an answer", session.ErrNotAllAnswered, len(missing))
	}

	updated, err := m.store.UpdateGame(ctx, gameID, session.GameUpdate{
		Status: session.Ptr(session.StatusRevealing),
	}, session.Ptr(session.StatusPlaying))
	if errors.Is(err, session.ErrConflict) {
		current, getErr := m.store.GetGame(ctx, gameID)
		if getErr == nil && current.Status == session.StatusRevealing && current.CurrentQuestion == g.CurrentQuestion {
			return m.currentReveal(ctx, current)
		}
	}
	if err != nil {
		return Reveal{}, fmt.Errorf("revealing round %d: %w", g.CurrentQuestion, err)
	}
	m.transitioned(g, updated)

	if fetched, err := m.store.ListAnswers(ctx, gameID, updated.CurrentQuestion); err == nil {
		answers = fetched
	} else {
		m.log.Warn("refetch reveal set failed", "game_id", gameID, "round", updated.CurrentQuestion, "error", err)
	}
	q, err := m.question(updated)
	if err != nil {
		return Reveal{}, err
	}
	return Reveal{Game: updated, Question: q, Answers: answers, Fresh: true}, nil
}

func (m *Machine) currentReveal(ctx context.Context, g session.Game) (Reveal, error) {
	answers, err := m.store.ListAnswers(ctx, g.ID, g.CurrentQuestion)
	if err != nil {
		return Reveal{}, err
	}
	q, err := m.question(g)
	if err != nil {
		return Reveal{}, err
	}
	return Reveal{Game: g, Question: q, Answers: answers}, nil
}

// Advance leaves a revealing round. Past the last round the game finishes
// and keeps its round index; otherwise the status write comes first and
// the has_answered reset second. A failed reset returns ErrPartialWrite
// along with the updated game; ResetRound completes it.
func (m *Machine) Advance(ctx context.Context, gameID string) (session.Game, error) {
	g, err := m.store.GetGame(ctx, gameID)
	if err != nil {
		return session.Game{}, err
	}
	if g.Status != session.StatusRevealing {
		return session.Game{}, fmt.Errorf("%w: cannot advance a %s game", session.ErrInvalidTransition, g.Status)
	}

	next := g.CurrentQuestion + 1
	if next >= g.RoundCount() {
		updated, err := m.store.UpdateGame(ctx, gameID, session.GameUpdate{
			Status: session.Ptr(session.StatusFinished),
		}, session.Ptr(session.StatusRevealing))
		if err != nil {
			return session.Game{}, fmt.Errorf("finishing game: %w", err)
		}
		m.transitioned(g, updated)
		return updated, nil
	}

	updated, err := m.store.UpdateGame(ctx, gameID, session.GameUpdate{
		Status:          session.Ptr(session.StatusPlaying),
		CurrentQuestion: session.Ptr(next),
	}, session.Ptr(session.StatusRevealing))
	if err != nil {
		return session.Game{}, fmt.Errorf("advancing to round %d: %w", next, err)
	}
	m.transitioned(g, updated)

	if err := m.store.ResetAnswered(ctx, gameID); err != nil {
		return updated, fmt.Errorf("%w: round %d started but answers were not reset: %v", session.ErrPartialWrite, next, err)
	}
	return updated, nil
}

// ResetRound clears has_answered for a playing round that nobody has
// answered yet. Any answer for the round proves the reset already ran.
func (m *Machine) ResetRound(ctx context.Context, gameID string) error {
	g, err := m.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Status != session.StatusPlaying {
		return nil
	}
	answers, err := m.store.ListAnswers(ctx, gameID, g.CurrentQuestion)
	if err != nil {
		return err
	}
	if len(answers) > 0 {
		return nil
	}
	if err := m.store.ResetAnswered(ctx, gameID); err != nil {
		return err
	}
	m.log.Info("round reset repaired", "game_id", gameID, "round", g.CurrentQuestion)
	return nil
}

// Authorize reports ErrNotHost unless hostID is the game's host.
func (m *Machine) Authorize(ctx context.Context, gameID, hostID string) error {
	g, err := m.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if !SameHost(g.HostID, hostID) {
		return session.ErrNotHost
	}
	return nil
}

func (m *Machine) question(g session.Game) (session.Question, error) {
	id, ok := g.QuestionID(g.CurrentQuestion)
	if !ok {
		return session.Question{}, fmt.Errorf("%w: round %d is outside the plan", session.ErrNotFound, g.CurrentQuestion)
	}
	q, ok := m.bank.Get(id)
	if !ok {
		return session.Question{}, fmt.Errorf("%w: question %d", session.ErrNotFound, id)
	}
	return q, nil
}

func (m *Machine) transitioned(from, to session.Game) {
	m.log.Info("game transitioned",
		"game_id", to.ID,
		"from", from.Status,
		"to", to.Status,
		"round", to.CurrentQuestion,
	)
}

// unanswered returns the players without an answer in answers.
func unanswered(players []session.Player, answers []session.Answer) []session.Player {
	have := make(map[string]bool, len(answers))
	for _, a := range answers {
		have[a.PlayerID] = true
	}
	var out []session.Player
	for _, p := range players {
		if !have[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

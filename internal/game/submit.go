package game

import (
	"context"
	"errors"
	"fmt"

	"geoquiz/internal/geo"
	"geoquiz/internal/session"
)

// Submission is one player's guess for a round.
type Submission struct {
	PlayerID   string  `json:"player_id"`
	GameID     string  `json:"game_id"`
	QuestionID int     `json:"question_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// Submit scores and records a guess. The answer row is written first and
// is unique per (player, round); the player update is conditional on
// has_answered still being false. A retry after the player update failed
// finds the stored answer and credits its score once.
func (m *Machine) Submit(ctx context.Context, sub Submission) (session.Answer, error) {
	guess := geo.Point{Lat: sub.Latitude, Lon: sub.Longitude}
	if err := guess.Validate(); err != nil {
		return session.Answer{}, fmt.Errorf("%w: %v", session.ErrValidation, err)
	}

	g, err := m.store.GetGame(ctx, sub.GameID)
	if err != nil {
		return session.Answer{}, err
	}
	if g.Status != session.StatusPlaying {
		return session.Answer{}, fmt.Errorf("%w: game is %s", session.ErrPrecondition, g.Status)
	}
	if sub.QuestionID != g.CurrentQuestion {
		return session.Answer{}, fmt.Errorf("%w: got round %d, current is %d", session.ErrStaleRound, sub.QuestionID, g.CurrentQuestion)
	}

	player, err := m.player(ctx, sub.GameID, sub.PlayerID)
	if err != nil {
		return session.Answer{}, err
	}
	if player.HasAnswered {
		return session.Answer{}, session.ErrAlreadyAnswered
	}

	q, err := m.question(g)
	if err != nil {
		return session.Answer{}, err
	}
	distance, score := geo.Evaluate(guess, q.Point())

	answer, err := m.store.InsertAnswer(ctx, session.Answer{
		PlayerID:   player.ID,
		GameID:     g.ID,
		QuestionID: g.CurrentQuestion,
		Latitude:   guess.Lat,
		Longitude:  guess.Lon,
		Distance:   distance,
		Score:      score,
	})
	if errors.Is(err, session.ErrAnswerExists) {
		return m.completeAnswer(ctx, g, player.ID)
	}
	if err != nil {
		return session.Answer{}, fmt.Errorf("storing answer: %w", err)
	}

	if err := m.credit(ctx, answer); err != nil && !errors.Is(err, session.ErrConflict) {
		return answer, fmt.Errorf("%w: answer %s stored but player not updated: %v", session.ErrPartialWrite, answer.ID, err)
	}
	m.log.Info("answer recorded",
		"game_id", g.ID,
		"player_id", player.ID,
		"round", answer.QuestionID,
		"score", answer.Score,
	)
	return answer, nil
}

// completeAnswer finishes a submission whose answer row already exists. It
// credits the stored score unless the player was already credited.
func (m *Machine) completeAnswer(ctx context.Context, g session.Game, playerID string) (session.Answer, error) {
	existing, err := m.store.FindAnswer(ctx, g.ID, playerID, g.CurrentQuestion)
	if err != nil {
		return session.Answer{}, fmt.Errorf("loading stored answer: %w", err)
	}
	err = m.credit(ctx, existing)
	switch {
	case errors.Is(err, session.ErrConflict):
		return session.Answer{}, session.ErrAlreadyAnswered
	case err != nil:
		return session.Answer{}, fmt.Errorf("%w: answer %s stored but player not updated: %v", session.ErrPartialWrite, existing.ID, err)
	}
	m.log.Info("answer recovered",
		"game_id", g.ID,
		"player_id", playerID,
		"round", existing.QuestionID,
		"score", existing.Score,
	)
	return existing, nil
}

func (m *Machine) credit(ctx context.Context, a session.Answer) error {
	_, err := m.store.UpdatePlayer(ctx, a.PlayerID, session.PlayerUpdate{
		AddScore:     a.Score,
		HasAnswered:  session.Ptr(true),
		WhenAnswered: session.Ptr(false),
	})
	return err
}

func (m *Machine) player(ctx context.Context, gameID, playerID string) (session.Player, error) {
	players, err := m.store.ListPlayers(ctx, gameID)
	if err != nil {
		return session.Player{}, err
	}
	for _, p := range players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return session.Player{}, fmt.Errorf("%w: player %s", session.ErrNotFound, playerID)
}

package game

import (
	"context"
	"fmt"

	"geoquiz/internal/session"
)

// QuestionView is what any client may see of the current round. The true
// location is zeroed until the round is revealed.
type QuestionView struct {
	Round           int              `json:"round"`
	RoundCount      int              `json:"round_count"`
	Status          session.Status   `json:"status"`
	Question        session.Question `json:"question"`
	LocationVisible bool             `json:"location_visible"`
}

func (m *Machine) CurrentQuestion(ctx context.Context, gameID string) (QuestionView, error) {
	g, err := m.store.GetGame(ctx, gameID)
	if err != nil {
		return QuestionView{}, err
	}
	q, err := m.question(g)
	if err != nil {
		return QuestionView{}, err
	}
	visible := locationVisible(g.Status)
	if !visible {
		q.Latitude, q.Longitude = 0, 0
	}
	return QuestionView{
		Round:           g.CurrentQuestion,
		RoundCount:      g.RoundCount(),
		Status:          g.Status,
		Question:        q,
		LocationVisible: visible,
	}, nil
}

// RoundAnswers returns the answers of a round that is no longer open.
func (m *Machine) RoundAnswers(ctx context.Context, gameID string, round int) ([]session.Answer, error) {
	g, err := m.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if round < 0 || round >= g.RoundCount() {
		return nil, fmt.Errorf("%w: round %d outside 0..%d", session.ErrValidation, round, g.RoundCount()-1)
	}
	if round > g.CurrentQuestion || (round == g.CurrentQuestion && !locationVisible(g.Status)) {
		return nil, fmt.Errorf("%w: round %d is not revealed yet", session.ErrPrecondition, round)
	}
	return m.store.ListAnswers(ctx, gameID, round)
}

func locationVisible(status session.Status) bool {
	return status == session.StatusRevealing || status == session.StatusFinished
}

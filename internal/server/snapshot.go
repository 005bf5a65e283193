package server

import (
	"context"

	"geoquiz/internal/session"
)

// gameState loads what any client may see of a game. Answers are only
// included once the current round is revealed.
func (s *Server) gameState(ctx context.Context, gameID string) (GameResponse, error) {
	store := s.machine.Store()
	g, err := store.GetGame(ctx, gameID)
	if err != nil {
		return GameResponse{}, err
	}
	players, err := store.ListPlayers(ctx, gameID)
	if err != nil {
		return GameResponse{}, err
	}
	answers := []session.Answer{}
	if g.Status == session.StatusRevealing || g.Status == session.StatusFinished {
		answers, err = store.ListAnswers(ctx, gameID, g.CurrentQuestion)
		if err != nil {
			return GameResponse{}, err
		}
	}
	if players == nil {
		players = []session.Player{}
	}
	return GameResponse{
		Game:      g.Public(),
		Players:   players,
		Standings: session.Standings(players),
		Answers:   answers,
	}, nil
}

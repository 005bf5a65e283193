package session

import "context"

// GameUpdate carries the fields to change on a game. Nil fields are left as is.
type GameUpdate struct {
	Status          *Status
	CurrentQuestion *int
}

// PlayerUpdate changes a player. AddScore is applied as an increment so
// concurrent writers cannot lose points.
type PlayerUpdate struct {
	AddScore    int
	HasAnswered *bool
	// WhenAnswered, if set, makes the update conditional on the stored
	// has_answered value; a mismatch fails with ErrConflict.
	WhenAnswered *bool
}

// Store is the session backend: row storage for games, players and answers
// plus a change feed scoped to one game.
type Store interface {
	CreateGame(ctx context.Context, game Game) (Game, error)
	GetGame(ctx context.Context, id string) (Game, error)
	// FindGameByCode looks up the unfinished game holding code.
	FindGameByCode(ctx context.Context, code string) (Game, error)
	// UpdateGame applies update. When expected is non-nil the stored status
	// must equal it or ErrConflict is returned and nothing changes.
	UpdateGame(ctx context.Context, id string, update GameUpdate, expected *Status) (Game, error)

	ListPlayers(ctx context.Context, gameID string) ([]Player, error)
	InsertPlayer(ctx context.Context, player Player) (Player, error)
	UpdatePlayer(ctx context.Context, id string, update PlayerUpdate) (Player, error)
	// ResetAnswered clears has_answered for every player of the game.
	ResetAnswered(ctx context.Context, gameID string) error

	// InsertAnswer stores answer unless one already exists for its
	// (player_id, question_id), in which case ErrAnswerExists is returned.
	InsertAnswer(ctx context.Context, answer Answer) (Answer, error)
	FindAnswer(ctx context.Context, gameID, playerID string, questionID int) (Answer, error)
	ListAnswers(ctx context.Context, gameID string, questionID int) ([]Answer, error)

	Subscribe(ctx context.Context, gameID string) (Subscription, error)
}

// Ptr returns a pointer to v, for building updates.
func Ptr[T any](v T) *T {
	return &v
}

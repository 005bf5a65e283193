package server

import (
	"geoquiz/internal/game"
	"geoquiz/internal/session"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateGameRequest struct {
	Rounds int `json:"rounds,omitempty" binding:"omitempty,min=1,max=20"`
}

type CreateGameResponse struct {
	GameID string `json:"game_id"`
	Code   string `json:"code"`
	HostID string `json:"host_id"`
	Rounds int    `json:"rounds"`
}

type JoinRequest struct {
	Code     string `json:"code" binding:"required,joincode"`
	Initials string `json:"initials" binding:"required,initials"`
}

type JoinResponse struct {
	GameID   string `json:"game_id"`
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
	Initials string `json:"initials"`
}

type HostRequest struct {
	HostID string `json:"host_id" binding:"required"`
}

type AnswerRequest struct {
	PlayerID   string   `json:"player_id" binding:"required"`
	QuestionID *int     `json:"question_id" binding:"required,min=0"`
	Latitude   *float64 `json:"latitude" binding:"required,latitude"`
	Longitude  *float64 `json:"longitude" binding:"required,longitude"`
}

type AnswerResponse struct {
	Answer session.Answer `json:"answer"`
}

type AnswersQuery struct {
	Round *int `form:"round" binding:"omitempty,min=0"`
}

type AnswersResponse struct {
	Round   int              `json:"round"`
	Answers []session.Answer `json:"answers"`
}

// GameResponse is the full state of a game as any client may see it.
type GameResponse struct {
	Game      session.Game       `json:"game"`
	Players   []session.Player   `json:"players"`
	Standings []session.Standing `json:"standings"`
	// Answers holds the current round's answers once it is revealed.
	Answers []session.Answer `json:"answers"`
}

type TransitionResponse struct {
	Game    session.Game `json:"game"`
	Warning string       `json:"warning,omitempty"`
}

type RevealResponse struct {
	Game     session.Game     `json:"game"`
	Question session.Question `json:"question"`
	Answers  []session.Answer `json:"answers"`
	Fresh    bool             `json:"fresh"`
}

type QuestionResponse = game.QuestionView

// HealthResponse maps each checked dependency to "ok" or "error".
type HealthResponse map[string]string

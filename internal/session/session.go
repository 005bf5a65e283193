// Package session defines the shared game records, the contract of the
// backing session store and its change feed, and the error taxonomy used by
// every client of the store.
package session

import (
	"time"

	"geoquiz/internal/geo"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusPlaying   Status = "playing"
	StatusRevealing Status = "revealing"
	StatusFinished  Status = "finished"
)

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusPlaying, StatusRevealing, StatusFinished:
		return true
	}
	return false
}

// Game is one hosted session. CurrentQuestion is the 0-based round index and
// QuestionIDs holds the question shown in each round.
type Game struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	Status          Status    `json:"status"`
	CurrentQuestion int       `json:"current_question"`
	HostID          string    `json:"host_id,omitempty"`
	QuestionIDs     []int     `json:"question_ids"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
}

// RoundCount is the number of rounds planned for the game.
func (g Game) RoundCount() int {
	return len(g.QuestionIDs)
}

// QuestionID returns the question planned for round, or false when the round
// is outside the plan.
func (g Game) QuestionID(round int) (int, bool) {
	if round < 0 || round >= len(g.QuestionIDs) {
		return 0, false
	}
	return g.QuestionIDs[round], true
}

// Public strips the host secret before the record leaves the host.
func (g Game) Public() Game {
	g.HostID = ""
	return g
}

type Player struct {
	ID          string    `json:"id"`
	GameID      string    `json:"game_id"`
	Initials    string    `json:"initials"`
	Score       int       `json:"score"`
	HasAnswered bool      `json:"has_answered"`
	CreatedAt   time.Time `json:"created_at"`
}

// Answer is one guess for one round. QuestionID is the 0-based round index
// the guess belongs to, not the id of the question content.
type Answer struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"player_id"`
	GameID     string    `json:"game_id"`
	QuestionID int       `json:"question_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Distance   float64   `json:"distance"`
	Score      int       `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

func (a Answer) Point() geo.Point {
	return geo.Point{Lat: a.Latitude, Lon: a.Longitude}
}

// Question is static quiz content. It is never mutated by a game.
type Question struct {
	ID        int     `json:"id"`
	Text      string  `json:"text"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Hint      string  `json:"hint,omitempty"`
	Image     string  `json:"image,omitempty"`
}

func (q Question) Point() geo.Point {
	return geo.Point{Lat: q.Latitude, Lon: q.Longitude}
}

// AllAnswered reports whether there is at least one player and every player
// has answered the current round.
func AllAnswered(players []Player) bool {
	if len(players) == 0 {
		return false
	}
	for _, p := range players {
		if !p.HasAnswered {
			return false
		}
	}
	return true
}

package db

import (
	"encoding/json"
	"time"

	"geoquiz/internal/session"

	"gorm.io/datatypes"
)

type Game struct {
	ID              string `gorm:"primaryKey;size:36"`
	Code            string `gorm:"size:6;not null;uniqueIndex:idx_games_live_code,where:status <> 'finished'"`
	Status          string `gorm:"size:16;not null;index"`
	CurrentQuestion int    `gorm:"not null;default:0"`
	HostID          string `gorm:"size:36;not null"`
	// QuestionIDs is the ordered round plan, stored as a JSON array.
	QuestionIDs datatypes.JSON `gorm:"type:jsonb;not null"`
	Version     int64          `gorm:"not null;default:1"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
	Players     []Player
}

type Player struct {
	ID          string    `gorm:"primaryKey;size:36"`
	GameID      string    `gorm:"size:36;index;not null"`
	Initials    string    `gorm:"size:3;not null"`
	Score       int       `gorm:"not null;default:0"`
	HasAnswered bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
	Answers     []Answer
}

type Answer struct {
	ID         string    `gorm:"primaryKey;size:36"`
	PlayerID   string    `gorm:"size:36;not null;uniqueIndex:idx_answers_player_question"`
	GameID     string    `gorm:"size:36;not null;index:idx_answers_game_question"`
	QuestionID int       `gorm:"not null;uniqueIndex:idx_answers_player_question;index:idx_answers_game_question"`
	Latitude   float64   `gorm:"not null"`
	Longitude  float64   `gorm:"not null"`
	Distance   float64   `gorm:"not null"`
	Score      int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

type Question struct {
	ID        int       `gorm:"primaryKey;autoIncrement:false"`
	Text      string    `gorm:"size:280;not null"`
	Latitude  float64   `gorm:"not null"`
	Longitude float64   `gorm:"not null"`
	Hint      string    `gorm:"size:280"`
	Image     string    `gorm:"size:512"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Event is the append-only change log. Payload holds the session.Event as
// published on the feed.
type Event struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    string         `gorm:"size:36;index;not null"`
	Table     string         `gorm:"column:table_name;size:16;not null"`
	Type      string         `gorm:"size:16;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}

func gameRecord(g session.Game) (Game, error) {
	ids := g.QuestionIDs
	if ids == nil {
		ids = []int{}
	}
	plan, err := json.Marshal(ids)
	if err != nil {
		return Game{}, err
	}
	return Game{
		ID:              g.ID,
		Code:            g.Code,
		Status:          string(g.Status),
		CurrentQuestion: g.CurrentQuestion,
		HostID:          g.HostID,
		QuestionIDs:     datatypes.JSON(plan),
		Version:         g.Version,
		CreatedAt:       g.CreatedAt,
	}, nil
}

func (g Game) session() (session.Game, error) {
	var ids []int
	if len(g.QuestionIDs) > 0 {
		if err := json.Unmarshal(g.QuestionIDs, &ids); err != nil {
			return session.Game{}, err
		}
	}
	return session.Game{
		ID:              g.ID,
		Code:            g.Code,
		Status:          session.Status(g.Status),
		CurrentQuestion: g.CurrentQuestion,
		HostID:          g.HostID,
		QuestionIDs:     ids,
		Version:         g.Version,
		CreatedAt:       g.CreatedAt.UTC(),
	}, nil
}

func (p Player) session() session.Player {
	return session.Player{
		ID:          p.ID,
		GameID:      p.GameID,
		Initials:    p.Initials,
		Score:       p.Score,
		HasAnswered: p.HasAnswered,
		CreatedAt:   p.CreatedAt.UTC(),
	}
}

func (a Answer) session() session.Answer {
	return session.Answer{
		ID:         a.ID,
		PlayerID:   a.PlayerID,
		GameID:     a.GameID,
		QuestionID: a.QuestionID,
		Latitude:   a.Latitude,
		Longitude:  a.Longitude,
		Distance:   a.Distance,
		Score:      a.Score,
		CreatedAt:  a.CreatedAt.UTC(),
	}
}

func (q Question) session() session.Question {
	return session.Question{
		ID:        q.ID,
		Text:      q.Text,
		Latitude:  q.Latitude,
		Longitude: q.Longitude,
		Hint:      q.Hint,
		Image:     q.Image,
	}
}

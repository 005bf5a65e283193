package web

import "time"

type ResultRow struct {
	Rank     int
	Initials string
	Score    int
}

type ResultsData struct {
	GameID     string
	Code       string
	Status     string
	Round      int
	RoundCount int
	CreatedAt  time.Time
	Rows       []ResultRow
}

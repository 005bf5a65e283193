package session

import "sort"

// Standing is a player's place in the game.
type Standing struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	Initials string `json:"initials"`
	Score    int    `json:"score"`
}

// Standings ranks players by score. Equal scores share a rank.
func Standings(players []Player) []Standing {
	sorted := append([]Player(nil), players...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		if sorted[i].Initials != sorted[j].Initials {
			return sorted[i].Initials < sorted[j].Initials
		}
		return sorted[i].ID < sorted[j].ID
	})
	out := make([]Standing, len(sorted))
	for i, p := range sorted {
		rank := i + 1
		if i > 0 && p.Score == sorted[i-1].Score {
			rank = out[i-1].Rank
		}
		out[i] = Standing{Rank: rank, PlayerID: p.ID, Initials: p.Initials, Score: p.Score}
	}
	return out
}

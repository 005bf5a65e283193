package reveal

import (
	"sort"

	"geoquiz/internal/session"
)

// Order returns the answers in reveal order: score descending, then player
// id, then answer id. Duplicate answer ids are dropped. The input is not
// modified.
func Order(answers []session.Answer) []session.Answer {
	seen := make(map[string]bool, len(answers))
	out := make([]session.Answer, 0, len(answers))
	for _, a := range answers {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].PlayerID != out[j].PlayerID {
			return out[i].PlayerID < out[j].PlayerID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

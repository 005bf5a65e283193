// Package questions holds the static question bank and picks the round plan
// for new games.
package questions

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"geoquiz/internal/session"
)

// Bank is an immutable set of questions keyed by id.
type Bank struct {
	byID map[int]session.Question
	ids  []int
}

// NewBank validates qs and builds a bank. Ids must be unique and every
// question needs text and a valid location.
func NewBank(qs []session.Question) (*Bank, error) {
	b := &Bank{byID: make(map[int]session.Question, len(qs))}
	for _, q := range qs {
		if strings.TrimSpace(q.Text) == "" {
			return nil, fmt.Errorf("%w: question %d has no text", session.ErrValidation, q.ID)
		}
		if err := q.Point().Validate(); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", session.ErrValidation, q.ID, err)
		}
		if _, dup := b.byID[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %d", session.ErrValidation, q.ID)
		}
		b.byID[q.ID] = q
		b.ids = append(b.ids, q.ID)
	}
	sort.Ints(b.ids)
	return b, nil
}

func (b *Bank) Len() int {
	return len(b.ids)
}

func (b *Bank) Get(id int) (session.Question, bool) {
	q, ok := b.byID[id]
	return q, ok
}

// All returns the questions ordered by id.
func (b *Bank) All() []session.Question {
	out := make([]session.Question, 0, len(b.ids))
	for _, id := range b.ids {
		out = append(out, b.byID[id])
	}
	return out
}

// Pick returns n distinct question ids in random order. n is capped at the
// bank size.
func (b *Bank) Pick(n int) []int {
	if n > len(b.ids) {
		n = len(b.ids)
	}
	if n <= 0 {
		return []int{}
	}
	perm := rand.Perm(len(b.ids))
	out := make([]int, n)
	for i := range out {
		out[i] = b.ids[perm[i]]
	}
	return out
}

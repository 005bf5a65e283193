// Package reveal plays out a round's answers on the host's map: the true
// location first, then every answer best score first, then an overview.
package reveal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"geoquiz/internal/geo"
	"geoquiz/internal/session"
)

var ErrAlreadyRevealing = fmt.Errorf("%w: a reveal is already running", session.ErrPrecondition)

type MarkerKind string

const (
	MarkerTruth  MarkerKind = "truth"
	MarkerAnswer MarkerKind = "answer"
)

type Marker struct {
	Kind     MarkerKind `json:"kind"`
	Point    geo.Point  `json:"point"`
	Round    int        `json:"round"`
	PlayerID string     `json:"player_id,omitempty"`
	Label    string     `json:"label,omitempty"`
	Score    int        `json:"score,omitempty"`
	Distance float64    `json:"distance,omitempty"`
	// Rank is the 1-based reveal position of an answer.
	Rank int `json:"rank,omitempty"`
}

// MapView is the set of map operations the sequencer drives.
type MapView interface {
	Center(ctx context.Context, p geo.Point, zoom int, duration time.Duration) error
	ShowMarker(ctx context.Context, m Marker) error
	FitBounds(ctx context.Context, points []geo.Point, duration time.Duration) error
}

// Timing paces a reveal.
type Timing struct {
	CenterDuration time.Duration
	// TopDelay follows each of the first TopN answers, Delay every other.
	TopDelay  time.Duration
	Delay     time.Duration
	TopN      int
	TruthZoom int
	FocusZoom int
}

func DefaultTiming() Timing {
	return Timing{
		CenterDuration: 2 * time.Second,
		TopDelay:       3 * time.Second,
		Delay:          time.Second,
		TopN:           3,
		TruthZoom:      5,
		FocusZoom:      8,
	}
}

type run struct {
	round  int
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Sequencer runs at most one reveal at a time.
type Sequencer struct {
	view   MapView
	timing Timing
	log    *slog.Logger

	mu  sync.Mutex
	cur *run
}

func NewSequencer(view MapView, timing Timing, log *slog.Logger) *Sequencer {
	return &Sequencer{view: view, timing: timing, log: log}
}

// Start begins revealing answers for round. It fails with
// ErrAlreadyRevealing while an earlier sequence is still running. labels
// maps player ids to display names.
func (s *Sequencer) Start(ctx context.Context, round int, truth geo.Point, answers []session.Answer, labels map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil {
		select {
		case <-s.cur.done:
		default:
			return ErrAlreadyRevealing
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{round: round, cancel: cancel, done: make(chan struct{})}
	s.cur = r
	ordered := Order(answers)
	go func() {
		defer close(r.done)
		defer cancel()
		r.err = s.play(runCtx, round, truth, ordered, labels)
		if r.err != nil && !errors.Is(r.err, context.Canceled) {
			s.log.Warn("reveal sequence stopped", "round", round, "error", r.err)
		}
	}()
	return nil
}

// Cancel stops the running sequence and waits for it to exit. No MapView
// call is made by that sequence once Cancel returns.
func (s *Sequencer) Cancel() {
	s.mu.Lock()
	r := s.cur
	s.mu.Unlock()
	if r == nil {
		return
	}
	r.cancel()
	<-r.done
}

// Wait blocks until the current sequence exits and returns its error.
func (s *Sequencer) Wait() error {
	s.mu.Lock()
	r := s.cur
	s.mu.Unlock()
	if r == nil {
		return nil
	}
	<-r.done
	return r.err
}

// Running reports the round of the sequence in progress, if any.
func (s *Sequencer) Running() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return 0, false
	}
	select {
	case <-s.cur.done:
		return 0, false
	default:
		return s.cur.round, true
	}
}

func (s *Sequencer) play(ctx context.Context, round int, truth geo.Point, ordered []session.Answer, labels map[string]string) error {
	t := s.timing
	if err := s.step(ctx, func() error { return s.view.Center(ctx, truth, t.TruthZoom, t.CenterDuration) }); err != nil {
		return err
	}
	if err := sleep(ctx, t.CenterDuration); err != nil {
		return err
	}
	if err := s.step(ctx, func() error {
		return s.view.ShowMarker(ctx, Marker{Kind: MarkerTruth, Point: truth, Round: round})
	}); err != nil {
		return err
	}

	points := []geo.Point{truth}
	for i, a := range ordered {
		top := i < t.TopN
		if top {
			if err := s.step(ctx, func() error { return s.view.Center(ctx, a.Point(), t.FocusZoom, t.CenterDuration) }); err != nil {
				return err
			}
			if err := sleep(ctx, t.CenterDuration); err != nil {
				return err
			}
		}
		marker := Marker{
			Kind:     MarkerAnswer,
			Point:    a.Point(),
			Round:    round,
			PlayerID: a.PlayerID,
			Label:    labels[a.PlayerID],
			Score:    a.Score,
			Distance: a.Distance,
			Rank:     i + 1,
		}
		if err := s.step(ctx, func() error { return s.view.ShowMarker(ctx, marker) }); err != nil {
			return err
		}
		points = append(points, a.Point())
		delay := t.Delay
		if top {
			delay = t.TopDelay
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return s.step(ctx, func() error { return s.view.FitBounds(ctx, points, t.CenterDuration) })
}

// step runs fn unless ctx is already done.
func (s *Sequencer) step(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

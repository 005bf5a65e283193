// Package host runs the host side of a game: it mirrors the game, reveals
// automatically once every player has answered, plays the reveal sequence
// and repairs an interrupted round reset.
package host

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"geoquiz/internal/game"
	"geoquiz/internal/mirror"
	"geoquiz/internal/reveal"
	"geoquiz/internal/session"

	"golang.org/x/sync/errgroup"
)

type Options struct {
	AutoReveal bool
	Timing     reveal.Timing
	Mirror     mirror.Options
	// ResetRetry is the delay between attempts to finish a failed
	// has_answered reset.
	ResetRetry time.Duration
}

const defaultResetRetry = 2 * time.Second

type Session struct {
	gameID  string
	machine *game.Machine
	mirror  *mirror.Mirror
	seq     *reveal.Sequencer
	opts    Options
	log     *slog.Logger
	kick    chan struct{}

	mu            sync.Mutex
	revealedRound int
	resetPending  bool
	// epoch counts advances; a reveal started under an older epoch is stale.
	epoch     uint64
	advancing int
}

func NewSession(machine *game.Machine, gameID string, view reveal.MapView, log *slog.Logger, opts Options) *Session {
	if opts.ResetRetry <= 0 {
		opts.ResetRetry = defaultResetRetry
	}
	glog := log.With("game_id", gameID)
	s := &Session{
		gameID:        gameID,
		machine:       machine,
		seq:           reveal.NewSequencer(view, opts.Timing, glog),
		opts:          opts,
		log:           glog,
		kick:          make(chan struct{}, 1),
		revealedRound: -1,
	}
	mopts := opts.Mirror
	onChange := mopts.OnChange
	mopts.OnChange = func(snap mirror.Snapshot) {
		if onChange != nil {
			onChange(snap)
		}
		s.signal()
	}
	s.mirror = mirror.New(machine.Store(), gameID, log, mopts)
	return s
}

func (s *Session) GameID() string {
	return s.gameID
}

func (s *Session) Snapshot() mirror.Snapshot {
	return s.mirror.Snapshot()
}

// Run mirrors the game and reacts to it until ctx ends or the game is
// finished.
func (s *Session) Run(ctx context.Context) error {
	defer s.seq.Cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.mirror.Run(ctx) })
	g.Go(func() error { return s.loop(ctx) })
	err := g.Wait()
	if errors.Is(err, errFinished) {
		return nil
	}
	return err
}

var errFinished = errors.New("game finished")

func (s *Session) Start(ctx context.Context) (session.Game, error) {
	return s.machine.Start(ctx, s.gameID)
}

// Reveal reveals the current round and plays the sequence for it.
func (s *Session) Reveal(ctx context.Context) (game.Reveal, error) {
	r, err := s.machine.Reveal(ctx, s.gameID)
	if err != nil {
		return r, err
	}
	s.signal()
	return r, nil
}

// Advance stops any running reveal before leaving the round. A failed
// has_answered reset is retried in the background.
func (s *Session) Advance(ctx context.Context) (session.Game, error) {
	s.mu.Lock()
	s.epoch++
	s.advancing++
	s.mu.Unlock()
	s.seq.Cancel()
	g, err := s.machine.Advance(ctx, s.gameID)
	s.mu.Lock()
	s.advancing--
	s.mu.Unlock()
	switch {
	case errors.Is(err, session.ErrPartialWrite):
		s.mu.Lock()
		s.resetPending = true
		s.mu.Unlock()
		s.log.Warn("round reset incomplete, will retry", "round", g.CurrentQuestion, "error", err)
	case err != nil:
		// The round is still revealing; let the sequence play again.
		s.mu.Lock()
		s.revealedRound = -1
		s.mu.Unlock()
	}
	s.signal()
	return g, err
}

func (s *Session) signal() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Session) loop(ctx context.Context) error {
	retry := time.NewTicker(s.opts.ResetRetry)
	defer retry.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.kick:
		case <-retry.C:
		}
		if err := s.react(ctx, s.mirror.Snapshot()); err != nil {
			return err
		}
	}
}

func (s *Session) react(ctx context.Context, snap mirror.Snapshot) error {
	if !snap.Loaded {
		return nil
	}
	g := snap.Game
	if round, running := s.seq.Running(); running && (round != g.CurrentQuestion || g.Status != session.StatusRevealing) {
		s.log.Info("cancelling stale reveal", "reveal_round", round, "round", g.CurrentQuestion, "status", g.Status)
		s.seq.Cancel()
	}

	s.repairReset(ctx, g)

	switch g.Status {
	case session.StatusPlaying:
		if s.opts.AutoReveal && snap.AllAnswered() {
			_, err := s.machine.Reveal(ctx, s.gameID)
			switch {
			case err == nil:
			case errors.Is(err, session.ErrPrecondition), errors.Is(err, session.ErrConflict):
				s.log.Debug("auto reveal skipped", "round", g.CurrentQuestion, "error", err)
			default:
				s.log.Warn("auto reveal failed", "round", g.CurrentQuestion, "error", err)
			}
		}
	case session.StatusRevealing:
		s.playReveal(ctx, snap)
	case session.StatusFinished:
		if _, running := s.seq.Running(); !running {
			return errFinished
		}
	}
	return nil
}

// playReveal starts the sequence for the revealing round once. The answer
// set comes from an explicit fetch, not from the mirror. The sequence is
// started under s.mu only if no advance began since the fetch, so Advance
// either sees it running and cancels it or it never starts.
func (s *Session) playReveal(ctx context.Context, snap mirror.Snapshot) {
	round := snap.Game.CurrentQuestion
	s.mu.Lock()
	done := s.revealedRound == round || s.advancing > 0
	epoch := s.epoch
	s.mu.Unlock()
	if done {
		return
	}

	r, err := s.machine.Reveal(ctx, s.gameID)
	if err != nil {
		s.log.Warn("loading reveal set failed", "round", round, "error", err)
		return
	}
	if r.Game.Status != session.StatusRevealing || r.Game.CurrentQuestion != round {
		return
	}
	labels := make(map[string]string, len(snap.Players))
	for _, p := range snap.Players {
		labels[p.ID] = p.Initials
	}

	s.mu.Lock()
	if s.epoch != epoch || s.advancing > 0 {
		s.mu.Unlock()
		s.log.Debug("reveal set outdated by advance", "round", round)
		return
	}
	err = s.seq.Start(ctx, round, r.Question.Point(), r.Answers, labels)
	if err == nil {
		s.revealedRound = round
	}
	s.mu.Unlock()
	if errors.Is(err, reveal.ErrAlreadyRevealing) {
		return
	}
	if err != nil {
		s.log.Warn("reveal sequence not started", "round", round, "error", err)
		return
	}
	s.log.Info("reveal sequence started", "round", round, "answers", len(r.Answers))
}

func (s *Session) repairReset(ctx context.Context, g session.Game) {
	s.mu.Lock()
	pending := s.resetPending
	s.mu.Unlock()
	if !pending {
		return
	}
	if err := s.machine.ResetRound(ctx, g.ID); err != nil {
		s.log.Warn("round reset retry failed", "round", g.CurrentQuestion, "error", err)
		return
	}
	s.mu.Lock()
	s.resetPending = false
	s.mu.Unlock()
}

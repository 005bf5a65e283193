package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"geoquiz/internal/client"
	"geoquiz/internal/game"
	"geoquiz/internal/mirror"
	"geoquiz/internal/session"
)

var errGameOver = errors.New("game over")

const initialsSymbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// botInitials returns "BA", "BB", ... for i < 26 and three letters after.
func botInitials(i int) string {
	if i < len(initialsSymbols) {
		return "B" + string(initialsSymbols[i])
	}
	i -= len(initialsSymbols)
	return "B" + string(initialsSymbols[(i/len(initialsSymbols))%len(initialsSymbols)]) + string(initialsSymbols[i%len(initialsSymbols)])
}

// bot joins a game and answers every round with a random location.
type bot struct {
	client   *client.Client
	initials string
	think    time.Duration

	playerID string
	answered int
}

func (b *bot) run(ctx context.Context, code string, log *slog.Logger) error {
	joined, err := b.client.Join(ctx, code, b.initials)
	if err != nil {
		return fmt.Errorf("bot %s joining: %w", b.initials, err)
	}
	b.playerID = joined.PlayerID
	b.answered = -1
	log = log.With("bot", joined.Initials, "game_id", joined.GameID)
	log.Info("bot joined")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	kick := make(chan mirror.Snapshot, 1)
	m := mirror.New(b.client, joined.GameID, log, mirror.Options{
		OnChange: func(s mirror.Snapshot) {
			select {
			case <-kick:
			default:
			}
			kick <- s
		},
	})
	mirrorDone := make(chan error, 1)
	go func() { mirrorDone <- m.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-mirrorDone:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case snap := <-kick:
			err := b.react(ctx, snap, log)
			if errors.Is(err, errGameOver) {
				return nil
			}
			if err != nil {
				log.Warn("bot action failed", "error", err)
			}
		}
	}
}

func (b *bot) react(ctx context.Context, snap mirror.Snapshot, log *slog.Logger) error {
	if !snap.Loaded {
		return nil
	}
	switch snap.Game.Status {
	case session.StatusFinished:
		if me, ok := snap.Player(b.playerID); ok {
			log.Info("game finished", "score", me.Score)
		}
		return errGameOver
	case session.StatusPlaying:
	default:
		return nil
	}
	round := snap.Game.CurrentQuestion
	if b.answered >= round {
		return nil
	}
	if b.think > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(rand.N(b.think)):
		}
	}
	a, err := b.client.Submit(ctx, game.Submission{
		PlayerID:   b.playerID,
		GameID:     snap.Game.ID,
		QuestionID: round,
		Latitude:   rand.Float64()*180 - 90,
		Longitude:  rand.Float64()*360 - 180,
	})
	if errors.Is(err, session.ErrPrecondition) {
		// The round moved on or its has_answered reset has not landed yet.
		// The next change retries.
		log.Debug("answer not accepted yet", "round", round, "error", err)
		return nil
	}
	if err != nil {
		return err
	}
	b.answered = round
	log.Info("bot answered", "round", round, "score", a.Score, "distance_m", int(a.Distance))
	return nil
}

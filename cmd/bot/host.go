package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"geoquiz/internal/client"
	"geoquiz/internal/mirror"
	"geoquiz/internal/session"
)

// hoster starts a created game once every bot has joined and advances each
// round a short pause after it is revealed. Reveals are left to the server.
type hoster struct {
	client  *client.Client
	game    client.Created
	players int
	pause   time.Duration
	log     *slog.Logger
}

func (h *hoster) run(ctx context.Context) error {
	sub, err := h.client.SubscribeHost(ctx, h.game.GameID, h.game.HostID, func(cmd client.MapCommand) {
		if cmd.Op == "marker" && cmd.Marker != nil {
			h.log.Info("reveal marker",
				"kind", cmd.Marker.Kind,
				"label", cmd.Marker.Label,
				"rank", cmd.Marker.Rank,
				"score", cmd.Marker.Score,
			)
		}
	})
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	kick := make(chan mirror.Snapshot, 1)
	m := mirror.New(h.client, h.game.GameID, h.log, mirror.Options{
		OnChange: func(s mirror.Snapshot) {
			select {
			case <-kick:
			default:
			}
			kick <- s
		},
	})
	go func() { _ = m.Run(ctx) }()

	advanced := -1
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-kick:
			switch snap.Game.Status {
			case session.StatusWaiting:
				if len(snap.Players) < h.players {
					continue
				}
				if _, err := h.client.Start(ctx, h.game.GameID, h.game.HostID); err != nil && !errors.Is(err, session.ErrPrecondition) {
					h.log.Warn("start failed", "error", err)
				}
			case session.StatusRevealing:
				round := snap.Game.CurrentQuestion
				if advanced >= round {
					continue
				}
				advanced = round
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(h.pause):
				}
				_, err := h.client.Advance(ctx, h.game.GameID, h.game.HostID)
				switch {
				case errors.Is(err, session.ErrPartialWrite):
					h.log.Warn("advance partly applied", "round", round, "error", err)
				case err != nil:
					h.log.Warn("advance failed, retrying on next change", "round", round, "error", err)
					advanced = round - 1
				}
			case session.StatusFinished:
				for _, st := range session.Standings(snap.Players) {
					h.log.Info("final standing", "rank", st.Rank, "initials", st.Initials, "score", st.Score)
				}
				return nil
			}
		}
	}
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geoquiz/internal/client"

	"golang.org/x/sync/errgroup"
)

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "geoquiz server base URL")
	code := flag.String("code", "", "join code of the game to play; empty creates a new game and hosts it")
	bots := flag.Int("bots", 3, "number of simulated players")
	rounds := flag.Int("rounds", 0, "rounds for a created game, 0 for the server default")
	think := flag.Duration("think", 2*time.Second, "maximum delay before a bot answers")
	pause := flag.Duration("pause", 5*time.Second, "delay between a reveal and the next round when hosting")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(*serverURL, nil)
	var h *hoster
	joinCode := *code
	if joinCode == "" {
		created, err := c.CreateGame(ctx, *rounds)
		if err != nil {
			log.Error("create game failed", "error", err)
			os.Exit(1)
		}
		log.Info("game created", "game_id", created.GameID, "code", created.Code, "rounds", created.Rounds)
		joinCode = created.Code
		h = &hoster{client: c, game: created, players: *bots, pause: *pause, log: log.With("role", "host")}
	}

	g, ctx := errgroup.WithContext(ctx)
	if h != nil {
		g.Go(func() error { return h.run(ctx) })
	}
	for i := 0; i < *bots; i++ {
		b := &bot{client: c, initials: botInitials(i), think: *think}
		g.Go(func() error { return b.run(ctx, joinCode, log) })
	}
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error("bots stopped", "error", err)
		os.Exit(1)
	}
}

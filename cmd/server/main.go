package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geoquiz/internal/config"
	"geoquiz/internal/game"
	"geoquiz/internal/host"
	"geoquiz/internal/mirror"
	"geoquiz/internal/reveal"
	"geoquiz/internal/server"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.LoadDotEnv(".env.local", ".env"); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	b, err := openBackend(ctx, g, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	machine := game.NewMachine(b.store, b.bank, log, cfg.RoundsPerGame)
	timing := reveal.DefaultTiming()
	timing.CenterDuration = cfg.RevealCenterDuration
	timing.TopDelay = cfg.RevealTopDelay
	timing.Delay = cfg.RevealDelay
	srv := server.New(ctx, machine, log, server.Options{
		Host: host.Options{
			AutoReveal: cfg.AutoReveal,
			Timing:     timing,
			Mirror: mirror.Options{
				RefetchInterval:    cfg.RefetchInterval,
				ResubscribeBackoff: cfg.ResubscribeBackoff,
			},
		},
		Checks: b.checks,
	})

	gin.SetMode(gin.ReleaseMode)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Info("geoquiz server listening",
			"addr", cfg.HTTPAddr,
			"store", cfg.StoreBackend,
			"questions", b.bank.Len(),
			"auto_reveal", cfg.AutoReveal,
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Close()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

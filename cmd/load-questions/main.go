package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"geoquiz/internal/config"
	"geoquiz/internal/db"
	"geoquiz/internal/questions"
)

func main() {
	filePath := flag.String("file", "", "path to a questions csv; the built-in bank when empty")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		fatal("invalid configuration", err)
	}

	bank := questions.Default()
	if *filePath != "" {
		qs, err := questions.LoadCSV(*filePath)
		if err != nil {
			fatal("failed to read questions", err)
		}
		if bank, err = questions.NewBank(qs); err != nil {
			fatal("invalid questions", err)
		}
	}

	conn, err := db.Open(cfg.DatabaseURL, db.Pool{MaxOpenConns: 2})
	if err != nil {
		fatal("database connection failed", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := db.LoadQuestionBank(ctx, conn, bank.All())
	if err != nil {
		fatal("failed to load questions", err)
	}
	slog.Info("loaded questions", "count", n, "file", *filePath)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

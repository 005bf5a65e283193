package main

import (
	"context"
	"fmt"
	"log/slog"

	"geoquiz/internal/config"
	"geoquiz/internal/db"
	"geoquiz/internal/feed"
	"geoquiz/internal/memstore"
	"geoquiz/internal/questions"
	"geoquiz/internal/server"
	"geoquiz/internal/session"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type backend struct {
	store   session.Store
	bank    *questions.Bank
	checks  map[string]server.Checker
	closers []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend builds the session store and question bank named by cfg.
// Background work, such as the Postgres listener, runs in g.
func openBackend(ctx context.Context, g *errgroup.Group, cfg config.Config, log *slog.Logger) (*backend, error) {
	if cfg.StoreBackend == config.StoreMemory {
		store := memstore.New()
		bank, err := fileOrDefaultBank(cfg.QuestionsFile)
		if err != nil {
			return nil, err
		}
		return &backend{
			store:  store,
			bank:   bank,
			checks: map[string]server.Checker{"store": store},
		}, nil
	}

	b := &backend{checks: map[string]server.Checker{}}
	conn, err := db.Open(cfg.DatabaseURL, db.Pool{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if sqlDB, err := conn.DB(); err == nil {
		b.closers = append(b.closers, func() { _ = sqlDB.Close() })
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(conn, log); err != nil {
			b.close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
	}

	f, err := openFeed(ctx, g, b, cfg, log)
	if err != nil {
		b.close()
		return nil, err
	}
	store := db.NewStore(conn, f, log)
	b.store = store
	b.checks["database"] = store

	if b.bank, err = databaseBank(ctx, conn, cfg.QuestionsFile, log); err != nil {
		b.close()
		return nil, err
	}
	return b, nil
}

func openFeed(ctx context.Context, g *errgroup.Group, b *backend, cfg config.Config, log *slog.Logger) (feed.Feed, error) {
	switch cfg.FeedBackend {
	case config.FeedRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		b.closers = append(b.closers, func() { _ = client.Close() })
		f := feed.NewRedis(client, "", log)
		b.checks["feed"] = f
		return f, nil
	default:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening listener pool: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		f := feed.NewPostgres(pool, feed.DefaultPostgresChannel, log)
		g.Go(func() error { return f.Run(ctx) })
		b.checks["feed"] = f
		return f, nil
	}
}

func fileOrDefaultBank(path string) (*questions.Bank, error) {
	if path == "" {
		return questions.Default(), nil
	}
	qs, err := questions.LoadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("loading questions: %w", err)
	}
	return questions.NewBank(qs)
}

// databaseBank loads the questions table, seeding it from the questions file
// or the built-in bank when it is empty or a file is given.
func databaseBank(ctx context.Context, conn *gorm.DB, path string, log *slog.Logger) (*questions.Bank, error) {
	if path == "" {
		stored, err := db.ListQuestions(ctx, conn)
		if err != nil {
			return nil, fmt.Errorf("listing questions: %w", err)
		}
		if len(stored) > 0 {
			return questions.NewBank(stored)
		}
	}
	bank, err := fileOrDefaultBank(path)
	if err != nil {
		return nil, err
	}
	n, err := db.LoadQuestionBank(ctx, conn, bank.All())
	if err != nil {
		return nil, fmt.Errorf("seeding questions: %w", err)
	}
	log.Info("question bank seeded", "questions", n)
	return bank, nil
}

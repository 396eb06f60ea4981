// Package bootstrap initializes shared infrastructure: logging, the
// optional database, and the FAQ knowledge base.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"log/slog"

	coreconfig "supportbot/core/config"
	coredatabase "supportbot/core/database"
	"supportbot/core/logger"
	"supportbot/internal/faq"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(coreconfig.DatabaseConfig) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB      *sqlx.DB
	Entries []faq.Entry
}

// Run initializes the logger, connects to the database when one is
// configured, applies migrations, and loads the knowledge base. The
// knowledge base source is, in order of preference: database, FAQ file,
// built-in defaults.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.Init
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}

	if cfg.Database.Enabled {
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		db, err := connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}

		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(cfg.Database); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		res.DB = db
	}

	entries, source, err := loadEntries(ctx, cfg, res.DB)
	if err != nil {
		if res.DB != nil {
			_ = res.DB.Close()
		}
		return nil, err
	}
	res.Entries = entries

	logger.L.With("component", "app").Info("faq loaded",
		slog.String("event", "faq.loaded"),
		slog.String("source", source),
		slog.Int("faq_entries", len(entries)),
	)
	return res, nil
}

func loadEntries(ctx context.Context, cfg *coreconfig.Config, db *sqlx.DB) ([]faq.Entry, string, error) {
	if db != nil {
		entries, err := faq.LoadFromDB(ctx, db)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: %w", err)
		}
		if len(entries) > 0 {
			return entries, "database", nil
		}
		// An empty table falls through to the other sources.
	}
	if cfg.Support.FAQFile != "" {
		entries, err := faq.LoadFromFile(cfg.Support.FAQFile)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: %w", err)
		}
		return entries, "file", nil
	}
	return faq.Defaults(), "defaults", nil
}

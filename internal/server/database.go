package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
	repo "github.com/joseph-ayodele/gst-invoices/internal/repository"
)

// ConnectRepository opens Postgres when a DSN is configured and SQLite
// otherwise, then pings it.
func ConnectRepository(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (repo.InvoiceRepository, error) {
	if cfg.DSN == "" {
		r, err := repo.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			logger.Error("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
			return nil, err
		}
		return r, nil
	}

	pool, err := repo.Open(ctx, repo.Config{
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := repo.HealthCheck(ctx, pool, 5*time.Second, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return repo.NewPostgresRepository(pool, logger), nil
}

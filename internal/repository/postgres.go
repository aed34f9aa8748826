package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/gst-invoices/constants"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/entity"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS invoices (
	id           uuid PRIMARY KEY,
	filename     text NOT NULL,
	content_type text NOT NULL,
	blob_path    text NOT NULL DEFAULT '',
	status       text NOT NULL,
	error        text NOT NULL DEFAULT '',
	result       jsonb,
	is_corrected boolean NOT NULL DEFAULT false,
	created_at   timestamptz NOT NULL,
	updated_at   timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS invoices_created_at_idx ON invoices (created_at DESC);
`

// Open creates a pgx pool and applies the invoices schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("connecting to database", "driver", "postgres")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database url", "error", err)
		return nil, common.Configurationf("parse DB_URL: %v", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "gst-invoices"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewAppError(common.CodeResourceUnavailable, "connect to postgres", errors.Join(common.ErrResourceUnavailable, err))
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		logger.Error("failed to apply schema", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database")
	return pool, nil
}

// HealthCheck pings the pool to catch DSN issues early.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

type postgresRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresRepository(pool *pgxpool.Pool, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &postgresRepository{pool: pool, logger: logger}
}

func (r *postgresRepository) Create(ctx context.Context, rec *entity.InvoiceRecord) error {
	var result []byte
	if rec.Result != nil {
		b, err := encodeResult(*rec.Result)
		if err != nil {
			return err
		}
		result = b
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO invoices (id, filename, content_type, blob_path, status, error, result, is_corrected, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.Filename, rec.ContentType, rec.BlobPath, string(rec.Status), rec.Error, result,
		rec.IsCorrected, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create invoice", "invoice_id", rec.ID, "error", err)
		return err
	}
	return nil
}

const postgresSelect = `SELECT id, filename, content_type, blob_path, status, error, result, is_corrected, created_at, updated_at FROM invoices`

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (*entity.InvoiceRecord, error) {
	rec, err := scanPostgres(r.pool.QueryRow(ctx, postgresSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("invoice %s", id)
	}
	if err != nil {
		r.logger.Error("failed to get invoice", "invoice_id", id, "error", err)
		return nil, err
	}
	return rec, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.InvoiceStatus, errMsg string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET status = $2, error = $3, updated_at = $4 WHERE id = $1`,
		id, string(status), errMsg, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("failed to update invoice status", "invoice_id", id, "status", status, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundf("invoice %s", id)
	}
	return nil
}

func (r *postgresRepository) SaveResult(ctx context.Context, id uuid.UUID, result entity.InvoiceResult, status constants.InvoiceStatus, corrected bool) error {
	b, err := encodeResult(result)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET result = $2, status = $3, error = '', is_corrected = $4, updated_at = $5 WHERE id = $1`,
		id, b, string(status), corrected, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("failed to save invoice result", "invoice_id", id, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundf("invoice %s", id)
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context, limit int) ([]*entity.InvoiceRecord, error) {
	rows, err := r.pool.Query(ctx, postgresSelect+` ORDER BY created_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		r.logger.Error("failed to list invoices", "error", err)
		return nil, err
	}
	defer rows.Close()

	out := make([]*entity.InvoiceRecord, 0)
	for rows.Next() {
		rec, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return HealthCheck(ctx, r.pool, 2*time.Second, r.logger)
}

func (r *postgresRepository) Close() {
	r.logger.Info("closing database connections")
	r.pool.Close()
	r.logger.Info("database connections closed")
}

func scanPostgres(row pgx.Row) (*entity.InvoiceRecord, error) {
	var (
		rec    entity.InvoiceRecord
		status string
		result []byte
	)
	if err := row.Scan(&rec.ID, &rec.Filename, &rec.ContentType, &rec.BlobPath, &status, &rec.Error,
		&result, &rec.IsCorrected, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = constants.InvoiceStatus(status)
	res, err := decodeResult(result)
	if err != nil {
		return nil, err
	}
	rec.Result = res
	return &rec, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/gst-invoices/constants"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/entity"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS invoices (
	id           TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	content_type TEXT NOT NULL,
	blob_path    TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	result       TEXT,
	is_corrected INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS invoices_created_at_idx ON invoices (created_at DESC);
`

// sqliteTime sorts lexically in the same order as the instants it encodes.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

type sqliteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database file at path and applies
// the schema. Writes are serialized through a single connection.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (InvoiceRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "driver", "sqlite", "path", path)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, common.Configurationf("create sqlite dir %q: %v", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		logger.Error("failed to apply schema", "error", err)
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	logger.Info("successfully connected to database")
	return &sqliteRepository{db: db, logger: logger}, nil
}

func (r *sqliteRepository) Create(ctx context.Context, rec *entity.InvoiceRecord) error {
	var result any
	if rec.Result != nil {
		b, err := encodeResult(*rec.Result)
		if err != nil {
			return err
		}
		result = string(b)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invoices (id, filename, content_type, blob_path, status, error, result, is_corrected, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Filename, rec.ContentType, rec.BlobPath, string(rec.Status), rec.Error, result,
		rec.IsCorrected, formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("failed to create invoice", "invoice_id", rec.ID, "error", err)
		return err
	}
	return nil
}

const sqliteSelect = `SELECT id, filename, content_type, blob_path, status, error, result, is_corrected, created_at, updated_at FROM invoices`

func (r *sqliteRepository) Get(ctx context.Context, id uuid.UUID) (*entity.InvoiceRecord, error) {
	rec, err := scanSQLite(r.db.QueryRowContext(ctx, sqliteSelect+` WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("invoice %s", id)
	}
	if err != nil {
		r.logger.Error("failed to get invoice", "invoice_id", id, "error", err)
		return nil, err
	}
	return rec, nil
}

func (r *sqliteRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.InvoiceStatus, errMsg string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), errMsg, formatTime(time.Now()), id.String(),
	)
	if err != nil {
		r.logger.Error("failed to update invoice status", "invoice_id", id, "status", status, "error", err)
		return err
	}
	return affectedOne(res, id)
}

func (r *sqliteRepository) SaveResult(ctx context.Context, id uuid.UUID, result entity.InvoiceResult, status constants.InvoiceStatus, corrected bool) error {
	b, err := encodeResult(result)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET result = ?, status = ?, error = '', is_corrected = ?, updated_at = ? WHERE id = ?`,
		string(b), string(status), corrected, formatTime(time.Now()), id.String(),
	)
	if err != nil {
		r.logger.Error("failed to save invoice result", "invoice_id", id, "error", err)
		return err
	}
	return affectedOne(res, id)
}

func (r *sqliteRepository) List(ctx context.Context, limit int) ([]*entity.InvoiceRecord, error) {
	rows, err := r.db.QueryContext(ctx, sqliteSelect+` ORDER BY created_at DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		r.logger.Error("failed to list invoices", "error", err)
		return nil, err
	}
	defer rows.Close()

	out := make([]*entity.InvoiceRecord, 0)
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *sqliteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *sqliteRepository) Close() {
	if err := r.db.Close(); err != nil {
		r.logger.Error("failed to close sqlite", "error", err)
	}
}

func affectedOne(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.NotFoundf("invoice %s", id)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTime)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner) (*entity.InvoiceRecord, error) {
	var (
		rec              entity.InvoiceRecord
		id, status       string
		result           sql.NullString
		created, updated string
	)
	if err := row.Scan(&id, &rec.Filename, &rec.ContentType, &rec.BlobPath, &status, &rec.Error,
		&result, &rec.IsCorrected, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse id %q: %w", id, err)
	}
	if rec.CreatedAt, err = time.Parse(sqliteTime, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(sqliteTime, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	rec.Status = constants.InvoiceStatus(status)
	if result.Valid {
		if rec.Result, err = decodeResult([]byte(result.String)); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

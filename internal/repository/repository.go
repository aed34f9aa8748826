package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/gst-invoices/constants"
	"github.com/joseph-ayodele/gst-invoices/internal/entity"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// InvoiceRepository stores invoice records and their extraction results.
// Get, UpdateStatus and SaveResult return common.ErrNotFound for an unknown id.
type InvoiceRepository interface {
	Create(ctx context.Context, rec *entity.InvoiceRecord) error
	Get(ctx context.Context, id uuid.UUID) (*entity.InvoiceRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.InvoiceStatus, errMsg string) error
	SaveResult(ctx context.Context, id uuid.UUID, result entity.InvoiceResult, status constants.InvoiceStatus, corrected bool) error
	List(ctx context.Context, limit int) ([]*entity.InvoiceRecord, error)
	Ping(ctx context.Context) error
	Close()
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}

func encodeResult(r entity.InvoiceResult) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return b, nil
}

func decodeResult(b []byte) (*entity.InvoiceResult, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var r entity.InvoiceResult
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if r.LineItems == nil {
		r.LineItems = []entity.LineItem{}
	}
	if r.Confidence.Fields == nil {
		r.Confidence.Fields = map[string]float64{}
	}
	return &r, nil
}

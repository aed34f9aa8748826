// Package ingest feeds invoice files from the local filesystem through the
// extraction pipeline and writes each result as JSON.
package ingest

import (
	"context"

	"github.com/joseph-ayodele/gst-invoices/internal/entity"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	OutputPath   string
	HashHex      string
	Deduplicated bool
	LineItems    int
	GrandTotal   float64
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// InvoiceProcessor runs the extraction pipeline on one document.
type InvoiceProcessor interface {
	ProcessInvoice(ctx context.Context, doc entity.RawDocument) (entity.InvoiceResult, error)
}

// Ingestor is the behavior the CLI depends on.
type Ingestor interface {
	// IngestPath processes a single file.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory processes all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}

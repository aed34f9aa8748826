package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/joseph-ayodele/gst-invoices/constants"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/entity"
)

// FSIngestor reads documents from the local filesystem and writes one
// result JSON per document into OutDir (next to the source when empty).
// Identical content is processed once per FSIngestor.
type FSIngestor struct {
	Processor InvoiceProcessor
	OutDir    string
	Logger    *slog.Logger

	mu   sync.Mutex
	seen map[string]string // content hash -> output path
}

func NewFSIngestor(p InvoiceProcessor, outDir string, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Processor: p, OutDir: outDir, Logger: logger, seen: map[string]string{}}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, common.InvalidInputf("unsupported or missing extension: %q", ext)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return out, common.InvalidInputf("read %s: %v", abs, err)
	}
	sum := sha256.Sum256(content)
	out.HashHex = hex.EncodeToString(sum[:])

	i.mu.Lock()
	prev, dup := i.seen[out.HashHex]
	i.mu.Unlock()
	if dup {
		i.Logger.Info("ingest.path.dedup", "path", abs, "hash", out.HashHex, "output", prev)
		out.Deduplicated = true
		out.OutputPath = prev
		return out, nil
	}

	result, err := i.Processor.ProcessInvoice(ctx, entity.RawDocument{
		Content:     content,
		ContentType: constants.ContentTypeForExt(ext),
		Filename:    filepath.Base(abs),
	})
	if err != nil {
		i.Logger.Error("ingest.path.failed", "path", abs, "stage", common.StageOf(err), "error", err)
		return out, err
	}

	dir := i.OutDir
	if dir == "" {
		dir = filepath.Dir(abs)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return out, fmt.Errorf("create output dir: %w", err)
	}
	out.OutputPath = filepath.Join(dir, OutputName(abs))
	if err := WriteResult(out.OutputPath, result); err != nil {
		return out, err
	}

	i.mu.Lock()
	i.seen[out.HashHex] = out.OutputPath
	i.mu.Unlock()

	out.LineItems = len(result.LineItems)
	out.GrandTotal = result.Totals.GrandTotal
	i.Logger.Info("ingest.path.ok", "path", abs, "output", out.OutputPath, "line_items", out.LineItems, "grand_total", out.GrandTotal)
	return out, nil
}

// WriteResult writes an InvoiceResult as indented JSON.
func WriteResult(path string, result entity.InvoiceResult) error {
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadResult loads an InvoiceResult written by WriteResult.
func ReadResult(path string) (entity.InvoiceResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return entity.InvoiceResult{}, common.InvalidInputf("read %s: %v", path, err)
	}
	r := entity.EmptyResult("")
	if err := json.Unmarshal(b, &r); err != nil {
		return entity.InvoiceResult{}, common.InvalidInputf("decode %s: %v", path, err)
	}
	if r.LineItems == nil {
		r.LineItems = []entity.LineItem{}
	}
	if r.Confidence.Fields == nil {
		r.Confidence.Fields = map[string]float64{}
	}
	return r, nil
}

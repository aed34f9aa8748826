package ocr

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/gst-invoices/constants"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/entity"
)

const (
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodImageOCR = "image-ocr"
)

type Result struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string // MethodPDFText | MethodPDFOCR | MethodImageOCR
	Engine     string
	Duration   time.Duration
}

// Extractor recovers plain text from invoice PDFs and images.
// It holds no per-document state and is safe for concurrent use.
type Extractor struct {
	cfg        Config
	runner     Runner
	recognizer Recognizer
	logger     *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the exec runner used for pdftoppm and tesseract.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithRecognizer replaces the default tesseract recognizer.
func WithRecognizer(r Recognizer) Option {
	return func(e *Extractor) {
		if r != nil {
			e.recognizer = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{cfg: cfg.withDefaults(), logger: logger}
	e.runner = execRunner{logger: logger}
	for _, o := range opts {
		o(e)
	}
	if e.recognizer == nil {
		e.recognizer = NewTesseract(e.cfg, e.runner)
	}
	return e
}

// Recover returns the document's text, or "" when OCR ran but found nothing.
func (e *Extractor) Recover(ctx context.Context, doc entity.RawDocument) (string, error) {
	res, err := e.Extract(ctx, doc)
	return res.Text, err
}

// RecoverFile reads path and recovers its text. The extension is used as the
// format hint when contentType is empty.
func (e *Extractor) RecoverFile(ctx context.Context, path, contentType string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", common.InvalidInputf("file %q does not exist", path)
		}
		return "", common.InvalidInputf("read %q: %v", path, err)
	}
	return e.Recover(ctx, entity.RawDocument{Content: b, ContentType: contentType, Filename: filepath.Base(path)})
}

// Extract picks the PDF or image strategy and reports how the text was obtained.
func (e *Extractor) Extract(ctx context.Context, doc entity.RawDocument) (Result, error) {
	start := time.Now()
	if len(doc.Content) == 0 {
		return Result{}, common.InvalidInputf("document is empty")
	}

	format := constants.DetectFormat(doc.ContentType, filepath.Ext(doc.Filename), doc.Content)
	e.logger.Debug("ocr.recover.start",
		"filename", doc.Filename,
		"content_type", doc.ContentType,
		"format", format,
		"bytes", len(doc.Content),
	)

	var (
		res Result
		err error
	)
	switch format {
	case constants.PDF:
		res, err = e.recoverPDF(ctx, doc.Content)
	default:
		res, err = e.recoverImage(ctx, doc.Content)
	}
	res.Duration = time.Since(start)
	if res.Method != MethodPDFText {
		res.Engine = e.recognizer.Name()
	}
	if err != nil {
		e.logger.Error("ocr.recover.failed",
			"format", format,
			"error", err,
			"elapsed_ms", res.Duration.Milliseconds(),
		)
		return res, err
	}

	e.logger.Info("ocr.recover.ok",
		"format", format,
		"method", res.Method,
		"engine", res.Engine,
		"pages", res.Pages,
		"chars", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) removeAll(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		e.logger.Warn("ocr.tmp.cleanup_failed", "dir", dir, "error", err)
	}
}

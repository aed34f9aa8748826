// Package invoices manages the stored lifecycle of uploaded invoices:
// upload, background processing, lookup and manual correction.
package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/gst-invoices/constants"
	"github.com/joseph-ayodele/gst-invoices/internal/async"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/entity"
	"github.com/joseph-ayodele/gst-invoices/internal/pipeline"
	"github.com/joseph-ayodele/gst-invoices/internal/repository"
)

// MaxUploadBytes bounds a single uploaded document.
const MaxUploadBytes = 25 << 20

// InvoiceProcessor runs the extraction pipeline. *pipeline.Processor satisfies it.
type InvoiceProcessor interface {
	ProcessInvoice(ctx context.Context, doc entity.RawDocument) (entity.InvoiceResult, error)
}

type Config struct {
	UploadDir       string
	ReviewThreshold float64
}

// Service handles invoice business logic.
type Service struct {
	cfg       Config
	processor InvoiceProcessor
	repo      repository.InvoiceRepository
	queue     async.Queue
	logger    *slog.Logger
}

// NewService creates a new invoice service. repo may be nil when only
// ProcessNow is used.
func NewService(cfg Config, processor InvoiceProcessor, repo repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "./data/uploads"
	}
	return &Service{cfg: cfg, processor: processor, repo: repo, logger: logger}
}

// AttachQueue routes uploads through q. Without a queue, Upload processes inline.
func (s *Service) AttachQueue(q async.Queue) {
	s.queue = q
}

// ProcessNow runs the pipeline synchronously and stores nothing.
func (s *Service) ProcessNow(ctx context.Context, doc entity.RawDocument) (entity.InvoiceResult, error) {
	if err := validateDocument(doc); err != nil {
		return entity.InvoiceResult{}, err
	}
	return s.processor.ProcessInvoice(ctx, doc)
}

// Upload stores the raw bytes, creates an UPLOADED record and schedules it.
func (s *Service) Upload(ctx context.Context, doc entity.RawDocument) (*entity.InvoiceRecord, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	if err := validateDocument(doc); err != nil {
		return nil, err
	}
	ext, err := resolveExt(doc)
	if err != nil {
		s.logger.Warn("invoices.upload.rejected", "filename", doc.Filename, "content_type", doc.ContentType, "error", err)
		return nil, err
	}

	id := uuid.New()
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return nil, common.ResourceUnavailablef("create upload dir: %v", err)
	}
	blobPath := filepath.Join(s.cfg.UploadDir, id.String()+"."+ext)
	if err := os.WriteFile(blobPath, doc.Content, 0o644); err != nil {
		return nil, common.ResourceUnavailablef("store upload: %v", err)
	}

	contentType := doc.ContentType
	if contentType == "" {
		contentType = constants.ContentTypeForExt(ext)
	}
	filename := doc.Filename
	if filename == "" {
		filename = id.String() + "." + ext
	}
	now := time.Now().UTC()
	rec := &entity.InvoiceRecord{
		ID:          id,
		Filename:    filename,
		ContentType: contentType,
		BlobPath:    blobPath,
		Status:      constants.InvoiceStatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		_ = os.Remove(blobPath)
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	s.logger.Info("invoices.upload.ok", "invoice_id", id, "filename", filename, "bytes", len(doc.Content), "req_id", common.RequestIDFromContext(ctx))

	if s.queue == nil {
		if err := s.Process(ctx, id); err != nil {
			s.logger.Warn("invoices.upload.process_failed", "invoice_id", id, "error", err)
		}
		return s.repo.Get(ctx, id)
	}
	job := async.Job{InvoiceID: id, SubmittedAt: now, RequestID: common.RequestIDFromContext(ctx)}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		_ = s.repo.UpdateStatus(context.WithoutCancel(ctx), id, constants.InvoiceStatusFailed, "enqueue: "+err.Error())
		return nil, common.NewAppError(common.CodeResourceUnavailable, "enqueue invoice", errors.Join(common.ErrResourceUnavailable, err))
	}
	return rec, nil
}

// Process runs the pipeline for a stored invoice, moving it through
// PROCESSING to EXTRACTED, NEEDS_REVIEW or FAILED.
func (s *Service) Process(ctx context.Context, id uuid.UUID) error {
	if err := s.requireRepo(); err != nil {
		return err
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status.IsTerminal() {
		s.logger.Info("invoices.process.skip", "invoice_id", id, "status", rec.Status)
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, id, constants.InvoiceStatusProcessing, ""); err != nil {
		return err
	}

	result, err := s.run(ctx, rec)
	if err != nil {
		s.logger.Error("invoices.process.failed", "invoice_id", id, "stage", common.StageOf(err), "error", err)
		if uerr := s.repo.UpdateStatus(context.WithoutCancel(ctx), id, constants.InvoiceStatusFailed, err.Error()); uerr != nil {
			s.logger.Error("invoices.process.status_failed", "invoice_id", id, "error", uerr)
		}
		return err
	}

	status := s.statusFor(result)
	if err := s.repo.SaveResult(ctx, id, result, status, false); err != nil {
		return err
	}
	s.logger.Info("invoices.process.ok", "invoice_id", id, "status", status, "confidence", result.Confidence.Overall)
	return nil
}

func (s *Service) run(ctx context.Context, rec *entity.InvoiceRecord) (entity.InvoiceResult, error) {
	content, err := os.ReadFile(rec.BlobPath)
	if err != nil {
		return entity.InvoiceResult{}, common.ResourceUnavailablef("read stored upload: %v", err)
	}
	return s.processor.ProcessInvoice(ctx, entity.RawDocument{
		Content:     content,
		ContentType: rec.ContentType,
		Filename:    rec.Filename,
	})
}

func (s *Service) statusFor(result entity.InvoiceResult) constants.InvoiceStatus {
	if result.Confidence.Overall < s.cfg.ReviewThreshold {
		return constants.InvoiceStatusNeedsReview
	}
	return constants.InvoiceStatusExtracted
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.InvoiceRecord, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]*entity.InvoiceRecord, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, limit)
}

// CorrectLineItem applies a manual edit to one line, recomputes its tax and
// the document totals, and stores the result as corrected. A corrected
// invoice counts as reviewed.
func (s *Service) CorrectLineItem(ctx context.Context, id uuid.UUID, index int, edit pipeline.LineItemEdit) (*entity.InvoiceRecord, error) {
	return s.correct(ctx, id, func(r entity.InvoiceResult) (entity.InvoiceResult, error) {
		return pipeline.ApplyLineItemEdit(r, index, edit)
	})
}

// SetInterState changes the supply type of a stored invoice and recomputes every line.
func (s *Service) SetInterState(ctx context.Context, id uuid.UUID, interState bool) (*entity.InvoiceRecord, error) {
	return s.correct(ctx, id, func(r entity.InvoiceResult) (entity.InvoiceResult, error) {
		return pipeline.SetInterState(r, interState), nil
	})
}

func (s *Service) correct(ctx context.Context, id uuid.UUID, apply func(entity.InvoiceResult) (entity.InvoiceResult, error)) (*entity.InvoiceRecord, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Result == nil {
		return nil, common.InvalidInputf("invoice %s has no extraction result (status %s)", id, rec.Status)
	}
	updated, err := apply(*rec.Result)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveResult(ctx, id, updated, constants.InvoiceStatusExtracted, true); err != nil {
		return nil, err
	}
	s.logger.Info("invoices.correct.ok", "invoice_id", id, "grand_total", updated.Totals.GrandTotal)
	return s.repo.Get(ctx, id)
}

func (s *Service) requireRepo() error {
	if s.repo == nil {
		return common.Configurationf("invoice storage is not configured")
	}
	return nil
}

func validateDocument(doc entity.RawDocument) error {
	v := common.NewValidator().
		Field("content", doc.Content, common.Required).
		Field("filename", doc.Filename, common.MaxLength(255))
	if err := v.Err(); err != nil {
		return err
	}
	if len(doc.Content) > MaxUploadBytes {
		return common.InvalidInputf("document is %d bytes, limit is %d", len(doc.Content), MaxUploadBytes)
	}
	return nil
}

// resolveExt picks the stored extension from the filename, then the content
// type, then the leading bytes.
func resolveExt(doc entity.RawDocument) (string, error) {
	if ext := constants.NormalizeExt(filepath.Ext(doc.Filename)); constants.IsAllowedExt(ext) {
		return ext, nil
	}
	if ext := constants.ExtForContentType(doc.ContentType); ext != "" {
		return ext, nil
	}
	if constants.DetectFormat("", "", doc.Content) == constants.PDF {
		return "pdf", nil
	}
	if ext := constants.ExtForContentType(http.DetectContentType(doc.Content)); ext != "" {
		return ext, nil
	}
	return "", common.InvalidInputf("unsupported file type (filename %q, content type %q)", doc.Filename, doc.ContentType)
}

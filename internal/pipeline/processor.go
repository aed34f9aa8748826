// Package pipeline runs a document through text recovery, field extraction,
// categorization and tax computation, and applies manual corrections to the
// resulting invoice.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/gst-invoices/internal/category"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/entity"
	"github.com/joseph-ayodele/gst-invoices/internal/gst"
	"github.com/joseph-ayodele/gst-invoices/internal/llm"
)

const (
	StageTextRecovery    = "text_recovery"
	StageFieldExtraction = "field_extraction"
)

// TextRecoverer turns document bytes into plain text. *ocr.Extractor satisfies it.
type TextRecoverer interface {
	Recover(ctx context.Context, doc entity.RawDocument) (string, error)
}

// Processor coordinates text recovery, then field extraction, then per-line
// enrichment. It holds no per-call state and is safe for concurrent use.
type Processor struct {
	Logger      *slog.Logger
	OCR         TextRecoverer
	Extractor   llm.FieldExtractor
	Categorizer *category.Categorizer
}

func NewProcessor(logger *slog.Logger, ocr TextRecoverer, extractor llm.FieldExtractor, categorizer *category.Categorizer) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if categorizer == nil {
		categorizer = category.Default()
	}
	return &Processor{Logger: logger, OCR: ocr, Extractor: extractor, Categorizer: categorizer}
}

// ProcessInvoice runs every stage exactly once. A document without usable text
// yields a zero-confidence result and the extractor is never called.
func (p *Processor) ProcessInvoice(ctx context.Context, doc entity.RawDocument) (entity.InvoiceResult, error) {
	start := time.Now()
	reqID := common.RequestIDFromContext(ctx)
	log := p.Logger.With("req_id", reqID)
	if docID := common.DocumentIDFromContext(ctx); docID != "" {
		log = log.With("doc_id", docID)
	}
	log.Info("pipeline.process.start", "filename", doc.Filename, "content_type", doc.ContentType, "bytes", len(doc.Content))

	text, err := p.OCR.Recover(ctx, doc)
	if err != nil {
		log.Error("pipeline.ocr.failed", "err", err)
		return entity.InvoiceResult{}, &common.StageError{Stage: StageTextRecovery, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		log.Warn("pipeline.ocr.empty")
		return entity.EmptyResult(text), nil
	}
	log.Info("pipeline.ocr.ok", "chars", len(text))

	draft, _, err := p.Extractor.ExtractFields(ctx, text)
	if err != nil {
		log.Error("pipeline.extract.failed", "err", err)
		return entity.InvoiceResult{}, &common.StageError{Stage: StageFieldExtraction, Err: err}
	}

	p.checkInterState(reqID, draft)
	result := p.assemble(draft, text)

	log.Info("pipeline.process.done",
		"line_items", len(result.LineItems),
		"inter_state", result.IsInterState,
		"grand_total", result.Totals.GrandTotal,
		"confidence", result.Confidence.Overall,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (p *Processor) assemble(draft llm.DraftInvoice, text string) entity.InvoiceResult {
	result := entity.EmptyResult(text)
	result.Vendor = draft.Vendor
	result.Buyer = draft.Buyer
	result.Invoice = draft.Invoice
	if result.Invoice.Currency == "" {
		result.Invoice.Currency = "INR"
	}
	result.PlaceOfSupplyState = draft.PlaceOfSupplyState
	result.IsInterState = draft.IsInterState
	result.Confidence.Overall = draft.Confidence.Overall
	for k, v := range draft.Confidence.Fields {
		result.Confidence.Fields[k] = v
	}

	result.LineItems = make([]entity.LineItem, 0, len(draft.LineItems))
	for _, d := range draft.LineItems {
		result.LineItems = append(result.LineItems, p.enrich(d, draft.IsInterState))
	}
	result.Totals = gst.Totals(result.LineItems)
	return result
}

// enrich categorizes one draft line and computes its tax. The taxable value
// already includes quantity, so tax is computed with a quantity of 1.
func (p *Processor) enrich(d llm.DraftLineItem, interState bool) entity.LineItem {
	cat, defaultRate := p.Categorizer.Categorize(d.Description, d.HSNSAC)
	rate := d.GSTRate
	if rate == 0 {
		rate = defaultRate
	}
	taxable := d.TaxableValue
	if taxable == 0 {
		taxable = gst.Round2(d.UnitPrice * d.Qty)
	}
	item := entity.LineItem{
		Description:  d.Description,
		HSNSAC:       d.HSNSAC,
		Category:     cat,
		Qty:          d.Qty,
		UnitPrice:    d.UnitPrice,
		TaxableValue: taxable,
		GSTRate:      rate,
	}
	return gst.RecalculateLineItem(item, interState)
}

// checkInterState compares the model's flag against the GSTIN state codes.
// The model's flag is kept either way.
func (p *Processor) checkInterState(reqID string, draft llm.DraftInvoice) {
	vendor := gst.StateCodeFromGSTIN(draft.Vendor.GSTIN)
	buyer := gst.StateCodeFromGSTIN(draft.Buyer.GSTIN)
	if vendor == "" || buyer == "" {
		return
	}
	if derived := gst.IsInterStateSupply(vendor, buyer); derived != draft.IsInterState {
		p.Logger.Warn("pipeline.inter_state_mismatch",
			"req_id", reqID,
			"vendor_state", vendor,
			"buyer_state", buyer,
			"model_inter_state", draft.IsInterState,
		)
	}
}

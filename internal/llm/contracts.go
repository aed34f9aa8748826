package llm

import (
	"context"

	"github.com/joseph-ayodele/gst-invoices/internal/entity"
)

// DraftLineItem is a line item as the model reported it, before
// categorization and tax computation.
type DraftLineItem struct {
	Description  string
	HSNSAC       string
	Category     string
	Qty          float64
	UnitPrice    float64
	TaxableValue float64
	GSTRate      float64
}

// DraftInvoice is the normalized, still unvalidated model output.
type DraftInvoice struct {
	Vendor             entity.Vendor
	Buyer              entity.Buyer
	Invoice            entity.InvoiceMeta
	PlaceOfSupplyState string
	IsInterState       bool
	LineItems          []DraftLineItem
	Totals             entity.Totals
	Confidence         entity.Confidence
}

// FieldExtractor is the interface our pipeline depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string) (DraftInvoice, []byte /*rawJSON*/, error)
}

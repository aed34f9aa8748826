package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/gst-invoices/internal/entity"
	"github.com/joseph-ayodele/gst-invoices/internal/gst"
)

const (
	InvoicesSheet  = "Invoices"
	LineItemsSheet = "Line Items"
)

// Document is one invoice to export. Ref identifies it in both sheets
// (record id or source filename).
type Document struct {
	Ref       string
	Status    string
	Corrected bool
	Result    entity.InvoiceResult
}

// FromRecord builds a Document from a stored record. Records without a
// result export a summary row and no lines.
func FromRecord(rec *entity.InvoiceRecord) Document {
	d := Document{Ref: rec.ID.String(), Status: string(rec.Status), Corrected: rec.IsCorrected}
	if rec.Result != nil {
		d.Result = *rec.Result
	} else {
		d.Result = entity.EmptyResult("")
	}
	return d
}

// Service produces XLSX workbooks for extracted invoices.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

var invoiceHeaders = []string{
	"Ref", "Status", "Invoice No", "Invoice Date", "Vendor", "Vendor GSTIN", "Buyer", "Buyer GSTIN",
	"Place of Supply", "Supply Type", "Taxable Value", "CGST", "SGST", "IGST", "GST Total", "Grand Total",
	"Confidence", "Corrected",
}

var lineHeaders = []string{
	"Ref", "Invoice No", "Line", "Description", "HSN/SAC", "Category", "Qty", "Unit Price",
	"Taxable Value", "GST Rate", "CGST", "SGST", "IGST", "GST Amount", "Total",
}

// WorkbookXLSX returns an XLSX workbook (as bytes) with one row per invoice on
// the Invoices sheet and one row per line item on the Line Items sheet.
func (s *Service) WorkbookXLSX(ctx context.Context, docs []Document) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", InvoicesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(LineItemsSheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	for sheet, headers := range map[string][]string{InvoicesSheet: invoiceHeaders, LineItemsSheet: lineHeaders} {
		if err := writeRow(f, sheet, 1, toAny(headers)); err != nil {
			return nil, err
		}
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheet, "A1", last, bold)
	}

	invRow, lineRow := 2, 2
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := d.Result
		tax := componentTotals(r.LineItems)
		supply := "Intra-state"
		if r.IsInterState {
			supply = "Inter-state"
		}
		if err := writeRow(f, InvoicesSheet, invRow, []any{
			d.Ref, d.Status, r.Invoice.Number, r.Invoice.Date, r.Vendor.Name, r.Vendor.GSTIN, r.Buyer.Name, r.Buyer.GSTIN,
			r.PlaceOfSupplyState, supply, r.Totals.TaxableValue, tax.CGST, tax.SGST, tax.IGST, r.Totals.GSTTotal,
			r.Totals.GrandTotal, r.Confidence.Overall, yesNo(d.Corrected),
		}); err != nil {
			return nil, err
		}
		invRow++

		for i, it := range r.LineItems {
			if err := writeRow(f, LineItemsSheet, lineRow, []any{
				d.Ref, r.Invoice.Number, i + 1, it.Description, it.HSNSAC, it.Category, it.Qty, it.UnitPrice,
				it.TaxableValue, it.GSTRate, it.GSTBreakdown.CGST, it.GSTBreakdown.SGST, it.GSTBreakdown.IGST,
				gst.TaxAmount(it.GSTBreakdown), it.Total,
			}); err != nil {
				return nil, err
			}
			lineRow++
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(InvoicesSheet, "A", "A", 38)
	_ = f.SetColWidth(InvoicesSheet, "E", "H", 24)
	_ = f.SetColWidth(LineItemsSheet, "A", "A", 38)
	_ = f.SetColWidth(LineItemsSheet, "D", "D", 48)
	_ = f.SetColWidth(LineItemsSheet, "F", "F", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"invoices", len(docs),
		"line_items", lineRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// componentTotals sums each tax component across lines, rounded to paise.
func componentTotals(items []entity.LineItem) entity.TaxBreakdown {
	var c, s, i decimal.Decimal
	for _, it := range items {
		c = c.Add(decimal.NewFromFloat(it.GSTBreakdown.CGST))
		s = s.Add(decimal.NewFromFloat(it.GSTBreakdown.SGST))
		i = i.Add(decimal.NewFromFloat(it.GSTBreakdown.IGST))
	}
	return entity.TaxBreakdown{
		CGST: c.Round(2).InexactFloat64(),
		SGST: s.Round(2).InexactFloat64(),
		IGST: i.Round(2).InexactFloat64(),
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

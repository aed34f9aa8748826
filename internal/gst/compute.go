package gst

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/gst-invoices/internal/entity"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Currency amounts are rounded to 2 decimals, half away from zero, on the
// shortest decimal representation of the float: 0.125 -> 0.13, 0.135 -> 0.14,
// -0.125 -> -0.13.

func dec(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func toFloat(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64() + 0
}

// Round2 rounds a currency amount to paise.
func Round2(f float64) float64 {
	return toFloat(dec(f))
}

// Compute is ComputeTax with a quantity of 1.
func Compute(taxable, rate float64, interState bool) entity.TaxBreakdown {
	return ComputeTax(taxable, rate, interState, 1)
}

// ComputeTax splits the GST on taxable*quantity at the normalized rate.
// Inter-state supplies carry the whole amount as IGST; intra-state supplies
// split it into equal CGST and SGST halves, each rounded on its own, so the
// halves may differ from the rounded total by one paisa. Signs are not
// checked and negative values flow through.
func ComputeTax(taxable, rate float64, interState bool, quantity float64) entity.TaxBreakdown {
	r := decimal.NewFromFloat(NormalizeRate(rate))
	base := dec(taxable).Mul(dec(quantity))
	tax := base.Mul(r).Div(hundred).Round(2)

	if interState {
		return entity.TaxBreakdown{IGST: toFloat(tax)}
	}
	half := toFloat(tax.Div(two))
	return entity.TaxBreakdown{CGST: half, SGST: half}
}

func taxSum(b entity.TaxBreakdown) decimal.Decimal {
	return dec(b.CGST).Add(dec(b.SGST)).Add(dec(b.IGST))
}

// TaxAmount is the sum of the three components, rounded to paise.
func TaxAmount(b entity.TaxBreakdown) float64 {
	return toFloat(taxSum(b))
}

// LineTotal is taxable plus tax, rounded to paise.
func LineTotal(taxable float64, b entity.TaxBreakdown) float64 {
	return toFloat(dec(taxable).Add(taxSum(b)))
}

// Totals sums taxable values and tax across items and rounds each total once.
func Totals(items []entity.LineItem) entity.Totals {
	taxable, tax := decimal.Zero, decimal.Zero
	for _, it := range items {
		taxable = taxable.Add(dec(it.TaxableValue))
		tax = tax.Add(taxSum(it.GSTBreakdown))
	}
	return entity.Totals{
		TaxableValue: toFloat(taxable),
		GSTTotal:     toFloat(tax),
		GrandTotal:   toFloat(taxable.Add(tax)),
	}
}

// RecalculateLineItem reruns the tax computation for an edited line: the
// rate is normalized, tax is taken on TaxableValue (quantity already folded
// in) and the line total refreshed. Description, category and amounts other
// than tax and total are returned unchanged.
//
// The returned GSTRate is the normalized slab, not the rate passed in, so a
// Jewellery line edited to 3 is stored with gst_rate 18 and taxed at 18.
func RecalculateLineItem(item entity.LineItem, interState bool) entity.LineItem {
	out := item
	out.GSTRate = NormalizeRate(item.GSTRate)
	out.GSTBreakdown = Compute(item.TaxableValue, out.GSTRate, interState)
	out.Total = LineTotal(item.TaxableValue, out.GSTBreakdown)
	return out
}

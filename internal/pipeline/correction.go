package pipeline

import (
	"strings"

	"github.com/joseph-ayodele/gst-invoices/constants"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/entity"
	"github.com/joseph-ayodele/gst-invoices/internal/gst"
)

// LineItemEdit is a partial update of one line. Nil fields are left as they are.
type LineItemEdit struct {
	Description  *string  `json:"description,omitempty"`
	HSNSAC       *string  `json:"hsn_sac,omitempty"`
	Category     *string  `json:"category,omitempty"`
	Qty          *float64 `json:"qty,omitempty"`
	UnitPrice    *float64 `json:"unit_price,omitempty"`
	TaxableValue *float64 `json:"taxable_value,omitempty"`
	GSTRate      *float64 `json:"gst_rate,omitempty"`
}

// Empty reports whether the edit changes nothing.
func (e LineItemEdit) Empty() bool {
	return e.Description == nil && e.HSNSAC == nil && e.Category == nil &&
		e.Qty == nil && e.UnitPrice == nil && e.TaxableValue == nil && e.GSTRate == nil
}

func (e LineItemEdit) validate(index, n int) error {
	return common.NewValidator().
		Field("index", index, common.IndexIn(n)).
		Field("description", e.Description, common.MaxLength(1000)).
		Field("hsn_sac", e.HSNSAC, common.MaxLength(16)).
		Field("category", e.Category, common.MaxLength(100)).
		Field("qty", e.Qty, common.NonNegative).
		Field("gst_rate", e.GSTRate, common.NonNegative).
		Err()
}

// ApplyLineItemEdit returns a copy of result with the edit applied to line
// index, that line's tax recomputed and the document totals re-summed. When
// qty or unit price changes without an explicit taxable value, the taxable
// value is rederived as unit_price*qty. Categorization is not rerun.
func ApplyLineItemEdit(result entity.InvoiceResult, index int, edit LineItemEdit) (entity.InvoiceResult, error) {
	if err := edit.validate(index, len(result.LineItems)); err != nil {
		return result, err
	}

	out := result.Clone()
	item := out.LineItems[index]
	if edit.Description != nil {
		item.Description = *edit.Description
	}
	if edit.HSNSAC != nil {
		item.HSNSAC = *edit.HSNSAC
	}
	if edit.Category != nil {
		item.Category = canonicalCategory(*edit.Category)
	}
	if edit.Qty != nil {
		item.Qty = *edit.Qty
	}
	if edit.UnitPrice != nil {
		item.UnitPrice = *edit.UnitPrice
	}
	switch {
	case edit.TaxableValue != nil:
		item.TaxableValue = *edit.TaxableValue
	case edit.Qty != nil || edit.UnitPrice != nil:
		item.TaxableValue = gst.Round2(item.UnitPrice * item.Qty)
	}
	if edit.GSTRate != nil {
		item.GSTRate = *edit.GSTRate
	}

	out.LineItems[index] = gst.RecalculateLineItem(item, out.IsInterState)
	out.Totals = gst.Totals(out.LineItems)
	return out, nil
}

// canonicalCategory matches name against the built-in categories ignoring
// case. Names from a custom rules file pass through trimmed.
func canonicalCategory(name string) string {
	name = strings.TrimSpace(name)
	for _, c := range constants.CategoryNames() {
		if strings.EqualFold(c, name) {
			return c
		}
	}
	return name
}

// SetInterState returns a copy of result with the supply type changed and
// every line's tax recomputed.
func SetInterState(result entity.InvoiceResult, interState bool) entity.InvoiceResult {
	out := result.Clone()
	out.IsInterState = interState
	for i, it := range out.LineItems {
		out.LineItems[i] = gst.RecalculateLineItem(it, interState)
	}
	out.Totals = gst.Totals(out.LineItems)
	return out
}

package llm

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/gst-invoices/internal/entity"
)

const defaultCurrency = "INR"

// NormalizeDraft maps any decoded JSON value onto a DraftInvoice. It never
// fails: missing, null or mistyped fields take their default (strings "",
// numbers 0, booleans false), except invoice currency ("INR") and line-item
// quantity (1) which default the way invoices are usually written.
func NormalizeDraft(v any) DraftInvoice {
	root := object(v)
	vendor := object(root["vendor"])
	buyer := object(root["buyer"])
	invoice := object(root["invoice"])
	totals := object(root["totals"])
	conf := object(root["confidence"])

	d := DraftInvoice{
		Vendor: entity.Vendor{
			Name:    str(vendor["name"]),
			GSTIN:   strings.ToUpper(str(vendor["gstin"])),
			Address: str(vendor["address"]),
		},
		Buyer: entity.Buyer{
			Name:  str(buyer["name"]),
			GSTIN: strings.ToUpper(str(buyer["gstin"])),
		},
		Invoice: entity.InvoiceMeta{
			Number:   str(invoice["number"]),
			Date:     str(invoice["date"]),
			Currency: strOr(invoice["currency"], defaultCurrency),
		},
		PlaceOfSupplyState: str(root["place_of_supply_state"]),
		IsInterState:       boolean(root["is_inter_state"]),
		LineItems:          lineItems(root["line_items"]),
		Totals: entity.Totals{
			TaxableValue: num(totals["taxable_value"]),
			GSTTotal:     num(totals["gst_total"]),
			GrandTotal:   num(totals["grand_total"]),
		},
		Confidence: entity.Confidence{
			Overall: clamp01(num(conf["overall"])),
			Fields:  confidenceFields(conf["fields"]),
		},
	}
	return d
}

func lineItems(v any) []DraftLineItem {
	arr, _ := v.([]any)
	out := make([]DraftLineItem, 0, len(arr))
	for _, raw := range arr {
		it, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		qty := 1.0
		if q, present := it["qty"]; present && q != nil {
			qty = num(q)
		}
		out = append(out, DraftLineItem{
			Description:  str(it["description"]),
			HSNSAC:       str(it["hsn_sac"]),
			Category:     str(it["category"]),
			Qty:          qty,
			UnitPrice:    num(it["unit_price"]),
			TaxableValue: num(it["taxable_value"]),
			GSTRate:      num(it["gst_rate"]),
		})
	}
	return out
}

func confidenceFields(v any) map[string]float64 {
	m := object(v)
	out := make(map[string]float64, len(m))
	for k, raw := range m {
		if f, ok := numOK(raw); ok {
			out[k] = clamp01(f)
		}
	}
	return out
}

func object(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		// HSN codes and invoice numbers are often emitted as bare numbers
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func strOr(v any, def string) string {
	if s := str(v); s != "" {
		return s
	}
	return def
}

func num(v any) float64 {
	f, _ := numOK(v)
	return f
}

var amountNoise = strings.NewReplacer(",", "", "₹", "", "INR", "", "Rs.", "", "Rs", "", "%", "", " ", "")

// numOK accepts JSON numbers and numeric strings written the way invoices
// print them ("1,180.00", "₹ 500", "18%").
func numOK(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		s := amountNoise.Replace(strings.TrimSpace(t))
		if s == "" {
			return 0, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func boolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true
		}
	}
	return false
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

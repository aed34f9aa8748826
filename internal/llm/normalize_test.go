package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestNormalizeDraft_IsTotal(t *testing.T) {
	inputs := []string{
		`null`,
		`[]`,
		`"just a string"`,
		`42`,
		`{}`,
		`{"vendor": null, "invoice": 3, "buyer": [], "line_items": {"not": "a list"}, "totals": "x", "confidence": null}`,
		`{"line_items": [null, 7, "x", {}]}`,
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			d := NormalizeDraft(decode(t, in))
			assert.Equal(t, "INR", d.Invoice.Currency)
			assert.Equal(t, "", d.Vendor.Name)
			assert.False(t, d.IsInterState)
			assert.NotNil(t, d.LineItems)
			assert.NotNil(t, d.Confidence.Fields)
			assert.Zero(t, d.Confidence.Overall)
		})
	}
	assert.NotPanics(t, func() { NormalizeDraft(nil) })
}

func TestNormalizeDraft_FullDocument(t *testing.T) {
	d := NormalizeDraft(decode(t, `{
		"vendor": {"name": " Acme Infotech ", "gstin": "29abcde1234f1z5", "address": "Bengaluru"},
		"invoice": {"number": 1042, "date": "2024-04-01", "currency": null},
		"buyer": {"name": "Widget Co", "gstin": "27ABCDE1234F1Z5"},
		"place_of_supply_state": "Maharashtra",
		"is_inter_state": "true",
		"line_items": [
			{"description": "Software license", "hsn_sac": 998314, "qty": "2", "unit_price": "5,000.00", "gst_rate": "18%"},
			{"description": "Support", "qty": null, "taxable_value": 1500},
			"junk"
		],
		"totals": {"taxable_value": "11,500", "gst_total": 2070, "grand_total": "₹ 13,570.00"},
		"confidence": {"overall": 0.92, "fields": {"vendor": 0.9, "buyer": "0.5", "notes": "high"}}
	}`))

	assert.Equal(t, "Acme Infotech", d.Vendor.Name)
	assert.Equal(t, "29ABCDE1234F1Z5", d.Vendor.GSTIN)
	assert.Equal(t, "1042", d.Invoice.Number)
	assert.Equal(t, "INR", d.Invoice.Currency)
	assert.True(t, d.IsInterState)

	require.Len(t, d.LineItems, 2, "non-object items are skipped")
	assert.Equal(t, DraftLineItem{Description: "Software license", HSNSAC: "998314", Qty: 2, UnitPrice: 5000, GSTRate: 18}, d.LineItems[0])
	assert.Equal(t, 1.0, d.LineItems[1].Qty, "null qty defaults to 1")
	assert.Equal(t, 1500.0, d.LineItems[1].TaxableValue)

	assert.Equal(t, 11500.0, d.Totals.TaxableValue)
	assert.Equal(t, 13570.0, d.Totals.GrandTotal)
	assert.Equal(t, 0.92, d.Confidence.Overall)
	assert.Equal(t, map[string]float64{"vendor": 0.9, "buyer": 0.5}, d.Confidence.Fields)
}

func TestNormalizeDraft_Coercions(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"bool", `{"is_inter_state": true}`, true},
		{"yes", `{"is_inter_state": "Yes"}`, true},
		{"one", `{"is_inter_state": 1}`, true},
		{"false string", `{"is_inter_state": "false"}`, false},
		{"garbage", `{"is_inter_state": {"a": 1}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDraft(decode(t, tt.in)).IsInterState)
		})
	}

	d := NormalizeDraft(decode(t, `{"line_items": [{"unit_price": "n/a", "qty": 0}], "confidence": {"overall": 7}}`))
	assert.Zero(t, d.LineItems[0].UnitPrice)
	assert.Zero(t, d.LineItems[0].Qty, "explicit zero quantity is kept")
	assert.Equal(t, 1.0, d.Confidence.Overall, "confidence is clamped to [0,1]")
}

package llm

import "strings"

// DefaultMaxInputChars bounds the document text sent to the model.
const DefaultMaxInputChars = 12000

const SystemInstruction = "You extract invoice data from text. Return only valid JSON."

// ExtractSchemaPrompt describes the JSON object the model must return.
const ExtractSchemaPrompt = `Extract from the following invoice text and return a single JSON object with exactly these keys (use empty string or 0 where unknown):
- vendor: { "name": "", "gstin": "", "address": "" }
- invoice: { "number": "", "date": "YYYY-MM-DD", "currency": "INR" }
- buyer: { "name": "", "gstin": "" }
- place_of_supply_state: "" (state name or code)
- is_inter_state: true/false (true if vendor and buyer are in different states)
- line_items: [ { "description": "", "hsn_sac": "", "qty": 1, "unit_price": 0, "taxable_value": 0, "gst_rate": 0 } ]
- totals: { "taxable_value": 0, "gst_total": 0, "grand_total": 0 }
- confidence: { "overall": 0.0-1.0, "fields": {} }
Return only valid JSON, no markdown or explanation.`

// BuildUserPrompt appends at most maxChars characters of text to the schema prompt.
func BuildUserPrompt(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxInputChars
	}
	var b strings.Builder
	b.WriteString(ExtractSchemaPrompt)
	b.WriteString("\n\n---\n\n")
	b.WriteString(TruncateRunes(text, maxChars))
	return b.String()
}

// TruncateRunes cuts s to at most n characters without splitting a UTF-8 sequence.
func TruncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

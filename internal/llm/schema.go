package llm

// DraftJSONSchema describes the object ExtractSchemaPrompt asks for. Numbers
// may arrive as strings and any field may be null; the schema only flags
// shapes the normalizer would have to discard.
func DraftJSONSchema() map[string]any {
	str := map[string]any{"type": []any{"string", "number", "null"}}
	num := map[string]any{"type": []any{"number", "string", "null"}}
	boolean := map[string]any{"type": []any{"boolean", "string", "number", "null"}}
	obj := func(props map[string]any) map[string]any {
		return map[string]any{"type": []any{"object", "null"}, "properties": props}
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"vendor":                obj(map[string]any{"name": str, "gstin": str, "address": str}),
			"invoice":               obj(map[string]any{"number": str, "date": str, "currency": str}),
			"buyer":                 obj(map[string]any{"name": str, "gstin": str}),
			"place_of_supply_state": str,
			"is_inter_state":        boolean,
			"line_items": map[string]any{
				"type": []any{"array", "null"},
				"items": obj(map[string]any{
					"description":   str,
					"hsn_sac":       str,
					"qty":           num,
					"unit_price":    num,
					"taxable_value": num,
					"gst_rate":      num,
				}),
			},
			"totals": obj(map[string]any{"taxable_value": num, "gst_total": num, "grand_total": num}),
			"confidence": obj(map[string]any{
				"overall": num,
				"fields":  map[string]any{"type": []any{"object", "null"}},
			}),
		},
		"required": []any{"vendor", "invoice", "line_items"},
	}
}

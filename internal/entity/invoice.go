package entity

// RawDocument is the pipeline input: document bytes plus optional hints used
// to pick between the PDF and image paths.
type RawDocument struct {
	Content     []byte
	ContentType string
	Filename    string
}

type Vendor struct {
	Name    string `json:"name"`
	GSTIN   string `json:"gstin"`
	Address string `json:"address"`
}

type Buyer struct {
	Name  string `json:"name"`
	GSTIN string `json:"gstin"`
}

type InvoiceMeta struct {
	Number   string `json:"number"`
	Date     string `json:"date"`
	Currency string `json:"currency"`
}

// TaxBreakdown holds the statutory GST split. CGST always equals SGST; for an
// inter-state supply only IGST is non-zero.
type TaxBreakdown struct {
	CGST float64 `json:"cgst"`
	SGST float64 `json:"sgst"`
	IGST float64 `json:"igst"`
}

// LineItem is a categorized, taxed invoice line.
type LineItem struct {
	Description  string       `json:"description"`
	HSNSAC       string       `json:"hsn_sac"`
	Category     string       `json:"category"`
	Qty          float64      `json:"qty"`
	UnitPrice    float64      `json:"unit_price"`
	TaxableValue float64      `json:"taxable_value"`
	GSTRate      float64      `json:"gst_rate"`
	GSTBreakdown TaxBreakdown `json:"gst_breakdown"`
	Total        float64      `json:"total"`
}

type Totals struct {
	TaxableValue float64 `json:"taxable_value"`
	GSTTotal     float64 `json:"gst_total"`
	GrandTotal   float64 `json:"grand_total"`
}

// Confidence is the model's self-reported certainty, overall and per field.
type Confidence struct {
	Overall float64            `json:"overall"`
	Fields  map[string]float64 `json:"fields"`
}

// InvoiceResult is the terminal artifact of the pipeline.
type InvoiceResult struct {
	Vendor             Vendor      `json:"vendor"`
	Invoice            InvoiceMeta `json:"invoice"`
	Buyer              Buyer       `json:"buyer"`
	PlaceOfSupplyState string      `json:"place_of_supply_state"`
	IsInterState       bool        `json:"is_inter_state"`
	LineItems          []LineItem  `json:"line_items"`
	Totals             Totals      `json:"totals"`
	Confidence         Confidence  `json:"confidence"`
	RawText            string      `json:"raw_text"`
}

// EmptyResult is the zero-confidence result returned for documents without
// usable text. Slices and maps are non-nil so the JSON form is [] and {}.
func EmptyResult(rawText string) InvoiceResult {
	return InvoiceResult{
		Invoice:    InvoiceMeta{Currency: "INR"},
		LineItems:  []LineItem{},
		Confidence: Confidence{Fields: map[string]float64{}},
		RawText:    rawText,
	}
}

// Clone returns a deep copy, so callers can derive a corrected result
// without touching the original.
func (r InvoiceResult) Clone() InvoiceResult {
	out := r
	out.LineItems = append([]LineItem(nil), r.LineItems...)
	if out.LineItems == nil {
		out.LineItems = []LineItem{}
	}
	out.Confidence.Fields = make(map[string]float64, len(r.Confidence.Fields))
	for k, v := range r.Confidence.Fields {
		out.Confidence.Fields[k] = v
	}
	return out
}

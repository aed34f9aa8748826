package constants

// CategoryRule maps a set of lowercase keywords to an expense category and
// the GST rate that category defaults to.
type CategoryRule struct {
	Keywords    []string `yaml:"keywords"`
	Category    string   `yaml:"category"`
	DefaultRate float64  `yaml:"default_rate"`
}

const (
	DefaultCategory = "General"
	DefaultGSTRate  = 18.0
)

// CategoryRules is evaluated top to bottom and the first match wins.
// Reordering entries changes classification results: "9983" appears under
// both Transport and Marketing, and only Transport can ever match it.
var CategoryRules = []CategoryRule{
	{Keywords: []string{"food", "grocery", "rice", "wheat", "milk", "vegetables", "fruit"}, Category: "Food & Grocery", DefaultRate: 5},
	{Keywords: []string{"restaurant", "catering", "hotel stay"}, Category: "Restaurant & Hospitality", DefaultRate: 5},
	{Keywords: []string{"software", "saas", "it service", "998314"}, Category: "IT & Software", DefaultRate: 18},
	{Keywords: []string{"transport", "freight", "9983"}, Category: "Transport", DefaultRate: 12},
	{Keywords: []string{"consultancy", "professional", "legal", "9982"}, Category: "Professional Services", DefaultRate: 18},
	{Keywords: []string{"office", "stationery", "paper", "pen"}, Category: "Office Supplies", DefaultRate: 12},
	{Keywords: []string{"electrical", "equipment", "machine", "8471"}, Category: "Equipment & Machinery", DefaultRate: 18},
	{Keywords: []string{"rent", "lease", "immovable"}, Category: "Rent", DefaultRate: 18},
	{Keywords: []string{"advertisement", "marketing", "9983"}, Category: "Marketing", DefaultRate: 18},
	{Keywords: []string{"medicine", "pharma", "drug", "3004"}, Category: "Pharma", DefaultRate: 12},
	{Keywords: []string{"textile", "fabric", "garment", "61", "62", "63"}, Category: "Textiles", DefaultRate: 12},
	// 3% is not a GST slab; tax computation normalizes it to 18.
	{Keywords: []string{"gold", "jewellery", "7113"}, Category: "Jewellery", DefaultRate: 3},
}

// CategoryNames returns the category names in rule order, without duplicates.
func CategoryNames() []string {
	seen := make(map[string]struct{}, len(CategoryRules))
	out := make([]string, 0, len(CategoryRules)+1)
	for _, r := range CategoryRules {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	return append(out, DefaultCategory)
}

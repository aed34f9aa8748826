package category

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/gst-invoices/constants"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		desc, hsn    string
		wantCategory string
		wantRate     float64
	}{
		{"Software license", "998314", "IT & Software", 18},
		{"Miscellaneous item xyz", "", "General", 18},
		{"Basmati RICE 25kg", "1006", "Food & Grocery", 5},
		{"Catering for event", "", "Restaurant & Hospitality", 5},
		{"Annual SaaS subscription", "", "IT & Software", 18},
		{"Road freight charges", "", "Transport", 12},
		{"Legal retainer", "", "Professional Services", 18},
		{"A4 paper ream", "4802", "Office Supplies", 12},
		{"Laptop", "8471", "Equipment & Machinery", 18},
		{"Office lease Q1", "", "Office Supplies", 12}, // "office" is checked before "lease"
		{"Warehouse lease Q1", "", "Rent", 18},
		{"Digital marketing retainer", "", "Marketing", 18},
		{"Paracetamol tablets", "3004", "Pharma", 12},
		{"Cotton fabric roll", "5208", "Textiles", 12},
		{"Gold chain 22k", "7113", "Jewellery", 3},
		// 9983 is listed under Transport and Marketing; Transport comes first
		{"Campaign services", "9983", "Transport", 12},
		// 998314 contains 9983, but IT & Software is earlier in the table
		{"Cloud hosting", "998314", "IT & Software", 18},
		// textile codes are bare substrings, so any text containing "62" matches
		{"Widget model 620", "", "Textiles", 12},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			cat, rate := Categorize(tt.desc, tt.hsn)
			assert.Equal(t, tt.wantCategory, cat)
			assert.Equal(t, tt.wantRate, rate)
		})
	}
}

func TestCategorize_IsPure(t *testing.T) {
	c1, r1 := Categorize("Software license", "998314")
	for i := 0; i < 100; i++ {
		c2, r2 := Categorize("Software license", "998314")
		require.Equal(t, c1, c2)
		require.Equal(t, r1, r2)
	}
}

func TestBuiltinTableOrder(t *testing.T) {
	want := []string{
		"Food & Grocery", "Restaurant & Hospitality", "IT & Software", "Transport",
		"Professional Services", "Office Supplies", "Equipment & Machinery", "Rent",
		"Marketing", "Pharma", "Textiles", "Jewellery",
	}
	rules := Default().Rules()
	require.Len(t, rules, len(want))
	for i, r := range rules {
		assert.Equal(t, want[i], r.Category, "rule %d", i+1)
	}

	// callers cannot reorder the live table
	rules[0], rules[1] = rules[1], rules[0]
	assert.Equal(t, "Food & Grocery", Default().Rules()[0].Category)
}

func TestNewCopiesRules(t *testing.T) {
	rules := []constants.CategoryRule{{Keywords: []string{"Widget"}, Category: "Widgets", DefaultRate: 12}}
	c := New(rules)
	rules[0].Category = "Changed"

	cat, rate := c.Categorize("blue WIDGET", "")
	assert.Equal(t, "Widgets", cat)
	assert.Equal(t, 12.0, rate)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: 1
rules:
  - category: Courier
    default_rate: 18
    keywords: [courier, "996812"]
  - category: Transport
    default_rate: 12
    keywords: [transport, freight]
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	cat, rate := c.Categorize("Courier freight", "")
	assert.Equal(t, "Courier", cat)
	assert.Equal(t, 18.0, rate)

	cat, rate = c.Categorize("Software", "")
	assert.Equal(t, constants.DefaultCategory, cat)
	assert.Equal(t, constants.DefaultGSTRate, rate)
}

func TestParse_Invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"not yaml":    "rules: [",
		"empty":       "version: 1",
		"no category": "rules:\n  - keywords: [a]\n    default_rate: 5",
		"no keywords": "rules:\n  - category: A\n    default_rate: 5",
		"bad rate":    "rules:\n  - category: A\n    keywords: [a]\n    default_rate: 500",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, common.ErrConfiguration)
		})
	}
}

// Package category assigns an expense category and default GST rate to an
// invoice line from its description and HSN/SAC code.
package category

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/gst-invoices/constants"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
)

// Categorizer evaluates an ordered rule table; the first rule with any
// keyword contained in the line text wins. It is immutable once built.
type Categorizer struct {
	rules        []constants.CategoryRule
	fallback     string
	fallbackRate float64
}

var builtin = New(constants.CategoryRules)

// New copies rules, lowercasing keywords, so later edits to the slice have no effect.
func New(rules []constants.CategoryRule) *Categorizer {
	c := &Categorizer{
		rules:        make([]constants.CategoryRule, 0, len(rules)),
		fallback:     constants.DefaultCategory,
		fallbackRate: constants.DefaultGSTRate,
	}
	for _, r := range rules {
		kw := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kw = append(kw, k)
			}
		}
		c.rules = append(c.rules, constants.CategoryRule{Keywords: kw, Category: r.Category, DefaultRate: r.DefaultRate})
	}
	return c
}

// Default returns the categorizer over the built-in rule table.
func Default() *Categorizer { return builtin }

// Categorize uses the built-in rule table.
func Categorize(description, hsn string) (string, float64) {
	return builtin.Categorize(description, hsn)
}

func (c *Categorizer) Categorize(description, hsn string) (string, float64) {
	text := strings.ToLower(description + " " + hsn)
	for _, r := range c.rules {
		for _, k := range r.Keywords {
			if strings.Contains(text, k) {
				return r.Category, r.DefaultRate
			}
		}
	}
	return c.fallback, c.fallbackRate
}

// Rules returns a copy of the table in evaluation order.
func (c *Categorizer) Rules() []constants.CategoryRule {
	out := make([]constants.CategoryRule, len(c.rules))
	for i, r := range c.rules {
		out[i] = constants.CategoryRule{Keywords: append([]string(nil), r.Keywords...), Category: r.Category, DefaultRate: r.DefaultRate}
	}
	return out
}

type rulesFile struct {
	Version int                      `yaml:"version"`
	Rules   []constants.CategoryRule `yaml:"rules"`
}

// Load reads an ordered rule table from YAML. List order is match order:
//
//	version: 1
//	rules:
//	  - category: IT & Software
//	    default_rate: 18
//	    keywords: [software, saas, "998314"]
func Load(path string) (*Categorizer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, common.Configurationf("read category rules %q: %v", path, err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Categorizer, error) {
	var f rulesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, common.Configurationf("parse category rules: %v", err)
	}
	if len(f.Rules) == 0 {
		return nil, common.Configurationf("category rules file has no rules")
	}
	for i, r := range f.Rules {
		if strings.TrimSpace(r.Category) == "" {
			return nil, common.Configurationf("rule %d: category is required", i+1)
		}
		if len(r.Keywords) == 0 {
			return nil, common.Configurationf("rule %d (%s): at least one keyword is required", i+1, r.Category)
		}
		if r.DefaultRate < 0 || r.DefaultRate > 100 {
			return nil, common.Configurationf("rule %d (%s): default_rate %v out of range", i+1, r.Category, r.DefaultRate)
		}
	}
	return New(f.Rules), nil
}

package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/gst-invoices/internal/category"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/ocr"
)

func TestBuild(t *testing.T) {
	cfg := &common.Config{OCR: common.OCRConfig{Engine: "tesseract"}}

	p, err := Build(cfg, quietLogger())
	require.NoError(t, err)
	assert.Same(t, category.Default(), p.Categorizer)
	assert.IsType(t, &ocr.Extractor{}, p.OCR)
	assert.NotNil(t, p.Extractor)

	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("version: 1\nrules:\n  - category: Travel\n    default_rate: 5\n    keywords: [flight]\n"), 0o644))
	cfg.CategoryRulesFile = rules
	p, err = Build(cfg, quietLogger())
	require.NoError(t, err)
	cat, rate := p.Categorizer.Categorize("Flight to Pune", "")
	assert.Equal(t, "Travel", cat)
	assert.Equal(t, 5.0, rate)

	cfg.CategoryRulesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = Build(cfg, quietLogger())
	assert.True(t, errors.Is(err, common.ErrConfiguration))
}

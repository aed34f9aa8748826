package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/gst-invoices/constants"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
)

// newPDFReader is swapped in tests to exercise the panic guard.
var newPDFReader = pdf.NewReader

// embeddedText reads the text layer of every page. Scanned PDFs come back empty.
func embeddedText(content []byte) (text string, err error) {
	defer func() {
		// the reader panics on some malformed xref tables
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read embedded text: %v", r)
		}
	}()

	r, err := newPDFReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		t, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(t)
	}
	return b.String(), nil
}

// pageCount validates the PDF structure and returns its page count.
func pageCount(content []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(content), conf)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu read: %w", err)
	}
	return ctx.PageCount, nil
}

func (e *Extractor) checkRasterizer() error {
	if _, err := e.runner.LookPath(e.cfg.Pdftoppm); err != nil {
		return common.ResourceUnavailablef("pdftoppm binary %q not available: %v", e.cfg.Pdftoppm, err)
	}
	return nil
}

// rasterize renders every page to PNG inside dir and returns the image
// paths in page order.
func (e *Extractor) rasterize(ctx context.Context, content []byte, dir string, validated bool) ([]string, error) {
	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, content, 0o600); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	prefix := filepath.Join(dir, "page")

	// pdftoppm -r 144 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", in, prefix)
	if err != nil {
		stderr := truncate(string(bytes.TrimSpace(errb)), 512)
		if !validated || pdfParseFailure(stderr) {
			return nil, common.InvalidInputf("document is not a readable pdf: %s", stderr)
		}
		return nil, common.ResourceUnavailablef("pdftoppm failed: %v: %s", err, stderr)
	}

	// pdftoppm zero-pads page numbers to a common width, so lexical order is page order.
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, common.InvalidInputf("pdf rendered no pages")
	}
	return matches, nil
}

// pdfParseFailure reports whether pdftoppm's stderr blames the document
// rather than the tool or the machine.
func pdfParseFailure(stderr string) bool {
	s := strings.ToLower(stderr)
	for _, marker := range []string{"syntax error", "xref", "trailer", "may not be a pdf", "damaged"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func (e *Extractor) recoverPDF(ctx context.Context, content []byte) (Result, error) {
	res := Result{SourceType: constants.PDF}

	text, err := embeddedText(content)
	if err != nil {
		e.logger.Debug("ocr.pdf.embedded_failed", "error", err)
	} else if text = Normalize(text); len([]rune(text)) > e.cfg.MinEmbeddedChars {
		res.Text, res.Method = text, MethodPDFText
		res.Pages = 1 + strings.Count(text, "\n\n")
		return res, nil
	}

	pages, perr := pageCount(content)
	if perr != nil {
		e.logger.Warn("ocr.pdf.validate_failed", "error", perr)
	}
	if err := e.checkRasterizer(); err != nil {
		return res, err
	}
	if err := e.recognizer.Check(); err != nil {
		return res, err
	}

	tmpDir, err := os.MkdirTemp("", "gst-pp-*")
	if err != nil {
		return res, err
	}
	defer e.removeAll(tmpDir)

	images, err := e.rasterize(ctx, content, tmpDir, perr == nil)
	if err != nil {
		return res, err
	}
	if pages > 0 && pages != len(images) {
		e.logger.Warn("ocr.pdf.page_mismatch", "pages", pages, "rendered", len(images))
	}

	parts := make([]string, 0, len(images))
	for i, img := range images {
		txt, err := e.recognizer.Recognize(ctx, img)
		if err != nil {
			return res, fmt.Errorf("page %d: %w", i+1, err)
		}
		if txt = Normalize(txt); txt != "" {
			parts = append(parts, txt)
		}
	}
	res.Text = strings.Join(parts, "\n\n")
	res.Method = MethodPDFOCR
	res.Pages = len(images)
	return res, nil
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/entity"
	"github.com/joseph-ayodele/gst-invoices/internal/export"
	"github.com/joseph-ayodele/gst-invoices/internal/ingest"
)

type stubProcessor struct{}

func (stubProcessor) ProcessInvoice(_ context.Context, doc entity.RawDocument) (entity.InvoiceResult, error) {
	if string(doc.Content) == "broken" {
		return entity.InvoiceResult{}, &common.StageError{Stage: "text_recovery", Err: common.InvalidInputf("unreadable")}
	}
	return sampleResult(), nil
}

func sampleResult() entity.InvoiceResult {
	r := entity.EmptyResult("Office chair 1000")
	r.Invoice.Number = "INV-7"
	r.LineItems = []entity.LineItem{{
		Description: "Office chair", Category: "Office Supplies", Qty: 1, UnitPrice: 1000,
		TaxableValue: 1000, GSTRate: 18, GSTBreakdown: entity.TaxBreakdown{CGST: 90, SGST: 90}, Total: 1180,
	}}
	r.Totals = entity.Totals{TaxableValue: 1000, GSTTotal: 180, GrandTotal: 1180}
	r.Confidence.Overall = 0.8
	return r
}

func stubBuild(t *testing.T) {
	t.Helper()
	orig := buildProcessor
	buildProcessor = func(*cobra.Command) (ingest.InvoiceProcessor, *slog.Logger, error) {
		return stubProcessor{}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil
	}
	t.Cleanup(func() { buildProcessor = orig })
}

func run(args ...string) (string, error) {
	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inv.json")
	require.NoError(t, ingest.WriteResult(path, sampleResult()))
	return path
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"process", "watch", "ocr", "recalc", "export"}, names)
}

func TestProcessCmd(t *testing.T) {
	stubBuild(t)
	in := t.TempDir()
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.pdf"), []byte("%PDF-1.4 a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "copy.pdf"), []byte("%PDF-1.4 a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("skip me"), 0o644))

	stdout, err := run("process", in, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "OK ")
	assert.Contains(t, stdout, "DUP ")
	assert.NotContains(t, stdout, "notes.txt")

	got, err := ingest.ReadResult(filepath.Join(out, "a.pdf.json"))
	require.NoError(t, err)
	assert.Equal(t, 1180.0, got.Totals.GrandTotal)
}

func TestProcessCmd_Failures(t *testing.T) {
	stubBuild(t)
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "bad.png"), []byte("broken"), 0o644))

	stdout, err := run("process", in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 documents failed")
	assert.Contains(t, stdout, "FAIL")

	_, err = run("process", t.TempDir())
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = run("process")
	assert.Error(t, err)
}

func TestRecalcCmd_LineItem(t *testing.T) {
	path := writeSample(t)

	stdout, err := run("recalc", path, "--index", "0", "--rate", "5")
	require.NoError(t, err)
	var got entity.InvoiceResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, entity.TaxBreakdown{CGST: 25, SGST: 25}, got.LineItems[0].GSTBreakdown)
	assert.Equal(t, 1050.0, got.Totals.GrandTotal)

	// stdout mode leaves the input untouched
	orig, err := ingest.ReadResult(path)
	require.NoError(t, err)
	assert.Equal(t, 1180.0, orig.Totals.GrandTotal)
}

func TestRecalcCmd_InterStateInPlace(t *testing.T) {
	path := writeSample(t)

	_, err := run("recalc", path, "--inter-state", "--index", "0", "--qty", "2", "--in-place")
	require.NoError(t, err)
	got, err := ingest.ReadResult(path)
	require.NoError(t, err)
	assert.True(t, got.IsInterState)
	assert.Equal(t, 2000.0, got.LineItems[0].TaxableValue)
	assert.Equal(t, entity.TaxBreakdown{IGST: 360}, got.LineItems[0].GSTBreakdown)
	assert.Equal(t, entity.Totals{TaxableValue: 2000, GSTTotal: 360, GrandTotal: 2360}, got.Totals)
}

func TestRecalcCmd_Errors(t *testing.T) {
	path := writeSample(t)
	tests := []struct {
		name string
		args []string
	}{
		{"nothing to change", []string{"recalc", path}},
		{"edit without index", []string{"recalc", path, "--rate", "5"}},
		{"index out of range", []string{"recalc", path, "--index", "4", "--rate", "5"}},
		{"negative qty", []string{"recalc", path, "--index", "0", "--qty=-1"}},
		{"missing file", []string{"recalc", filepath.Join(t.TempDir(), "nope.json"), "--inter-state"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(tt.args...)
			assert.True(t, errors.Is(err, common.ErrInvalidInput), "got %v", err)
		})
	}

	_, err := run("recalc", path, "--inter-state", "--out", "x.json", "--in-place")
	assert.Error(t, err)
}

func TestExportCmd(t *testing.T) {
	path := writeSample(t)
	book := filepath.Join(t.TempDir(), "book.xlsx")

	stdout, err := run("export", path, path, "-o", book)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote 2 invoices")

	f, err := excelize.OpenFile(book)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.InvoicesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "inv.json", rows[1][0])
	assert.Equal(t, "EXTRACTED", rows[1][1])
}

func TestExecute_ReturnsExitCode(t *testing.T) {
	assert.Equal(t, 1, Execute(context.Background(), []string{"recalc"}))
	assert.Equal(t, 0, Execute(context.Background(), []string{"--help"}))
}

func TestOCRCmd_MissingFile(t *testing.T) {
	_, err := run("ocr", filepath.Join(t.TempDir(), "nope.pdf"))
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

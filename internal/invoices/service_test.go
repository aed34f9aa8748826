package invoices

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/gst-invoices/constants"
	"github.com/joseph-ayodele/gst-invoices/internal/async"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/entity"
	"github.com/joseph-ayodele/gst-invoices/internal/pipeline"
	"github.com/joseph-ayodele/gst-invoices/internal/repository"
)

type fakeProcessor struct {
	result entity.InvoiceResult
	err    error
	docs   []entity.RawDocument
}

func (f *fakeProcessor) ProcessInvoice(_ context.Context, doc entity.RawDocument) (entity.InvoiceResult, error) {
	f.docs = append(f.docs, doc)
	return f.result, f.err
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func extracted(confidence float64) entity.InvoiceResult {
	r := entity.EmptyResult("TAX INVOICE")
	r.IsInterState = true
	r.LineItems = []entity.LineItem{{
		Description: "Software license", Category: "IT & Software", Qty: 1, UnitPrice: 10000,
		TaxableValue: 10000, GSTRate: 18, GSTBreakdown: entity.TaxBreakdown{IGST: 1800}, Total: 11800,
	}}
	r.Totals = entity.Totals{TaxableValue: 10000, GSTTotal: 1800, GrandTotal: 11800}
	r.Confidence.Overall = confidence
	return r
}

func newService(t *testing.T, proc InvoiceProcessor) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := repository.OpenSQLite(context.Background(), filepath.Join(dir, "db", "invoices.db"), quiet())
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	uploads := filepath.Join(dir, "uploads")
	return NewService(Config{UploadDir: uploads, ReviewThreshold: 0.5}, proc, repo, quiet()), uploads
}

var pdfDoc = entity.RawDocument{Content: []byte("%PDF-1.4 body"), ContentType: "application/pdf", Filename: "inv.pdf"}

func TestUpload_InlineStatuses(t *testing.T) {
	tests := []struct {
		name       string
		proc       *fakeProcessor
		wantStatus constants.InvoiceStatus
		wantError  string
	}{
		{"confident extraction", &fakeProcessor{result: extracted(0.9)}, constants.InvoiceStatusExtracted, ""},
		{"low confidence needs review", &fakeProcessor{result: extracted(0.3)}, constants.InvoiceStatusNeedsReview, ""},
		{"empty document needs review", &fakeProcessor{result: entity.EmptyResult("")}, constants.InvoiceStatusNeedsReview, ""},
		{
			"pipeline failure",
			&fakeProcessor{err: &common.StageError{Stage: "field_extraction", Err: &common.UpstreamError{StatusCode: 503, Message: "down"}}},
			constants.InvoiceStatusFailed,
			"field_extraction",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, uploads := newService(t, tt.proc)
			rec, err := svc.Upload(context.Background(), pdfDoc)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, rec.Status)
			assert.Contains(t, rec.Error, tt.wantError)
			assert.Equal(t, filepath.Join(uploads, rec.ID.String()+".pdf"), rec.BlobPath)
			b, err := os.ReadFile(rec.BlobPath)
			require.NoError(t, err)
			assert.Equal(t, pdfDoc.Content, b)

			require.Len(t, tt.proc.docs, 1)
			assert.Equal(t, "application/pdf", tt.proc.docs[0].ContentType)
			if tt.wantStatus == constants.InvoiceStatusFailed {
				assert.Nil(t, rec.Result)
			} else {
				require.NotNil(t, rec.Result)
			}
		})
	}
}

func TestUpload_ResolvesExtension(t *testing.T) {
	tests := []struct {
		name    string
		doc     entity.RawDocument
		wantExt string
		wantCT  string
	}{
		{"from filename", entity.RawDocument{Content: []byte{0xff, 0xd8, 0xff}, Filename: "scan.JPG"}, ".jpg", "image/jpeg"},
		{"from content type", entity.RawDocument{Content: []byte("data"), ContentType: "image/png"}, ".png", "image/png"},
		{"from pdf magic", entity.RawDocument{Content: []byte("%PDF-1.7"), Filename: "upload.bin"}, ".pdf", "application/pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t, &fakeProcessor{result: extracted(1)})
			rec, err := svc.Upload(context.Background(), tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, filepath.Ext(rec.BlobPath))
			assert.Equal(t, tt.wantCT, rec.ContentType)
		})
	}
}

func TestUpload_Rejects(t *testing.T) {
	svc, _ := newService(t, &fakeProcessor{})
	_, err := svc.Upload(context.Background(), entity.RawDocument{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.Upload(context.Background(), entity.RawDocument{Content: []byte("plain words"), Filename: "notes.txt"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestUpload_ThroughQueue(t *testing.T) {
	proc := &fakeProcessor{result: extracted(0.9)}
	svc, _ := newService(t, proc)
	q := async.NewProcessorQueue(svc, quiet(), async.WithWorkers(1), async.WithProcessTimeout(5*time.Second))
	svc.AttachQueue(q)

	rec, err := svc.Upload(context.Background(), pdfDoc)
	require.NoError(t, err)
	assert.Equal(t, constants.InvoiceStatusUploaded, rec.Status)

	q.Shutdown(context.Background())
	got, err := svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.InvoiceStatusExtracted, got.Status)
	assert.Equal(t, 11800.0, got.Result.Totals.GrandTotal)

	_, err = svc.Upload(context.Background(), pdfDoc)
	assert.ErrorIs(t, err, common.ErrResourceUnavailable)
}

func TestCorrectLineItem(t *testing.T) {
	svc, _ := newService(t, &fakeProcessor{result: extracted(0.3)})
	rec, err := svc.Upload(context.Background(), pdfDoc)
	require.NoError(t, err)
	require.Equal(t, constants.InvoiceStatusNeedsReview, rec.Status)

	rate := 12.0
	got, err := svc.CorrectLineItem(context.Background(), rec.ID, 0, pipeline.LineItemEdit{GSTRate: &rate})
	require.NoError(t, err)
	assert.True(t, got.IsCorrected)
	assert.Equal(t, constants.InvoiceStatusExtracted, got.Status)
	assert.Equal(t, entity.TaxBreakdown{IGST: 1200}, got.Result.LineItems[0].GSTBreakdown)
	assert.Equal(t, entity.Totals{TaxableValue: 10000, GSTTotal: 1200, GrandTotal: 11200}, got.Result.Totals)

	got, err = svc.SetInterState(context.Background(), rec.ID, false)
	require.NoError(t, err)
	assert.Equal(t, entity.TaxBreakdown{CGST: 600, SGST: 600}, got.Result.LineItems[0].GSTBreakdown)

	_, err = svc.CorrectLineItem(context.Background(), rec.ID, 5, pipeline.LineItemEdit{GSTRate: &rate})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.CorrectLineItem(context.Background(), uuid.New(), 0, pipeline.LineItemEdit{GSTRate: &rate})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCorrectLineItem_WithoutResult(t *testing.T) {
	svc, _ := newService(t, &fakeProcessor{err: common.InvalidInputf("bad image")})
	rec, err := svc.Upload(context.Background(), pdfDoc)
	require.NoError(t, err)
	require.Equal(t, constants.InvoiceStatusFailed, rec.Status)

	rate := 5.0
	_, err = svc.CorrectLineItem(context.Background(), rec.ID, 0, pipeline.LineItemEdit{GSTRate: &rate})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestProcessNow_WithoutStorage(t *testing.T) {
	svc := NewService(Config{}, &fakeProcessor{result: extracted(0.9)}, nil, quiet())
	got, err := svc.ProcessNow(context.Background(), pdfDoc)
	require.NoError(t, err)
	assert.Equal(t, 11800.0, got.Totals.GrandTotal)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestProcess_SkipsTerminalRecords(t *testing.T) {
	for _, proc := range []*fakeProcessor{
		{result: extracted(0.9)},
		{result: extracted(0.3)},
		{err: common.InvalidInputf("bad image")},
	} {
		svc, _ := newService(t, proc)
		rec, err := svc.Upload(context.Background(), pdfDoc)
		require.NoError(t, err)
		require.True(t, rec.Status.IsTerminal())

		proc.result, proc.err = entity.EmptyResult(""), nil
		require.NoError(t, svc.Process(context.Background(), rec.ID))
		assert.Len(t, proc.docs, 1)

		got, err := svc.Get(context.Background(), rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.Status, got.Status)
		assert.Equal(t, rec.Error, got.Error)
		if rec.Result != nil {
			require.NotNil(t, got.Result)
			assert.Equal(t, rec.Result.Totals, got.Result.Totals)
		}
	}
}

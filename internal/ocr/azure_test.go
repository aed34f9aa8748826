package ocr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
)

func words(ws ...string) *[]computervision.OcrWord {
	out := make([]computervision.OcrWord, 0, len(ws))
	for i := range ws {
		out = append(out, computervision.OcrWord{Text: &ws[i]})
	}
	return &out
}

func TestOCRResultText(t *testing.T) {
	tests := []struct {
		name   string
		result computervision.OcrResult
		want   string
	}{
		{"nil regions", computervision.OcrResult{}, ""},
		{
			name:   "nil lines and words are skipped",
			result: computervision.OcrResult{Regions: &[]computervision.OcrRegion{{}, {Lines: &[]computervision.OcrLine{{}}}}},
			want:   "",
		},
		{
			name: "nil word text is skipped",
			result: computervision.OcrResult{Regions: &[]computervision.OcrRegion{{Lines: &[]computervision.OcrLine{
				{Words: &[]computervision.OcrWord{{}, {Text: ptrString("GSTIN")}}},
			}}}},
			want: "GSTIN",
		},
		{
			name: "lines and regions are joined",
			result: computervision.OcrResult{Regions: &[]computervision.OcrRegion{
				{Lines: &[]computervision.OcrLine{{Words: words("TAX", "INVOICE")}, {Words: words("No.", "42")}}},
				{Lines: &[]computervision.OcrLine{{Words: words("कुल", "1,180.00")}}},
			}},
			want: "TAX INVOICE\nNo. 42\n\nकुल 1,180.00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ocrResultText(tt.result))
		})
	}
}

func ptrString(s string) *string { return &s }

func pageImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page-1.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 20, 20), 0o600))
	return path
}

func TestAzureRecognizer_Recognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vision/v3.0/ocr", r.URL.Path)
		assert.Equal(t, "unk", r.URL.Query().Get("language"))
		assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"language":"en","regions":[{"lines":[{"words":[{"text":"Total"},{"text":"11800"}]}]}]}`)
	}))
	defer srv.Close()

	a := NewAzureRecognizer(srv.URL, "secret", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, a.Check())
	text, err := a.Recognize(context.Background(), pageImage(t))
	require.NoError(t, err)
	assert.Equal(t, "Total 11800", text)
}

func TestAzureRecognizer_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"code":"401","message":"Access denied"}}`)
	}))
	defer srv.Close()

	a := NewAzureRecognizer(srv.URL, "wrong", slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := a.Recognize(context.Background(), pageImage(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUpstream)

	var up *common.UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, http.StatusUnauthorized, up.StatusCode)
	assert.False(t, up.Retryable)
}

func TestAzureRecognizer_CheckNeedsEndpoint(t *testing.T) {
	assert.ErrorIs(t, NewAzureRecognizer("", "k", nil).Check(), common.ErrResourceUnavailable)
}

func TestAzureError(t *testing.T) {
	assert.True(t, azureError(autoDetailed(503)).Retryable)
	assert.True(t, azureError(autoDetailed(429)).Retryable)
	assert.False(t, azureError(autoDetailed(400)).Retryable)
	plain := azureError(errors.New("dial tcp: refused"))
	assert.Zero(t, plain.StatusCode)
}

func autoDetailed(code int) error {
	return autorest.DetailedError{PackageType: "computervision.BaseClient", Method: "RecognizePrintedTextInStream", StatusCode: code}
}

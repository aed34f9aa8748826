package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
)

// AzureRecognizer sends page images to Azure Computer Vision's printed-text OCR.
type AzureRecognizer struct {
	client   computervision.BaseClient
	endpoint string
	logger   *slog.Logger
}

func NewAzureRecognizer(endpoint, apiKey string, logger *slog.Logger) *AzureRecognizer {
	if logger == nil {
		logger = slog.Default()
	}
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return &AzureRecognizer{client: client, endpoint: endpoint, logger: logger}
}

func (a *AzureRecognizer) Name() string { return "azure" }

func (a *AzureRecognizer) Check() error {
	if a.endpoint == "" {
		return common.ResourceUnavailablef("azure vision endpoint not configured")
	}
	return nil
}

func (a *AzureRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	start := time.Now()
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read page image: %w", err)
	}

	// "unk" lets the service detect the script; invoices mix English and Hindi.
	result, err := a.client.RecognizePrintedTextInStream(ctx, true, io.NopCloser(bytes.NewReader(data)), computervision.OcrLanguagesUnk)
	if err != nil {
		upErr := azureError(err)
		a.logger.Error("ocr.azure.failed", "status", upErr.StatusCode, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", upErr
	}

	text := ocrResultText(result)
	a.logger.Debug("ocr.azure.ok", "chars", len(text), "elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}

// azureError maps an autorest failure onto the upstream taxonomy. The SDK
// has already retried 429 and 5xx by the time it returns.
func azureError(err error) *common.UpstreamError {
	out := &common.UpstreamError{Message: "azure ocr", Cause: err}
	var de autorest.DetailedError
	if errors.As(err, &de) {
		if code, ok := de.StatusCode.(int); ok {
			out.StatusCode = code
			out.Retryable = code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		}
	}
	return out
}

// ocrResultText flattens regions into lines of space-separated words,
// with a blank line between regions.
func ocrResultText(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}
	var regions []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		var lines []string
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, w := range *line.Words {
				if w.Text != nil {
					words = append(words, *w.Text)
				}
			}
			if len(words) > 0 {
				lines = append(lines, strings.Join(words, " "))
			}
		}
		if len(lines) > 0 {
			regions = append(regions, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(regions, "\n\n")
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
)

// maxErrorBody bounds the response text kept on an UpstreamError.
const maxErrorBody = 512

// SendJSON POSTs body as JSON and returns the raw response. Every failure is
// a *common.UpstreamError; transport errors, 429 and 5xx are retryable unless
// the caller's context is already done.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	reqID := common.RequestIDFromContext(ctx)
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("llm.http.transport_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, &common.UpstreamError{Message: "send request", Retryable: ctx.Err() == nil, Cause: err}
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	logger.Info("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"request_bytes", len(payload),
		"response_bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if readErr != nil {
		return nil, &common.UpstreamError{StatusCode: resp.StatusCode, Message: "read response", Retryable: ctx.Err() == nil, Cause: readErr}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(raw)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody] + "…"
		}
		return raw, &common.UpstreamError{StatusCode: resp.StatusCode, Message: msg, Retryable: retryableStatus(resp.StatusCode)}
	}
	return raw, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

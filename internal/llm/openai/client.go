package openai

import (
	"context"
	"strings"
	"time"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/llm"
)

var _ llm.FieldExtractor = (*Client)(nil)

// ExtractFields implements llm.FieldExtractor using text-only chat/completions.
func (c *Client) ExtractFields(ctx context.Context, text string) (llm.DraftInvoice, []byte, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	start := time.Now()

	if c.cfg.APIKey == "" {
		c.logger.Error("llm.extract.no_credentials", "req_id", rid)
		return llm.DraftInvoice{}, nil, common.Configurationf("language model API key is not configured")
	}

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(text),
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": llm.SystemInstruction},
			{"role": "user", "content": llm.BuildUserPrompt(text, c.cfg.MaxInputChars)},
		},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	var content string
	err := c.cfg.Retry.Do(ctx, c.logger, func(attempt int) error {
		raw, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
		if err != nil {
			return err
		}
		content, err = llm.ChoiceContent(raw)
		return err
	})
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.DraftInvoice{}, nil, err
	}

	v, rawContent, err := llm.DecodeContent(content)
	if err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "content", preview(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.DraftInvoice{}, rawContent, err
	}

	if err := llm.ValidateDraft(c.schema, v); err != nil {
		// the normalizer defaults whatever the schema rejects
		c.logger.Warn("llm.extract.schema_mismatch", "req_id", rid, "error", err)
	}

	draft := llm.NormalizeDraft(v)
	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"vendor", draft.Vendor.Name,
		"invoice_no", draft.Invoice.Number,
		"line_items", len(draft.LineItems),
		"inter_state", draft.IsInterState,
		"confidence", draft.Confidence.Overall,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return draft, rawContent, nil
}

// preview shortens model output quoted in logs.
func preview(s string) string {
	if cut := llm.TruncateRunes(s, 1024); len(cut) < len(s) {
		return cut + "…"
	}
	return s
}

package llm

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
)

// StripCodeFence removes a surrounding ``` or ```json fence from model output.
func StripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ChoiceContent pulls the first choice's message content out of a
// chat-completions response body.
func ChoiceContent(raw []byte) (string, error) {
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", &common.UpstreamError{Message: "empty completion body", Retryable: true}
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", &common.UpstreamError{Message: "decode completion envelope", Cause: err}
	}
	if len(cc.Choices) == 0 || strings.TrimSpace(cc.Choices[0].Message.Content) == "" {
		return "", &common.UpstreamError{Message: "empty completion content", Retryable: true}
	}
	return cc.Choices[0].Message.Content, nil
}

// DecodeContent strips any code fence and decodes the model's JSON. A body
// that is not JSON is a deterministic failure and is not retried.
func DecodeContent(content string) (any, []byte, error) {
	body := []byte(StripCodeFence(content))
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, body, &common.UpstreamError{Message: "model output is not valid JSON", Cause: err}
	}
	return v, body, nil
}

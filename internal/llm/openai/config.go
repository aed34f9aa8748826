package openai

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/gst-invoices/internal/llm"
)

// Config for the chat-completions client. Works with OpenAI and with
// OpenAI-compatible gateways such as OpenRouter.
type Config struct {
	APIKey        string
	BaseURL       string        // default https://api.openai.com/v1
	Model         string        // e.g., "gpt-4o-mini"
	Temperature   float32       // 0..2
	Timeout       time.Duration // per-request http client timeout
	MaxInputChars int           // document text budget, default 12000
	Retry         llm.RetryPolicy
}

type Client struct {
	cfg    Config
	http   *http.Client
	schema *jsonschema.Schema
	logger *slog.Logger
}

// NewClient never reads the environment. An empty APIKey is reported by
// ExtractFields as a configuration error.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = llm.DefaultMaxInputChars
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = llm.DefaultRetryPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := llm.CompileDraftSchema()
	if err != nil {
		logger.Error("llm.schema.compile_failed", "error", err)
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		schema: schema,
		logger: logger,
	}
}

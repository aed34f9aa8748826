package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/gst-invoices/internal/category"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/llm"
	"github.com/joseph-ayodele/gst-invoices/internal/llm/openai"
	"github.com/joseph-ayodele/gst-invoices/internal/ocr"
)

// Build wires the OCR extractor, the chat-completions client and the category
// table from cfg. The config is not validated here; a missing API key
// surfaces on the first extraction.
func Build(cfg *common.Config, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	extractor := NewOCR(cfg, logger)

	client := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		Retry: llm.RetryPolicy{
			MaxAttempts: cfg.LLM.MaxAttempts,
			BaseDelay:   cfg.LLM.BaseDelay,
			MaxDelay:    cfg.LLM.MaxDelay,
		},
	}, logger)

	categorizer := category.Default()
	if cfg.CategoryRulesFile != "" {
		c, err := category.Load(cfg.CategoryRulesFile)
		if err != nil {
			return nil, err
		}
		categorizer = c
		logger.Info("pipeline.categories.loaded", "file", cfg.CategoryRulesFile, "rules", len(c.Rules()))
	}
	return NewProcessor(logger, extractor, client, categorizer), nil
}

// NewOCR builds the text recovery stage, using Azure Computer Vision for
// rasters when OCR_ENGINE=azure and tesseract otherwise.
func NewOCR(cfg *common.Config, logger *slog.Logger) *ocr.Extractor {
	var opts []ocr.Option
	if cfg.OCR.Engine == "azure" {
		opts = append(opts, ocr.WithRecognizer(ocr.NewAzureRecognizer(cfg.OCR.AzureEndpoint, cfg.OCR.AzureKey, logger)))
	}
	return ocr.NewExtractor(ocr.Config{
		Pdftoppm:    cfg.OCR.Pdftoppm,
		Tesseract:   cfg.OCR.Tesseract,
		Lang:        cfg.OCR.TesseractLang,
		TessdataDir: cfg.OCR.TessdataDir,
		DPI:         cfg.OCR.DPI,
	}, logger, opts...)
}

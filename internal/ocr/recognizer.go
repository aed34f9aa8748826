package ocr

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
)

// Recognizer turns one raster image on disk into text.
type Recognizer interface {
	Name() string
	// Check returns a ResourceUnavailable error when the engine cannot run on this host.
	Check() error
	Recognize(ctx context.Context, imagePath string) (string, error)
}

var missingLanguageMarkers = [][]byte{
	[]byte("Failed loading language"),
	[]byte("Error opening data file"),
}

type tesseract struct {
	cfg    Config
	runner Runner
}

// NewTesseract returns the tesseract CLI recognizer.
func NewTesseract(cfg Config, runner Runner) Recognizer {
	return &tesseract{cfg: cfg.withDefaults(), runner: runner}
}

func (t *tesseract) Name() string { return "tesseract" }

func (t *tesseract) Check() error {
	if _, err := t.runner.LookPath(t.cfg.Tesseract); err != nil {
		return common.ResourceUnavailablef("tesseract binary %q not available: %v", t.cfg.Tesseract, err)
	}
	return nil
}

func (t *tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	// tesseract <file> stdout -l <lang>
	args := []string{imagePath, "stdout", "-l", t.cfg.Lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}

	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		for _, m := range missingLanguageMarkers {
			if bytes.Contains(errb, m) {
				return "", common.ResourceUnavailablef("tesseract language data %q not installed: %s",
					t.cfg.Lang, truncate(string(bytes.TrimSpace(errb)), 512))
			}
		}
		return "", fmt.Errorf("tesseract %s: %w", filepath.Base(imagePath), err)
	}
	return string(out), nil
}

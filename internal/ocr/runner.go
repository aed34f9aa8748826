package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"

	"github.com/joseph-ayodele/gst-invoices/internal/llm"
)

// Runner executes the external OCR tools. Tests swap in a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
	LookPath(name string) (string, error)
}

// execRunner runs binaries via os/exec and logs each invocation under ocr.exec.*.
type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	start := time.Now()
	err := cmd.Run()
	attrs := []any{"bin", name, "argc", len(args), "elapsed_ms", time.Since(start).Milliseconds()}

	if err == nil {
		r.logger.Debug("ocr.exec.ok", append(attrs, "stdout_bytes", stdout.Len())...)
		return stdout.Bytes(), stderr.Bytes(), nil
	}
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	r.logger.Warn("ocr.exec.failed", append(attrs,
		"exit_code", exitCode,
		"canceled", ctx.Err() != nil,
		"stderr", truncate(string(bytes.TrimSpace(stderr.Bytes())), 2048),
		"error", err,
	)...)
	return stdout.Bytes(), stderr.Bytes(), err
}

// truncate caps tool output quoted in logs and errors at max characters.
func truncate(s string, max int) string {
	if cut := llm.TruncateRunes(s, max); len(cut) < len(s) {
		return cut + "…"
	}
	return s
}

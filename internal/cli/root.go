// Package cli implements the gstctl command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/ingest"
	"github.com/joseph-ayodele/gst-invoices/internal/pipeline"
)

// NewRootCommand builds a fresh command tree; each call has its own flags.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gstctl",
		Short:         "Extract GST invoices and recompute their tax",
		Long:          `Runs the invoice pipeline on local files, edits extracted results and exports them to XLSX.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newProcessCmd(), newWatchCmd(), newOCRCmd(), newRecalcCmd(), newExportCmd())
	return root
}

// Execute runs the command tree with args and returns the exit code.
func Execute(ctx context.Context, args []string) int {
	root := NewRootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

// loadRuntime reads the config and builds a logger writing to stderr, so
// stdout carries only command output.
func loadRuntime(cmd *cobra.Command) (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, common.NewLogger(cfg.Log, cmd.ErrOrStderr()), nil
}

// buildProcessor is replaced in tests.
var buildProcessor = func(cmd *cobra.Command) (ingest.InvoiceProcessor, *slog.Logger, error) {
	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	p, err := pipeline.Build(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return p, logger, nil
}

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/gst-invoices/constants"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/export"
	"github.com/joseph-ayodele/gst-invoices/internal/ingest"
)

func newExportCmd() *cobra.Command {
	var (
		out       string
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "export <result.json>...",
		Short: "Export result JSON files to an XLSX workbook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]export.Document, 0, len(args))
			for _, p := range args {
				r, err := ingest.ReadResult(p)
				if err != nil {
					return err
				}
				status := constants.InvoiceStatusExtracted
				if r.Confidence.Overall < threshold {
					status = constants.InvoiceStatusNeedsReview
				}
				docs = append(docs, export.Document{Ref: filepath.Base(p), Status: string(status), Result: r})
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			b, err := export.NewService(logger).WorkbookXLSX(cmd.Context(), docs)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return common.ResourceUnavailablef("write %s: %v", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d invoices to %s\n", len(docs), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "invoices.xlsx", "Workbook path")
	cmd.Flags().Float64Var(&threshold, "review-threshold", 0.5, "Confidence below which an invoice is marked NEEDS_REVIEW")
	return cmd
}

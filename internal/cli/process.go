package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/ingest"
)

func newProcessCmd() *cobra.Command {
	var (
		outDir     string
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "process <file|dir>...",
		Short: "Extract invoices and write one result JSON per document",
		Long: `Processes each PDF or image given, walking directories recursively.
Results are written as <name>.json into --out, or next to each source file.
Documents with identical content are processed once.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ingest.ExpandPaths(args, skipHidden)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return common.InvalidInputf("no supported documents found")
			}
			proc, logger, err := buildProcessor(cmd)
			if err != nil {
				return err
			}
			ing := ingest.NewFSIngestor(proc, outDir, logger)

			failed := 0
			for _, p := range paths {
				res, err := ing.IngestPath(cmd.Context(), p)
				if err != nil {
					failed++
					res.Err = err.Error()
				}
				printResult(cmd.OutOrStdout(), res)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(paths))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for result JSON files (default: next to each source)")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "Skip hidden files and directories")
	return cmd
}

func printResult(w io.Writer, r ingest.IngestionResult) {
	switch {
	case r.Err != "":
		fmt.Fprintf(w, "FAIL  %s: %s\n", r.SourcePath, r.Err)
	case r.Deduplicated:
		fmt.Fprintf(w, "DUP   %s -> %s\n", r.SourcePath, r.OutputPath)
	default:
		fmt.Fprintf(w, "OK    %s -> %s (%d items, total %.2f)\n", r.SourcePath, r.OutputPath, r.LineItems, r.GrandTotal)
	}
}

package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/gst-invoices/internal/ingest"
)

func newWatchCmd() *cobra.Command {
	var (
		outDir      string
		initialScan bool
		debounce    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Process documents as they appear in a directory",
		Long:  `Watches the directories recursively and processes every new or changed PDF or image until interrupted.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, logger, err := buildProcessor(cmd)
			if err != nil {
				return err
			}
			ing := ingest.NewFSIngestor(proc, outDir, logger)
			cfg := ingest.WatchConfig{
				Roots:       args,
				InitialScan: initialScan,
				Debounce:    debounce,
				SkipHidden:  true,
			}
			return ingest.Watch(cmd.Context(), ing, cfg, logger, func(r ingest.IngestionResult) {
				printResult(cmd.OutOrStdout(), r)
			})
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for result JSON files (default: next to each source)")
	cmd.Flags().BoolVar(&initialScan, "initial-scan", true, "Process files already present at startup")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before a changed file is processed")
	return cmd
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/gst-invoices/constants"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/entity"
	"github.com/joseph-ayodele/gst-invoices/internal/pipeline"
)

func newOCRCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ocr <file>",
		Short: "Print the text recovered from a PDF or image",
		Long:  `Runs only the text recovery stage. No API key is needed.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return common.InvalidInputf("read %s: %v", path, err)
			}
			cfg, logger, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			res, err := pipeline.NewOCR(cfg, logger).Extract(cmd.Context(), entity.RawDocument{
				Content:     content,
				ContentType: constants.ContentTypeForExt(filepath.Ext(path)),
				Filename:    filepath.Base(path),
			})
			if err != nil {
				return err
			}
			logger.Info("ocr.done", "path", path, "method", res.Method, "engine", res.Engine,
				"pages", res.Pages, "chars", len(res.Text), "duration_ms", res.Duration.Milliseconds())
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return err
		},
	}
}

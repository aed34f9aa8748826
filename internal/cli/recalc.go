package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/entity"
	"github.com/joseph-ayodele/gst-invoices/internal/ingest"
	"github.com/joseph-ayodele/gst-invoices/internal/pipeline"
)

type recalcOptions struct {
	index       int
	rate        float64
	taxable     float64
	qty         float64
	unitPrice   float64
	description string
	hsn         string
	category    string
	interState  bool
	out         string
	inPlace     bool
}

func newRecalcCmd() *cobra.Command {
	var o recalcOptions
	cmd := &cobra.Command{
		Use:   "recalc <result.json>",
		Short: "Correct a line item or the supply type and recompute GST",
		Long: `Applies a correction to a result written by "gstctl process" and recomputes
the affected tax and the document totals. The corrected result is printed,
written to --out, or written back with --in-place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecalc(cmd, args[0], o)
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.index, "index", -1, "Zero-based line item to edit")
	f.Float64Var(&o.rate, "rate", 0, "GST rate in percent")
	f.Float64Var(&o.taxable, "taxable", 0, "Taxable value")
	f.Float64Var(&o.qty, "qty", 0, "Quantity")
	f.Float64Var(&o.unitPrice, "unit-price", 0, "Unit price")
	f.StringVar(&o.description, "description", "", "Description")
	f.StringVar(&o.hsn, "hsn", "", "HSN/SAC code")
	f.StringVar(&o.category, "category", "", "Category")
	f.BoolVar(&o.interState, "inter-state", false, "Treat the supply as inter-state (IGST)")
	f.StringVarP(&o.out, "out", "o", "", "Write the corrected result here instead of stdout")
	f.BoolVar(&o.inPlace, "in-place", false, "Overwrite the input file")
	cmd.MarkFlagsMutuallyExclusive("out", "in-place")
	return cmd
}

func runRecalc(cmd *cobra.Command, path string, o recalcOptions) error {
	flags := cmd.Flags()
	edit := pipeline.LineItemEdit{}
	if flags.Changed("rate") {
		edit.GSTRate = &o.rate
	}
	if flags.Changed("taxable") {
		edit.TaxableValue = &o.taxable
	}
	if flags.Changed("qty") {
		edit.Qty = &o.qty
	}
	if flags.Changed("unit-price") {
		edit.UnitPrice = &o.unitPrice
	}
	if flags.Changed("description") {
		edit.Description = &o.description
	}
	if flags.Changed("hsn") {
		edit.HSNSAC = &o.hsn
	}
	if flags.Changed("category") {
		edit.Category = &o.category
	}
	supplyChange := flags.Changed("inter-state")
	if edit.Empty() && !supplyChange {
		return common.InvalidInputf("nothing to change: pass a line item edit or --inter-state")
	}
	if !edit.Empty() && !flags.Changed("index") {
		return common.InvalidInputf("--index is required for a line item edit")
	}

	result, err := ingest.ReadResult(path)
	if err != nil {
		return err
	}
	if supplyChange {
		result = pipeline.SetInterState(result, o.interState)
	}
	if !edit.Empty() {
		if result, err = pipeline.ApplyLineItemEdit(result, o.index, edit); err != nil {
			return err
		}
	}

	switch {
	case o.inPlace:
		return ingest.WriteResult(path, result)
	case o.out != "":
		return ingest.WriteResult(o.out, result)
	default:
		return printJSON(cmd, result)
	}
}

func printJSON(cmd *cobra.Command, result entity.InvoiceResult) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

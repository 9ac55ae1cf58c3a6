package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AliB771/One4All/features/category"
	"github.com/AliB771/One4All/internal/app"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a category as instruction-tuning JSONL",
	Long: `Writes one {"input", "output"} object per line. Rows with a well-formed
"sections" column expand into one record per question/answer pair; other
rows become a single title -> text record.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: runExport,
}

var exportFlags struct {
	category   string
	out        string
	maxBatches int
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFlags.category, "category", "", "Category to export (required)")
	exportCmd.Flags().StringVar(&exportFlags.out, "out", "", "Output JSONL path (required)")
	exportCmd.Flags().IntVar(&exportFlags.maxBatches, "max-batches", 0, "Read at most this many batches (0 = all)")
	_ = exportCmd.MarkFlagRequired("category")
	_ = exportCmd.MarkFlagRequired("out")
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFlags.category == "" || exportFlags.out == "" {
		return fmt.Errorf("%w: --category and --out are required", ErrUsage)
	}
	return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
		l, err := a.Loader(exportFlags.category)
		if err != nil {
			return err
		}
		defer l.Close()

		n, err := l.ExportJSONLFile(ctx, exportFlags.out, category.PageOptions{MaxBatches: exportFlags.maxBatches})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", n, exportFlags.out)
		return nil
	})
}

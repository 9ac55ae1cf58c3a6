package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AliB771/One4All/internal/app"
)

var encoderCmd = &cobra.Command{
	Use:   "encoder",
	Short: "Fit and save the label encoder of a category",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		if encoderFlags.category == "" {
			return fmt.Errorf("%w: --category is required", ErrUsage)
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			path, err := a.FitEncoder(ctx, encoderFlags.category, encoderFlags.out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved label encoder to %s\n", path)
			return nil
		})
	},
}

var encoderFlags struct {
	category string
	out      string
}

func init() {
	rootCmd.AddCommand(encoderCmd)
	encoderCmd.Flags().StringVar(&encoderFlags.category, "category", "", "Category to fit (required)")
	encoderCmd.Flags().StringVar(&encoderFlags.out, "out", "", "Output path (default <db file>_label_encoder.json)")
	_ = encoderCmd.MarkFlagRequired("category")
}

package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/AliB771/One4All/internal/app"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show row counts per label for every category",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			st, err := a.Stats.Collect(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"data": st})
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

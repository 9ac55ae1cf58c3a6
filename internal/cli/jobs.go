package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AliB771/One4All/internal/app"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and retry failed categories",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List failed categories",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			jobs, err := a.Jobs.List(ctx)
			if err != nil {
				return err
			}
			if jobsFlags.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(jobs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tRETRIES\tCREATED\tERROR")
			for _, j := range jobs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", j.ID, j.Category, j.Retries, j.CreatedAt.Format(time.DateTime), j.Error)
			}
			return tw.Flush()
		})
	},
}

var jobsRetryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Reprocess a failed category and drop it from the ledger",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			artifact, err := a.Jobs.Retry(ctx, args[0])
			if err != nil {
				return err
			}
			if artifact.Path == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Category %s produced no records\n", artifact.Category)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", artifact.Records, artifact.Path)
			return nil
		})
	},
}

var jobsFlags struct {
	json bool
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd, jobsRetryCmd)
	jobsListCmd.Flags().BoolVar(&jobsFlags.json, "json", false, "Print JSON instead of a table")
}

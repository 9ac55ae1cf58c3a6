package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AliB771/One4All/features/pipeline"
	"github.com/AliB771/One4All/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the concurrent data pipeline",
	Long: `Processes every ClassList category on a bounded worker pool, writes one
parquet file per category to OutputDir, then merges, shuffles and splits them
into <BasePath>/{training,validation,test}/router/<split>_dataset.parquet.

Failed categories are recorded in the ledger and can be retried with
"one4all jobs retry <id>".`,
	Args: usageArgs(cobra.NoArgs),
	RunE: runPipeline,
}

var runFlags struct {
	workers         int
	outputDir       string
	continueOnError bool
	maxBatches      int
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVarP(&runFlags.workers, "workers", "w", 0, "Maximum concurrent categories (default PIPELINE_MAX_WORKERS)")
	runCmd.Flags().StringVarP(&runFlags.outputDir, "output-dir", "o", "", "Directory for per-category parquet files (default OutputDir)")
	runCmd.Flags().BoolVar(&runFlags.continueOnError, "continue-on-error", false, "Merge the categories that succeeded instead of aborting")
	runCmd.Flags().IntVar(&runFlags.maxBatches, "max-batches", 0, "Read at most this many batches per category (0 = all)")
}

type runSummary struct {
	RunID     string               `json:"run_id"`
	Combined  int                  `json:"combined"`
	Artifacts []pipeline.Artifact  `json:"artifacts"`
	Splits    []pipeline.SplitFile `json:"splits"`
	Failed    []string             `json:"failed,omitempty"`
}

func pipelineOptions() ([]pipeline.Option, error) {
	if runFlags.workers < 0 {
		return nil, fmt.Errorf("%w: --workers must not be negative", ErrUsage)
	}
	if runFlags.maxBatches < 0 {
		return nil, fmt.Errorf("%w: --max-batches must not be negative", ErrUsage)
	}

	var opts []pipeline.Option
	if runFlags.workers > 0 {
		opts = append(opts, pipeline.WithMaxWorkers(runFlags.workers))
	}
	if runFlags.outputDir != "" {
		opts = append(opts, pipeline.WithOutputDir(runFlags.outputDir))
	}
	if runFlags.continueOnError {
		opts = append(opts, pipeline.WithFailFast(false))
	}
	if runFlags.maxBatches > 0 {
		opts = append(opts, pipeline.WithMaxBatches(runFlags.maxBatches))
	}
	return opts, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	opts, err := pipelineOptions()
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
		res, runErr := a.Run(ctx)
		if res == nil {
			return runErr
		}

		summary := runSummary{
			RunID:     res.RunID,
			Combined:  res.Combined.Len(),
			Artifacts: res.Artifacts,
			Splits:    res.Splits,
			Failed:    res.Failed,
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return errors.Join(runErr, err)
		}
		return runErr
	}, opts...)
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AliB771/One4All/features/pipeline"
	"github.com/AliB771/One4All/internal/app"
	"github.com/AliB771/One4All/internal/config"
	"github.com/AliB771/One4All/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "one4all",
	Short: "Prepare router training data from SQLite sources",
	Long: `one4all reads every configured category from its SQLite database,
chunks and label-encodes the rows, writes one parquet file per category and
merges them into training, validation and test splits.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  10 - Invalid or missing configuration
  11 - Category database not found
  13 - Category processing failed`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

var rootFlags struct {
	configPath string
	verbose    bool
}

// session is the state shared by commands during one invocation.
var session struct {
	cfg      *config.Config
	closeLog func() error
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlags.configPath, "config", "c", "", "Path to router_config.yaml (overrides ROUTER_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "command failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	if cerr := teardown(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" {
		return nil
	}
	cfg, err := config.LoadFile(rootFlags.configPath)
	if err != nil {
		return err
	}
	if rootFlags.verbose {
		cfg.LogLevel = "debug"
	}

	l, closeLog, err := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	slog.SetDefault(l)

	session.cfg = cfg
	session.closeLog = closeLog
	slog.DebugContext(cmd.Context(), "configuration loaded", "path", cfg.ConfigPath, "categories", len(cfg.DataProcessing.Categories))
	return nil
}

func teardown() error {
	if session.closeLog == nil {
		return nil
	}
	err := session.closeLog()
	session.closeLog = nil
	return err
}

// withApp bootstraps dependencies, runs fn and releases them.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error, opts ...pipeline.Option) error {
	deps, err := app.Bootstrap(ctx, session.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := deps.Close(); cerr != nil {
			slog.WarnContext(ctx, "failed to close dependencies", "error", cerr)
		}
	}()

	a, err := app.New(session.cfg, deps, opts...)
	if err != nil {
		return err
	}
	return fn(ctx, a)
}

// usageArgs tags positional argument errors as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		return nil
	}
}

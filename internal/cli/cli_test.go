package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliB771/One4All/features/category"
	"github.com/AliB771/One4All/features/job"
	"github.com/AliB771/One4All/features/pipeline"
	"github.com/AliB771/One4All/internal/config"
	"github.com/AliB771/One4All/internal/testutils"
)

func resetFlags() {
	rootFlags.configPath = ""
	rootFlags.verbose = false
	runFlags.workers = 0
	runFlags.outputDir = ""
	runFlags.continueOnError = false
	runFlags.maxBatches = 0
	exportFlags.category = ""
	exportFlags.out = ""
	exportFlags.maxBatches = 0
	encoderFlags.category = ""
	encoderFlags.out = ""
	jobsFlags.json = false
}

// execute runs the root command against a fresh workspace and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	require.NoError(t, teardown())
	return out.String(), err
}

func workspace(t *testing.T, names ...string) (base, cfgPath string) {
	t.Helper()
	base = t.TempDir()
	t.Setenv("LOG_FILE", filepath.Join(base, "logs", "pipeline.log"))
	t.Setenv("LEDGER_PATH", filepath.Join(base, "ledger.db"))
	t.Setenv("NSQD_HOST", "")
	cfgPath = testutils.WriteConfigYAML(t, base, names...)
	return base, cfgPath
}

func seed(t *testing.T, base, name string, n int) {
	t.Helper()
	rows := make([]testutils.SourceRow, n)
	for i := range rows {
		rows[i] = testutils.SourceRow{
			Category: fmt.Sprintf("label-%d", i%3),
			Title:    fmt.Sprintf("title %d", i),
			Text:     fmt.Sprintf("%s body %d", name, i),
			Sections: `[{"question":"q?","answer":"a."}]`,
		}
	}
	testutils.WriteSourceDB(t, filepath.Join(base, "raw", name+".db"), "docs", rows)
}

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", fmt.Errorf("%w: bad", ErrUsage), ExitUsageError},
		{"config missing", fmt.Errorf("load: %w", config.ErrConfigNotFound), ExitConfigError},
		{"config invalid", config.ErrInvalidConfig, ExitConfigError},
		{"unknown category", config.ErrUnknownCategory, ExitConfigError},
		{"source missing", category.ErrSourceNotFound, ExitSourceMissing},
		{"category failed", fmt.Errorf("%w: %w", pipeline.ErrCategoryFailed, category.ErrSourceNotFound), ExitCategoryFailed},
		{"job not found", job.ErrNotFound, ExitUsageError},
		{"cobra unknown flag", errors.New("unknown flag: --nope"), ExitUsageError},
		{"general", errors.New("disk full"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeForError(tt.err))
		})
	}
}

func TestRunCommand(t *testing.T) {
	base, cfgPath := workspace(t, "medical", "legal")
	seed(t, base, "medical", 30)
	seed(t, base, "legal", 20)

	out, err := execute(t, "run", "--config", cfgPath, "--workers", "2")
	require.NoError(t, err)

	var summary runSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 50, summary.Combined)
	assert.Len(t, summary.Artifacts, 2)
	require.Len(t, summary.Splits, 3)
	assert.Equal(t, 40, summary.Splits[0].Records)
	assert.FileExists(t, filepath.Join(base, "logs", "pipeline.log"))
}

func TestRunCommand_FailureAndRetry(t *testing.T) {
	base, cfgPath := workspace(t, "medical", "legal")
	seed(t, base, "medical", 10)

	_, err := execute(t, "run", "--config", cfgPath, "--continue-on-error")
	require.Error(t, err)
	assert.Equal(t, ExitCategoryFailed, ExitCodeForError(err))

	out, err := execute(t, "jobs", "list", "--json", "--config", cfgPath)
	require.NoError(t, err)
	var jobs []job.Job
	require.NoError(t, json.Unmarshal([]byte(out), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "legal", jobs[0].Category)

	seed(t, base, "legal", 5)
	out, err = execute(t, "jobs", "retry", jobs[0].ID, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 5 records")

	out, err = execute(t, "jobs", "list", "--config", cfgPath)
	require.NoError(t, err)
	assert.NotContains(t, out, "legal")
}

func TestStatsCommand(t *testing.T) {
	base, cfgPath := workspace(t, "medical")
	seed(t, base, "medical", 9)

	out, err := execute(t, "stats", "--config", cfgPath)
	require.NoError(t, err)

	var resp struct {
		Data struct {
			Rows       int `json:"rows"`
			FailedJobs int `json:"failed_jobs"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 9, resp.Data.Rows)
	assert.Equal(t, 0, resp.Data.FailedJobs)
}

func TestExportAndEncoderCommands(t *testing.T) {
	base, cfgPath := workspace(t, "medical")
	seed(t, base, "medical", 4)

	outPath := filepath.Join(base, "export", "medical.jsonl")
	out, err := execute(t, "export", "--config", cfgPath, "--category", "medical", "--out", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 4 records")
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"output":"a."`)

	encPath := filepath.Join(base, "enc.json")
	out, err = execute(t, "encoder", "--config", cfgPath, "--category", "medical", "--out", encPath)
	require.NoError(t, err)
	assert.Contains(t, out, encPath)
	assert.FileExists(t, encPath)
}

func TestCommandErrors(t *testing.T) {
	_, cfgPath := workspace(t, "medical")

	t.Run("MissingConfig", func(t *testing.T) {
		_, err := execute(t, "stats", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Equal(t, ExitConfigError, ExitCodeForError(err))
	})

	t.Run("RetryNeedsID", func(t *testing.T) {
		_, err := execute(t, "jobs", "retry", "--config", cfgPath)
		assert.Equal(t, ExitUsageError, ExitCodeForError(err))
	})

	t.Run("UnknownFlag", func(t *testing.T) {
		_, err := execute(t, "run", "--nope")
		assert.Equal(t, ExitUsageError, ExitCodeForError(err))
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		_, err := execute(t, "export", "--config", cfgPath, "--category", "sports", "--out", filepath.Join(t.TempDir(), "x.jsonl"))
		assert.Equal(t, ExitConfigError, ExitCodeForError(err))
	})

	t.Run("SourceMissing", func(t *testing.T) {
		_, err := execute(t, "encoder", "--config", cfgPath, "--category", "medical")
		assert.Equal(t, ExitSourceMissing, ExitCodeForError(err))
	})
}

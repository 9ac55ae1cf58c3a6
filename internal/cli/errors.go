package cli

import (
	"errors"
	"strings"

	"github.com/AliB771/One4All/features/category"
	"github.com/AliB771/One4All/features/job"
	"github.com/AliB771/One4All/features/pipeline"
	"github.com/AliB771/One4All/internal/config"
)

// Exit codes returned by the process.
const (
	ExitSuccess        = 0
	ExitGeneralError   = 1
	ExitUsageError     = 2
	ExitConfigError    = 10
	ExitSourceMissing  = 11
	ExitCategoryFailed = 13
)

// ErrUsage marks invalid arguments or flags.
var ErrUsage = errors.New("usage error")

// ExitCodeForError maps an error returned by Execute to an exit code.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrUsage):
		return ExitUsageError
	case errors.Is(err, config.ErrConfigNotFound),
		errors.Is(err, config.ErrMissingRequired),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrUnknownCategory):
		return ExitConfigError
	case errors.Is(err, pipeline.ErrCategoryFailed):
		return ExitCategoryFailed
	case errors.Is(err, category.ErrSourceNotFound):
		return ExitSourceMissing
	case errors.Is(err, job.ErrNotFound):
		return ExitUsageError
	}

	// cobra reports unknown commands and flags as plain errors
	msg := err.Error()
	if strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag") ||
		strings.HasPrefix(msg, "required flag") {
		return ExitUsageError
	}
	return ExitGeneralError
}

package job

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("job not found")

// Job is a category that failed during a pipeline run.
type Job struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Category  string    `json:"category"`
	Error     string    `json:"error"`
	Retries   int       `json:"retries"`
	CreatedAt time.Time `json:"created_at"`
}

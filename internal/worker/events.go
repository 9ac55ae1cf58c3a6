package worker

const (
	KindArtifact  = "artifact"
	KindCompleted = "completed"
)

// ArtifactEvent is published after a category artifact has been written.
type ArtifactEvent struct {
	Kind       string `json:"kind"`
	RunID      string `json:"run_id"`
	Category   string `json:"category"`
	Path       string `json:"path"`
	Records    int    `json:"records"`
	DurationMS int64  `json:"duration_ms"`
}

// CompletedEvent is published once the splits of a run are persisted.
type CompletedEvent struct {
	Kind      string         `json:"kind"`
	RunID     string         `json:"run_id"`
	Artifacts int            `json:"artifacts"`
	Combined  int            `json:"combined"`
	Splits    map[string]int `json:"splits"`
	Failed    []string       `json:"failed,omitempty"`
}

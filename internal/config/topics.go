package config

const (
	// TopicArtifactWritten is the NSQ topic announcing a finished per-category artifact.
	TopicArtifactWritten = "pipeline.artifact"

	// TopicPipelineCompleted is the NSQ topic announcing persisted train/validation/test splits.
	TopicPipelineCompleted = "pipeline.completed"
)

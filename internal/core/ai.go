package core

import "context"

// TaskType tells the embedding model how the vector will be used.
type TaskType string

const (
	TaskDocument TaskType = "document" // ingestion side
	TaskQuery    TaskType = "query"    // retrieval side
)

// EmbeddingProvider turns one text into one vector.
// Failures wrap ErrRateLimited, ErrTransient or ErrFatal.
type EmbeddingProvider interface {
	EmbedText(ctx context.Context, text string, task TaskType) ([]float32, error)
}

package core

import (
	"context"

	"github.com/markdave123-py/integraldb/internal/models"
)

// VectorStore defines the persistence operations the sync pipeline needs.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
// Chunks are partitioned by source filename (the document's display name).
type VectorStore interface {
	InsertChunks(ctx context.Context, chunks []models.Chunk) error
	DeleteChunksBySource(ctx context.Context, sourceFilename string) (int64, error)
	SourceExists(ctx context.Context, sourceFilename string) (bool, error)

	ListSources(ctx context.Context) ([]models.StoredSource, error)
	DeleteAllChunks(ctx context.Context) (int64, error)

	Close() error
}

// ObjectClient caches fetched document bytes on disk or in object storage.
// The cache is never the source of truth for change detection.
type ObjectClient interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) (location string, err error)
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// SourceLister enumerates the documents of one origin and fetches their bytes.
type SourceLister interface {
	Origin() models.Origin
	List(ctx context.Context) ([]models.SourceRecord, error)
	Fetch(ctx context.Context, rec models.SourceRecord) ([]byte, error)
}

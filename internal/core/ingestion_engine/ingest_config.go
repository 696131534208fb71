package ingestion_engine

import (
	"log/slog"

	"github.com/markdave123-py/integraldb/internal/core"
	"github.com/markdave123-py/integraldb/internal/core/state"
	"github.com/markdave123-py/integraldb/internal/models"
)

// IngestConfig tunes a sync pass.
//
// ChunkSize:    characters per chunk window (e.g., 1000).
// ChunkOverlap: characters shared by consecutive windows (e.g., 200). Must be below ChunkSize.
// MinTextChars: extracted text shorter than this marks the source unreadable.
// Workers:      sources processed concurrently; sources sharing a display name never run in parallel.
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	MinTextChars int
	Workers      int
}

func (c IngestConfig) withDefaults() IngestConfig {
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
		if c.ChunkOverlap == 0 {
			c.ChunkOverlap = 200
		}
	}
	if c.MinTextChars <= 0 {
		c.MinTextChars = 10
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c
}

// Dependencies are the capabilities a pass runs against.
//
// Listers:   one per enabled origin.
// States:    fingerprint state file.
// Store:     vector store holding the chunks.
// Cache:     optional raw-byte cache; never consulted for correctness alone.
// Embedder:  embedding provider, already wrapped with retry and rate limiting.
// Extractor: bytes to text.
type Dependencies struct {
	Listers   []core.SourceLister
	States    *state.Store
	Store     core.VectorStore
	Cache     core.ObjectClient
	Embedder  core.EmbeddingProvider
	Extractor core.DocumentExtractor
}

// Orchestrator runs sync passes: list, classify, then fetch, extract, chunk, embed and write
// each source that is new or modified, recording progress after every source.
type Orchestrator struct {
	listers   []core.SourceLister
	byOrigin  map[models.Origin]core.SourceLister
	states    *state.Store
	cache     core.ObjectClient
	embedder  core.EmbeddingProvider
	extractor core.DocumentExtractor
	writer    *StoreWriter
	chunker   *Chunker
	cfg       IngestConfig
	logger    *slog.Logger
}

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
	logger         *slog.Logger
}

package ingestion_engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/integraldb/internal/core"
	"github.com/markdave123-py/integraldb/internal/models"
)

// EmbeddedChunk is a chunk window with its vector, ready for the store.
type EmbeddedChunk struct {
	Position  int
	Content   string
	Embedding []float32
}

// StoreWriter owns every mutation of the vector store during a pass.
// All chunks of one display name are written as a single batch.
type StoreWriter struct {
	store  core.VectorStore
	logger *slog.Logger
	now    func() time.Time
}

func NewStoreWriter(store core.VectorStore, logger *slog.Logger) *StoreWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreWriter{store: store, logger: logger, now: time.Now}
}

// Exists reports whether any chunk is stored under the display name.
func (w *StoreWriter) Exists(ctx context.Context, displayName string) (bool, error) {
	ok, err := w.store.SourceExists(ctx, displayName)
	if err != nil {
		return false, fmt.Errorf("%w: query %s: %w", core.ErrWrite, displayName, err)
	}
	return ok, nil
}

// Delete removes every chunk of the given display names.
func (w *StoreWriter) Delete(ctx context.Context, displayNames ...string) (int64, error) {
	var total int64
	for _, name := range displayNames {
		n, err := w.store.DeleteChunksBySource(ctx, name)
		if err != nil {
			return total, fmt.Errorf("%w: delete %s: %w", core.ErrWrite, name, err)
		}
		total += n
	}
	return total, nil
}

// Replace deletes the stale display names, then inserts the new chunks in one batch.
// A crash between the two leaves the source absent until the next pass re-inserts it.
func (w *StoreWriter) Replace(ctx context.Context, rec models.SourceRecord, chunks []EmbeddedChunk, stale []string) error {
	if len(stale) > 0 {
		n, err := w.Delete(ctx, stale...)
		if err != nil {
			return err
		}
		w.logger.Debug("deleted stale chunks", "source", rec.DisplayName, "rows", n)
	}

	now := w.now().UTC()
	rows := make([]models.Chunk, len(chunks))
	for i, c := range chunks {
		rows[i] = models.Chunk{
			ID:             uuid.NewString(),
			SourceFilename: rec.DisplayName,
			Content:        c.Content,
			Embedding:      c.Embedding,
			Category:       string(rec.Origin),
			Position:       c.Position,
			CreatedAt:      now,
		}
	}
	if err := w.store.InsertChunks(ctx, rows); err != nil {
		return fmt.Errorf("%w: insert %d chunks for %s: %w", core.ErrWrite, len(rows), rec.DisplayName, err)
	}
	return nil
}

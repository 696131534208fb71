package services

import (
	"context"
	"fmt"

	"github.com/markdave123-py/integraldb/internal/core"
	"github.com/markdave123-py/integraldb/internal/core/state"
	"github.com/markdave123-py/integraldb/internal/models"
)

type DocumentService struct {
	store  core.VectorStore
	states *state.Store
}

func NewDocumentService(store core.VectorStore, states *state.Store) *DocumentService {
	return &DocumentService{store: store, states: states}
}

// List returns the stored display names with their chunk counts.
func (s *DocumentService) List(ctx context.Context) ([]models.StoredSource, error) {
	return s.store.ListSources(ctx)
}

// Clear deletes every chunk. With resetState the fingerprint state is removed too,
// so the next pass re-ingests everything instead of adopting nothing.
func (s *DocumentService) Clear(ctx context.Context, resetState bool) (int64, error) {
	n, err := s.store.DeleteAllChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: clear documents: %w", core.ErrWrite, err)
	}
	if resetState && s.states != nil {
		if err := s.states.Reset(); err != nil {
			return n, err
		}
	}
	return n, nil
}

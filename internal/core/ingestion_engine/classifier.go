package ingestion_engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/markdave123-py/integraldb/internal/core"
	"github.com/markdave123-py/integraldb/internal/core/state"
	"github.com/markdave123-py/integraldb/internal/models"
)

// Change is how a listed source relates to what was ingested before.
type Change string

const (
	ChangeNew       Change = "new"
	ChangeUnchanged Change = "unchanged"
	ChangeModified  Change = "modified"
)

// Classification is the classifier's verdict for one source.
type Classification struct {
	Change   Change
	Previous *state.Entry // nil when the identity was never seen
	Adopted  bool         // unchanged only because the store already holds the display name
	Reason   string
}

// Classifier compares listed sources with the fingerprint state, falling back
// to a store-presence query whenever the local state alone cannot prove a skip.
type Classifier struct {
	state  *state.State
	writer *StoreWriter
	cache  core.ObjectClient
	logger *slog.Logger
}

func NewClassifier(st *state.State, writer *StoreWriter, cache core.ObjectClient, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{state: st, writer: writer, cache: cache, logger: logger}
}

// Classify never fetches the source. It errors only when the store cannot be queried.
func (c *Classifier) Classify(ctx context.Context, rec models.SourceRecord) (Classification, error) {
	prev, ok := c.state.Get(rec.Origin, rec.Identity)
	if !ok {
		return c.confirm(ctx, rec, nil, "not in state")
	}

	p := &prev
	switch {
	case prev.Fingerprint != rec.Fingerprint:
		return Classification{Change: ChangeModified, Previous: p, Reason: "fingerprint changed"}, nil
	case prev.Name != "" && prev.Name != rec.DisplayName:
		return Classification{Change: ChangeModified, Previous: p, Reason: "display name changed"}, nil
	case prev.Unreadable:
		return Classification{Change: ChangeUnchanged, Previous: p, Reason: "known unreadable"}, nil
	case prev.Uploaded && c.cached(ctx, prev.Path):
		return Classification{Change: ChangeUnchanged, Previous: p, Reason: "fingerprint matches"}, nil
	}
	return c.confirm(ctx, rec, p, "local copy missing or upload unconfirmed")
}

// confirm asks the store whether the display name is already ingested.
func (c *Classifier) confirm(ctx context.Context, rec models.SourceRecord, prev *state.Entry, why string) (Classification, error) {
	exists, err := c.writer.Exists(ctx, rec.DisplayName)
	if err != nil {
		return Classification{}, fmt.Errorf("classify %s: %w", rec.DisplayName, err)
	}
	if exists {
		return Classification{Change: ChangeUnchanged, Previous: prev, Adopted: true, Reason: why + ", present in store"}, nil
	}
	return Classification{Change: ChangeNew, Previous: prev, Reason: why}, nil
}

func (c *Classifier) cached(ctx context.Context, location string) bool {
	if c.cache == nil || location == "" {
		return false
	}
	ok, err := c.cache.ObjectExists(ctx, location)
	if err != nil {
		c.logger.Debug("cache lookup failed", "location", location, "err", err)
		return false
	}
	return ok
}

package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/integraldb/internal/core"
	objectclient "github.com/markdave123-py/integraldb/internal/core/object-client"
	"github.com/markdave123-py/integraldb/internal/core/state"
	"github.com/markdave123-py/integraldb/internal/models"
)

// NewOrchestrator checks the dependencies and chunking parameters up front;
// these are the only errors that ever stop a pass from starting.
func NewOrchestrator(deps Dependencies, cfg IngestConfig, logger *slog.Logger) (*Orchestrator, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	var missing []string
	if len(deps.Listers) == 0 {
		missing = append(missing, "source listers")
	}
	if deps.States == nil {
		missing = append(missing, "state store")
	}
	if deps.Store == nil {
		missing = append(missing, "vector store")
	}
	if deps.Embedder == nil {
		missing = append(missing, "embedder")
	}
	if deps.Extractor == nil {
		missing = append(missing, "extractor")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: orchestrator missing %s", core.ErrConfiguration, strings.Join(missing, ", "))
	}

	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	byOrigin := make(map[models.Origin]core.SourceLister, len(deps.Listers))
	for _, l := range deps.Listers {
		byOrigin[l.Origin()] = l
	}

	return &Orchestrator{
		listers:   deps.Listers,
		byOrigin:  byOrigin,
		states:    deps.States,
		cache:     deps.Cache,
		embedder:  deps.Embedder,
		extractor: deps.Extractor,
		writer:    NewStoreWriter(deps.Store, logger),
		chunker:   chunker,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Run executes one sync pass. A failing source or origin never aborts the pass.
// Once ctx is canceled no further source is started; a source already writing finishes its write.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunReport, error) {
	rep := &reportBuilder{r: models.RunReport{StartedAt: time.Now().UTC()}}

	st := o.states.Load()
	records := o.listAll(ctx, rep)
	classifier := NewClassifier(st, o.writer, o.cache, o.logger)

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Workers)

	for _, group := range groupByDisplayName(records) {
		if ctx.Err() != nil {
			rep.cancel()
			break
		}
		// sources sharing a display name are processed in order by one worker
		g.Go(func() error {
			for _, rec := range group {
				if ctx.Err() != nil {
					rep.cancel()
					return nil
				}
				rep.add(o.processOne(ctx, st, classifier, rec, rep))
				if err := o.states.Save(st); err != nil {
					o.logger.Error("failed to save state", "path", o.states.Path(), "err", err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	r := rep.finish()
	o.logger.Info("sync pass complete",
		"listed", r.Listed, "skipped", r.Skipped, "done", r.Done, "failed", r.Failed,
		"unreadable", r.Unreadable, "chunks", r.ChunksWritten, "embed_calls", r.EmbedCalls,
		"canceled", r.Canceled, "duration", r.Duration())
	return r, nil
}

// listAll gathers records from every origin; a failing origin contributes none.
func (o *Orchestrator) listAll(ctx context.Context, rep *reportBuilder) []models.SourceRecord {
	var all []models.SourceRecord
	for _, l := range o.listers {
		recs, err := l.List(ctx)
		if err != nil {
			if !errors.Is(err, core.ErrSourceList) {
				err = fmt.Errorf("%w: %w", core.ErrSourceList, err)
			}
			o.logger.Error("source listing failed", "origin", l.Origin(), "err", err)
			rep.listError(l.Origin(), err)
			continue
		}
		o.logger.Info("listed sources", "origin", l.Origin(), "count", len(recs))
		all = append(all, recs...)
	}
	rep.listed(len(all))
	return all
}

// groupByDisplayName keeps first-seen order for groups and for records within a group.
func groupByDisplayName(records []models.SourceRecord) [][]models.SourceRecord {
	index := make(map[string]int, len(records))
	var groups [][]models.SourceRecord
	for _, rec := range records {
		i, ok := index[rec.DisplayName]
		if !ok {
			i = len(groups)
			index[rec.DisplayName] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], rec)
	}
	return groups
}

// processOne drives one source to a terminal state. Failed sources leave
// their state entry untouched so the next pass retries them.
func (o *Orchestrator) processOne(ctx context.Context, st *state.State, cls *Classifier, rec models.SourceRecord, rep *reportBuilder) models.SourceOutcome {
	log := o.logger.With("source", rec.DisplayName, "origin", rec.Origin, "identity", rec.Identity)
	out := models.SourceOutcome{Origin: rec.Origin, Identity: rec.Identity, DisplayName: rec.DisplayName}

	cl, err := cls.Classify(ctx, rec)
	if err != nil {
		return o.fail(log, out, err)
	}
	out.Change = string(cl.Change)

	var prevPath string
	if cl.Previous != nil {
		prevPath = cl.Previous.Path
	}

	if cl.Change == ChangeUnchanged {
		if cl.Adopted {
			st.Put(rec.Origin, rec.Identity, state.Entry{
				Name: rec.DisplayName, Fingerprint: rec.Fingerprint, Path: prevPath, Uploaded: true,
			})
		}
		out.State = models.StateSkipped
		log.Info("source skipped", "state", out.State, "chunks", 0, "reason", cl.Reason)
		return out
	}

	// Fetching
	lister, ok := o.byOrigin[rec.Origin]
	if !ok {
		return o.fail(log, out, fmt.Errorf("%w: no lister for origin %s", core.ErrFetch, rec.Origin))
	}
	data, err := lister.Fetch(ctx, rec)
	if err != nil {
		if !errors.Is(err, core.ErrFetch) {
			err = fmt.Errorf("%w: %w", core.ErrFetch, err)
		}
		return o.fail(log, out, err)
	}
	rec.LocalPath = o.cacheBytes(ctx, log, rec, data)
	if rec.LocalPath == "" {
		rec.LocalPath = prevPath
	}

	stale := staleNames(cl, rec)
	wctx := context.WithoutCancel(ctx)

	// Extracting
	if err := ctx.Err(); err != nil {
		return o.fail(log, out, fmt.Errorf("%w: %w", core.ErrExtract, err))
	}
	text := o.extractor.ExtractText(ctx, data, rec.ContentType)
	// an interrupted extraction yields empty text; that is not an unreadable document
	if err := ctx.Err(); err != nil {
		return o.fail(log, out, fmt.Errorf("%w: interrupted: %w", core.ErrExtract, err))
	}

	// Chunking
	var windows []string
	if utf8.RuneCountInString(strings.TrimSpace(text)) >= o.cfg.MinTextChars {
		windows = o.chunker.Split(text)
	}
	if len(windows) == 0 {
		return o.unreadable(wctx, log, st, rec, stale, out)
	}

	// Embedding
	embedded, dropped := o.embedAll(ctx, log, windows, rep)
	out.Dropped = dropped
	if err := ctx.Err(); err != nil {
		return o.fail(log, out, fmt.Errorf("%w: interrupted: %w", core.ErrEmbed, err))
	}
	if len(embedded) == 0 {
		return o.fail(log, out, fmt.Errorf("%w: none of %d chunks embedded", core.ErrEmbed, len(windows)))
	}

	// Writing
	if err := o.writer.Replace(wctx, rec, embedded, stale); err != nil {
		return o.fail(log, out, err)
	}

	st.Put(rec.Origin, rec.Identity, state.Entry{
		Name: rec.DisplayName, Fingerprint: rec.Fingerprint, Path: rec.LocalPath, Uploaded: true,
	})
	out.State = models.StateDone
	out.Chunks = len(embedded)
	rep.written(len(embedded))
	log.Info("source ingested", "state", out.State, "chunks", out.Chunks, "dropped", dropped, "change", cl.Change)
	return out
}

// unreadable records a source with no usable text so it is not retried until its fingerprint changes.
// The previous version's chunks are removed so the store matches the remote content.
func (o *Orchestrator) unreadable(ctx context.Context, log *slog.Logger, st *state.State, rec models.SourceRecord, stale []string, out models.SourceOutcome) models.SourceOutcome {
	if len(stale) > 0 {
		if _, err := o.writer.Delete(ctx, stale...); err != nil {
			return o.fail(log, out, err)
		}
	}
	st.Put(rec.Origin, rec.Identity, state.Entry{
		Name: rec.DisplayName, Fingerprint: rec.Fingerprint, Path: rec.LocalPath, Unreadable: true,
	})
	out.State = models.StateUnreadable
	out.Error = core.ErrNoUsableText.Error()
	log.Warn("source has no usable text", "state", out.State, "chunks", 0)
	return out
}

// embedAll embeds windows one by one. A chunk whose embedding fails is dropped, not the source.
func (o *Orchestrator) embedAll(ctx context.Context, log *slog.Logger, windows []string, rep *reportBuilder) ([]EmbeddedChunk, int) {
	out := make([]EmbeddedChunk, 0, len(windows))
	dropped := 0
	for i, w := range windows {
		if ctx.Err() != nil {
			dropped += len(windows) - i
			break
		}
		vec, err := o.embedder.EmbedText(ctx, w, core.TaskDocument)
		rep.embedCall()
		if err != nil {
			dropped++
			log.Warn("dropping chunk", "position", i, "err", err)
			continue
		}
		out = append(out, EmbeddedChunk{Position: i, Content: w, Embedding: vec})
	}
	return out, dropped
}

// cacheBytes stores the fetched bytes; failures only cost a future store query.
func (o *Orchestrator) cacheBytes(ctx context.Context, log *slog.Logger, rec models.SourceRecord, data []byte) string {
	if o.cache == nil {
		return ""
	}
	key := objectclient.ObjectKey(string(rec.Origin), rec.DisplayName)
	loc, err := o.cache.PutObject(ctx, key, data, rec.ContentType)
	if err != nil {
		log.Warn("failed to cache document bytes", "key", key, "err", err)
		return ""
	}
	return loc
}

// staleNames are the display names whose chunks a modified source replaces.
func staleNames(cl Classification, rec models.SourceRecord) []string {
	if cl.Change != ChangeModified {
		return nil
	}
	names := []string{rec.DisplayName}
	if cl.Previous != nil && cl.Previous.Name != "" && cl.Previous.Name != rec.DisplayName {
		names = append(names, cl.Previous.Name)
	}
	return names
}

func (o *Orchestrator) fail(log *slog.Logger, out models.SourceOutcome, err error) models.SourceOutcome {
	out.State = models.StateFailed
	out.Error = err.Error()
	log.Error("source failed", "state", out.State, "chunks", 0, "err", err)
	return out
}

// reportBuilder collects a RunReport across workers.
type reportBuilder struct {
	mu sync.Mutex
	r  models.RunReport
}

func (b *reportBuilder) listed(n int) {
	b.mu.Lock()
	b.r.Listed += n
	b.mu.Unlock()
}

func (b *reportBuilder) listError(origin models.Origin, err error) {
	b.mu.Lock()
	b.r.ListErrors = append(b.r.ListErrors, fmt.Sprintf("%s: %v", origin, err))
	b.mu.Unlock()
}

func (b *reportBuilder) embedCall() {
	b.mu.Lock()
	b.r.EmbedCalls++
	b.mu.Unlock()
}

func (b *reportBuilder) written(n int) {
	b.mu.Lock()
	b.r.ChunksWritten += n
	b.mu.Unlock()
}

func (b *reportBuilder) cancel() {
	b.mu.Lock()
	b.r.Canceled = true
	b.mu.Unlock()
}

func (b *reportBuilder) add(out models.SourceOutcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch out.State {
	case models.StateSkipped:
		b.r.Skipped++
	case models.StateDone:
		b.r.Done++
	case models.StateFailed:
		b.r.Failed++
	case models.StateUnreadable:
		b.r.Unreadable++
	}
	b.r.Outcomes = append(b.r.Outcomes, out)
}

func (b *reportBuilder) finish() *models.RunReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.r.FinishedAt = time.Now().UTC()
	r := b.r
	return &r
}

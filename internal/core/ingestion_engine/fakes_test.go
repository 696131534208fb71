package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/markdave123-py/integraldb/internal/core"
	"github.com/markdave123-py/integraldb/internal/models"
)

type fakeLister struct {
	mu       sync.Mutex
	origin   models.Origin
	records  []models.SourceRecord
	content  map[string]string // identity -> bytes
	fetchErr map[string]error
	listErr  error
	fetches  map[string]int
	onFetch  func(rec models.SourceRecord)
}

func newFakeLister(origin models.Origin) *fakeLister {
	return &fakeLister{
		origin:   origin,
		content:  map[string]string{},
		fetchErr: map[string]error{},
		fetches:  map[string]int{},
	}
}

func (l *fakeLister) add(identity, name, fingerprint, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.records {
		if r.Identity == identity {
			l.records[i].DisplayName = name
			l.records[i].Fingerprint = fingerprint
			l.content[identity] = content
			return
		}
	}
	l.records = append(l.records, models.SourceRecord{
		Origin: l.origin, Identity: identity, DisplayName: name, Fingerprint: fingerprint, ContentType: "text/plain",
	})
	l.content[identity] = content
}

func (l *fakeLister) Origin() models.Origin { return l.origin }

func (l *fakeLister) List(context.Context) ([]models.SourceRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listErr != nil {
		return nil, l.listErr
	}
	return append([]models.SourceRecord(nil), l.records...), nil
}

func (l *fakeLister) Fetch(_ context.Context, rec models.SourceRecord) ([]byte, error) {
	l.mu.Lock()
	l.fetches[rec.Identity]++
	err := l.fetchErr[rec.Identity]
	data := l.content[rec.Identity]
	hook := l.onFetch
	l.mu.Unlock()

	if hook != nil {
		hook(rec)
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (l *fakeLister) fetchCount(identity string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fetches[identity]
}

func (l *fakeLister) totalFetches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.fetches {
		n += c
	}
	return n
}

// fakeStore is an in-memory VectorStore keyed by source filename.
type fakeStore struct {
	mu        sync.Mutex
	rows      map[string][]models.Chunk
	inserts   int
	deletes   int
	exists    int
	insertErr error
	existsErr error
	onInsert  func(chunks []models.Chunk)
}

func newFakeStore() *fakeStore { return &fakeStore{rows: map[string][]models.Chunk{}} }

func (s *fakeStore) InsertChunks(_ context.Context, chunks []models.Chunk) error {
	s.mu.Lock()
	if s.insertErr != nil {
		s.mu.Unlock()
		return s.insertErr
	}
	s.inserts++
	for _, c := range chunks {
		s.rows[c.SourceFilename] = append(s.rows[c.SourceFilename], c)
	}
	hook := s.onInsert
	s.mu.Unlock()
	if hook != nil {
		hook(chunks)
	}
	return nil
}

func (s *fakeStore) DeleteChunksBySource(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	n := int64(len(s.rows[name]))
	delete(s.rows, name)
	return n, nil
}

func (s *fakeStore) SourceExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exists++
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return len(s.rows[name]) > 0, nil
}

func (s *fakeStore) ListSources(context.Context) ([]models.StoredSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.StoredSource
	for name, rows := range s.rows {
		out = append(out, models.StoredSource{SourceFilename: name, Chunks: len(rows)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceFilename < out[j].SourceFilename })
	return out, nil
}

func (s *fakeStore) DeleteAllChunks(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, rows := range s.rows {
		n += int64(len(rows))
	}
	s.rows = map[string][]models.Chunk{}
	return n, nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) contents(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rows[name]))
	for _, c := range s.rows[name] {
		out = append(out, c.Content)
	}
	return out
}

func (s *fakeStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts + s.deletes
}

// fakeEmbedder returns a fixed vector; texts containing a marker fail with the mapped error class.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  map[string]error // substring -> error class
}

func (e *fakeEmbedder) EmbedText(_ context.Context, text string, task core.TaskType) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if task != core.TaskDocument {
		return nil, fmt.Errorf("%w: %w: wrong task type %s", core.ErrEmbed, core.ErrFatal, task)
	}
	for marker, class := range e.fail {
		if strings.Contains(text, marker) {
			return nil, fmt.Errorf("%w: %w: scripted", core.ErrEmbed, class)
		}
	}
	return []float32{float32(len(text)), 0.5, 0.25}, nil
}

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// textExtractor treats the fetched bytes as the document text.
type textExtractor struct {
	mu        sync.Mutex
	calls     int
	onExtract func()
}

// ExtractText returns empty text once ctx is done, like DocconvExtractor.
func (x *textExtractor) ExtractText(ctx context.Context, data []byte, _ string) string {
	x.mu.Lock()
	x.calls++
	hook := x.onExtract
	x.mu.Unlock()

	if hook != nil {
		hook()
	}
	if ctx.Err() != nil {
		return ""
	}
	return string(data)
}

func (x *textExtractor) callCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.calls
}

var errBoom = errors.New("boom")

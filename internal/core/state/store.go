// Package state persists what the sync pipeline has already seen, so unchanged
// remote documents are never fetched or embedded twice.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/markdave123-py/integraldb/internal/models"
)

// Entry is the last-seen state of one remote document.
type Entry struct {
	Name        string    `json:"name"`
	Fingerprint string    `json:"fingerprint"`
	Path        string    `json:"path,omitempty"`
	Uploaded    bool      `json:"uploaded"`
	Unreadable  bool      `json:"unreadable,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// UnmarshalJSON accepts the object form, the drive form keyed by "modifiedTime",
// and bare path strings written by older mail ingestion runs.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var path string
	if err := json.Unmarshal(b, &path); err == nil {
		*e = Entry{Path: path, Name: filepath.Base(path)}
		return nil
	}

	type plain Entry
	var aux struct {
		plain
		ModifiedTime string `json:"modifiedTime"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*e = Entry(aux.plain)
	if e.Fingerprint == "" && aux.ModifiedTime != "" {
		e.Fingerprint = aux.ModifiedTime
		// older drive entries hold the remote name; the stored file name is the display name
		if e.Path != "" {
			e.Name = filepath.Base(e.Path)
		}
	}
	if e.Name == "" && e.Path != "" {
		e.Name = filepath.Base(e.Path)
	}
	return nil
}

// fileFormat is the on-disk layout: one map per origin plus the uploaded display names.
type fileFormat struct {
	Emails   map[string]Entry `json:"emails"`
	Drive    map[string]Entry `json:"drive"`
	Uploaded []string         `json:"uploaded"`
}

// State is the in-memory fingerprint mapping. It is safe for concurrent use.
type State struct {
	mu       sync.RWMutex
	entries  map[models.Origin]map[string]Entry
	uploaded map[string]struct{}
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		entries: map[models.Origin]map[string]Entry{
			models.OriginMail:  {},
			models.OriginDrive: {},
		},
		uploaded: map[string]struct{}{},
	}
}

// Get returns the entry for an identity within an origin.
func (s *State) Get(origin models.Origin, identity string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[origin][identity]
	return e, ok
}

// Put records the entry for an identity, replacing any previous one.
func (s *State) Put(origin models.Origin, identity string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}
	if s.entries[origin] == nil {
		s.entries[origin] = map[string]Entry{}
	}
	prev, hadPrev := s.entries[origin][identity]
	s.entries[origin][identity] = e
	if e.Uploaded {
		s.uploaded[e.Name] = struct{}{}
	} else {
		s.dropUploaded(e.Name)
	}
	if hadPrev && prev.Name != e.Name {
		s.dropUploaded(prev.Name)
	}
}

// dropUploaded forgets name unless another uploaded entry still holds it.
// Callers hold s.mu.
func (s *State) dropUploaded(name string) {
	for _, m := range s.entries {
		for _, e := range m {
			if e.Uploaded && e.Name == name {
				return
			}
		}
	}
	delete(s.uploaded, name)
}

// Len is the number of entries across all origins.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.entries {
		n += len(m)
	}
	return n
}

// IsUploaded reports whether a display name is recorded as uploaded.
func (s *State) IsUploaded(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.uploaded[name]
	return ok
}

func (s *State) snapshot() fileFormat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ff := fileFormat{
		Emails:   make(map[string]Entry, len(s.entries[models.OriginMail])),
		Drive:    make(map[string]Entry, len(s.entries[models.OriginDrive])),
		Uploaded: make([]string, 0, len(s.uploaded)),
	}
	for k, v := range s.entries[models.OriginMail] {
		ff.Emails[k] = v
	}
	for k, v := range s.entries[models.OriginDrive] {
		ff.Drive[k] = v
	}
	for name := range s.uploaded {
		ff.Uploaded = append(ff.Uploaded, name)
	}
	sort.Strings(ff.Uploaded)
	return ff
}

// Store reads and writes the state file as a whole.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path is the state file location.
func (s *Store) Path() string { return s.path }

// Load never fails: a missing or unparsable file yields an empty state.
func (s *Store) Load() *State {
	st := NewState()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("state file unreadable, starting fresh", "path", s.path, "err", err)
		}
		return st
	}

	var ff fileFormat
	if err := json.Unmarshal(b, &ff); err != nil {
		s.logger.Warn("state file corrupt, starting fresh", "path", s.path, "err", err)
		return st
	}

	for _, name := range ff.Uploaded {
		st.uploaded[name] = struct{}{}
	}
	for id, e := range ff.Emails {
		// attachments are immutable, their identity is their fingerprint
		if e.Fingerprint == "" {
			e.Fingerprint = id
		}
		if _, ok := st.uploaded[e.Name]; ok {
			e.Uploaded = true
		}
		st.entries[models.OriginMail][id] = e
	}
	for id, e := range ff.Drive {
		if _, ok := st.uploaded[e.Name]; ok {
			e.Uploaded = true
		}
		st.entries[models.OriginDrive][id] = e
	}
	return st
}

// Save writes the whole state through a temp file and a rename.
// Concurrent callers are serialised.
func (s *Store) Save(st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.MarshalIndent(st.snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ingest_state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Reset removes the state file; the next Load starts fresh.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove state: %w", err)
	}
	return nil
}

package models

import (
	"time"
)

// Origin names the remote system a document is pulled from.
type Origin string

const (
	OriginMail  Origin = "mail-attachment"
	OriginDrive Origin = "cloud-file"
)

// SourceRecord represents one remote document as reported by a source lister.
type SourceRecord struct {
	Origin      Origin `json:"origin"`
	Identity    string `json:"identity"`     // message:attachment id, or drive file id
	DisplayName string `json:"display_name"` // partition key in the vector store (source_filename)
	Fingerprint string `json:"fingerprint"`  // attachment identity, or drive modifiedTime
	ContentType string `json:"content_type"` // declared remote content type
	LocalPath   string `json:"-"`            // set once bytes are fetched, never persisted
}

// Chunk represents one embedded text window of a document.
type Chunk struct {
	ID             string    `db:"id" json:"id"`
	SourceFilename string    `db:"source_filename" json:"source_filename"`
	Content        string    `db:"content" json:"content"`
	Embedding      []float32 `db:"embedding" json:"-"` // pgvector column
	Category       string    `db:"category" json:"category,omitempty"`
	Position       int       `db:"position" json:"position"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// StoredSource summarises the chunks held for one display name.
type StoredSource struct {
	SourceFilename string    `db:"source_filename" json:"source_filename"`
	Chunks         int       `db:"chunks" json:"chunks"`
	LastIngested   time.Time `db:"last_ingested" json:"last_ingested"`
}

// SourceState is the terminal state a source reached during a sync pass.
type SourceState string

const (
	StateSkipped    SourceState = "skipped"
	StateDone       SourceState = "done"
	StateFailed     SourceState = "failed"
	StateUnreadable SourceState = "unreadable"
)

// SourceOutcome records what happened to one source in a pass.
type SourceOutcome struct {
	Origin      Origin      `json:"origin"`
	Identity    string      `json:"identity"`
	DisplayName string      `json:"display_name"`
	Change      string      `json:"change"` // new | unchanged | modified
	State       SourceState `json:"state"`
	Chunks      int         `json:"chunks"`
	Dropped     int         `json:"dropped_chunks,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// RunReport summarises one sync pass.
type RunReport struct {
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	Listed        int             `json:"listed"`
	Skipped       int             `json:"skipped"`
	Done          int             `json:"done"`
	Failed        int             `json:"failed"`
	Unreadable    int             `json:"unreadable"`
	ChunksWritten int             `json:"chunks_written"`
	EmbedCalls    int             `json:"embed_calls"`
	ListErrors    []string        `json:"list_errors,omitempty"`
	Canceled      bool            `json:"canceled,omitempty"`
	Outcomes      []SourceOutcome `json:"outcomes"`
}

// Duration is the wall time of the pass.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

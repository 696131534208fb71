package core

import "errors"

// Configuration-time errors abort before any source is processed.
var ErrConfiguration = errors.New("configuration error")

// Origin-level errors: the origin contributes no sources for this pass.
var ErrSourceList = errors.New("source list failed")

// Source-local errors leave the source failed and retried next pass.
var (
	ErrFetch   = errors.New("fetch failed")
	ErrExtract = errors.New("extract failed")
	ErrEmbed   = errors.New("embed failed")
	ErrWrite   = errors.New("write failed")
)

// Embedding failure classes.
var (
	ErrRateLimited = errors.New("embedding rate limited")
	ErrTransient   = errors.New("embedding transient error")
	ErrFatal       = errors.New("embedding fatal error")
)

// ErrSyncInProgress is returned when a pass is triggered while another is running.
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrNoUsableText marks a source whose extracted text is below the readability threshold.
var ErrNoUsableText = errors.New("no usable text")

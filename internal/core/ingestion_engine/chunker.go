package ingestion_engine

import (
	"fmt"
	"strings"

	"github.com/markdave123-py/integraldb/internal/core"
)

// Chunker splits text into fixed-size overlapping windows, counted in runes.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker fails fast on a window that could never advance.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", core.ErrConfiguration, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", core.ErrConfiguration, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Windows returns every window: window i starts at i*(size-overlap),
// and the last one is the first to reach the end of the text.
func (c *Chunker) Windows(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	out := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; ; start += step {
		end := min(start+c.size, len(runes))
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

// Split returns the windows ready for embedding: NUL bytes stripped, blank windows dropped.
func (c *Chunker) Split(text string) []string {
	windows := c.Windows(text)
	out := windows[:0]
	for _, w := range windows {
		w = strings.ReplaceAll(w, "\x00", "")
		if strings.TrimSpace(w) == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}

package core

import (
	"context"
)

// DocumentExtractor defines the interface for extracting plain text from fetched document bytes.
// The `contentType` hint helps the extractor choose the right parsing strategy.
// Implementations never fail: a document that cannot be parsed yields empty text.
type DocumentExtractor interface {
	ExtractText(ctx context.Context, data []byte, contentType string) string
}

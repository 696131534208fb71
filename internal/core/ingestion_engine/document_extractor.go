package ingestion_engine

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/integraldb/internal/core"
)

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

func NewDocconvExtractor(useReadability bool, logger *slog.Logger) *DocconvExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocconvExtractor{useReadability: useReadability, logger: logger}
}

// ExtractText converts the bytes with docconv. Parse failures are logged and yield "".
func (e *DocconvExtractor) ExtractText(ctx context.Context, data []byte, contentType string) string {
	if len(data) == 0 || ctx.Err() != nil {
		return ""
	}

	mime := sniffMime(data, contentType)
	res, err := docconv.Convert(bytes.NewReader(data), mime, e.useReadability)
	if err != nil {
		e.logger.Warn("docconv: extraction failed", "content_type", mime, "err", err)
		return ""
	}

	text := normalizeText(res.Body)
	if text == "" {
		e.logger.Debug("docconv: extracted empty text", "content_type", mime)
	}
	return text
}

// sniffMime trusts the bytes over the declared type: exported Google Docs arrive as PDF.
func sniffMime(data []byte, declared string) string {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return "application/pdf"
	}
	if declared != "" && declared != "application/octet-stream" {
		if i := strings.IndexByte(declared, ';'); i >= 0 {
			declared = declared[:i]
		}
		return strings.TrimSpace(declared)
	}
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return mime
}

// normalizeText trims every line and drops blank ones.
func normalizeText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/markdave123-py/integraldb/internal/services"
)

type DocumentHandler struct {
	docs   *services.DocumentService
	logger *slog.Logger
}

func NewDocumentHandler(docs *services.DocumentService, logger *slog.Logger) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentHandler{docs: docs, logger: logger}
}

// GetDocuments lists the stored display names with their chunk counts.
func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	sources, err := h.docs.List(r.Context())
	if err != nil {
		h.logger.Error("list documents failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": sources, "count": len(sources)})
}

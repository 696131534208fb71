package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	middleware "github.com/markdave123-py/integraldb/internal/api/middlewares"
	"github.com/markdave123-py/integraldb/internal/core"
	"github.com/markdave123-py/integraldb/internal/services"
)

type SyncHandler struct {
	sync    *services.SyncService
	baseCtx context.Context // passes outlive the triggering request
	logger  *slog.Logger
}

func NewSyncHandler(baseCtx context.Context, sync *services.SyncService, logger *slog.Logger) *SyncHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncHandler{sync: sync, baseCtx: baseCtx, logger: logger}
}

// Trigger starts a sync pass in the background; 409 when one is already running.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	err := h.sync.TriggerAsync(h.baseCtx)
	if errors.Is(err, core.ErrSyncInProgress) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("sync trigger failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to start sync")
		return
	}
	sub, _ := middleware.Subject(r.Context())
	h.logger.Info("sync pass triggered", "triggered_by", sub, "request_id", chimw.GetReqID(r.Context()))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// Status returns whether a pass is running and the last report.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sync.Status())
}

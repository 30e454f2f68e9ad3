package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"portal/internal/handler/sse"
	"portal/internal/httputil"
	"portal/internal/signal"
)

// ChangesHandler exposes the per-enterprise change counter so clients know
// when to refetch their tree
type ChangesHandler struct {
	signal signal.Signal
	config *sse.Config
	logger *slog.Logger
}

// NewChangesHandler creates a new changes handler
func NewChangesHandler(sig signal.Signal, config *sse.Config, logger *slog.Logger) *ChangesHandler {
	if config == nil {
		config = sse.DefaultConfig()
	}
	return &ChangesHandler{
		signal: sig,
		config: config,
		logger: logger,
	}
}

type changesResponse struct {
	Version uint64 `json:"version"`
}

// GetVersion returns the current change counter of the caller's enterprise
// GET /api/changes
func (h *ChangesHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	key := signal.EnterpriseKey(httputil.GetPrincipal(r).EnterpriseID)

	version, err := h.signal.Value(r.Context(), key)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, changesResponse{Version: version})
}

// Stream pushes a change event each time the counter moves
// GET /api/changes/stream
func (h *ChangesHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	ctx := r.Context()
	key := signal.EnterpriseKey(httputil.GetPrincipal(r).EnterpriseID)

	// Last-Event-ID lets a reconnecting client skip the version it already has
	var last uint64
	if id := r.Header.Get("Last-Event-ID"); id != "" {
		last, _ = strconv.ParseUint(id, 10, 64)
	} else if current, err := h.signal.Value(ctx, key); err == nil {
		last = current
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	err = sse.StreamVersions(ctx, writer, h.config, last, func(ctx context.Context) (uint64, error) {
		return h.signal.Value(ctx, key)
	})
	h.logger.Debug("change stream closed", "key", key, "reason", err)
}

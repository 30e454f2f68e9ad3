package handler

import (
	"log/slog"
	"net/http"

	models "portal/internal/domain/models/docsystem"
	"portal/internal/domain/services"
	docsysSvc "portal/internal/domain/services/docsystem"
	"portal/internal/httputil"
)

// ShareHandler handles shared folder HTTP requests
type ShareHandler struct {
	shareService docsysSvc.ShareService
	authorizer   services.ResourceAuthorizer
	logger       *slog.Logger
}

// NewShareHandler creates a new share handler
func NewShareHandler(shareService docsysSvc.ShareService, authorizer services.ResourceAuthorizer, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
		authorizer:   authorizer,
		logger:       logger,
	}
}

// ShareFolder shares a folder subtree
// POST /api/shares
// Returns 201 if created, 409 with the existing share if the folder is already shared
func (h *ShareHandler) ShareFolder(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}

	var req docsysSvc.ShareFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.authorizer.CanManageShares(r.Context(), httputil.GetPrincipal(r), req.FolderID); err != nil {
		handleError(w, err)
		return
	}

	share, err := h.shareService.ShareFolder(r.Context(), &req)
	if err != nil {
		HandleCreateConflict(w, err, func(id int64) (*models.SharedFolder, error) {
			return h.shareService.GetShare(r.Context(), id)
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, share)
}

// UpdateShare changes a share's visibility and target services
// PATCH /api/shares/{id}
func (h *ShareHandler) UpdateShare(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	var req docsysSvc.UpdateShareRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.authorizeShare(w, r, id) {
		return
	}

	share, err := h.shareService.UpdateShare(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, share)
}

// UnshareFolder removes a share together with the shared folder subtree
// DELETE /api/shares/{id}
func (h *ShareHandler) UnshareFolder(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	if !h.authorizeShare(w, r, id) {
		return
	}

	if err := h.shareService.UnshareFolder(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListShares lists the shares the caller may traverse
// GET /api/shares
func (h *ShareHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}

	shares, err := h.shareService.ListShares(r.Context(), httputil.GetPrincipal(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, shares)
}

// ResolveVisible lists visible shares with their owning service and path
// GET /api/shares/visible
func (h *ShareHandler) ResolveVisible(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}

	summaries, err := h.shareService.ResolveVisible(r.Context(), httputil.GetPrincipal(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, summaries)
}

// authorizeShare checks the caller may manage the share's folder
func (h *ShareHandler) authorizeShare(w http.ResponseWriter, r *http.Request, id int64) bool {
	share, err := h.shareService.GetShare(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return false
	}
	if err := h.authorizer.CanManageShares(r.Context(), httputil.GetPrincipal(r), share.FolderID); err != nil {
		handleError(w, err)
		return false
	}
	return true
}

package handler

import (
	"log/slog"
	"net/http"

	"portal/internal/domain"
	"portal/internal/domain/services"
	docsysSvc "portal/internal/domain/services/docsystem"
	"portal/internal/httputil"
)

// FolderHandler handles folder HTTP requests
type FolderHandler struct {
	folderService docsysSvc.FolderService
	docService    docsysSvc.DocumentService
	authorizer    services.ResourceAuthorizer
	logger        *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(
	folderService docsysSvc.FolderService,
	docService docsysSvc.DocumentService,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		docService:    docService,
		authorizer:    authorizer,
		logger:        logger,
	}
}

// CreateFolder creates a new folder under a parent folder or a service root
// POST /api/folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	principal := httputil.GetPrincipal(r)

	var req docsysSvc.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var err error
	switch {
	case req.ParentID != nil:
		err = h.authorizer.CanModifyFolder(r.Context(), principal, *req.ParentID)
	case req.ServiceID != nil:
		err = h.authorizer.CanAccessService(r.Context(), principal, *req.ServiceID)
	default:
		err = &domain.ValidationError{Message: "parent_id or service_id is required"}
	}
	if err != nil {
		handleError(w, err)
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// GetFolder retrieves a folder by ID with its computed path
// GET /api/folders/{id}
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	folder, err := h.folderService.GetFolder(r.Context(), httputil.GetPrincipal(r), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// UpdateFolder renames and/or moves a folder
// PATCH /api/folders/{id}
func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	principal := httputil.GetPrincipal(r)
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	var req docsysSvc.UpdateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == nil && req.ParentID == nil {
		httputil.RespondError(w, http.StatusBadRequest, "name or parent_id is required")
		return
	}

	// Authorize both halves before anything is mutated
	if err := h.authorizer.CanModifyFolder(r.Context(), principal, id); err != nil {
		handleError(w, err)
		return
	}
	if req.ParentID != nil {
		if err := h.authorizer.CanModifyFolder(r.Context(), principal, *req.ParentID); err != nil {
			handleError(w, err)
			return
		}
	}

	folder, err := h.folderService.UpdateFolder(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder deletes a folder with its subtree and documents
// DELETE /api/folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.authorizer.CanModifyFolder(r.Context(), httputil.GetPrincipal(r), id); err != nil {
		handleError(w, err)
		return
	}
	if err := h.folderService.DeleteFolder(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListChildren lists the visible child folders and documents of a folder
// GET /api/folders/{id}/children
func (h *FolderHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	contents, err := h.folderService.ListChildren(r.Context(), httputil.GetPrincipal(r), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, contents)
}

// ListDocuments lists the documents directly inside a folder
// GET /api/folders/{id}/documents
func (h *FolderHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	docs, err := h.docService.ListDocuments(r.Context(), httputil.GetPrincipal(r), &docsysSvc.ListDocumentsRequest{FolderID: &id})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

package handler

import (
	"log/slog"
	"net/http"

	docsysSvc "portal/internal/domain/services/docsystem"
	"portal/internal/httputil"
)

// ServiceHandler handles the per-service views: root folder, tree and unfiled documents
type ServiceHandler struct {
	treeService   docsysSvc.TreeService
	folderService docsysSvc.FolderService
	docService    docsysSvc.DocumentService
	logger        *slog.Logger
}

// NewServiceHandler creates a new service handler
func NewServiceHandler(
	treeService docsysSvc.TreeService,
	folderService docsysSvc.FolderService,
	docService docsysSvc.DocumentService,
	logger *slog.Logger,
) *ServiceHandler {
	return &ServiceHandler{
		treeService:   treeService,
		folderService: folderService,
		docService:    docService,
		logger:        logger,
	}
}

// GetTree returns the nested folder/document tree of a service
// GET /api/services/{id}/tree
func (h *ServiceHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	serviceID, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	tree, err := h.treeService.GetServiceTree(r.Context(), httputil.GetPrincipal(r), serviceID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}

// GetRoot returns the service root folder, creating it on first use
// GET /api/services/{id}/root
func (h *ServiceHandler) GetRoot(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	serviceID, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	root, err := h.folderService.GetServiceRoot(r.Context(), serviceID)
	if err != nil {
		handleError(w, err)
		return
	}
	// Re-read through the visibility filter
	root, err = h.folderService.GetFolder(r.Context(), httputil.GetPrincipal(r), root.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, root)
}

// ListDocuments lists the unfiled documents of a service
// GET /api/services/{id}/documents
func (h *ServiceHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	serviceID, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	docs, err := h.docService.ListDocuments(r.Context(), httputil.GetPrincipal(r), &docsysSvc.ListDocumentsRequest{ServiceID: &serviceID})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

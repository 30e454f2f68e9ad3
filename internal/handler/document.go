package handler

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"portal/internal/config"
	"portal/internal/domain"
	"portal/internal/domain/services"
	docsysSvc "portal/internal/domain/services/docsystem"
	"portal/internal/httputil"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temp files
const multipartMemory = 8 << 20

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	docService docsysSvc.DocumentService
	authorizer services.ResourceAuthorizer
	logger     *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(docService docsysSvc.DocumentService, authorizer services.ResourceAuthorizer, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		authorizer: authorizer,
		logger:     logger,
	}
}

// updateDocumentRequest is the PATCH body. folder_id null unfiles the document.
type updateDocumentRequest struct {
	Name     *string                  `json:"name"`
	FolderID httputil.Optional[int64] `json:"folder_id"`
}

// CreateDocument uploads a document
// POST /api/documents (multipart: file, name, folder_id | service_id, mime_type)
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	principal := httputil.GetPrincipal(r)

	// Leave room for the multipart envelope around the file
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		handleError(w, fmt.Errorf("%w: invalid multipart form: %w", domain.ErrValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := parseUploadForm(r)
	if err != nil {
		handleError(w, err)
		return
	}
	req.CreatedBy = &principal.ID

	if req.FolderID != nil {
		err = h.authorizer.CanModifyFolder(r.Context(), principal, *req.FolderID)
	} else {
		err = h.authorizer.CanAccessService(r.Context(), principal, *req.ServiceID)
	}
	if err != nil {
		handleError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handleError(w, fmt.Errorf("%w: file is required", domain.ErrValidation))
		return
	}
	defer file.Close()

	req.Content, err = io.ReadAll(io.LimitReader(file, config.MaxUploadBytes+1))
	if err != nil {
		handleError(w, err)
		return
	}
	if req.Name == "" {
		req.Name = header.Filename
	}

	doc, err := h.docService.CreateDocument(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// parseUploadForm reads the non-file fields of an upload
func parseUploadForm(r *http.Request) (*docsysSvc.CreateDocumentRequest, error) {
	req := &docsysSvc.CreateDocumentRequest{
		Name:     strings.TrimSpace(r.FormValue("name")),
		MimeType: r.FormValue("mime_type"),
	}

	var err error
	if req.FolderID, err = formID(r, "folder_id"); err != nil {
		return nil, err
	}
	if req.ServiceID, err = formID(r, "service_id"); err != nil {
		return nil, err
	}
	if req.FolderID == nil && req.ServiceID == nil {
		return nil, &domain.ValidationError{Message: "folder_id or service_id is required"}
	}
	return req, nil
}

func formID(r *http.Request, field string) (*int64, error) {
	raw := r.FormValue(field)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, &domain.ValidationError{Message: "invalid " + field + ": " + raw}
	}
	return &id, nil
}

// GetDocument retrieves a document's metadata
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	doc, err := h.docService.GetDocument(r.Context(), httputil.GetPrincipal(r), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// GetContent streams a document's bytes
// GET /api/documents/{id}/content
func (h *DocumentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	doc, content, err := h.docService.OpenDocument(r.Context(), httputil.GetPrincipal(r), id)
	if err != nil {
		handleError(w, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Name}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		// Headers are out, nothing left to tell the client
		h.logger.Warn("document stream interrupted", "id", doc.ID, "error", err)
	}
}

// UpdateDocument renames and/or moves a document
// PATCH /api/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	principal := httputil.GetPrincipal(r)
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	var req updateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == nil && !req.FolderID.Present {
		httputil.RespondError(w, http.StatusBadRequest, "name or folder_id is required")
		return
	}

	// Authorize both halves before anything is mutated
	if err := h.authorizer.CanModifyDocument(r.Context(), principal, id); err != nil {
		handleError(w, err)
		return
	}
	if req.FolderID.Present && req.FolderID.Value != nil {
		if err := h.authorizer.CanModifyFolder(r.Context(), principal, *req.FolderID.Value); err != nil {
			handleError(w, err)
			return
		}
	}

	doc, err := h.docService.UpdateDocument(r.Context(), id, &docsysSvc.UpdateDocumentRequest{
		Name:     req.Name,
		Move:     req.FolderID.Present,
		FolderID: req.FolderID.Value,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// DeleteDocument deletes a document and its file
// DELETE /api/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if !requirePrincipal(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.authorizer.CanModifyDocument(r.Context(), httputil.GetPrincipal(r), id); err != nil {
		handleError(w, err)
		return
	}
	if err := h.docService.DeleteDocument(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

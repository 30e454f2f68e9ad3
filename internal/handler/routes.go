package handler

import "net/http"

// Handlers groups every HTTP handler of the portal
type Handlers struct {
	Folders   *FolderHandler
	Documents *DocumentHandler
	Services  *ServiceHandler
	Shares    *ShareHandler
	Changes   *ChangesHandler
}

// Register mounts the API routes on mux (Go 1.22+ enhanced patterns)
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", HealthCheck)

	// Service views
	mux.HandleFunc("GET /api/services/{id}/root", h.Services.GetRoot)
	mux.HandleFunc("GET /api/services/{id}/tree", h.Services.GetTree)
	mux.HandleFunc("GET /api/services/{id}/documents", h.Services.ListDocuments)

	// Folder routes
	mux.HandleFunc("POST /api/folders", h.Folders.CreateFolder)
	mux.HandleFunc("GET /api/folders/{id}", h.Folders.GetFolder)
	mux.HandleFunc("PATCH /api/folders/{id}", h.Folders.UpdateFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", h.Folders.DeleteFolder)
	mux.HandleFunc("GET /api/folders/{id}/children", h.Folders.ListChildren)
	mux.HandleFunc("GET /api/folders/{id}/documents", h.Folders.ListDocuments)

	// Document routes
	mux.HandleFunc("POST /api/documents", h.Documents.CreateDocument)
	mux.HandleFunc("GET /api/documents/{id}", h.Documents.GetDocument)
	mux.HandleFunc("GET /api/documents/{id}/content", h.Documents.GetContent)
	mux.HandleFunc("PATCH /api/documents/{id}", h.Documents.UpdateDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", h.Documents.DeleteDocument)

	// Share routes
	mux.HandleFunc("POST /api/shares", h.Shares.ShareFolder)
	mux.HandleFunc("GET /api/shares", h.Shares.ListShares)
	mux.HandleFunc("GET /api/shares/visible", h.Shares.ResolveVisible)
	mux.HandleFunc("PATCH /api/shares/{id}", h.Shares.UpdateShare)
	mux.HandleFunc("DELETE /api/shares/{id}", h.Shares.UnshareFolder)

	// Change notification
	mux.HandleFunc("GET /api/changes", h.Changes.GetVersion)
	mux.HandleFunc("GET /api/changes/stream", h.Changes.Stream)
}

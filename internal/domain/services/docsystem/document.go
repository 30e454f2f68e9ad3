package docsystem

import (
	"context"
	"io"

	"portal/internal/domain/models/docsystem"
)

// DocumentService handles document business logic
type DocumentService interface {
	// CreateDocument stores the file bytes then records the document
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*docsystem.Document, error)

	// GetDocument retrieves a document with its computed path
	GetDocument(ctx context.Context, principal *docsystem.Principal, id int64) (*docsystem.Document, error)

	// OpenDocument streams the stored bytes of a document. Caller closes the reader.
	OpenDocument(ctx context.Context, principal *docsystem.Principal, id int64) (*docsystem.Document, io.ReadCloser, error)

	// RenameDocument renames a document and its file
	RenameDocument(ctx context.Context, id int64, name string) (*docsystem.Document, error)

	// MoveDocument moves a document into folderID, or to the service root directory when nil
	MoveDocument(ctx context.Context, id int64, folderID *int64) (*docsystem.Document, error)

	// UpdateDocument applies a rename and a move together, validating both first
	UpdateDocument(ctx context.Context, id int64, req *UpdateDocumentRequest) (*docsystem.Document, error)

	// DeleteDocument deletes a document and, best effort, its file
	DeleteDocument(ctx context.Context, id int64) error

	// ListDocuments lists the documents of a folder, or the unfiled documents of a service
	ListDocuments(ctx context.Context, principal *docsystem.Principal, req *ListDocumentsRequest) ([]docsystem.Document, error)
}

// CreateDocumentRequest represents a document upload
type CreateDocumentRequest struct {
	Name      string `json:"name"`
	FolderID  *int64 `json:"folder_id,omitempty"`
	ServiceID *int64 `json:"service_id,omitempty"` // required when FolderID is nil
	MimeType  string `json:"mime_type,omitempty"`  // detected from content when empty
	Content   []byte `json:"-"`
	CreatedBy *int64 `json:"created_by,omitempty"`
}

// UpdateDocumentRequest renames and/or moves a document. FolderID is applied
// only when Move is set, and a nil FolderID then unfiles the document.
type UpdateDocumentRequest struct {
	Name     *string
	Move     bool
	FolderID *int64
}

// ListDocumentsRequest selects a folder or a service's unfiled documents
type ListDocumentsRequest struct {
	FolderID  *int64
	ServiceID *int64
}

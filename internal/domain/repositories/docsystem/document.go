package docsystem

import (
	"context"

	"portal/internal/domain/models/docsystem"
)

// DocumentRepository defines data access operations for documents
type DocumentRepository interface {
	// Create creates a new document
	Create(ctx context.Context, doc *docsystem.Document) error

	// GetByID retrieves a document by ID
	GetByID(ctx context.Context, id int64) (*docsystem.Document, error)

	// Update updates name, folder and storage path
	Update(ctx context.Context, doc *docsystem.Document) error

	// Delete deletes a document
	Delete(ctx context.Context, id int64) error

	// ListByFolder lists documents directly inside a folder
	ListByFolder(ctx context.Context, folderID int64) ([]docsystem.Document, error)

	// ListByFolders lists documents inside any of the given folders
	ListByFolders(ctx context.Context, folderIDs []int64) ([]docsystem.Document, error)

	// ListUnfiled lists documents of a service that have no folder
	ListUnfiled(ctx context.Context, serviceID int64) ([]docsystem.Document, error)

	// ListByService lists all documents of a service (metadata only)
	ListByService(ctx context.Context, serviceID int64) ([]docsystem.Document, error)

	// DeleteMany deletes the given documents
	DeleteMany(ctx context.Context, ids []int64) error
}

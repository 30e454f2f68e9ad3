package docsystem

import (
	"context"

	"portal/internal/domain/models/docsystem"
)

// FolderService handles folder business logic. Every successful mutation is
// mirrored to storage and announced through the change signal.
type FolderService interface {
	// GetServiceRoot returns the service root, creating it and its directory on first use
	GetServiceRoot(ctx context.Context, serviceID int64) (*docsystem.Folder, error)

	// CreateFolder creates a folder and its directory
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*docsystem.Folder, error)

	// GetFolder retrieves a folder with its computed path, filtered by principal when non-nil
	GetFolder(ctx context.Context, principal *docsystem.Principal, id int64) (*docsystem.Folder, error)

	// RenameFolder renames a folder and moves its directory when the slug changes
	RenameFolder(ctx context.Context, id int64, name string) (*docsystem.Folder, error)

	// MoveFolder reparents a folder within its service
	MoveFolder(ctx context.Context, id, newParentID int64) (*docsystem.Folder, error)

	// UpdateFolder applies a rename and a move together, validating both first
	UpdateFolder(ctx context.Context, id int64, req *UpdateFolderRequest) (*docsystem.Folder, error)

	// DeleteFolder deletes a folder, its subtree and their documents
	DeleteFolder(ctx context.Context, id int64) error

	// ListChildren lists the visible child folders and documents
	ListChildren(ctx context.Context, principal *docsystem.Principal, folderID int64) (*FolderContents, error)
}

// CreateFolderRequest represents a folder creation request.
// Exactly one of ParentID or ServiceID is used; ParentID wins when both are set.
type CreateFolderRequest struct {
	Name      string `json:"name"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	ServiceID *int64 `json:"service_id,omitempty"` // create under the service root
}

// UpdateFolderRequest represents a folder update request
type UpdateFolderRequest struct {
	Name     *string `json:"name,omitempty"`      // rename
	ParentID *int64  `json:"parent_id,omitempty"` // move
}

// FolderContents represents a folder with its children
type FolderContents struct {
	Folder    *docsystem.Folder    `json:"folder"`
	Folders   []docsystem.Folder   `json:"folders"`
	Documents []docsystem.Document `json:"documents"`
}

package docsystem

import (
	"context"

	"portal/internal/domain/models/docsystem"
)

// FolderRepository defines data access operations for folders
type FolderRepository interface {
	// Create creates a new folder
	Create(ctx context.Context, folder *docsystem.Folder) error

	// GetByID retrieves a folder by ID
	GetByID(ctx context.Context, id int64) (*docsystem.Folder, error)

	// GetRoot retrieves the root folder of a service (ErrNotFound if absent)
	GetRoot(ctx context.Context, serviceID int64) (*docsystem.Folder, error)

	// CreateRootIfNotExists atomically inserts the service root or returns the
	// existing one. created is false when another writer won the race.
	CreateRootIfNotExists(ctx context.Context, serviceID int64, name string) (folder *docsystem.Folder, created bool, err error)

	// Update updates name, parent and storage path
	Update(ctx context.Context, folder *docsystem.Folder) error

	// ListChildren lists immediate child folders
	ListChildren(ctx context.Context, parentID int64) ([]docsystem.Folder, error)

	// ListByService retrieves all folders in a service (flat list)
	ListByService(ctx context.Context, serviceID int64) ([]docsystem.Folder, error)

	// DeleteMany deletes the given folders
	DeleteMany(ctx context.Context, ids []int64) error
}

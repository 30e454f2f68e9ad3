package docsystem

import (
	"context"

	"portal/internal/domain/models/docsystem"
)

// ShareRepository defines data access operations for shared folder overlays.
// Rows are removed by cascade when their folder is deleted.
type ShareRepository interface {
	// Create creates a share, failing with ErrConflict if the folder is already shared
	Create(ctx context.Context, share *docsystem.SharedFolder) error

	// GetByID retrieves a share by ID
	GetByID(ctx context.Context, id int64) (*docsystem.SharedFolder, error)

	// GetByFolder retrieves the share of a folder (ErrNotFound if none)
	GetByFolder(ctx context.Context, folderID int64) (*docsystem.SharedFolder, error)

	// Update replaces name, visibility and service set
	Update(ctx context.Context, share *docsystem.SharedFolder) error

	// RenameByFolder keeps the display name in sync with a renamed folder
	RenameByFolder(ctx context.Context, folderID int64, name string) error

	// ListByEnterprise lists all shares of an enterprise
	ListByEnterprise(ctx context.Context, enterpriseID int64) ([]docsystem.SharedFolder, error)
}

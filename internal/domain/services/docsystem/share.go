package docsystem

import (
	"context"

	"portal/internal/domain/models/docsystem"
)

// ShareService manages the shared folder overlay
type ShareService interface {
	// ShareFolder marks a folder as shared
	ShareFolder(ctx context.Context, req *ShareFolderRequest) (*docsystem.SharedFolder, error)

	// GetShare retrieves a share by id
	GetShare(ctx context.Context, id int64) (*docsystem.SharedFolder, error)

	// UpdateShare changes visibility and target services
	UpdateShare(ctx context.Context, id int64, req *UpdateShareRequest) (*docsystem.SharedFolder, error)

	// UnshareFolder removes the share by deleting the shared folder subtree
	UnshareFolder(ctx context.Context, id int64) error

	// ListShares lists every share of the principal's enterprise
	ListShares(ctx context.Context, principal *docsystem.Principal) ([]docsystem.SharedFolder, error)

	// ResolveVisible lists the shares the principal may traverse
	ResolveVisible(ctx context.Context, principal *docsystem.Principal) ([]docsystem.SharedFolderSummary, error)
}

// ShareFolderRequest represents a share creation request
type ShareFolderRequest struct {
	FolderID   int64                `json:"folder_id"`
	Visibility docsystem.Visibility `json:"visibility"`
	ServiceIDs []int64              `json:"service_ids,omitempty"`
}

// UpdateShareRequest represents a share update request
type UpdateShareRequest struct {
	Visibility docsystem.Visibility `json:"visibility"`
	ServiceIDs []int64              `json:"service_ids,omitempty"`
}

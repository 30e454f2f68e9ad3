package docsystem

import (
	"context"

	"portal/internal/domain/models/docsystem"
)

// VisibilityResolver decides which folders and documents a principal may see
type VisibilityResolver interface {
	// CanSeeFolder reports whether the folder is visible to principal
	CanSeeFolder(ctx context.Context, principal *docsystem.Principal, folder *docsystem.Folder) (bool, error)

	// CanSeeDocument reports whether the document is visible to principal
	CanSeeDocument(ctx context.Context, principal *docsystem.Principal, doc *docsystem.Document) (bool, error)

	// VisibleShares returns the shares principal may traverse
	VisibleShares(ctx context.Context, principal *docsystem.Principal) ([]docsystem.SharedFolder, error)

	// Invalidate drops cached overlay data after share mutations
	Invalidate()
}

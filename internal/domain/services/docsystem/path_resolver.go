package docsystem

import (
	"context"

	"portal/internal/domain/models/docsystem"
)

// PathResolver derives storage-relative paths for tree nodes
type PathResolver interface {
	// EnterpriseBasePath returns the persisted base path, else derives enterprises/<slug>.
	// A derived value is not persisted; callers decide.
	EnterpriseBasePath(ctx context.Context, enterpriseID int64) (string, error)

	// ServiceBasePath returns the service directory under its enterprise base.
	// Like EnterpriseBasePath it derives without persisting.
	ServiceBasePath(ctx context.Context, serviceID int64) (string, error)

	// FolderRelativePath returns serviceSlug/sub/slugs, excluding the root segment
	FolderRelativePath(ctx context.Context, folder *docsystem.Folder) (string, error)

	// FolderDirPath returns the effective directory of a folder
	FolderDirPath(ctx context.Context, folder *docsystem.Folder) (string, error)

	// DocumentDirPath returns the directory a document's file lives in
	DocumentDirPath(ctx context.Context, doc *docsystem.Document) (string, error)

	// DocumentFilePath returns the effective file path of a document
	DocumentFilePath(ctx context.Context, doc *docsystem.Document) (string, error)

	// DisplayPath returns the human readable path of a folder (Service/Sub/Folder)
	DisplayPath(ctx context.Context, folder *docsystem.Folder) (string, error)
}

package services

import (
	"context"

	"portal/internal/domain/models/docsystem"
)

// ResourceAuthorizer checks whether a principal may modify resources.
// Reading is governed by the visibility resolver; writing is restricted to
// the owning service or enterprise-wide roles.
type ResourceAuthorizer interface {
	// CanAccessService checks if principal may act inside a service
	CanAccessService(ctx context.Context, principal *docsystem.Principal, serviceID int64) error

	// CanModifyFolder checks if principal may modify a folder (via its service)
	CanModifyFolder(ctx context.Context, principal *docsystem.Principal, folderID int64) error

	// CanModifyDocument checks if principal may modify a document (via its service)
	CanModifyDocument(ctx context.Context, principal *docsystem.Principal, documentID int64) error

	// CanManageShares checks if principal may create or change shares on a folder
	CanManageShares(ctx context.Context, principal *docsystem.Principal, folderID int64) error
}

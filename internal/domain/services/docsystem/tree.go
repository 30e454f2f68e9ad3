package docsystem

import (
	"context"

	"portal/internal/domain/models/docsystem"
)

// TreeService builds nested folder/document trees
type TreeService interface {
	// GetServiceTree returns the tree of a service, pruned to what principal may see
	GetServiceTree(ctx context.Context, principal *docsystem.Principal, serviceID int64) (*docsystem.TreeNode, error)
}

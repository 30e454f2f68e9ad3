package docsystem

import (
	"context"
	"fmt"

	"portal/internal/domain"
	models "portal/internal/domain/models/docsystem"
	docsysRepo "portal/internal/domain/repositories/docsystem"
)

// DefaultMaxAncestorHops bounds every climb towards a service root.
const DefaultMaxAncestorHops = 64

// errBrokenAncestry is returned when a parent chain repeats a folder or runs
// past the hop bound. Both mean the stored tree is not well formed.
var errBrokenAncestry = fmt.Errorf("%w: folder ancestry is cyclic or too deep", domain.ErrValidation)

// walkAncestors calls visit for start and then each ancestor, nearest first,
// until the root is reached or visit returns true.
func walkAncestors(
	ctx context.Context,
	folders docsysRepo.FolderRepository,
	start *models.Folder,
	maxHops int,
	visit func(*models.Folder) bool,
) error {
	visited := map[int64]struct{}{start.ID: {}}
	current := start

	for hops := 0; ; hops++ {
		if visit(current) {
			return nil
		}
		if current.ParentID == nil {
			return nil
		}
		if hops >= maxHops {
			return errBrokenAncestry
		}
		if _, seen := visited[*current.ParentID]; seen {
			return errBrokenAncestry
		}

		parent, err := folders.GetByID(ctx, *current.ParentID)
		if err != nil {
			return err
		}
		visited[parent.ID] = struct{}{}
		current = parent
	}
}

// collectSubtree returns the ids of root and every folder beneath it, breadth
// first, given all folders of the owning service.
func collectSubtree(root int64, all []models.Folder) []int64 {
	children := make(map[int64][]int64, len(all))
	for _, f := range all {
		if f.ParentID != nil {
			children[*f.ParentID] = append(children[*f.ParentID], f.ID)
		}
	}

	ids := []int64{root}
	seen := map[int64]struct{}{root: {}}
	for i := 0; i < len(ids); i++ {
		for _, child := range children[ids[i]] {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			ids = append(ids, child)
		}
	}
	return ids
}

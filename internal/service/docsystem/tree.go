package docsystem

import (
	"context"
	"fmt"
	"log/slog"

	"portal/internal/domain"
	models "portal/internal/domain/models/docsystem"
	docsysRepo "portal/internal/domain/repositories/docsystem"
	docsysSvc "portal/internal/domain/services/docsystem"
)

// treeService implements the TreeService interface
type treeService struct {
	folderService docsysSvc.FolderService
	folderRepo    docsysRepo.FolderRepository
	documentRepo  docsysRepo.DocumentRepository
	serviceRepo   docsysRepo.ServiceRepository
	shareRepo     docsysRepo.ShareRepository
	visibility    docsysSvc.VisibilityResolver
	logger        *slog.Logger
}

// NewTreeService creates a new tree service
func NewTreeService(
	folderService docsysSvc.FolderService,
	folderRepo docsysRepo.FolderRepository,
	documentRepo docsysRepo.DocumentRepository,
	serviceRepo docsysRepo.ServiceRepository,
	shareRepo docsysRepo.ShareRepository,
	visibility docsysSvc.VisibilityResolver,
	logger *slog.Logger,
) docsysSvc.TreeService {
	return &treeService{
		folderService: folderService,
		folderRepo:    folderRepo,
		documentRepo:  documentRepo,
		serviceRepo:   serviceRepo,
		shareRepo:     shareRepo,
		visibility:    visibility,
		logger:        logger,
	}
}

// GetServiceTree builds the nested folder/document tree of a service.
//
// Only folders the visibility resolver lets the principal see make it into
// the tree. When the root itself is hidden, every visible folder whose parent
// is hidden becomes a top-level entry of SharedFolders.
func (s *treeService) GetServiceTree(ctx context.Context, principal *models.Principal, serviceID int64) (*models.TreeNode, error) {
	service, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if principal != nil && principal.EnterpriseID != service.EnterpriseID {
		return nil, fmt.Errorf("service %d: %w", serviceID, domain.ErrNotFound)
	}

	root, err := s.folderService.GetServiceRoot(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	allFolders, err := s.folderRepo.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	allDocuments, err := s.documentRepo.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	shares, err := s.shareRepo.ListByEnterprise(ctx, service.EnterpriseID)
	if err != nil {
		return nil, err
	}
	sharedFolders := make(map[int64]bool, len(shares))
	for _, share := range shares {
		sharedFolders[share.FolderID] = true
	}

	// First pass: create nodes for the folders the principal can see
	folderMap := make(map[int64]*models.FolderTreeNode, len(allFolders))
	for i := range allFolders {
		folder := &allFolders[i]
		visible, err := s.visibility.CanSeeFolder(ctx, principal, folder)
		if err != nil {
			return nil, err
		}
		if !visible {
			continue
		}
		folderMap[folder.ID] = &models.FolderTreeNode{
			ID:        folder.ID,
			Name:      folder.Name,
			ParentID:  folder.ParentID,
			Shared:    sharedFolders[folder.ID],
			CreatedAt: folder.CreatedAt,
			Folders:   []*models.FolderTreeNode{},
			Documents: []models.DocumentTreeNode{},
		}
	}

	// Second pass: nest visible folders; orphans of a hidden parent are top-level
	var detached []*models.FolderTreeNode
	for _, folder := range allFolders {
		node, ok := folderMap[folder.ID]
		if !ok || folder.ParentID == nil {
			continue
		}
		if parent, exists := folderMap[*folder.ParentID]; exists {
			parent.Folders = append(parent.Folders, node)
		} else {
			detached = append(detached, node)
		}
	}

	tree := &models.TreeNode{
		ServiceID: serviceID,
		Documents: []models.DocumentTreeNode{},
	}
	rootNode, rootVisible := folderMap[root.ID]
	switch {
	case rootVisible:
		tree.Root = rootNode
	case len(detached) > 0:
		tree.SharedFolders = detached
	default:
		return nil, fmt.Errorf("service %d: %w", serviceID, domain.ErrNotFound)
	}

	// Third pass: add documents to their visible folders
	for _, doc := range allDocuments {
		docNode := models.DocumentTreeNode{
			ID:        doc.ID,
			Name:      doc.Name,
			FolderID:  doc.FolderID,
			MimeType:  doc.MimeType,
			Size:      doc.Size,
			UpdatedAt: doc.UpdatedAt,
		}
		if doc.FolderID == nil {
			if rootVisible {
				tree.Documents = append(tree.Documents, docNode)
			}
			continue
		}
		if folder, exists := folderMap[*doc.FolderID]; exists {
			folder.Documents = append(folder.Documents, docNode)
		}
	}

	return tree, nil
}

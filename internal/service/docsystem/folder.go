package docsystem

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"portal/internal/config"
	"portal/internal/domain"
	models "portal/internal/domain/models/docsystem"
	docsysSvc "portal/internal/domain/services/docsystem"
)

type folderService struct {
	mutator
}

// NewFolderService creates a new folder service
func NewFolderService(cfg *ServiceConfig) docsysSvc.FolderService {
	return &folderService{mutator: newMutator(cfg)}
}

// GetServiceRoot returns the root folder of a service. The first call creates
// the root row, the enterprise and service directories, and persists the
// derived base paths so later derivations cannot drift.
func (s *folderService) GetServiceRoot(ctx context.Context, serviceID int64) (*models.Folder, error) {
	service, err := s.cfg.Services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if root, err := s.cfg.Folders.GetRoot(ctx, serviceID); err == nil {
		root.Path = root.Name
		return root, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var (
		root    *models.Folder
		created bool
	)
	err = s.cfg.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		root, created, err = s.cfg.Folders.CreateRootIfNotExists(ctx, serviceID, service.Name)
		if err != nil || !created {
			return err
		}

		enterpriseBase, err := s.cfg.Paths.EnterpriseBasePath(ctx, service.EnterpriseID)
		if err != nil {
			return err
		}
		serviceBase, err := s.cfg.Paths.ServiceBasePath(ctx, serviceID)
		if err != nil {
			return err
		}
		if err := validateStoragePath(serviceBase); err != nil {
			return err
		}
		if err := s.makeDirStrict(ctx, serviceBase); err != nil {
			return err
		}

		if err := s.cfg.Enterprises.UpdateStoragePath(ctx, service.EnterpriseID, enterpriseBase); err != nil {
			return err
		}
		if service.StoragePath == nil || *service.StoragePath != serviceBase {
			if err := s.cfg.Services.UpdateStoragePath(ctx, serviceID, serviceBase); err != nil {
				return err
			}
		}

		root.StoragePath = &serviceBase
		root.UpdatedAt = time.Now()
		return s.cfg.Folders.Update(ctx, root)
	})
	if created {
		s.cfg.Metrics.ObserveMutation("create_root", err)
	}
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.Info("service root created",
			"id", root.ID,
			"service_id", serviceID,
			"storage_path", *root.StoragePath,
		)
		s.notify(ctx, service.EnterpriseID)
	}
	root.Path = root.Name
	return root, nil
}

// CreateFolder creates a folder under ParentID, or under the service root
func (s *folderService) CreateFolder(ctx context.Context, req *docsysSvc.CreateFolderRequest) (folder *models.Folder, err error) {
	defer func() { s.cfg.Metrics.ObserveMutation("create_folder", err) }()

	if err := validateCreateFolder(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)

	var parent *models.Folder
	if req.ParentID != nil {
		parent, err = s.cfg.Folders.GetByID(ctx, *req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("parent folder: %w", err)
		}
		if req.ServiceID != nil && *req.ServiceID != parent.ServiceID {
			return nil, fmt.Errorf("%w: parent folder belongs to another service", domain.ErrValidation)
		}
	} else {
		parent, err = s.GetServiceRoot(ctx, *req.ServiceID)
		if err != nil {
			return nil, err
		}
	}

	enterpriseID, err := s.enterpriseOf(ctx, parent.ServiceID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	folder = &models.Folder{
		ServiceID: parent.ServiceID,
		ParentID:  &parent.ID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.cfg.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		// Insert first so the id is available as a collision suffix
		if err := s.cfg.Folders.Create(ctx, folder); err != nil {
			return err
		}

		parentDir, err := s.cfg.Paths.FolderDirPath(ctx, parent)
		if err != nil {
			return err
		}
		dir, err := ResolveCollision(ctx, parentDir, Slugify(name), folder.ID, s.exists)
		if err != nil {
			return err
		}
		if err := validateStoragePath(dir); err != nil {
			return err
		}
		if err := s.makeDirStrict(ctx, dir); err != nil {
			return err
		}

		folder.StoragePath = &dir
		return s.cfg.Folders.Update(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	folder.Path = s.displayPath(ctx, folder)
	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"service_id", folder.ServiceID,
		"parent_id", parent.ID,
		"storage_path", *folder.StoragePath,
	)
	s.notify(ctx, enterpriseID)
	return folder, nil
}

// GetFolder retrieves a folder with its computed path
func (s *folderService) GetFolder(ctx context.Context, principal *models.Principal, id int64) (*models.Folder, error) {
	folder, err := s.visibleFolder(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	folder.Path = s.displayPath(ctx, folder)
	return folder, nil
}

// RenameFolder renames a folder. The directory moves only when the slug
// changes; a failed move is logged and the rename still commits.
func (s *folderService) RenameFolder(ctx context.Context, id int64, name string) (*models.Folder, error) {
	return s.UpdateFolder(ctx, id, &docsysSvc.UpdateFolderRequest{Name: &name})
}

// MoveFolder reparents a folder inside its service. Cycles, cross-service
// targets and root moves are rejected before anything changes.
func (s *folderService) MoveFolder(ctx context.Context, id, newParentID int64) (*models.Folder, error) {
	return s.UpdateFolder(ctx, id, &docsysSvc.UpdateFolderRequest{ParentID: &newParentID})
}

// UpdateFolder renames and/or reparents a folder as one mutation. Every check
// of both halves runs before the transaction, so a rejected request changes
// nothing and fires no signal.
func (s *folderService) UpdateFolder(ctx context.Context, id int64, req *docsysSvc.UpdateFolderRequest) (folder *models.Folder, err error) {
	op := mutationOp("folder", req.Name != nil, req.ParentID != nil)
	defer func() { s.cfg.Metrics.ObserveMutation(op, err) }()

	if req.Name == nil && req.ParentID == nil {
		return nil, fmt.Errorf("%w: name or parent_id is required", domain.ErrValidation)
	}
	var name string
	if req.Name != nil {
		if err := validateName("folder", *req.Name, config.MaxFolderNameLength); err != nil {
			return nil, err
		}
		name = strings.TrimSpace(*req.Name)
	}
	if req.ParentID != nil && *req.ParentID == id {
		return nil, fmt.Errorf("%w: cannot move folder into itself", domain.ErrValidation)
	}

	folder, err = s.cfg.Folders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var parent *models.Folder
	if req.ParentID != nil {
		if parent, err = s.moveTarget(ctx, folder, *req.ParentID); err != nil {
			return nil, err
		}
		if *folder.ParentID == parent.ID {
			parent = nil
		}
	}
	if req.Name == nil && parent == nil {
		folder.Path = s.displayPath(ctx, folder)
		return folder, nil
	}

	enterpriseID, err := s.enterpriseOf(ctx, folder.ServiceID)
	if err != nil {
		return nil, err
	}
	oldName, oldParentID := folder.Name, folder.ParentID
	newName := oldName
	if req.Name != nil {
		newName = name
	}

	err = s.cfg.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		// A root has no segment of its own: the service directory stands in for it
		if !folder.IsRoot() && (parent != nil || Slugify(newName) != Slugify(oldName)) {
			oldPath, err := s.cfg.Paths.FolderDirPath(ctx, folder)
			if err != nil {
				return err
			}
			parentDir := path.Dir(oldPath)
			if parent != nil {
				if parentDir, err = s.cfg.Paths.FolderDirPath(ctx, parent); err != nil {
					return err
				}
			}
			newPath := s.targetPath(ctx, op, parentDir, Slugify(newName), folder.ID, oldPath)
			if err := validateStoragePath(newPath); err != nil {
				return err
			}

			s.relocate(ctx, op, parentDir, oldPath, newPath)
			folder.StoragePath = &newPath
		}

		folder.Name = newName
		if parent != nil {
			folder.ParentID = &parent.ID
		}
		folder.UpdatedAt = time.Now()
		if err := s.cfg.Folders.Update(ctx, folder); err != nil {
			return err
		}
		if req.Name == nil {
			return nil
		}
		return s.cfg.Shares.RenameByFolder(ctx, folder.ID, newName)
	})
	if err != nil {
		return nil, err
	}

	folder.Path = s.displayPath(ctx, folder)
	s.logger.Info("folder updated",
		"id", folder.ID,
		"old_name", oldName,
		"name", folder.Name,
		"old_parent_id", derefOr(oldParentID, 0),
		"parent_id", derefOr(folder.ParentID, 0),
		"storage_path", derefOr(folder.StoragePath, ""),
	)
	s.notify(ctx, enterpriseID)
	return folder, nil
}

// moveTarget loads and checks the new parent of folder
func (s *folderService) moveTarget(ctx context.Context, folder *models.Folder, parentID int64) (*models.Folder, error) {
	if folder.IsRoot() {
		return nil, fmt.Errorf("%w: cannot move a service root", domain.ErrValidation)
	}
	parent, err := s.cfg.Folders.GetByID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("new parent folder: %w", err)
	}
	if parent.ServiceID != folder.ServiceID {
		return nil, fmt.Errorf("%w: cannot move folder to another service", domain.ErrValidation)
	}
	if err := s.validateNoCircularReference(ctx, folder.ID, parent); err != nil {
		return nil, err
	}
	return parent, nil
}

// DeleteFolder deletes a folder with its whole subtree. Physical files go
// first, best effort, then the rows. Shares of deleted folders cascade.
// Deleting a root empties the service; the root is recreated on next access.
func (s *folderService) DeleteFolder(ctx context.Context, id int64) (err error) {
	defer func() { s.cfg.Metrics.ObserveMutation("delete_folder", err) }()

	folder, err := s.cfg.Folders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	enterpriseID, err := s.enterpriseOf(ctx, folder.ServiceID)
	if err != nil {
		return err
	}

	var folderIDs, docIDs []int64
	err = s.cfg.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		all, err := s.cfg.Folders.ListByService(ctx, folder.ServiceID)
		if err != nil {
			return fmt.Errorf("failed to list folders: %w", err)
		}
		folderIDs = collectSubtree(folder.ID, all)

		docs, err := s.cfg.Documents.ListByFolders(ctx, folderIDs)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		if folder.IsRoot() {
			unfiled, err := s.cfg.Documents.ListUnfiled(ctx, folder.ServiceID)
			if err != nil {
				return fmt.Errorf("failed to list unfiled documents: %w", err)
			}
			docs = append(docs, unfiled...)
		}

		dir, err := s.cfg.Paths.FolderDirPath(ctx, folder)
		if err != nil {
			return err
		}

		docIDs = make([]int64, 0, len(docs))
		for i := range docs {
			if filePath, err := s.cfg.Paths.DocumentFilePath(ctx, &docs[i]); err != nil {
				s.logger.Warn("cannot resolve document path", "document_id", docs[i].ID, "error", err)
			} else {
				s.removeFile(ctx, "delete_folder", filePath)
			}
			docIDs = append(docIDs, docs[i].ID)
		}
		if err := s.cfg.Documents.DeleteMany(ctx, docIDs); err != nil {
			return err
		}

		s.removeDir(ctx, "delete_folder", dir)
		return s.cfg.Folders.DeleteMany(ctx, folderIDs)
	})
	if err != nil {
		return err
	}

	s.cfg.Visibility.Invalidate()
	s.logger.Info("folder deleted",
		"id", folder.ID,
		"name", folder.Name,
		"service_id", folder.ServiceID,
		"folders", len(folderIDs),
		"documents", len(docIDs),
	)
	s.notify(ctx, enterpriseID)
	return nil
}

// ListChildren lists the child folders and documents of a folder
func (s *folderService) ListChildren(ctx context.Context, principal *models.Principal, folderID int64) (*docsysSvc.FolderContents, error) {
	folder, err := s.visibleFolder(ctx, principal, folderID)
	if err != nil {
		return nil, err
	}
	folder.Path = s.displayPath(ctx, folder)

	children, err := s.cfg.Folders.ListChildren(ctx, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}
	childFolders := make([]models.Folder, 0, len(children))
	for i := range children {
		ok, err := s.cfg.Visibility.CanSeeFolder(ctx, principal, &children[i])
		if err != nil {
			return nil, err
		}
		if ok {
			children[i].Path = joinDisplay(folder.Path, children[i].Name)
			childFolders = append(childFolders, children[i])
		}
	}

	docs, err := s.cfg.Documents.ListByFolder(ctx, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if folder.IsRoot() {
		unfiled, err := s.cfg.Documents.ListUnfiled(ctx, folder.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("failed to list unfiled documents: %w", err)
		}
		docs = append(docs, unfiled...)
	}
	for i := range docs {
		docs[i].Path = joinDisplay(folder.Path, docs[i].Name)
	}
	if docs == nil {
		docs = []models.Document{}
	}

	return &docsysSvc.FolderContents{
		Folder:    folder,
		Folders:   childFolders,
		Documents: docs,
	}, nil
}

// validateNoCircularReference rejects a parent that is folderID or lies beneath it
func (s *folderService) validateNoCircularReference(ctx context.Context, folderID int64, parent *models.Folder) error {
	descendant := false
	err := walkAncestors(ctx, s.cfg.Folders, parent, s.cfg.MaxAncestorHops, func(f *models.Folder) bool {
		descendant = f.ID == folderID
		return descendant
	})
	if err != nil {
		return err
	}
	if descendant {
		return fmt.Errorf("%w: cannot move folder into its own descendant", domain.ErrValidation)
	}
	return nil
}

// visibleFolder loads a folder and hides it behind NotFound when principal may not see it
func (s *folderService) visibleFolder(ctx context.Context, principal *models.Principal, id int64) (*models.Folder, error) {
	folder, err := s.cfg.Folders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.cfg.Visibility.CanSeeFolder(ctx, principal, folder)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	return folder, nil
}

func (s *folderService) displayPath(ctx context.Context, folder *models.Folder) string {
	p, err := s.cfg.Paths.DisplayPath(ctx, folder)
	if err != nil {
		s.logger.Warn("failed to compute path", "folder_id", folder.ID, "error", err)
		return folder.Name
	}
	return p
}

func joinDisplay(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func derefOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

package docsystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"portal/internal/config"
	"portal/internal/domain"
	models "portal/internal/domain/models/docsystem"
	docsysSvc "portal/internal/domain/services/docsystem"
	"portal/internal/storage"
)

// documentService implements the DocumentService interface
type documentService struct {
	mutator
	folders docsysSvc.FolderService
}

// NewDocumentService creates a new document service. folders is used to
// materialize a service root before an unfiled upload.
func NewDocumentService(cfg *ServiceConfig, folders docsysSvc.FolderService) docsysSvc.DocumentService {
	return &documentService{
		mutator: newMutator(cfg),
		folders: folders,
	}
}

// CreateDocument writes the file first and only then records its path. A
// storage failure aborts and rolls the row back.
func (s *documentService) CreateDocument(ctx context.Context, req *docsysSvc.CreateDocumentRequest) (doc *models.Document, err error) {
	defer func() { s.cfg.Metrics.ObserveMutation("create_document", err) }()

	if err := validateCreateDocument(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)

	var serviceID int64
	if req.FolderID != nil {
		folder, err := s.cfg.Folders.GetByID(ctx, *req.FolderID)
		if err != nil {
			return nil, fmt.Errorf("folder: %w", err)
		}
		if req.ServiceID != nil && *req.ServiceID != folder.ServiceID {
			return nil, fmt.Errorf("%w: folder belongs to another service", domain.ErrValidation)
		}
		serviceID = folder.ServiceID
	} else {
		// Unfiled documents live in the service directory, which the root owns
		root, err := s.folders.GetServiceRoot(ctx, *req.ServiceID)
		if err != nil {
			return nil, err
		}
		serviceID = root.ServiceID
	}

	enterpriseID, err := s.enterpriseOf(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	mimeType := strings.TrimSpace(req.MimeType)
	if mimeType == "" {
		mimeType = mimetype.Detect(req.Content).String()
	}

	now := time.Now()
	doc = &models.Document{
		EnterpriseID: enterpriseID,
		ServiceID:    serviceID,
		FolderID:     req.FolderID,
		Name:         name,
		MimeType:     mimeType,
		Size:         int64(len(req.Content)),
		CreatedBy:    req.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.cfg.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.cfg.Documents.Create(ctx, doc); err != nil {
			return err
		}

		dir, err := s.cfg.Paths.DocumentDirPath(ctx, doc)
		if err != nil {
			return err
		}
		filePath, err := ResolveCollision(ctx, dir, SlugifyFilename(name), doc.ID, s.exists)
		if err != nil {
			return err
		}
		if err := validateStoragePath(filePath); err != nil {
			return err
		}

		if err := s.cfg.Mirror.WriteFile(ctx, dir, path.Base(filePath), req.Content); err != nil {
			s.cfg.Metrics.ObserveStorageFailure("create_document")
			return &domain.StorageUnavailableError{Op: "write", Path: filePath, Err: err}
		}

		doc.StoragePath = filePath
		return s.cfg.Documents.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	doc.Path = s.displayPath(ctx, doc)
	s.logger.Info("document created",
		"id", doc.ID,
		"name", doc.Name,
		"service_id", doc.ServiceID,
		"folder_id", doc.FolderID,
		"size", humanize.Bytes(uint64(doc.Size)),
		"mime_type", doc.MimeType,
		"storage_path", doc.StoragePath,
	)
	s.notify(ctx, enterpriseID)
	return doc, nil
}

// GetDocument retrieves a document with its computed path
func (s *documentService) GetDocument(ctx context.Context, principal *models.Principal, id int64) (*models.Document, error) {
	doc, err := s.visibleDocument(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	doc.Path = s.displayPath(ctx, doc)
	return doc, nil
}

// OpenDocument streams the stored bytes from the document's effective path
func (s *documentService) OpenDocument(ctx context.Context, principal *models.Principal, id int64) (*models.Document, io.ReadCloser, error) {
	doc, err := s.visibleDocument(ctx, principal, id)
	if err != nil {
		return nil, nil, err
	}
	filePath, err := s.cfg.Paths.DocumentFilePath(ctx, doc)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.cfg.Mirror.ReadStream(ctx, filePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			s.logger.Warn("document content missing from storage", "id", doc.ID, "path", filePath)
			return nil, nil, fmt.Errorf("content of document %d: %w", doc.ID, domain.ErrNotFound)
		}
		return nil, nil, &domain.StorageUnavailableError{Op: "read", Path: filePath, Err: err}
	}
	doc.Path = s.displayPath(ctx, doc)
	return doc, rc, nil
}

// RenameDocument renames a document and, when the slug changes, its file
func (s *documentService) RenameDocument(ctx context.Context, id int64, name string) (*models.Document, error) {
	return s.UpdateDocument(ctx, id, &docsysSvc.UpdateDocumentRequest{Name: &name})
}

// MoveDocument moves a document into folderID, or into the service
// directory when folderID is nil. The target must be in the same service.
func (s *documentService) MoveDocument(ctx context.Context, id int64, folderID *int64) (*models.Document, error) {
	return s.UpdateDocument(ctx, id, &docsysSvc.UpdateDocumentRequest{Move: true, FolderID: folderID})
}

// UpdateDocument renames and/or moves a document as one mutation. Both halves
// are validated before the transaction starts.
func (s *documentService) UpdateDocument(ctx context.Context, id int64, req *docsysSvc.UpdateDocumentRequest) (doc *models.Document, err error) {
	op := mutationOp("document", req.Name != nil, req.Move)
	defer func() { s.cfg.Metrics.ObserveMutation(op, err) }()

	if req.Name == nil && !req.Move {
		return nil, fmt.Errorf("%w: name or folder_id is required", domain.ErrValidation)
	}
	var name string
	if req.Name != nil {
		if err := validateName("document", *req.Name, config.MaxDocumentNameLength); err != nil {
			return nil, err
		}
		name = strings.TrimSpace(*req.Name)
	}

	doc, err = s.cfg.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	move := false
	if req.Move {
		if req.FolderID != nil {
			target, err := s.cfg.Folders.GetByID(ctx, *req.FolderID)
			if err != nil {
				return nil, fmt.Errorf("target folder: %w", err)
			}
			if target.ServiceID != doc.ServiceID {
				return nil, fmt.Errorf("%w: cannot move document to another service", domain.ErrValidation)
			}
		} else if _, err := s.folders.GetServiceRoot(ctx, doc.ServiceID); err != nil {
			return nil, err
		}
		move = !sameFolder(doc.FolderID, req.FolderID)
	}
	if req.Name == nil && !move {
		doc.Path = s.displayPath(ctx, doc)
		return doc, nil
	}

	oldName, oldFolderID := doc.Name, doc.FolderID
	newName := oldName
	if req.Name != nil {
		newName = name
	}

	err = s.cfg.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		if move || SlugifyFilename(newName) != SlugifyFilename(oldName) {
			oldDir, err := s.cfg.Paths.DocumentDirPath(ctx, doc)
			if err != nil {
				return err
			}
			oldPath := storage.Join(oldDir, documentFilename(doc))

			target := *doc
			if move {
				target.FolderID = req.FolderID
			}
			newDir, err := s.cfg.Paths.DocumentDirPath(ctx, &target)
			if err != nil {
				return err
			}
			newPath := s.targetPath(ctx, op, newDir, SlugifyFilename(newName), doc.ID, oldPath)
			if err := validateStoragePath(newPath); err != nil {
				return err
			}

			s.relocate(ctx, op, newDir, oldPath, newPath)
			doc.StoragePath = newPath
		}

		doc.Name = newName
		if move {
			doc.FolderID = req.FolderID
		}
		doc.UpdatedAt = time.Now()
		return s.cfg.Documents.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	doc.Path = s.displayPath(ctx, doc)
	s.logger.Info("document updated",
		"id", doc.ID,
		"old_name", oldName,
		"name", doc.Name,
		"old_folder_id", oldFolderID,
		"folder_id", doc.FolderID,
		"storage_path", doc.StoragePath,
	)
	s.notify(ctx, doc.EnterpriseID)
	return doc, nil
}

// DeleteDocument removes the file best effort, then the row
func (s *documentService) DeleteDocument(ctx context.Context, id int64) (err error) {
	defer func() { s.cfg.Metrics.ObserveMutation("delete_document", err) }()

	doc, err := s.cfg.Documents.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.cfg.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		if filePath, err := s.cfg.Paths.DocumentFilePath(ctx, doc); err != nil {
			s.logger.Warn("cannot resolve document path", "document_id", doc.ID, "error", err)
		} else {
			s.removeFile(ctx, "delete_document", filePath)
		}
		return s.cfg.Documents.Delete(ctx, doc.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("document deleted",
		"id", doc.ID,
		"name", doc.Name,
		"service_id", doc.ServiceID,
	)
	s.notify(ctx, doc.EnterpriseID)
	return nil
}

// ListDocuments lists a folder's documents, or a service's unfiled documents
func (s *documentService) ListDocuments(ctx context.Context, principal *models.Principal, req *docsysSvc.ListDocumentsRequest) ([]models.Document, error) {
	var (
		docs   []models.Document
		prefix string
		err    error
	)

	switch {
	case req.FolderID != nil:
		folder, err := s.cfg.Folders.GetByID(ctx, *req.FolderID)
		if err != nil {
			return nil, err
		}
		ok, err := s.cfg.Visibility.CanSeeFolder(ctx, principal, folder)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("folder %d: %w", folder.ID, domain.ErrNotFound)
		}
		if docs, err = s.cfg.Documents.ListByFolder(ctx, folder.ID); err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		prefix, err = s.cfg.Paths.DisplayPath(ctx, folder)
		if err != nil {
			prefix = folder.Name
		}

	case req.ServiceID != nil:
		service, err := s.cfg.Services.GetByID(ctx, *req.ServiceID)
		if err != nil {
			return nil, err
		}
		unfiled := &models.Document{ServiceID: service.ID, EnterpriseID: service.EnterpriseID}
		ok, err := s.cfg.Visibility.CanSeeDocument(ctx, principal, unfiled)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("service %d: %w", service.ID, domain.ErrNotFound)
		}
		if docs, err = s.cfg.Documents.ListUnfiled(ctx, service.ID); err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		prefix = service.Name

	default:
		err = fmt.Errorf("%w: folder_id or service_id is required", domain.ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	for i := range docs {
		docs[i].Path = joinDisplay(prefix, docs[i].Name)
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

// visibleDocument loads a document and hides it behind NotFound when principal may not see it
func (s *documentService) visibleDocument(ctx context.Context, principal *models.Principal, id int64) (*models.Document, error) {
	doc, err := s.cfg.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.cfg.Visibility.CanSeeDocument(ctx, principal, doc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	return doc, nil
}

// displayPath is the folder display path (or the service name) plus the document name
func (s *documentService) displayPath(ctx context.Context, doc *models.Document) string {
	if doc.FolderID == nil {
		service, err := s.cfg.Services.GetByID(ctx, doc.ServiceID)
		if err != nil {
			return doc.Name
		}
		return joinDisplay(service.Name, doc.Name)
	}

	folder, err := s.cfg.Folders.GetByID(ctx, *doc.FolderID)
	if err != nil {
		return doc.Name
	}
	prefix, err := s.cfg.Paths.DisplayPath(ctx, folder)
	if err != nil {
		s.logger.Warn("failed to compute path", "document_id", doc.ID, "error", err)
		return doc.Name
	}
	return joinDisplay(prefix, doc.Name)
}

func sameFolder(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"portal/internal/domain"
	models "portal/internal/domain/models/docsystem"
	docsysRepo "portal/internal/domain/repositories/docsystem"
)

type documentRepository struct {
	store *Store
}

// NewDocumentRepository creates a document repository over store
func NewDocumentRepository(store *Store) docsysRepo.DocumentRepository {
	return &documentRepository{store: store}
}

func (r *documentRepository) Create(_ context.Context, doc *models.Document) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.services[doc.ServiceID]; !ok {
		return fmt.Errorf("service %d: %w", doc.ServiceID, domain.ErrNotFound)
	}
	if doc.FolderID != nil {
		if _, ok := r.store.folders[*doc.FolderID]; !ok {
			return fmt.Errorf("folder %d: %w", *doc.FolderID, domain.ErrNotFound)
		}
	}

	now := time.Now()
	doc.ID = r.store.nextID("documents")
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}
	r.store.documents[doc.ID] = cloneDocument(*doc)
	return nil
}

func (r *documentRepository) GetByID(_ context.Context, id int64) (*models.Document, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	d, ok := r.store.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	d = cloneDocument(d)
	return &d, nil
}

func (r *documentRepository) Update(_ context.Context, doc *models.Document) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.documents[doc.ID]
	if !ok {
		return fmt.Errorf("document %d: %w", doc.ID, domain.ErrNotFound)
	}
	if doc.FolderID != nil {
		if _, ok := r.store.folders[*doc.FolderID]; !ok {
			return fmt.Errorf("folder %d: %w", *doc.FolderID, domain.ErrNotFound)
		}
	}
	existing.Name = doc.Name
	existing.FolderID = doc.FolderID
	existing.StoragePath = doc.StoragePath
	existing.UpdatedAt = doc.UpdatedAt
	r.store.documents[doc.ID] = cloneDocument(existing)
	return nil
}

func (r *documentRepository) Delete(_ context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.documents[id]; !ok {
		return fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	delete(r.store.documents, id)
	return nil
}

func (r *documentRepository) ListByFolder(_ context.Context, folderID int64) ([]models.Document, error) {
	return r.filter(func(d models.Document) bool {
		return d.FolderID != nil && *d.FolderID == folderID
	}), nil
}

func (r *documentRepository) ListByFolders(_ context.Context, folderIDs []int64) ([]models.Document, error) {
	set := make(map[int64]bool, len(folderIDs))
	for _, id := range folderIDs {
		set[id] = true
	}
	return r.filter(func(d models.Document) bool {
		return d.FolderID != nil && set[*d.FolderID]
	}), nil
}

func (r *documentRepository) ListUnfiled(_ context.Context, serviceID int64) ([]models.Document, error) {
	return r.filter(func(d models.Document) bool {
		return d.ServiceID == serviceID && d.FolderID == nil
	}), nil
}

func (r *documentRepository) ListByService(_ context.Context, serviceID int64) ([]models.Document, error) {
	return r.filter(func(d models.Document) bool {
		return d.ServiceID == serviceID
	}), nil
}

func (r *documentRepository) DeleteMany(_ context.Context, ids []int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, id := range ids {
		delete(r.store.documents, id)
	}
	return nil
}

func (r *documentRepository) filter(keep func(models.Document) bool) []models.Document {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []models.Document
	for _, d := range r.store.documents {
		if keep(d) {
			out = append(out, cloneDocument(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

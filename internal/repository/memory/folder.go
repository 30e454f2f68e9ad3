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

type folderRepository struct {
	store *Store
}

// NewFolderRepository creates a folder repository over store
func NewFolderRepository(store *Store) docsysRepo.FolderRepository {
	return &folderRepository{store: store}
}

func (r *folderRepository) Create(_ context.Context, folder *models.Folder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.services[folder.ServiceID]; !ok {
		return fmt.Errorf("service %d: %w", folder.ServiceID, domain.ErrNotFound)
	}
	if folder.ParentID == nil {
		if root, ok := r.rootLocked(folder.ServiceID); ok {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("service %d already has a root folder", folder.ServiceID),
				ResourceType: "folder",
				ResourceID:   root.ID,
			}
		}
	} else {
		parent, ok := r.store.folders[*folder.ParentID]
		if !ok {
			return fmt.Errorf("parent folder %d: %w", *folder.ParentID, domain.ErrNotFound)
		}
		if parent.ServiceID != folder.ServiceID {
			return fmt.Errorf("%w: parent folder belongs to another service", domain.ErrValidation)
		}
	}

	now := time.Now()
	folder.ID = r.store.nextID("folders")
	if folder.CreatedAt.IsZero() {
		folder.CreatedAt = now
	}
	if folder.UpdatedAt.IsZero() {
		folder.UpdatedAt = now
	}
	r.store.folders[folder.ID] = cloneFolder(*folder)
	return nil
}

func (r *folderRepository) GetByID(_ context.Context, id int64) (*models.Folder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	f, ok := r.store.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	f = cloneFolder(f)
	return &f, nil
}

func (r *folderRepository) GetRoot(_ context.Context, serviceID int64) (*models.Folder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	root, ok := r.rootLocked(serviceID)
	if !ok {
		return nil, fmt.Errorf("root folder of service %d: %w", serviceID, domain.ErrNotFound)
	}
	return &root, nil
}

func (r *folderRepository) CreateRootIfNotExists(ctx context.Context, serviceID int64, name string) (*models.Folder, bool, error) {
	root := &models.Folder{ServiceID: serviceID, Name: name}
	err := r.Create(ctx, root)
	if err == nil {
		return root, true, nil
	}
	if !isConflict(err) {
		return nil, false, err
	}
	existing, err := r.GetRoot(ctx, serviceID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *folderRepository) Update(_ context.Context, folder *models.Folder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.folders[folder.ID]
	if !ok {
		return fmt.Errorf("folder %d: %w", folder.ID, domain.ErrNotFound)
	}
	if folder.ParentID != nil {
		if _, ok := r.store.folders[*folder.ParentID]; !ok {
			return fmt.Errorf("parent folder %d: %w", *folder.ParentID, domain.ErrNotFound)
		}
	}
	existing.Name = folder.Name
	existing.ParentID = folder.ParentID
	existing.StoragePath = folder.StoragePath
	existing.UpdatedAt = folder.UpdatedAt
	r.store.folders[folder.ID] = cloneFolder(existing)
	return nil
}

func (r *folderRepository) ListChildren(_ context.Context, parentID int64) ([]models.Folder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []models.Folder
	for _, f := range r.store.folders {
		if f.ParentID != nil && *f.ParentID == parentID {
			out = append(out, cloneFolder(f))
		}
	}
	sortFolders(out)
	return out, nil
}

func (r *folderRepository) ListByService(_ context.Context, serviceID int64) ([]models.Folder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []models.Folder
	for _, f := range r.store.folders {
		if f.ServiceID == serviceID {
			out = append(out, cloneFolder(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteMany deletes folders and cascades like the foreign keys do:
// child folders, documents filed in them and their shares.
func (r *folderRepository) DeleteMany(_ context.Context, ids []int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	doomed := make(map[int64]bool, len(ids))
	queue := append([]int64(nil), ids...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if doomed[id] {
			continue
		}
		if _, ok := r.store.folders[id]; !ok {
			continue
		}
		doomed[id] = true
		for childID, f := range r.store.folders {
			if f.ParentID != nil && *f.ParentID == id {
				queue = append(queue, childID)
			}
		}
	}

	for id := range doomed {
		delete(r.store.folders, id)
	}
	for id, d := range r.store.documents {
		if d.FolderID != nil && doomed[*d.FolderID] {
			delete(r.store.documents, id)
		}
	}
	for id, sh := range r.store.shares {
		if doomed[sh.FolderID] {
			delete(r.store.shares, id)
		}
	}
	return nil
}

// rootLocked finds the root of a service. Caller holds mu.
func (r *folderRepository) rootLocked(serviceID int64) (models.Folder, bool) {
	for _, f := range r.store.folders {
		if f.ServiceID == serviceID && f.ParentID == nil {
			return cloneFolder(f), true
		}
	}
	return models.Folder{}, false
}

func sortFolders(folders []models.Folder) {
	sort.Slice(folders, func(i, j int) bool {
		if folders[i].Name != folders[j].Name {
			return folders[i].Name < folders[j].Name
		}
		return folders[i].ID < folders[j].ID
	})
}

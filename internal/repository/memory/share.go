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

type shareRepository struct {
	store *Store
}

// NewShareRepository creates a shared folder repository over store
func NewShareRepository(store *Store) docsysRepo.ShareRepository {
	return &shareRepository{store: store}
}

func (r *shareRepository) Create(_ context.Context, share *models.SharedFolder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.folders[share.FolderID]; !ok {
		return fmt.Errorf("folder %d: %w", share.FolderID, domain.ErrNotFound)
	}
	for _, existing := range r.store.shares {
		if existing.FolderID == share.FolderID {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("folder %d is already shared", share.FolderID),
				ResourceType: "share",
				ResourceID:   existing.ID,
			}
		}
	}

	now := time.Now()
	share.ID = r.store.nextID("shared_folders")
	if share.CreatedAt.IsZero() {
		share.CreatedAt = now
	}
	if share.UpdatedAt.IsZero() {
		share.UpdatedAt = now
	}
	r.store.shares[share.ID] = cloneShare(*share)
	return nil
}

func (r *shareRepository) GetByID(_ context.Context, id int64) (*models.SharedFolder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	sh, ok := r.store.shares[id]
	if !ok {
		return nil, fmt.Errorf("share %d: %w", id, domain.ErrNotFound)
	}
	sh = cloneShare(sh)
	return &sh, nil
}

func (r *shareRepository) GetByFolder(_ context.Context, folderID int64) (*models.SharedFolder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, sh := range r.store.shares {
		if sh.FolderID == folderID {
			sh = cloneShare(sh)
			return &sh, nil
		}
	}
	return nil, fmt.Errorf("share of folder %d: %w", folderID, domain.ErrNotFound)
}

func (r *shareRepository) Update(_ context.Context, share *models.SharedFolder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.shares[share.ID]
	if !ok {
		return fmt.Errorf("share %d: %w", share.ID, domain.ErrNotFound)
	}
	existing.Name = share.Name
	existing.Visibility = share.Visibility
	existing.ServiceIDs = share.ServiceIDs
	existing.UpdatedAt = share.UpdatedAt
	r.store.shares[share.ID] = cloneShare(existing)
	return nil
}

func (r *shareRepository) RenameByFolder(_ context.Context, folderID int64, name string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, sh := range r.store.shares {
		if sh.FolderID == folderID {
			sh.Name = name
			sh.UpdatedAt = time.Now()
			r.store.shares[id] = sh
		}
	}
	return nil
}

func (r *shareRepository) ListByEnterprise(_ context.Context, enterpriseID int64) ([]models.SharedFolder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []models.SharedFolder
	for _, sh := range r.store.shares {
		if sh.EnterpriseID == enterpriseID {
			out = append(out, cloneShare(sh))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

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

type enterpriseRepository struct {
	store *Store
}

// NewEnterpriseRepository creates an enterprise repository over store
func NewEnterpriseRepository(store *Store) docsysRepo.EnterpriseRepository {
	return &enterpriseRepository{store: store}
}

func (r *enterpriseRepository) Create(_ context.Context, e *models.Enterprise) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e.ID = r.store.nextID("enterprises")
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.store.enterprises[e.ID] = cloneEnterprise(*e)
	return nil
}

func (r *enterpriseRepository) GetByID(_ context.Context, id int64) (*models.Enterprise, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	e, ok := r.store.enterprises[id]
	if !ok {
		return nil, fmt.Errorf("enterprise %d: %w", id, domain.ErrNotFound)
	}
	e = cloneEnterprise(e)
	return &e, nil
}

func (r *enterpriseRepository) PathTaken(_ context.Context, storagePath string, excludeID int64) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for id, e := range r.store.enterprises {
		if id != excludeID && e.StoragePath != nil && *e.StoragePath == storagePath {
			return true, nil
		}
	}
	return false, nil
}

func (r *enterpriseRepository) UpdateStoragePath(_ context.Context, id int64, storagePath string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.enterprises[id]
	if !ok {
		return fmt.Errorf("enterprise %d: %w", id, domain.ErrNotFound)
	}
	e.StoragePath = &storagePath
	r.store.enterprises[id] = e
	return nil
}

type serviceRepository struct {
	store *Store
}

// NewServiceRepository creates a service repository over store
func NewServiceRepository(store *Store) docsysRepo.ServiceRepository {
	return &serviceRepository{store: store}
}

func (r *serviceRepository) Create(_ context.Context, svc *models.Service) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.enterprises[svc.EnterpriseID]; !ok {
		return fmt.Errorf("enterprise %d: %w", svc.EnterpriseID, domain.ErrNotFound)
	}
	svc.ID = r.store.nextID("services")
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now()
	}
	r.store.services[svc.ID] = cloneService(*svc)
	return nil
}

func (r *serviceRepository) GetByID(_ context.Context, id int64) (*models.Service, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	svc, ok := r.store.services[id]
	if !ok {
		return nil, fmt.Errorf("service %d: %w", id, domain.ErrNotFound)
	}
	svc = cloneService(svc)
	return &svc, nil
}

func (r *serviceRepository) ListByEnterprise(_ context.Context, enterpriseID int64) ([]models.Service, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []models.Service
	for _, svc := range r.store.services {
		if svc.EnterpriseID == enterpriseID {
			out = append(out, cloneService(svc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *serviceRepository) UpdateStoragePath(_ context.Context, id int64, storagePath string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	svc, ok := r.store.services[id]
	if !ok {
		return fmt.Errorf("service %d: %w", id, domain.ErrNotFound)
	}
	svc.StoragePath = &storagePath
	r.store.services[id] = svc
	return nil
}

package docsystem

import (
	"context"

	"portal/internal/domain/models/docsystem"
)

// EnterpriseRepository defines data access operations for enterprises.
// Enterprise lifecycle is managed elsewhere; the portal only reads them and
// persists their lazily assigned storage path.
type EnterpriseRepository interface {
	// Create inserts an enterprise (used by seeding)
	Create(ctx context.Context, enterprise *docsystem.Enterprise) error

	// GetByID retrieves an enterprise by ID
	GetByID(ctx context.Context, id int64) (*docsystem.Enterprise, error)

	// PathTaken reports whether another enterprise already owns storagePath
	PathTaken(ctx context.Context, storagePath string, excludeID int64) (bool, error)

	// UpdateStoragePath persists the enterprise base directory
	UpdateStoragePath(ctx context.Context, id int64, storagePath string) error
}

// ServiceRepository defines data access operations for services
type ServiceRepository interface {
	// Create inserts a service (used by seeding)
	Create(ctx context.Context, service *docsystem.Service) error

	// GetByID retrieves a service by ID
	GetByID(ctx context.Context, id int64) (*docsystem.Service, error)

	// ListByEnterprise lists all services of an enterprise
	ListByEnterprise(ctx context.Context, enterpriseID int64) ([]docsystem.Service, error)

	// UpdateStoragePath persists the service directory
	UpdateStoragePath(ctx context.Context, id int64, storagePath string) error
}

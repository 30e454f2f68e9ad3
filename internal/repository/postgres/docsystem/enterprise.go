package docsystem

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"portal/internal/domain"
	models "portal/internal/domain/models/docsystem"
	docsysRepo "portal/internal/domain/repositories/docsystem"
	"portal/internal/repository/postgres"
)

// PostgresEnterpriseRepository implements the EnterpriseRepository interface
type PostgresEnterpriseRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewEnterpriseRepository creates a new enterprise repository
func NewEnterpriseRepository(config *postgres.RepositoryConfig) docsysRepo.EnterpriseRepository {
	return &PostgresEnterpriseRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts an enterprise
func (r *PostgresEnterpriseRepository) Create(ctx context.Context, e *models.Enterprise) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, storage_path)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, r.tables.Enterprises)

	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, e.Name, e.StoragePath).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("create enterprise: %w", err)
	}
	return nil
}

// GetByID retrieves an enterprise by ID
func (r *PostgresEnterpriseRepository) GetByID(ctx context.Context, id int64) (*models.Enterprise, error) {
	query := fmt.Sprintf(`
		SELECT id, name, storage_path, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.Enterprises)

	var e models.Enterprise
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&e.ID, &e.Name, &e.StoragePath, &e.CreatedAt)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("enterprise %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get enterprise: %w", err)
	}
	return &e, nil
}

// PathTaken reports whether another enterprise already uses storagePath
func (r *PostgresEnterpriseRepository) PathTaken(ctx context.Context, storagePath string, excludeID int64) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE storage_path = $1 AND id <> $2)
	`, r.tables.Enterprises)

	var taken bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, storagePath, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("check enterprise path: %w", err)
	}
	return taken, nil
}

// UpdateStoragePath persists the enterprise base directory
func (r *PostgresEnterpriseRepository) UpdateStoragePath(ctx context.Context, id int64, storagePath string) error {
	query := fmt.Sprintf(`UPDATE %s SET storage_path = $1 WHERE id = $2`, r.tables.Enterprises)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, storagePath, id)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("storage path %q is already in use", storagePath),
				ResourceType: "enterprise",
			}
		}
		return fmt.Errorf("update enterprise storage path: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("enterprise %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// PostgresServiceRepository implements the ServiceRepository interface
type PostgresServiceRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewServiceRepository creates a new service repository
func NewServiceRepository(config *postgres.RepositoryConfig) docsysRepo.ServiceRepository {
	return &PostgresServiceRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a service
func (r *PostgresServiceRepository) Create(ctx context.Context, svc *models.Service) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (enterprise_id, name, storage_path)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, r.tables.Services)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, svc.EnterpriseID, svc.Name, svc.StoragePath).Scan(&svc.ID, &svc.CreatedAt)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("enterprise %d: %w", svc.EnterpriseID, domain.ErrNotFound)
		}
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// GetByID retrieves a service by ID
func (r *PostgresServiceRepository) GetByID(ctx context.Context, id int64) (*models.Service, error) {
	query := fmt.Sprintf(`
		SELECT id, enterprise_id, name, storage_path, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.Services)

	var svc models.Service
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&svc.ID, &svc.EnterpriseID, &svc.Name, &svc.StoragePath, &svc.CreatedAt)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("service %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return &svc, nil
}

// ListByEnterprise lists all services of an enterprise
func (r *PostgresServiceRepository) ListByEnterprise(ctx context.Context, enterpriseID int64) ([]models.Service, error) {
	query := fmt.Sprintf(`
		SELECT id, enterprise_id, name, storage_path, created_at
		FROM %s
		WHERE enterprise_id = $1
		ORDER BY id ASC
	`, r.tables.Services)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, enterpriseID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var svc models.Service
		if err := rows.Scan(&svc.ID, &svc.EnterpriseID, &svc.Name, &svc.StoragePath, &svc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return services, nil
}

// UpdateStoragePath persists the service directory
func (r *PostgresServiceRepository) UpdateStoragePath(ctx context.Context, id int64, storagePath string) error {
	query := fmt.Sprintf(`UPDATE %s SET storage_path = $1 WHERE id = $2`, r.tables.Services)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, storagePath, id)
	if err != nil {
		return fmt.Errorf("update service storage path: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("service %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

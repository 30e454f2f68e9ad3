package docsystem

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"portal/internal/domain"
	models "portal/internal/domain/models/docsystem"
	docsysRepo "portal/internal/domain/repositories/docsystem"
	"portal/internal/repository/postgres"
)

const folderColumns = "id, service_id, parent_id, name, storage_path, created_at, updated_at"

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *postgres.RepositoryConfig) docsysRepo.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create creates a new folder
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (service_id, parent_id, name, storage_path)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		folder.ServiceID,
		folder.ParentID,
		folder.Name,
		folder.StoragePath,
	).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("service %d already has a root folder", folder.ServiceID),
				ResourceType: "folder",
			}
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("service or parent folder: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create folder: %w", err)
	}

	return nil
}

// GetByID retrieves a folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id int64) (*models.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, folderColumns, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return folder, nil
}

// GetRoot retrieves the root folder of a service
func (r *PostgresFolderRepository) GetRoot(ctx context.Context, serviceID int64) (*models.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE service_id = $1 AND parent_id IS NULL`, folderColumns, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, serviceID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("root folder of service %d: %w", serviceID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get root folder: %w", err)
	}
	return folder, nil
}

// CreateRootIfNotExists relies on the partial unique index on (service_id)
// WHERE parent_id IS NULL so concurrent callers converge on one root.
func (r *PostgresFolderRepository) CreateRootIfNotExists(ctx context.Context, serviceID int64, name string) (*models.Folder, bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (service_id, parent_id, name)
		VALUES ($1, NULL, $2)
		ON CONFLICT (service_id) WHERE parent_id IS NULL DO NOTHING
		RETURNING %s
	`, r.tables.Folders, folderColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, serviceID, name))
	if err == nil {
		return folder, true, nil
	}
	if !postgres.IsPgNoRowsError(err) {
		if postgres.IsPgForeignKeyError(err) {
			return nil, false, fmt.Errorf("service %d: %w", serviceID, domain.ErrNotFound)
		}
		return nil, false, fmt.Errorf("create root folder: %w", err)
	}

	existing, err := r.GetRoot(ctx, serviceID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Update updates a folder
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_id = $1, name = $2, storage_path = $3, updated_at = $4
		WHERE id = $5
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		folder.ParentID,
		folder.Name,
		folder.StoragePath,
		folder.UpdatedAt,
		folder.ID,
	)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("parent folder: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("update folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %d: %w", folder.ID, domain.ErrNotFound)
	}

	return nil
}

// ListChildren lists immediate child folders
func (r *PostgresFolderRepository) ListChildren(ctx context.Context, parentID int64) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE parent_id = $1
		ORDER BY name ASC, id ASC
	`, folderColumns, r.tables.Folders)

	return r.queryFolders(ctx, query, parentID)
}

// ListByService retrieves all folders in a service (flat list)
func (r *PostgresFolderRepository) ListByService(ctx context.Context, serviceID int64) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE service_id = $1
		ORDER BY id ASC
	`, folderColumns, r.tables.Folders)

	return r.queryFolders(ctx, query, serviceID)
}

// DeleteMany deletes the given folders; shared_folders rows go with them via ON DELETE CASCADE
func (r *PostgresFolderRepository) DeleteMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("delete folders: %w", err)
	}
	return nil
}

func (r *PostgresFolderRepository) queryFolders(ctx context.Context, query string, args ...interface{}) ([]models.Folder, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return folders, nil
}

func scanFolder(row pgx.Row) (*models.Folder, error) {
	var f models.Folder
	err := row.Scan(
		&f.ID,
		&f.ServiceID,
		&f.ParentID,
		&f.Name,
		&f.StoragePath,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

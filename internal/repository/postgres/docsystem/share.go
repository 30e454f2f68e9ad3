package docsystem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"portal/internal/domain"
	models "portal/internal/domain/models/docsystem"
	docsysRepo "portal/internal/domain/repositories/docsystem"
	"portal/internal/repository/postgres"
)

// PostgresShareRepository implements the ShareRepository interface.
// Target services live in a join table and are aggregated back into ServiceIDs.
type PostgresShareRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewShareRepository creates a new shared folder repository
func NewShareRepository(config *postgres.RepositoryConfig) docsysRepo.ShareRepository {
	return &PostgresShareRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func (r *PostgresShareRepository) selectQuery(where string) string {
	return fmt.Sprintf(`
		SELECT s.id, s.enterprise_id, s.folder_id, s.name, s.visibility, s.created_at, s.updated_at,
		       COALESCE(array_agg(ss.service_id ORDER BY ss.service_id) FILTER (WHERE ss.service_id IS NOT NULL), '{}')
		FROM %s s
		LEFT JOIN %s ss ON ss.shared_folder_id = s.id
		WHERE %s
		GROUP BY s.id
		ORDER BY s.id ASC
	`, r.tables.SharedFolders, r.tables.SharedFolderServices, where)
}

// Create creates a share and its service targets. A folder shares at most
// once; a second share yields a ConflictError naming the existing one.
func (r *PostgresShareRepository) Create(ctx context.Context, share *models.SharedFolder) error {
	// ON CONFLICT keeps the transaction usable, so the existing share can be read back
	query := fmt.Sprintf(`
		INSERT INTO %s (enterprise_id, folder_id, name, visibility)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (folder_id) DO NOTHING
		RETURNING id, created_at, updated_at
	`, r.tables.SharedFolders)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		share.EnterpriseID,
		share.FolderID,
		share.Name,
		string(share.Visibility),
	).Scan(&share.ID, &share.CreatedAt, &share.UpdatedAt)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return r.conflict(ctx, share.FolderID)
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("folder %d: %w", share.FolderID, domain.ErrNotFound)
		}
		if postgres.IsPgCheckViolation(err) {
			return r.rejected(share, err)
		}
		return fmt.Errorf("create share: %w", err)
	}

	return r.replaceServices(ctx, share.ID, share.ServiceIDs)
}

func (r *PostgresShareRepository) conflict(ctx context.Context, folderID int64) error {
	existing, err := r.GetByFolder(ctx, folderID)
	if err != nil {
		return fmt.Errorf("load existing share: %w", err)
	}
	return &domain.ConflictError{
		Message:      fmt.Sprintf("folder %d is already shared", folderID),
		ResourceType: "share",
		ResourceID:   existing.ID,
	}
}

func (r *PostgresShareRepository) rejected(share *models.SharedFolder, err error) error {
	r.logger.Warn("share rejected by constraint",
		"folder_id", share.FolderID,
		"visibility", share.Visibility,
		"constraint", postgres.ConstraintName(err),
	)
	return &domain.ValidationError{Message: fmt.Sprintf("invalid share visibility %q", share.Visibility)}
}

// GetByID retrieves a share by ID
func (r *PostgresShareRepository) GetByID(ctx context.Context, id int64) (*models.SharedFolder, error) {
	shares, err := r.queryShares(ctx, r.selectQuery("s.id = $1"), id)
	if err != nil {
		return nil, err
	}
	if len(shares) == 0 {
		return nil, fmt.Errorf("share %d: %w", id, domain.ErrNotFound)
	}
	return &shares[0], nil
}

// GetByFolder retrieves the share of a folder
func (r *PostgresShareRepository) GetByFolder(ctx context.Context, folderID int64) (*models.SharedFolder, error) {
	shares, err := r.queryShares(ctx, r.selectQuery("s.folder_id = $1"), folderID)
	if err != nil {
		return nil, err
	}
	if len(shares) == 0 {
		return nil, fmt.Errorf("share of folder %d: %w", folderID, domain.ErrNotFound)
	}
	return &shares[0], nil
}

// Update replaces name, visibility and service set
func (r *PostgresShareRepository) Update(ctx context.Context, share *models.SharedFolder) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, visibility = $2, updated_at = $3
		WHERE id = $4
	`, r.tables.SharedFolders)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, share.Name, string(share.Visibility), share.UpdatedAt, share.ID)
	if err != nil {
		if postgres.IsPgCheckViolation(err) {
			return r.rejected(share, err)
		}
		return fmt.Errorf("update share: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("share %d: %w", share.ID, domain.ErrNotFound)
	}
	return r.replaceServices(ctx, share.ID, share.ServiceIDs)
}

// RenameByFolder keeps the share display name in sync with its folder
func (r *PostgresShareRepository) RenameByFolder(ctx context.Context, folderID int64, name string) error {
	query := fmt.Sprintf(`UPDATE %s SET name = $1, updated_at = $2 WHERE folder_id = $3`, r.tables.SharedFolders)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, name, time.Now(), folderID); err != nil {
		return fmt.Errorf("rename share: %w", err)
	}
	return nil
}

// ListByEnterprise lists all shares of an enterprise
func (r *PostgresShareRepository) ListByEnterprise(ctx context.Context, enterpriseID int64) ([]models.SharedFolder, error) {
	return r.queryShares(ctx, r.selectQuery("s.enterprise_id = $1"), enterpriseID)
}

func (r *PostgresShareRepository) replaceServices(ctx context.Context, shareID int64, serviceIDs []int64) error {
	executor := postgres.GetExecutor(ctx, r.pool)

	del := fmt.Sprintf(`DELETE FROM %s WHERE shared_folder_id = $1`, r.tables.SharedFolderServices)
	if _, err := executor.Exec(ctx, del, shareID); err != nil {
		return fmt.Errorf("clear share services: %w", err)
	}
	if len(serviceIDs) == 0 {
		return nil
	}

	ins := fmt.Sprintf(`
		INSERT INTO %s (shared_folder_id, service_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING
	`, r.tables.SharedFolderServices)
	if _, err := executor.Exec(ctx, ins, shareID, serviceIDs); err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("%w: unknown service in share targets", domain.ErrValidation)
		}
		return fmt.Errorf("insert share services: %w", err)
	}
	return nil
}

func (r *PostgresShareRepository) queryShares(ctx context.Context, query string, args ...interface{}) ([]models.SharedFolder, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	var shares []models.SharedFolder
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, *share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shares: %w", err)
	}
	return shares, nil
}

func scanShare(row pgx.Row) (*models.SharedFolder, error) {
	var (
		s          models.SharedFolder
		visibility string
	)
	err := row.Scan(
		&s.ID,
		&s.EnterpriseID,
		&s.FolderID,
		&s.Name,
		&visibility,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.ServiceIDs,
	)
	if err != nil {
		return nil, err
	}
	s.Visibility = models.Visibility(visibility)
	return &s, nil
}

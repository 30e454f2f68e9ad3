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

const documentColumns = "id, enterprise_id, service_id, folder_id, name, storage_path, mime_type, size, created_by, created_at, updated_at"

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) docsysRepo.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create creates a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (enterprise_id, service_id, folder_id, name, storage_path, mime_type, size, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.EnterpriseID,
		doc.ServiceID,
		doc.FolderID,
		doc.Name,
		doc.StoragePath,
		doc.MimeType,
		doc.Size,
		doc.CreatedBy,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("service or folder: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, documentColumns, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Update updates name, folder and storage path
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET folder_id = $1, name = $2, storage_path = $3, updated_at = $4
		WHERE id = $5
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		doc.FolderID,
		doc.Name,
		doc.StoragePath,
		doc.UpdatedAt,
		doc.ID,
	)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("folder: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("update document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %d: %w", doc.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete deletes a document
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListByFolder lists documents directly inside a folder
func (r *PostgresDocumentRepository) ListByFolder(ctx context.Context, folderID int64) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE folder_id = $1
		ORDER BY name ASC, id ASC
	`, documentColumns, r.tables.Documents)
	return r.queryDocuments(ctx, query, folderID)
}

// ListByFolders lists documents inside any of the given folders
func (r *PostgresDocumentRepository) ListByFolders(ctx context.Context, folderIDs []int64) ([]models.Document, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE folder_id = ANY($1)
		ORDER BY name ASC, id ASC
	`, documentColumns, r.tables.Documents)
	return r.queryDocuments(ctx, query, folderIDs)
}

// ListUnfiled lists documents of a service that have no folder
func (r *PostgresDocumentRepository) ListUnfiled(ctx context.Context, serviceID int64) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE service_id = $1 AND folder_id IS NULL
		ORDER BY name ASC, id ASC
	`, documentColumns, r.tables.Documents)
	return r.queryDocuments(ctx, query, serviceID)
}

// ListByService lists all documents of a service
func (r *PostgresDocumentRepository) ListByService(ctx context.Context, serviceID int64) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE service_id = $1
		ORDER BY name ASC, id ASC
	`, documentColumns, r.tables.Documents)
	return r.queryDocuments(ctx, query, serviceID)
}

// DeleteMany deletes the given documents
func (r *PostgresDocumentRepository) DeleteMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

func (r *PostgresDocumentRepository) queryDocuments(ctx context.Context, query string, args ...interface{}) ([]models.Document, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(
		&d.ID,
		&d.EnterpriseID,
		&d.ServiceID,
		&d.FolderID,
		&d.Name,
		&d.StoragePath,
		&d.MimeType,
		&d.Size,
		&d.CreatedBy,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

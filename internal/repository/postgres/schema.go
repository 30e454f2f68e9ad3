package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// SchemaStatements renders the schema for a table prefix, one statement per entry.
func SchemaStatements(prefix string) []string {
	rendered := strings.ReplaceAll(schemaSQL, "{{prefix}}", prefix)
	var statements []string
	for _, stmt := range strings.Split(rendered, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

// EnsureSchema creates any missing tables and indexes. Idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, stmt := range SchemaStatements(tables.Prefix) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// DropSchema drops every portal table for the prefix.
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	query := fmt.Sprintf("DROP TABLE IF EXISTS %s, %s, %s, %s, %s, %s CASCADE",
		tables.SharedFolderServices, tables.SharedFolders, tables.Documents,
		tables.Folders, tables.Services, tables.Enterprises)
	if _, err := pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return nil
}

// Command generate_schema writes internal/database/sqlc/schema.sql from the
// migrations so that sqlc and tests see the migrated schema.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"folio-go/internal/database"
	"folio-go/internal/database/migrations"
)

const header = `-- This file is auto-generated from migration files.
-- DO NOT EDIT MANUALLY. Run 'go generate ./internal/database' to regenerate.
-- Source: internal/database/migrations/files/*.sql

`

func main() {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	schema, err := extractSchema(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to extract schema: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join("internal", "database", "sqlc", "schema.sql")
	if err := os.WriteFile(outPath, []byte(header+schema), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write schema file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s from migrations\n", outPath)
}

// extractSchema returns the CREATE statements for tables, indexes and
// triggers, leaving out SQLite internals and the migration bookkeeping table.
func extractSchema(db *sql.DB) (string, error) {
	rows, err := db.Query(`
		SELECT sql || ';'
		FROM sqlite_master
		WHERE type IN ('table', 'index', 'trigger')
		  AND sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND tbl_name != 'schema_migrations'
		ORDER BY
		  CASE type
		    WHEN 'table' THEN 1
		    WHEN 'index' THEN 2
		    WHEN 'trigger' THEN 3
		  END,
		  name
	`)
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return "", fmt.Errorf("scan failed: %w", err)
		}
		b.WriteString(stmt)
		b.WriteString("\n\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("rows error: %w", err)
	}
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

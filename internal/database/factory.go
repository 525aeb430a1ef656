package database

import (
	"fmt"
	"os"
	"path/filepath"

	"folio-go/internal/config"
)

// NewDatabaseFromConfig creates a database based on the database config type.
// Each user gets a separate database file.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, userID string) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dbPath := filepath.Join(cfg.DataDir, userID+".db")
		return NewSQLiteDatabase(dbPath)
	case "memory":
		db, err := NewSQLiteDatabase(":memory:")
		if err != nil {
			return nil, err
		}
		// A fresh in-memory database has no schema yet.
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating in-memory database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

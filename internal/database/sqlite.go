package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"folio-go/internal/database/migrations"
	"folio-go/internal/database/sqlc"
	"folio-go/internal/folio"
)

// SQLiteDatabase implements the folio.Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    "",
	}
}

// OpenConnection opens and configures a SQLite database connection.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	// Connection parameters apply to every connection the pool opens.
	dsn := path + sep + "_foreign_keys=on&_busy_timeout=5000"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer, and each :memory: connection is a separate
	// database, so the pool holds one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Project operations

func (s *SQLiteDatabase) FindProject(ctx context.Context, id string) (*sqlc.Project, error) {
	project, err := s.queries.GetProjectByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding project: %w", err)
	}
	return &project, nil
}

func (s *SQLiteDatabase) ListProjectsForUser(ctx context.Context, userID string) ([]*sqlc.Project, error) {
	projects, err := s.queries.ListProjectsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return pointers(projects), nil
}

func (s *SQLiteDatabase) RenameProject(ctx context.Context, id string, displayName string, at time.Time) error {
	rows, err := s.queries.UpdateProjectDisplayName(ctx, sqlc.UpdateProjectDisplayNameParams{
		DisplayName: displayName,
		UpdatedAt:   at,
		ID:          id,
	})
	if err != nil {
		return fmt.Errorf("renaming project: %w", err)
	}
	if rows == 0 {
		return folio.ErrProjectNotFound
	}
	return nil
}

func (s *SQLiteDatabase) SetProjectAttributes(ctx context.Context, id string, classification, projectType string, at time.Time) error {
	rows, err := s.queries.UpdateProjectAttributes(ctx, sqlc.UpdateProjectAttributesParams{
		Classification: nullString(classification),
		ProjectType:    nullString(projectType),
		UpdatedAt:      at,
		ID:             id,
	})
	if err != nil {
		return fmt.Errorf("setting project attributes: %w", err)
	}
	if rows == 0 {
		return folio.ErrProjectNotFound
	}
	return nil
}

// Version operations

func (s *SQLiteDatabase) FindVersion(ctx context.Context, id string) (*sqlc.ProjectVersion, error) {
	version, err := s.queries.GetProjectVersionByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding version: %w", err)
	}
	return &version, nil
}

func (s *SQLiteDatabase) FindVersionByFingerprint(ctx context.Context, projectID, strictFingerprint string) (*sqlc.ProjectVersion, error) {
	version, err := s.queries.GetProjectVersionByFingerprint(ctx, sqlc.GetProjectVersionByFingerprintParams{
		ProjectID:         projectID,
		StrictFingerprint: strictFingerprint,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding version by fingerprint: %w", err)
	}
	return &version, nil
}

func (s *SQLiteDatabase) ListVersionsForProject(ctx context.Context, projectID string) ([]*sqlc.ProjectVersion, error) {
	versions, err := s.queries.ListProjectVersionsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing project versions: %w", err)
	}
	return pointers(versions), nil
}

func (s *SQLiteDatabase) ListVersionsForUser(ctx context.Context, userID string) ([]*sqlc.ListVersionsByUserRow, error) {
	rows, err := s.queries.ListVersionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing versions for user: %w", err)
	}
	return pointers(rows), nil
}

func (s *SQLiteDatabase) ListVersionFiles(ctx context.Context, versionID string) ([]*sqlc.VersionFile, error) {
	files, err := s.queries.ListVersionFiles(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("listing version files: %w", err)
	}
	return pointers(files), nil
}

func (s *SQLiteDatabase) ListVersionContentHashes(ctx context.Context, versionID string) ([]string, error) {
	hashes, err := s.queries.ListVersionContentHashes(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("listing version content hashes: %w", err)
	}
	return hashes, nil
}

// Session operations

func (s *SQLiteDatabase) CreateSession(ctx context.Context, session *sqlc.UploadSession) error {
	_, err := s.queries.InsertUploadSession(ctx, sqlc.InsertUploadSessionParams{
		ID:        session.ID,
		UserID:    session.UserID,
		Status:    session.Status,
		State:     session.State,
		Revision:  session.Revision,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("creating upload session: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindSession(ctx context.Context, id string) (*sqlc.UploadSession, error) {
	session, err := s.queries.GetUploadSessionByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding upload session: %w", err)
	}
	return &session, nil
}

func (s *SQLiteDatabase) ListSessionsForUser(ctx context.Context, userID string) ([]*sqlc.UploadSession, error) {
	sessions, err := s.queries.ListUploadSessionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing upload sessions: %w", err)
	}
	return pointers(sessions), nil
}

func (s *SQLiteDatabase) UpdateSession(ctx context.Context, update *folio.SessionUpdate) error {
	return updateSession(ctx, s.queries, update)
}

func updateSession(ctx context.Context, q *sqlc.Queries, update *folio.SessionUpdate) error {
	rows, err := q.UpdateUploadSession(ctx, sqlc.UpdateUploadSessionParams{
		Status:    string(update.Status),
		State:     update.State,
		UpdatedAt: update.UpdatedAt,
		ID:        update.ID,
		Revision:  update.ExpectedRevision,
	})
	if err != nil {
		return fmt.Errorf("updating upload session: %w", err)
	}
	if rows == 1 {
		return nil
	}

	current, err := q.GetUploadSessionByID(ctx, update.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return folio.ErrSessionNotFound
		}
		return fmt.Errorf("reading upload session: %w", err)
	}
	return &folio.StateConflictError{
		SessionID: update.ID,
		Actual:    folio.SessionStatus(current.Status),
		Reason:    fmt.Sprintf("revision %d is stale, current revision is %d", update.ExpectedRevision, current.Revision),
	}
}

// ApplyChangeSet writes projects, versions with their files, and the session
// update in a single transaction.
func (s *SQLiteDatabase) ApplyChangeSet(ctx context.Context, changes *folio.ChangeSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	for _, p := range changes.Projects {
		_, err := qtx.InsertProject(ctx, sqlc.InsertProjectParams{
			ID:             p.ID,
			UserID:         p.UserID,
			DisplayName:    p.DisplayName,
			Classification: p.Classification,
			ProjectType:    p.ProjectType,
			CreatedAt:      p.CreatedAt,
			UpdatedAt:      p.UpdatedAt,
		})
		if err != nil {
			return fmt.Errorf("inserting project %s: %w", p.ID, err)
		}
	}

	for _, vc := range changes.Versions {
		if err := insertVersion(ctx, qtx, vc); err != nil {
			return err
		}
	}

	if changes.Session != nil {
		if err := updateSession(ctx, qtx, changes.Session); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertVersion(ctx context.Context, qtx *sqlc.Queries, vc *folio.VersionCommit) error {
	v := vc.Version
	duplicate := &folio.DuplicateVersionError{ProjectID: v.ProjectID, StrictFingerprint: v.StrictFingerprint}

	// Check the (project, strict fingerprint) key before relying on the
	// unique index so the caller gets a typed error.
	_, err := qtx.GetProjectVersionByFingerprint(ctx, sqlc.GetProjectVersionByFingerprintParams{
		ProjectID:         v.ProjectID,
		StrictFingerprint: v.StrictFingerprint,
	})
	if err == nil {
		return duplicate
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for existing version: %w", err)
	}

	_, err = qtx.InsertProjectVersion(ctx, sqlc.InsertProjectVersionParams{
		ID:                v.ID,
		ProjectID:         v.ProjectID,
		UploadSessionID:   v.UploadSessionID,
		StrictFingerprint: v.StrictFingerprint,
		LooseFingerprint:  v.LooseFingerprint,
		FileCount:         v.FileCount,
		CreatedAt:         v.CreatedAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return duplicate
		}
		return fmt.Errorf("inserting version %s: %w", v.ID, err)
	}

	for _, f := range vc.Files {
		err := qtx.InsertVersionFile(ctx, sqlc.InsertVersionFileParams{
			VersionID:   v.ID,
			Relpath:     f.RelPath,
			ContentHash: f.Hash,
			Size:        f.Size,
		})
		if err != nil {
			return fmt.Errorf("inserting file %s of version %s: %w", f.RelPath, v.ID, err)
		}
	}
	return nil
}

// Operation history

func (s *SQLiteDatabase) CreateOperation(ctx context.Context, operation, parameters string, startedAt time.Time) (int64, error) {
	op, err := s.queries.InsertOperation(ctx, sqlc.InsertOperationParams{
		StartedAt:  startedAt,
		Operation:  operation,
		Parameters: parameters,
	})
	if err != nil {
		return 0, fmt.Errorf("creating operation: %w", err)
	}
	return op.ID, nil
}

func (s *SQLiteDatabase) FinishOperation(ctx context.Context, id int64, status string, finishedAt time.Time) error {
	err := s.queries.UpdateOperationFinished(ctx, sqlc.UpdateOperationFinishedParams{
		FinishedAt: sql.NullTime{Time: finishedAt, Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(ctx context.Context, limit int) ([]*sqlc.Operation, error) {
	ops, err := s.queries.GetOperations(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return pointers(ops), nil
}

// CountVersions returns the number of committed versions across all users.
func (s *SQLiteDatabase) CountVersions(ctx context.Context) (int64, error) {
	n, err := s.queries.CountProjectVersions(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting versions: %w", err)
	}
	return n, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Migrate applies pending migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// MigrationStatus reports the schema version of the database.
func (s *SQLiteDatabase) MigrationStatus() (*migrations.Status, error) {
	return migrations.GetStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func pointers[T any](rows []T) []*T {
	result := make([]*T, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result
}

// Compile-time check that SQLiteDatabase implements folio.Database interface
var _ folio.Database = (*SQLiteDatabase)(nil)

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"folio-go/internal/blobstore"
	"folio-go/internal/config"
	"folio-go/internal/database"
	"folio-go/internal/database/migrations"
	"folio-go/internal/database/sqlc"
	"folio-go/internal/encryption"
	"folio-go/internal/folio"
	"folio-go/internal/intake"
)

// FolioApp is the application layer between the CLI and IngestService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw CLI arguments, and records the operation on Close.
type FolioApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	blobs     folio.BlobStore
	encryptor folio.Encryptor
	service   *folio.IngestService
	clock     folio.Clock
	op        *Operation
	logFile   *os.File
}

// NewFolioApp creates a fully wired FolioApp from the given config.
// operation identifies the CLI command being run (e.g. "Ingest", "ResolveDedup").
// The caller must call Close when done.
func NewFolioApp(ctx context.Context, cfg *config.Config, operation string) (*FolioApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	blobs, err := blobstore.NewBlobStoreFromConfig(ctx, cfg.BlobStore, enc)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating blob store: %w", err)
	}

	clock := folio.RealClock{}
	opID := clock.Now().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, cfg.LogLevel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := folio.NewIngestService(db, blobs, cfg.MatchConfig(), cfg.HashWorkers(),
		&slogAdapter{l: logger}, clock, folio.UUIDGenerator{})

	return &FolioApp{
		cfg:       cfg,
		db:        db,
		blobs:     blobs,
		encryptor: enc,
		service:   svc,
		clock:     clock,
		op:        NewOperation(operation, ""),
		logFile:   logFile,
	}, nil
}

// persistOperation records the operation in the database, giving it an
// auto-increment ID. Only mutating commands call it.
func (a *FolioApp) persistOperation(ctx context.Context, parameters ...string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = strings.Join(parameters, " ")
	id, err := a.db.CreateOperation(ctx, a.op.Operation, a.op.Parameters, a.clock.Now())
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = id
	return nil
}

// track runs a mutating call and marks the operation failed if it errors.
func track[T any](ctx context.Context, a *FolioApp, call func() (T, error), parameters ...string) (T, error) {
	if err := a.persistOperation(ctx, parameters...); err != nil {
		var zero T
		return zero, err
	}
	v, err := call()
	if err != nil {
		a.op.Fail()
	}
	return v, err
}

// Ingest resolves the given path, parses it as a directory or zip archive and
// runs ingestion for the configured user.
func (a *FolioApp) Ingest(ctx context.Context, rawPath string) (*folio.Session, error) {
	p, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return track(ctx, a, func() (*folio.Session, error) {
		return a.service.Ingest(ctx, a.cfg.UserID, intake.NewSource(p, a.cfg.Ingest.Ignore))
	}, p)
}

// ResolveDedup applies the user's decisions for a session's pending asks.
// Each decision has the form CANDIDATE=skip|new_project|new_version.
func (a *FolioApp) ResolveDedup(ctx context.Context, sessionID string, pairs []string) (*folio.Session, error) {
	decisions, err := ParseDecisions(pairs)
	if err != nil {
		return nil, err
	}
	params := append([]string{sessionID}, pairs...)
	return track(ctx, a, func() (*folio.Session, error) {
		return a.service.ResolveDedup(ctx, a.cfg.UserID, sessionID, decisions)
	}, params...)
}

// ParseDecisions converts CANDIDATE=decision arguments into a decision map.
func ParseDecisions(pairs []string) (map[string]string, error) {
	decisions := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, decision, ok := strings.Cut(pair, "=")
		if !ok || name == "" || decision == "" {
			return nil, fmt.Errorf("invalid decision %q: want CANDIDATE=DECISION", pair)
		}
		if _, dup := decisions[name]; dup {
			return nil, fmt.Errorf("duplicate decision for %q", name)
		}
		decisions[name] = decision
	}
	return decisions, nil
}

// Advance moves a session one step forward from the given status.
func (a *FolioApp) Advance(ctx context.Context, sessionID, from string) (*folio.Session, error) {
	status, err := folio.ParseSessionStatus(from)
	if err != nil {
		return nil, err
	}
	return track(ctx, a, func() (*folio.Session, error) {
		return a.service.Advance(ctx, a.cfg.UserID, sessionID, status)
	}, sessionID, from)
}

// FailSession moves a session to failed with the given cause.
func (a *FolioApp) FailSession(ctx context.Context, sessionID, cause string) (*folio.Session, error) {
	return track(ctx, a, func() (*folio.Session, error) {
		return a.service.FailSession(ctx, a.cfg.UserID, sessionID, cause)
	}, sessionID, cause)
}

// PutSelection stores a downstream selection. rawValue must be valid JSON;
// anything else is stored as a JSON string.
func (a *FolioApp) PutSelection(ctx context.Context, sessionID, expected, key, rawValue string) (*folio.Session, error) {
	status, err := folio.ParseSessionStatus(expected)
	if err != nil {
		return nil, err
	}
	value := json.RawMessage(rawValue)
	if !json.Valid(value) {
		quoted, err := json.Marshal(rawValue)
		if err != nil {
			return nil, fmt.Errorf("encoding selection value: %w", err)
		}
		value = quoted
	}
	return track(ctx, a, func() (*folio.Session, error) {
		return a.service.PutSelection(ctx, a.cfg.UserID, sessionID, status, key, value)
	}, sessionID, expected, key)
}

// GetSession returns one session of the configured user.
func (a *FolioApp) GetSession(ctx context.Context, sessionID string) (*folio.Session, error) {
	return a.service.GetSession(ctx, a.cfg.UserID, sessionID)
}

// ListSessions returns the configured user's sessions, newest first.
func (a *FolioApp) ListSessions(ctx context.Context) ([]*folio.Session, error) {
	return a.service.ListSessions(ctx, a.cfg.UserID)
}

// ListProjects returns the configured user's projects.
func (a *FolioApp) ListProjects(ctx context.Context) ([]*sqlc.Project, error) {
	return a.service.ListProjects(ctx, a.cfg.UserID)
}

// ListProjectVersions returns the versions of one project.
func (a *FolioApp) ListProjectVersions(ctx context.Context, projectID string) ([]*sqlc.ProjectVersion, error) {
	return a.service.ListProjectVersions(ctx, a.cfg.UserID, projectID)
}

// ListVersionFiles returns the files of one version.
func (a *FolioApp) ListVersionFiles(ctx context.Context, versionID string) ([]*sqlc.VersionFile, error) {
	return a.service.ListVersionFiles(ctx, a.cfg.UserID, versionID)
}

// RenameProject changes a project's display name.
func (a *FolioApp) RenameProject(ctx context.Context, projectID, displayName string) error {
	_, err := track(ctx, a, func() (struct{}, error) {
		return struct{}{}, a.service.RenameProject(ctx, a.cfg.UserID, projectID, displayName)
	}, projectID, displayName)
	return err
}

// SetProjectAttributes records a project's classification and type.
func (a *FolioApp) SetProjectAttributes(ctx context.Context, projectID, classification, projectType string) error {
	_, err := track(ctx, a, func() (struct{}, error) {
		return struct{}{}, a.service.SetProjectAttributes(ctx, a.cfg.UserID, projectID, classification, projectType)
	}, projectID, classification, projectType)
	return err
}

// GetHistory returns the most recent operations.
func (a *FolioApp) GetHistory(ctx context.Context, limit int) ([]*sqlc.Operation, error) {
	return a.service.GetHistory(ctx, limit)
}

// CatBlob writes the stored content for hash to w. When encryption is
// configured the private key is unlocked with passphrase first.
func (a *FolioApp) CatBlob(ctx context.Context, hash, passphrase string, w io.Writer) error {
	if a.blobs == nil {
		return fmt.Errorf("no blob store configured")
	}
	enc, ok := a.blobs.(*blobstore.EncryptedStore)
	if !ok {
		return a.blobs.Get(ctx, hash, w)
	}
	dc, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}
	return enc.GetDecrypted(ctx, hash, w, dc)
}

// SetupKeys generates the age key pair, sealing the private key with
// passphrase. It refuses to overwrite existing keys.
func SetupKeys(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if enc == nil {
		return fmt.Errorf("encryption is disabled in config")
	}
	if enc.IsConfigured() {
		return fmt.Errorf("keys already exist")
	}
	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("generating keys: %w", err)
	}
	return nil
}

// MigrateDatabase applies pending schema migrations to the user's database.
func MigrateDatabase(cfg *config.Config) (*migrations.Status, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return db.MigrationStatus()
}

// DatabaseStatus reports the schema version of the user's database.
func DatabaseStatus(cfg *config.Config) (*migrations.Status, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	return db.MigrationStatus()
}

// EncryptionEnabled reports whether blobs are encrypted at rest.
func (a *FolioApp) EncryptionEnabled() bool {
	return a.encryptor != nil
}

// Close finishes the operation record, if any, and closes all resources.
func (a *FolioApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(context.Background(), a.op.ID, a.op.Status, a.clock.Now()); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

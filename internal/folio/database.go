package folio

import (
	"context"
	"time"

	"folio-go/internal/database/sqlc"
)

// Database provides metadata storage for identities, sessions and operation
// history. Lookups return nil, nil when the row does not exist.
type Database interface {
	// Project operations

	// FindProject returns a project by id.
	FindProject(ctx context.Context, id string) (*sqlc.Project, error)

	// ListProjectsForUser returns the user's projects ordered by creation time.
	ListProjectsForUser(ctx context.Context, userID string) ([]*sqlc.Project, error)

	// RenameProject changes the display name of a project.
	RenameProject(ctx context.Context, id string, displayName string, at time.Time) error

	// SetProjectAttributes records downstream classification and type.
	SetProjectAttributes(ctx context.Context, id string, classification, projectType string, at time.Time) error

	// Version operations

	// FindVersion returns a version by id.
	FindVersion(ctx context.Context, id string) (*sqlc.ProjectVersion, error)

	// FindVersionByFingerprint returns the version of a project with the given
	// strict fingerprint.
	FindVersionByFingerprint(ctx context.Context, projectID, strictFingerprint string) (*sqlc.ProjectVersion, error)

	// ListVersionsForProject returns a project's versions, oldest first.
	ListVersionsForProject(ctx context.Context, projectID string) ([]*sqlc.ProjectVersion, error)

	// ListVersionsForUser returns every version of every project the user owns.
	ListVersionsForUser(ctx context.Context, userID string) ([]*sqlc.ListVersionsByUserRow, error)

	// ListVersionFiles returns the files of a version ordered by relpath.
	ListVersionFiles(ctx context.Context, versionID string) ([]*sqlc.VersionFile, error)

	// ListVersionContentHashes returns the distinct content hashes of a version.
	ListVersionContentHashes(ctx context.Context, versionID string) ([]string, error)

	// Session operations

	// CreateSession inserts a new upload session.
	CreateSession(ctx context.Context, session *sqlc.UploadSession) error

	// FindSession returns an upload session by id.
	FindSession(ctx context.Context, id string) (*sqlc.UploadSession, error)

	// ListSessionsForUser returns the user's sessions, newest first.
	ListSessionsForUser(ctx context.Context, userID string) ([]*sqlc.UploadSession, error)

	// UpdateSession writes a session if its revision still matches.
	// A stale revision yields a *StateConflictError.
	UpdateSession(ctx context.Context, update *SessionUpdate) error

	// ApplyChangeSet commits new projects, versions and an optional session
	// update in one transaction. Nothing is written if any part fails.
	ApplyChangeSet(ctx context.Context, changes *ChangeSet) error

	// Operation history

	// CreateOperation records the start of an operation and returns its id.
	CreateOperation(ctx context.Context, operation, parameters string, startedAt time.Time) (int64, error)

	// FinishOperation records the outcome of an operation.
	FinishOperation(ctx context.Context, id int64, status string, finishedAt time.Time) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(ctx context.Context, limit int) ([]*sqlc.Operation, error)

	// Close closes the database connection.
	Close() error
}

// SessionUpdate is an optimistic write of a session's status and state.
type SessionUpdate struct {
	ID               string
	ExpectedRevision int64
	Status           SessionStatus
	State            string
	UpdatedAt        time.Time
}

package folio

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"folio-go/internal/database/sqlc"
)

// ChangeSet collects identity writes that must commit together, optionally
// with the session update that records them.
type ChangeSet struct {
	Projects []*sqlc.Project
	Versions []*VersionCommit
	Session  *SessionUpdate
}

// VersionCommit is a version and its files awaiting commit.
type VersionCommit struct {
	Version *sqlc.ProjectVersion
	Files   []FileHash
}

// Empty reports whether the change set writes no identities.
func (cs *ChangeSet) Empty() bool {
	return len(cs.Projects) == 0 && len(cs.Versions) == 0
}

func (cs *ChangeSet) findVersion(projectID, strict string) *VersionCommit {
	for _, vc := range cs.Versions {
		if vc.Version.ProjectID == projectID && vc.Version.StrictFingerprint == strict {
			return vc
		}
	}
	return nil
}

func (cs *ChangeSet) findProject(id string) *sqlc.Project {
	for _, p := range cs.Projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// IdentityStore is the only writer of projects, versions and version files.
// It mints every identity it stores.
type IdentityStore struct {
	database   Database
	clock      Clock
	idgen      IDGenerator
	sketchSize int
}

// NewIdentityStore creates an identity store.
func NewIdentityStore(database Database, clock Clock, idgen IDGenerator, sketchSize int) *IdentityStore {
	if sketchSize <= 0 {
		sketchSize = DefaultSketchSize
	}
	return &IdentityStore{database: database, clock: clock, idgen: idgen, sketchSize: sketchSize}
}

// FindOrCreateProject returns the user's project with the given id, or mints
// a new project named displayName when projectID is empty. The second return
// value reports whether a project was created.
func (s *IdentityStore) FindOrCreateProject(ctx context.Context, userID, projectID, displayName string) (*sqlc.Project, bool, error) {
	if projectID != "" {
		project, err := s.ownedProject(ctx, userID, projectID)
		if err != nil {
			return nil, false, err
		}
		return project, false, nil
	}

	cs := s.NewChangeSet()
	project, err := s.PlanProject(cs, userID, displayName)
	if err != nil {
		return nil, false, err
	}
	if err := s.Apply(ctx, cs); err != nil {
		return nil, false, err
	}
	return project, true, nil
}

// CommitVersion stores a new version of a project with the given files. It
// returns a *DuplicateVersionError if the project already has a version with
// the same strict fingerprint.
func (s *IdentityStore) CommitVersion(ctx context.Context, projectID string, files []FileHash, sessionID string) (*sqlc.ProjectVersion, error) {
	project, err := s.database.FindProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("finding project: %w", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}

	cs := s.NewChangeSet()
	vc, err := s.PlanVersion(cs, projectID, files, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.Apply(ctx, cs); err != nil {
		return nil, err
	}
	return vc.Version, nil
}

// NewChangeSet starts an empty change set.
func (s *IdentityStore) NewChangeSet() *ChangeSet {
	return &ChangeSet{}
}

// PlanProject adds a new project to the change set and returns it.
func (s *IdentityStore) PlanProject(cs *ChangeSet, userID, displayName string) (*sqlc.Project, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("project display name is required")
	}
	now := s.clock.Now()
	project := &sqlc.Project{
		ID:          s.idgen.New(),
		UserID:      userID,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	cs.Projects = append(cs.Projects, project)
	return project, nil
}

// PlanVersion adds a new version of projectID to the change set. Fingerprints
// are computed here from files. A second version with the same fingerprint
// under the same project in one change set is a *DuplicateVersionError.
func (s *IdentityStore) PlanVersion(cs *ChangeSet, projectID string, files []FileHash, sessionID string) (*VersionCommit, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("a version needs at least one file")
	}
	sorted := append([]FileHash(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RelPath < sorted[j].RelPath })
	for i, f := range sorted {
		if err := validateRelPath(f.RelPath); err != nil {
			return nil, err
		}
		if i > 0 && sorted[i-1].RelPath == f.RelPath {
			return nil, fmt.Errorf("duplicate path %q", f.RelPath)
		}
	}

	strict := StrictFingerprint(sorted)
	if cs.findVersion(projectID, strict) != nil {
		return nil, &DuplicateVersionError{ProjectID: projectID, StrictFingerprint: strict}
	}

	vc := &VersionCommit{
		Version: &sqlc.ProjectVersion{
			ID:                s.idgen.New(),
			ProjectID:         projectID,
			UploadSessionID:   sql.NullString{String: sessionID, Valid: sessionID != ""},
			StrictFingerprint: strict,
			LooseFingerprint:  NewSketch(hashList(sorted), s.sketchSize).String(),
			FileCount:         int64(len(sorted)),
			CreatedAt:         s.clock.Now(),
		},
		Files: sorted,
	}
	cs.Versions = append(cs.Versions, vc)
	return vc, nil
}

// Apply commits the change set atomically.
func (s *IdentityStore) Apply(ctx context.Context, cs *ChangeSet) error {
	if cs.Empty() && cs.Session == nil {
		return nil
	}
	if err := s.database.ApplyChangeSet(ctx, cs); err != nil {
		return fmt.Errorf("applying change set: %w", err)
	}
	return nil
}

// ListUserVersions returns every version of every project the user owns,
// oldest first.
func (s *IdentityStore) ListUserVersions(ctx context.Context, userID string) ([]VersionSnapshot, error) {
	rows, err := s.database.ListVersionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	out := make([]VersionSnapshot, 0, len(rows))
	for _, row := range rows {
		loose, err := ParseSketch(row.LooseFingerprint)
		if err != nil {
			return nil, fmt.Errorf("version %s: %w", row.ID, err)
		}
		out = append(out, VersionSnapshot{
			VersionID:         row.ID,
			ProjectID:         row.ProjectID,
			ProjectName:       row.DisplayName,
			StrictFingerprint: row.StrictFingerprint,
			Loose:             loose,
			FileCount:         int(row.FileCount),
			CreatedAt:         row.CreatedAt,
		})
	}
	sortSnapshots(out)
	return out, nil
}

// VersionHashes returns the distinct content hashes of a version.
func (s *IdentityStore) VersionHashes(ctx context.Context, versionID string) ([]string, error) {
	hashes, err := s.database.ListVersionContentHashes(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("listing content hashes: %w", err)
	}
	return hashes, nil
}

// FindVersionByFingerprint returns the committed version of projectID with
// the given strict fingerprint, or nil.
func (s *IdentityStore) FindVersionByFingerprint(ctx context.Context, projectID, strict string) (*sqlc.ProjectVersion, error) {
	v, err := s.database.FindVersionByFingerprint(ctx, projectID, strict)
	if err != nil {
		return nil, fmt.Errorf("finding version by fingerprint: %w", err)
	}
	return v, nil
}

func (s *IdentityStore) ownedProject(ctx context.Context, userID, projectID string) (*sqlc.Project, error) {
	project, err := s.database.FindProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("finding project: %w", err)
	}
	if project == nil || project.UserID != userID {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

var _ VersionCatalog = (*IdentityStore)(nil)

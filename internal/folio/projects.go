package folio

import (
	"context"
	"fmt"
	"strings"

	"folio-go/internal/database/sqlc"
)

// Project classifications and types recorded by downstream wizard steps.
const (
	ClassificationIndividual    = "individual"
	ClassificationCollaborative = "collaborative"

	ProjectTypeCode = "code"
	ProjectTypeText = "text"
)

// ListProjects returns the user's projects.
func (s *IngestService) ListProjects(ctx context.Context, userID string) ([]*sqlc.Project, error) {
	projects, err := s.database.ListProjectsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// ListProjectVersions returns the versions of a project owned by the user.
func (s *IngestService) ListProjectVersions(ctx context.Context, userID, projectID string) ([]*sqlc.ProjectVersion, error) {
	if _, err := s.identity.ownedProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	versions, err := s.database.ListVersionsForProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	return versions, nil
}

// ListVersionFiles returns the files of a version owned by the user.
func (s *IngestService) ListVersionFiles(ctx context.Context, userID, versionID string) ([]*sqlc.VersionFile, error) {
	version, err := s.database.FindVersion(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("finding version: %w", err)
	}
	if version == nil {
		return nil, ErrProjectNotFound
	}
	if _, err := s.identity.ownedProject(ctx, userID, version.ProjectID); err != nil {
		return nil, err
	}
	files, err := s.database.ListVersionFiles(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("listing version files: %w", err)
	}
	return files, nil
}

// RenameProject changes the display name of a project. Identity is by id, so
// renaming never affects matching.
func (s *IngestService) RenameProject(ctx context.Context, userID, projectID, displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return &InvalidDecisionError{Reason: "display name is required"}
	}
	if _, err := s.identity.ownedProject(ctx, userID, projectID); err != nil {
		return err
	}
	if err := s.database.RenameProject(ctx, projectID, displayName, s.clock.Now()); err != nil {
		return fmt.Errorf("renaming project: %w", err)
	}
	s.logger.Info("project renamed", "project_id", projectID, "display_name", displayName)
	return nil
}

// SetProjectAttributes records the classification and type chosen for a
// project. Empty values clear the attribute.
func (s *IngestService) SetProjectAttributes(ctx context.Context, userID, projectID, classification, projectType string) error {
	switch classification {
	case "", ClassificationIndividual, ClassificationCollaborative:
	default:
		return &InvalidDecisionError{Reason: fmt.Sprintf("unknown classification %q", classification)}
	}
	switch projectType {
	case "", ProjectTypeCode, ProjectTypeText:
	default:
		return &InvalidDecisionError{Reason: fmt.Sprintf("unknown project type %q", projectType)}
	}
	if _, err := s.identity.ownedProject(ctx, userID, projectID); err != nil {
		return err
	}
	if err := s.database.SetProjectAttributes(ctx, projectID, classification, projectType, s.clock.Now()); err != nil {
		return fmt.Errorf("setting project attributes: %w", err)
	}
	return nil
}

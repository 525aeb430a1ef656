package folio

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Resolver turns match verdicts and user decisions into identity changes.
type Resolver struct {
	identity *IdentityStore
	logger   Logger
}

// NewResolver creates a resolver that plans writes through identity.
func NewResolver(identity *IdentityStore, logger Logger) *Resolver {
	return &Resolver{identity: identity, logger: logger}
}

// Dispose plans the changes for a matched candidate. For ask verdicts nothing
// is planned and a PendingAsk is returned instead.
func (r *Resolver) Dispose(cs *ChangeSet, userID, sessionID string, c *HashedCandidate, m *Match) (*DispositionRecord, *PendingAsk, error) {
	base := DispositionRecord{
		MatchedProjectID: m.BestProjectID,
		MatchedVersionID: m.BestVersionID,
		Similarity:       m.Similarity,
		FileCount:        len(c.Files),
		Reason:           m.Reason,
	}

	switch m.Disposition {
	case DispositionSkip:
		rec := base
		rec.Disposition = DispositionSkip
		rec.ProjectID = m.BestProjectID
		rec.VersionID = m.BestVersionID
		return &rec, nil, nil

	case DispositionNewProject:
		rec, err := r.planNewProject(cs, userID, sessionID, c.Name, c.Files, base)
		return rec, nil, err

	case DispositionNewVersion:
		rec, err := r.planNewVersion(cs, sessionID, m.BestProjectID, c.Files, base)
		return rec, nil, err

	case DispositionAsk:
		return nil, &PendingAsk{
			CandidateName:        c.Name,
			BestMatchProjectID:   m.BestProjectID,
			BestMatchProjectName: m.BestProjectName,
			BestMatchVersionID:   m.BestVersionID,
			Similarity:           m.Similarity,
			Overlap:              m.Overlap,
			Reason:               m.Reason,
			StrictFingerprint:    c.Strict,
			Files:                c.Files,
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown disposition %q", m.Disposition)
}

// Decide plans the changes for a pending ask according to the user's
// decision. A new_version decision is disposed skip when the chosen project
// already holds an identical version.
func (r *Resolver) Decide(ctx context.Context, cs *ChangeSet, userID, sessionID string, ask PendingAsk, decision Disposition) (*DispositionRecord, error) {
	base := DispositionRecord{
		MatchedProjectID: ask.BestMatchProjectID,
		MatchedVersionID: ask.BestMatchVersionID,
		Similarity:       ask.Similarity,
		FileCount:        len(ask.Files),
		Reason:           "decided by user",
		DecidedByUser:    true,
	}

	switch decision {
	case DispositionSkip:
		rec := base
		rec.Disposition = DispositionSkip
		return &rec, nil

	case DispositionNewProject:
		return r.planNewProject(cs, userID, sessionID, ask.CandidateName, ask.Files, base)

	case DispositionNewVersion:
		if _, err := r.identity.ownedProject(ctx, userID, ask.BestMatchProjectID); err != nil {
			return nil, err
		}
		existing, err := r.identity.FindVersionByFingerprint(ctx, ask.BestMatchProjectID, ask.StrictFingerprint)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			rec := base
			rec.Disposition = DispositionSkip
			rec.ProjectID = existing.ProjectID
			rec.VersionID = existing.ID
			rec.Reason = "identical version already committed"
			return &rec, nil
		}
		return r.planNewVersion(cs, sessionID, ask.BestMatchProjectID, ask.Files, base)
	}
	return nil, &InvalidDecisionError{Candidate: ask.CandidateName, Reason: fmt.Sprintf("unsupported decision %q", decision)}
}

func (r *Resolver) planNewProject(cs *ChangeSet, userID, sessionID, name string, files []FileHash, base DispositionRecord) (*DispositionRecord, error) {
	project, err := r.identity.PlanProject(cs, userID, name)
	if err != nil {
		return nil, fmt.Errorf("planning project: %w", err)
	}
	vc, err := r.identity.PlanVersion(cs, project.ID, files, sessionID)
	if err != nil {
		return nil, fmt.Errorf("planning version: %w", err)
	}
	rec := base
	rec.Disposition = DispositionNewProject
	rec.ProjectID = project.ID
	rec.VersionID = vc.Version.ID
	return &rec, nil
}

func (r *Resolver) planNewVersion(cs *ChangeSet, sessionID, projectID string, files []FileHash, base DispositionRecord) (*DispositionRecord, error) {
	vc, err := r.identity.PlanVersion(cs, projectID, files, sessionID)
	var dupErr *DuplicateVersionError
	if errors.As(err, &dupErr) {
		// Another candidate in this change set already commits the same files.
		existing := cs.findVersion(dupErr.ProjectID, dupErr.StrictFingerprint)
		rec := base
		rec.Disposition = DispositionSkip
		rec.ProjectID = projectID
		rec.VersionID = existing.Version.ID
		rec.Reason = "duplicate of another candidate in this upload"
		r.logger.Debug("collapsed duplicate candidate", "project_id", projectID, "version_id", existing.Version.ID)
		return &rec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("planning version: %w", err)
	}
	rec := base
	rec.Disposition = DispositionNewVersion
	rec.ProjectID = projectID
	rec.VersionID = vc.Version.ID
	return &rec, nil
}

// ValidateDecisions checks a resolution request against the pending asks.
// Every pending candidate needs exactly one decision of skip, new_project or
// new_version, and no decision may name a candidate that is not pending.
func ValidateDecisions(asks []PendingAsk, decisions map[string]string) (map[string]Disposition, error) {
	if len(decisions) == 0 {
		return nil, &InvalidDecisionError{Reason: "no decisions given"}
	}

	pending := make(map[string]PendingAsk, len(asks))
	for _, ask := range asks {
		pending[ask.CandidateName] = ask
	}

	var unknown []string
	for name := range decisions {
		if _, ok := pending[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &UnknownCandidateError{Names: unknown}
	}

	parsed := make(map[string]Disposition, len(asks))
	for _, ask := range asks {
		raw, ok := decisions[ask.CandidateName]
		if !ok {
			return nil, &InvalidDecisionError{Candidate: ask.CandidateName, Reason: "missing decision"}
		}
		d, err := ParseDecision(raw)
		if err != nil {
			return nil, &InvalidDecisionError{Candidate: ask.CandidateName, Reason: err.Error()}
		}
		if d == DispositionNewVersion && ask.BestMatchProjectID == "" {
			return nil, &InvalidDecisionError{Candidate: ask.CandidateName, Reason: "no matching project to add a version to"}
		}
		parsed[ask.CandidateName] = d
	}
	return parsed, nil
}

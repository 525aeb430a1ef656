package folio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"folio-go/internal/database/sqlc"
)

// IngestService coordinates intake, hashing, matching, resolution and the
// upload session lifecycle.
type IngestService struct {
	database Database
	blobs    BlobStore
	identity *IdentityStore
	hasher   *Hasher
	matcher  *Matcher
	resolver *Resolver
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	locks    sessionLocks
}

// NewIngestService creates an IngestService. blobs may be nil, in which case
// file contents are not retained.
func NewIngestService(database Database, blobs BlobStore, cfg MatchConfig, hashWorkers int, logger Logger, clock Clock, idgen IDGenerator) *IngestService {
	identity := NewIdentityStore(database, clock, idgen, cfg.SketchSize)
	matcher := NewMatcher(cfg, identity, logger)
	return &IngestService{
		database: database,
		blobs:    blobs,
		identity: identity,
		hasher:   NewHasher(hashWorkers, matcher.Config().SketchSize),
		matcher:  matcher,
		resolver: NewResolver(identity, logger),
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		locks:    sessionLocks{locks: make(map[string]*sessionLock)},
	}
}

// Identity returns the identity store used by the service.
func (s *IngestService) Identity() *IdentityStore {
	return s.identity
}

// Ingest creates an upload session for the archive, hashes and matches every
// candidate project, and commits the confident dispositions. Sessions with
// ask cases end in needs_dedup; otherwise the session stays started with
// needs_classification as its next step.
//
// If the archive cannot be read the session is failed and returned together
// with the *ArchiveError.
func (s *IngestService) Ingest(ctx context.Context, userID string, source ArchiveSource) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	sess, err := s.createSession(ctx, userID, source.Name())
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(sess.ID)
	defer unlock()

	archive, err := source.Load(ctx)
	if err != nil {
		var archiveErr *ArchiveError
		if !errors.As(err, &archiveErr) {
			archiveErr = &ArchiveError{Archive: source.Name(), Err: err}
		}
		failed, failErr := s.fail(ctx, sess.ID, archiveErr)
		if failErr != nil {
			return nil, errors.Join(archiveErr, failErr)
		}
		return failed, archiveErr
	}

	sess.State.Layout = archive.Layout
	if sess.State.Layout.AutoAssignments == nil {
		sess.State.Layout.AutoAssignments = map[string]string{}
	}

	index, err := s.matcher.Index(ctx, userID)
	if err != nil {
		return nil, s.abort(ctx, sess.ID, err)
	}

	changes := s.identity.NewChangeSet()
	candidates := append([]Candidate(nil), archive.Candidates...)
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	seen := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		if _, dup := seen[c.Name]; dup {
			s.recordCandidateError(sess, c.Name, fmt.Errorf("duplicate candidate name %q", c.Name))
			continue
		}
		seen[c.Name] = struct{}{}

		if err := s.ingestCandidate(ctx, sess, index, changes, c); err != nil {
			if ctx.Err() != nil {
				return nil, s.abort(ctx, sess.ID, ctx.Err())
			}
			s.recordCandidateError(sess, c.Name, err)
		}
	}

	status := StatusStarted
	if len(sess.State.PendingAsks) > 0 {
		status = StatusNeedsDedup
	}
	update, err := s.sessionUpdate(sess, status)
	if err != nil {
		return nil, s.abort(ctx, sess.ID, err)
	}
	changes.Session = update

	if err := s.identity.Apply(ctx, changes); err != nil {
		var dupErr *DuplicateVersionError
		if errors.As(err, &dupErr) {
			s.logger.Error("duplicate version guard tripped", "session_id", sess.ID, "project_id", dupErr.ProjectID)
		}
		return nil, s.abort(ctx, sess.ID, err)
	}
	s.committed(sess, update)

	s.logger.Info("upload ingested",
		"session_id", sess.ID,
		"status", sess.Status,
		"committed_versions", len(changes.Versions),
		"pending_asks", len(sess.State.PendingAsks),
		"candidate_errors", len(sess.State.CandidateErrors))
	return sess, nil
}

func (s *IngestService) ingestCandidate(ctx context.Context, sess *Session, index *MatchIndex, changes *ChangeSet, c Candidate) error {
	for _, f := range c.Files {
		if f.ReadErr != nil {
			s.logger.Warn("unreadable file hashed as empty", "session_id", sess.ID, "candidate", c.Name, "path", f.RelPath, "error", f.ReadErr)
		}
	}

	hashed, err := s.hasher.HashCandidate(ctx, c)
	if err != nil {
		return err
	}
	match, err := index.Match(ctx, hashed)
	if err != nil {
		return err
	}
	if match.Disposition != DispositionSkip {
		if err := s.storeBlobs(ctx, hashed); err != nil {
			return err
		}
	}

	rec, ask, err := s.resolver.Dispose(changes, sess.UserID, sess.ID, hashed, match)
	if err != nil {
		return err
	}
	if ask != nil {
		sess.State.PendingAsks = append(sess.State.PendingAsks, *ask)
		s.logger.Info("candidate needs decision", "session_id", sess.ID, "candidate", c.Name, "similarity", match.Similarity, "reason", match.Reason)
		return nil
	}
	sess.State.ResolvedDispositions[c.Name] = *rec
	s.logger.Info("candidate disposed",
		"session_id", sess.ID,
		"candidate", c.Name,
		"disposition", rec.Disposition,
		"project_id", rec.ProjectID,
		"similarity", rec.Similarity,
		"compared", match.Compared,
		"prefiltered", match.Prefiltered)
	return nil
}

func (s *IngestService) storeBlobs(ctx context.Context, c *HashedCandidate) error {
	if s.blobs == nil {
		return nil
	}
	stored := make(map[string]struct{}, len(c.Files))
	for _, f := range c.Files {
		if _, ok := stored[f.Hash]; ok {
			continue
		}
		stored[f.Hash] = struct{}{}
		data, _ := c.Content(f.Hash)
		if err := s.blobs.Put(ctx, f.Hash, bytes.NewReader(data), int64(len(data))); err != nil {
			return fmt.Errorf("storing content %s: %w", f.Hash, err)
		}
		s.logger.Debug("blob stored", "hash", f.Hash, "size", len(data))
	}
	return nil
}

func (s *IngestService) recordCandidateError(sess *Session, name string, err error) {
	if sess.State.CandidateErrors == nil {
		sess.State.CandidateErrors = map[string]string{}
	}
	sess.State.CandidateErrors[name] = err.Error()
	s.logger.Warn("candidate excluded", "session_id", sess.ID, "candidate", name, "error", err)
}

// ResolveDedup applies the user's decisions to every pending ask. Either all
// decisions are applied and the session moves to needs_classification, or
// nothing changes.
func (s *IngestService) ResolveDedup(ctx context.Context, userID, sessionID string, decisions map[string]string) (*Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.expect(StatusNeedsDedup); err != nil {
		return nil, err
	}
	parsed, err := ValidateDecisions(sess.State.PendingAsks, decisions)
	if err != nil {
		return nil, err
	}

	changes := s.identity.NewChangeSet()
	resolved := make(map[string]DispositionRecord, len(sess.State.PendingAsks))
	for _, ask := range sess.State.PendingAsks {
		rec, err := s.resolver.Decide(ctx, changes, userID, sessionID, ask, parsed[ask.CandidateName])
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", ask.CandidateName, err)
		}
		resolved[ask.CandidateName] = *rec
	}

	for name, rec := range resolved {
		sess.State.ResolvedDispositions[name] = rec
	}
	sess.State.PendingAsks = []PendingAsk{}
	if err := sess.transition(StatusNeedsClassification); err != nil {
		return nil, err
	}
	update, err := s.sessionUpdate(sess, sess.Status)
	if err != nil {
		return nil, err
	}
	changes.Session = update

	if err := s.identity.Apply(ctx, changes); err != nil {
		var dupErr *DuplicateVersionError
		if errors.As(err, &dupErr) {
			s.logger.Error("duplicate version guard tripped", "session_id", sessionID, "project_id", dupErr.ProjectID)
			return nil, s.abort(ctx, sessionID, err)
		}
		return nil, err
	}
	s.committed(sess, update)

	for name, rec := range resolved {
		s.logger.Info("candidate resolved", "session_id", sessionID, "candidate", name, "disposition", rec.Disposition, "project_id", rec.ProjectID)
	}
	return sess, nil
}

// Advance moves the session one step forward from the given status.
func (s *IngestService) Advance(ctx context.Context, userID, sessionID string, from SessionStatus) (*Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.expect(from); err != nil {
		return nil, err
	}
	if sess.Status == StatusNeedsDedup {
		return nil, &StateConflictError{SessionID: sessionID, Actual: sess.Status, Reason: "pending dedup decisions must be resolved first"}
	}
	next := sess.NextStep()
	if next == "" {
		return nil, &StateConflictError{SessionID: sessionID, Actual: sess.Status, Reason: "session is finished"}
	}
	if err := sess.transition(next); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("session advanced", "session_id", sessionID, "from", from, "to", next)
	return sess, nil
}

// FailSession moves a non-terminal session to failed with the given cause.
func (s *IngestService) FailSession(ctx context.Context, userID, sessionID, cause string) (*Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	if _, err := s.load(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cause) == "" {
		cause = "failed by caller"
	}
	return s.fail(ctx, sessionID, errors.New(cause))
}

// PutSelection stores a downstream wizard selection in the session state.
// Only the selections map is written, and only while the session is at
// expected.
func (s *IngestService) PutSelection(ctx context.Context, userID, sessionID string, expected SessionStatus, key string, value json.RawMessage) (*Session, error) {
	if key == "" {
		return nil, &InvalidDecisionError{Reason: "selection key is required"}
	}
	if !json.Valid(value) {
		return nil, &InvalidDecisionError{Candidate: key, Reason: "selection value is not valid JSON"}
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.expect(expected); err != nil {
		return nil, err
	}
	if !sess.Status.downstream() {
		return nil, &StateConflictError{SessionID: sessionID, Actual: sess.Status, Reason: "selections are only accepted after deduplication"}
	}
	if sess.State.Selections == nil {
		sess.State.Selections = map[string]json.RawMessage{}
	}
	sess.State.Selections[key] = append(json.RawMessage(nil), value...)
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession returns a session owned by the user.
func (s *IngestService) GetSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	return s.load(ctx, userID, sessionID)
}

// ListSessions returns the user's sessions, newest first.
func (s *IngestService) ListSessions(ctx context.Context, userID string) ([]*Session, error) {
	rows, err := s.database.ListSessionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	sessions := make([]*Session, 0, len(rows))
	for _, row := range rows {
		sess, err := sessionFromRow(row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

func (s *IngestService) createSession(ctx context.Context, userID, archiveName string) (*Session, error) {
	now := s.clock.Now()
	sess := &Session{
		ID:        s.idgen.New(),
		UserID:    userID,
		Status:    StatusStarted,
		State:     newSessionState(archiveName),
		Revision:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	state, err := sess.State.Encode()
	if err != nil {
		return nil, err
	}
	row := &sqlc.UploadSession{
		ID:        sess.ID,
		UserID:    userID,
		Status:    string(sess.Status),
		State:     state,
		Revision:  sess.Revision,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.database.CreateSession(ctx, row); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	s.logger.Info("session created", "session_id", sess.ID, "archive", archiveName)
	return sess, nil
}

func (s *IngestService) load(ctx context.Context, userID, sessionID string) (*Session, error) {
	row, err := s.database.FindSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("finding session: %w", err)
	}
	if row == nil || row.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return sessionFromRow(row)
}

func (s *IngestService) sessionUpdate(sess *Session, status SessionStatus) (*SessionUpdate, error) {
	state, err := sess.State.Encode()
	if err != nil {
		return nil, err
	}
	return &SessionUpdate{
		ID:               sess.ID,
		ExpectedRevision: sess.Revision,
		Status:           status,
		State:            state,
		UpdatedAt:        s.clock.Now(),
	}, nil
}

func (s *IngestService) committed(sess *Session, update *SessionUpdate) {
	sess.Status = update.Status
	sess.Revision = update.ExpectedRevision + 1
	sess.UpdatedAt = update.UpdatedAt
}

func (s *IngestService) save(ctx context.Context, sess *Session) error {
	update, err := s.sessionUpdate(sess, sess.Status)
	if err != nil {
		return err
	}
	if err := s.database.UpdateSession(ctx, update); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	s.committed(sess, update)
	return nil
}

// fail records cause on the stored session and moves it to failed. The
// session lock must be held.
func (s *IngestService) fail(ctx context.Context, sessionID string, cause error) (*Session, error) {
	row, err := s.database.FindSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("finding session: %w", err)
	}
	if row == nil {
		return nil, ErrSessionNotFound
	}
	sess, err := sessionFromRow(row)
	if err != nil {
		return nil, err
	}
	from := sess.Status
	if err := sess.transition(StatusFailed); err != nil {
		return nil, err
	}
	sess.State.Failure = &SessionFailure{
		From:  from,
		Cause: cause.Error(),
		Code:  ErrorCode(cause),
		At:    s.clock.Now(),
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Error("session failed", "session_id", sessionID, "from", from, "cause", cause)
	return sess, nil
}

// abort fails the session after an internal error and returns the error.
// The original context may be cancelled, so the failure is written without it.
func (s *IngestService) abort(ctx context.Context, sessionID string, cause error) error {
	if _, err := s.fail(context.WithoutCancel(ctx), sessionID, cause); err != nil {
		return errors.Join(cause, fmt.Errorf("failing session %s: %w", sessionID, err))
	}
	return cause
}

func sessionFromRow(row *sqlc.UploadSession) (*Session, error) {
	status, err := ParseSessionStatus(row.Status)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", row.ID, err)
	}
	state, err := DecodeSessionState(row.State)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", row.ID, err)
	}
	return &Session{
		ID:        row.ID,
		UserID:    row.UserID,
		Status:    status,
		State:     state,
		Revision:  row.Revision,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// sessionLocks serializes mutations per session within the process. Stored
// revisions guard against writers in other processes.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &sessionLock{}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

package folio_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"folio-go/internal/blobstore"
	"folio-go/internal/database"
	"folio-go/internal/folio"
	"folio-go/internal/testutil"
)

const alice = "alice"

type fixture struct {
	svc   *folio.IngestService
	db    *database.SQLiteDatabase
	blobs *blobstore.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	blobs := testutil.NewTestBlobStore()
	svc := folio.NewIngestService(db, blobs, folio.DefaultMatchConfig(), 4,
		folio.NewNopLogger(), testutil.NewTickingClock(epoch, time.Second), testutil.NewStubIDGenerator())
	return &fixture{svc: svc, db: db, blobs: blobs}
}

func (f *fixture) ingest(t *testing.T, user string, candidates ...folio.Candidate) *folio.Session {
	t.Helper()
	sess, err := f.svc.Ingest(context.Background(), user, testutil.NewArchive("upload.zip", candidates...))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	return sess
}

func (f *fixture) versions(t *testing.T) int64 {
	t.Helper()
	n, err := f.db.CountVersions(context.Background())
	if err != nil {
		t.Fatalf("CountVersions() error = %v", err)
	}
	return n
}

func (f *fixture) projects(t *testing.T, user string) int {
	t.Helper()
	projects, err := f.svc.ListProjects(context.Background(), user)
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	return len(projects)
}

// stored returns the persisted state document and revision of a session.
func (f *fixture) stored(t *testing.T, id string) (string, int64) {
	t.Helper()
	row, err := f.db.FindSession(context.Background(), id)
	if err != nil || row == nil {
		t.Fatalf("FindSession() = %v, %v", row, err)
	}
	return row.State, row.Revision
}

func (f *fixture) advanceTo(t *testing.T, sess *folio.Session, target folio.SessionStatus) *folio.Session {
	t.Helper()
	for sess.Status != target {
		next, err := f.svc.Advance(context.Background(), sess.UserID, sess.ID, sess.Status)
		if err != nil {
			t.Fatalf("Advance(%s) error = %v", sess.Status, err)
		}
		sess = next
	}
	return sess
}

func wantConflict(t *testing.T, err error) {
	t.Helper()
	var conflict *folio.StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want *StateConflictError", err)
	}
}

func TestIngest_NewProjectsThenResubmission(t *testing.T) {
	f := newFixture(t)
	a := testutil.NewCandidate("A", testutil.Files{"f1": "one", "f2": "two", "f3": "three"})
	b := testutil.NewCandidate("B", testutil.Files{"f4": "four"})

	first := f.ingest(t, alice, a, b)
	if first.Status != folio.StatusStarted {
		t.Errorf("Status = %s, want started", first.Status)
	}
	if len(first.State.PendingAsks) != 0 {
		t.Errorf("PendingAsks = %v, want none", first.State.PendingAsks)
	}
	if first.NextStep() != folio.StatusNeedsClassification {
		t.Errorf("NextStep() = %s, want needs_classification", first.NextStep())
	}
	for _, name := range []string{"A", "B"} {
		if got := first.State.ResolvedDispositions[name].Disposition; got != folio.DispositionNewProject {
			t.Errorf("%s disposition = %s, want new_project", name, got)
		}
	}
	if got := f.versions(t); got != 2 {
		t.Errorf("versions = %d, want 2", got)
	}
	if first.Revision != 2 {
		t.Errorf("Revision = %d, want 2", first.Revision)
	}

	second := f.ingest(t, alice, a, b)
	for _, name := range []string{"A", "B"} {
		rec := second.State.ResolvedDispositions[name]
		if rec.Disposition != folio.DispositionSkip {
			t.Errorf("%s disposition = %s, want skip", name, rec.Disposition)
		}
		if rec.ProjectID != first.State.ResolvedDispositions[name].ProjectID {
			t.Errorf("%s skipped against %s, want %s", name, rec.ProjectID, first.State.ResolvedDispositions[name].ProjectID)
		}
	}
	if got := f.versions(t); got != 2 {
		t.Errorf("versions after resubmission = %d, want 2", got)
	}
	if got := f.projects(t, alice); got != 2 {
		t.Errorf("projects after resubmission = %d, want 2", got)
	}
}

func TestIngest_NewVersion(t *testing.T) {
	f := newFixture(t)
	first := f.ingest(t, alice, testutil.NewCandidate("site", overlapping("v", 10, 10)))
	projectID := first.State.ResolvedDispositions["site"].ProjectID

	second := f.ingest(t, alice, testutil.NewCandidate("site-v2", overlapping("c", 9, 10)))
	rec := second.State.ResolvedDispositions["site-v2"]
	if rec.Disposition != folio.DispositionNewVersion {
		t.Fatalf("disposition = %s, want new_version", rec.Disposition)
	}
	if rec.ProjectID != projectID || rec.MatchedProjectID != projectID {
		t.Errorf("project = %s (matched %s), want %s", rec.ProjectID, rec.MatchedProjectID, projectID)
	}

	versions, err := f.svc.ListProjectVersions(context.Background(), alice, projectID)
	if err != nil {
		t.Fatalf("ListProjectVersions() error = %v", err)
	}
	if len(versions) != 2 {
		t.Errorf("versions = %d, want 2", len(versions))
	}
	if got := f.projects(t, alice); got != 1 {
		t.Errorf("projects = %d, want 1", got)
	}
}

func TestIngest_AskThenResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.ingest(t, alice, testutil.NewCandidate("P", overlapping("v", 10, 10)))
	projectID := first.State.ResolvedDispositions["P"].ProjectID

	sess := f.ingest(t, alice, testutil.NewCandidate("Q", overlapping("q", 5, 10)))
	if sess.Status != folio.StatusNeedsDedup {
		t.Fatalf("Status = %s, want needs_dedup", sess.Status)
	}
	if len(sess.State.PendingAsks) != 1 {
		t.Fatalf("PendingAsks = %d, want 1", len(sess.State.PendingAsks))
	}
	ask := sess.State.PendingAsks[0]
	if ask.CandidateName != "Q" || ask.BestMatchProjectID != projectID {
		t.Errorf("ask = %+v, want Q matched to %s", ask, projectID)
	}
	if _, ok := sess.State.ResolvedDispositions["Q"]; ok {
		t.Error("ask candidate also has a resolved disposition")
	}
	if got := f.versions(t); got != 1 {
		t.Errorf("versions = %d, want 1 (ask commits nothing)", got)
	}

	beforeState, beforeRev := f.stored(t, sess.ID)

	_, err := f.svc.ResolveDedup(ctx, alice, sess.ID, map[string]string{"Q": "skip", "Z": "skip"})
	var unknown *folio.UnknownCandidateError
	if !errors.As(err, &unknown) {
		t.Fatalf("ResolveDedup() error = %v, want *UnknownCandidateError", err)
	}
	if state, rev := f.stored(t, sess.ID); state != beforeState || rev != beforeRev {
		t.Error("rejected resolution modified the session")
	}

	resolved, err := f.svc.ResolveDedup(ctx, alice, sess.ID, map[string]string{"Q": "new_version"})
	if err != nil {
		t.Fatalf("ResolveDedup() error = %v", err)
	}
	if resolved.Status != folio.StatusNeedsClassification {
		t.Errorf("Status = %s, want needs_classification", resolved.Status)
	}
	if len(resolved.State.PendingAsks) != 0 {
		t.Errorf("PendingAsks = %d, want 0", len(resolved.State.PendingAsks))
	}
	rec := resolved.State.ResolvedDispositions["Q"]
	if rec.Disposition != folio.DispositionNewVersion || rec.ProjectID != projectID || !rec.DecidedByUser {
		t.Errorf("resolved = %+v", rec)
	}
	if got := f.versions(t); got != 2 {
		t.Errorf("versions = %d, want 2", got)
	}

	_, err = f.svc.ResolveDedup(ctx, alice, sess.ID, map[string]string{"Q": "skip"})
	wantConflict(t, err)
}

func TestResolveDedup_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ingest(t, alice, testutil.NewCandidate("P", overlapping("v", 10, 10)))
	sess := f.ingest(t, alice,
		testutil.NewCandidate("Q1", overlapping("q1", 5, 10)),
		testutil.NewCandidate("Q2", overlapping("q2", 5, 10)))
	if len(sess.State.PendingAsks) != 2 {
		t.Fatalf("PendingAsks = %d, want 2", len(sess.State.PendingAsks))
	}
	beforeState, beforeRev := f.stored(t, sess.ID)

	_, err := f.svc.ResolveDedup(ctx, alice, sess.ID, map[string]string{"Q1": "new_project", "Q2": "maybe"})
	var invalid *folio.InvalidDecisionError
	if !errors.As(err, &invalid) {
		t.Fatalf("ResolveDedup() error = %v, want *InvalidDecisionError", err)
	}
	if folio.StatusCode(err) != 422 {
		t.Errorf("StatusCode() = %d, want 422", folio.StatusCode(err))
	}
	if got := f.projects(t, alice); got != 1 {
		t.Errorf("projects = %d, want 1", got)
	}
	if state, rev := f.stored(t, sess.ID); state != beforeState || rev != beforeRev {
		t.Error("rejected resolution modified the session")
	}

	resolved, err := f.svc.ResolveDedup(ctx, alice, sess.ID, map[string]string{"Q1": "new_project", "Q2": "skip"})
	if err != nil {
		t.Fatalf("ResolveDedup() error = %v", err)
	}
	if got := resolved.State.ResolvedDispositions["Q2"].Disposition; got != folio.DispositionSkip {
		t.Errorf("Q2 = %s, want skip", got)
	}
	if got := f.projects(t, alice); got != 2 {
		t.Errorf("projects = %d, want 2", got)
	}
	if got := f.versions(t); got != 2 {
		t.Errorf("versions = %d, want 2", got)
	}
}

func TestResolveDedup_NewVersionOfIdenticalCommitIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.ingest(t, alice, testutil.NewCandidate("P", overlapping("v", 10, 10)))
	projectID := first.State.ResolvedDispositions["P"].ProjectID

	// Two uploads park the same ask; resolving both into new_version commits
	// the files only once.
	s1 := f.ingest(t, alice, testutil.NewCandidate("Q", overlapping("q", 5, 10)))
	s2 := f.ingest(t, alice, testutil.NewCandidate("Q", overlapping("q", 5, 10)))

	if _, err := f.svc.ResolveDedup(ctx, alice, s1.ID, map[string]string{"Q": "new_version"}); err != nil {
		t.Fatalf("ResolveDedup() error = %v", err)
	}
	got, err := f.svc.ResolveDedup(ctx, alice, s2.ID, map[string]string{"Q": "new_version"})
	if err != nil {
		t.Fatalf("ResolveDedup() error = %v", err)
	}
	rec := got.State.ResolvedDispositions["Q"]
	if rec.Disposition != folio.DispositionSkip || rec.ProjectID != projectID {
		t.Errorf("second resolution = %+v, want skip in %s", rec, projectID)
	}
	if n := f.versions(t); n != 2 {
		t.Errorf("versions = %d, want 2", n)
	}
}

func TestSession_ConflictsLeaveStateUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.ingest(t, alice, testutil.NewCandidate("A", testutil.Files{"a": "1"}))
	beforeState, beforeRev := f.stored(t, sess.ID)

	_, err := f.svc.ResolveDedup(ctx, alice, sess.ID, map[string]string{"A": "skip"})
	wantConflict(t, err)
	_, err = f.svc.Advance(ctx, alice, sess.ID, folio.StatusNeedsDedup)
	wantConflict(t, err)
	_, err = f.svc.PutSelection(ctx, alice, sess.ID, folio.StatusNeedsClassification, "k", json.RawMessage(`1`))
	wantConflict(t, err)
	_, err = f.svc.PutSelection(ctx, alice, sess.ID, folio.StatusStarted, "k", json.RawMessage(`1`))
	wantConflict(t, err)

	if state, rev := f.stored(t, sess.ID); state != beforeState || rev != beforeRev {
		t.Error("conflicting calls modified the session")
	}
	if folio.StatusCode(err) != 409 {
		t.Errorf("StatusCode() = %d, want 409", folio.StatusCode(err))
	}
}

func TestAdvance_WalksTheWizard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.ingest(t, alice, testutil.NewCandidate("A", testutil.Files{"a": "1"}))

	want := []folio.SessionStatus{
		folio.StatusNeedsClassification,
		folio.StatusNeedsProjectTypes,
		folio.StatusNeedsFileRoles,
		folio.StatusNeedsSummaries,
		folio.StatusAnalyzing,
		folio.StatusDone,
	}
	for _, next := range want {
		got, err := f.svc.Advance(ctx, alice, sess.ID, sess.Status)
		if err != nil {
			t.Fatalf("Advance(%s) error = %v", sess.Status, err)
		}
		if got.Status != next {
			t.Fatalf("Advance(%s) = %s, want %s", sess.Status, got.Status, next)
		}
		if got.Revision != sess.Revision+1 {
			t.Errorf("Revision = %d, want %d", got.Revision, sess.Revision+1)
		}
		sess = got
	}

	if sess.NextStep() != "" {
		t.Errorf("NextStep() = %s, want none", sess.NextStep())
	}
	_, err := f.svc.Advance(ctx, alice, sess.ID, folio.StatusDone)
	wantConflict(t, err)
	_, err = f.svc.FailSession(ctx, alice, sess.ID, "too late")
	wantConflict(t, err)
}

func TestAdvance_PendingAsksBlock(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, alice, testutil.NewCandidate("P", overlapping("v", 10, 10)))
	sess := f.ingest(t, alice, testutil.NewCandidate("Q", overlapping("q", 5, 10)))

	_, err := f.svc.Advance(context.Background(), alice, sess.ID, folio.StatusNeedsDedup)
	wantConflict(t, err)
}

func TestAdvance_ConcurrentCallersSerialize(t *testing.T) {
	f := newFixture(t)
	sess := f.ingest(t, alice, testutil.NewCandidate("A", testutil.Files{"a": "1"}))
	sess = f.advanceTo(t, sess, folio.StatusNeedsClassification)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Advance(context.Background(), alice, sess.ID, folio.StatusNeedsClassification)
			mu.Lock()
			defer mu.Unlock()
			var conflict *folio.StateConflictError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &conflict):
				conflicts++
			default:
				t.Errorf("Advance() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || conflicts != callers-1 {
		t.Errorf("succeeded/conflicts = %d/%d, want 1/%d", succeeded, conflicts, callers-1)
	}
	got, err := f.svc.GetSession(context.Background(), alice, sess.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Status != folio.StatusNeedsProjectTypes || got.Revision != sess.Revision+1 {
		t.Errorf("session = %s rev %d, want needs_project_types rev %d", got.Status, got.Revision, sess.Revision+1)
	}
}

func TestFailSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.ingest(t, alice, testutil.NewCandidate("A", testutil.Files{"a": "1"}))
	sess = f.advanceTo(t, sess, folio.StatusNeedsFileRoles)

	failed, err := f.svc.FailSession(ctx, alice, sess.ID, "analysis backend unavailable")
	if err != nil {
		t.Fatalf("FailSession() error = %v", err)
	}
	if failed.Status != folio.StatusFailed {
		t.Errorf("Status = %s, want failed", failed.Status)
	}
	failure := failed.State.Failure
	if failure == nil || failure.From != folio.StatusNeedsFileRoles || failure.Cause != "analysis backend unavailable" {
		t.Errorf("Failure = %+v", failure)
	}
	if _, ok := failed.State.ResolvedDispositions["A"]; !ok {
		t.Error("failing the session dropped its dispositions")
	}

	_, err = f.svc.FailSession(ctx, alice, sess.ID, "again")
	wantConflict(t, err)
}

type brokenArchive struct{}

func (brokenArchive) Name() string { return "broken.zip" }

func (brokenArchive) Load(context.Context) (*folio.Archive, error) {
	return nil, errors.New("zip: not a valid zip file")
}

func TestIngest_ArchiveErrorFailsSession(t *testing.T) {
	f := newFixture(t)

	sess, err := f.svc.Ingest(context.Background(), alice, brokenArchive{})
	var archiveErr *folio.ArchiveError
	if !errors.As(err, &archiveErr) {
		t.Fatalf("Ingest() error = %v, want *ArchiveError", err)
	}
	if sess == nil {
		t.Fatal("Ingest() returned no session")
	}
	if sess.Status != folio.StatusFailed {
		t.Errorf("Status = %s, want failed", sess.Status)
	}
	if sess.State.Failure == nil || sess.State.Failure.Code != folio.CodeInvalid || sess.State.Failure.From != folio.StatusStarted {
		t.Errorf("Failure = %+v", sess.State.Failure)
	}

	stored, err := f.svc.GetSession(context.Background(), alice, sess.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if stored.Status != folio.StatusFailed {
		t.Errorf("stored status = %s, want failed", stored.Status)
	}
	if f.versions(t) != 0 {
		t.Error("failed archive committed versions")
	}
}

func TestIngest_CandidateErrorsAreIsolated(t *testing.T) {
	f := newFixture(t)
	good := testutil.NewCandidate("good", testutil.Files{"a": "1", "b": "2"})
	empty := folio.Candidate{Name: "empty"}
	escaping := folio.Candidate{Name: "escaping", Files: []folio.FileEntry{{RelPath: "../x", Data: []byte("x")}}}
	twin := testutil.NewCandidate("good", testutil.Files{"other": "3"})

	sess := f.ingest(t, alice, good, empty, escaping, twin)
	if sess.Status != folio.StatusStarted {
		t.Errorf("Status = %s, want started", sess.Status)
	}
	if got := sess.State.ResolvedDispositions["good"].Disposition; got != folio.DispositionNewProject {
		t.Errorf("good = %s, want new_project", got)
	}
	if got := sess.State.ResolvedDispositions["good"].FileCount; got != 2 {
		t.Errorf("good file count = %d, want 2 (first candidate with the name wins)", got)
	}
	for _, name := range []string{"empty", "escaping", "good"} {
		if _, ok := sess.State.CandidateErrors[name]; !ok {
			t.Errorf("CandidateErrors missing %q: %v", name, sess.State.CandidateErrors)
		}
	}
	if f.versions(t) != 1 {
		t.Errorf("versions = %d, want 1", f.versions(t))
	}
}

func TestIngest_StoresBlobsForCommittedCandidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	files := testutil.Files{"main.go": "package main", "empty.txt": "", "dup.go": "package main"}

	f.ingest(t, alice, testutil.NewCandidate("A", files))
	for _, content := range []string{"package main", ""} {
		ok, err := f.blobs.Has(ctx, testutil.SHA256HexString(content))
		if err != nil || !ok {
			t.Errorf("blob for %q stored = %v, %v", content, ok, err)
		}
	}
	if f.blobs.Len() != 2 {
		t.Errorf("blobs = %d, want 2", f.blobs.Len())
	}

	f.ingest(t, alice, testutil.NewCandidate("A", files))
	if f.blobs.Len() != 2 {
		t.Errorf("blobs after resubmission = %d, want 2", f.blobs.Len())
	}
}

func TestIngest_CollapsesIdenticalCandidates(t *testing.T) {
	f := newFixture(t)
	first := f.ingest(t, alice, testutil.NewCandidate("P", overlapping("v", 10, 10)))
	projectID := first.State.ResolvedDispositions["P"].ProjectID

	sess := f.ingest(t, alice,
		testutil.NewCandidate("X", overlapping("c", 9, 10)),
		testutil.NewCandidate("Y", overlapping("c", 9, 10)))

	x := sess.State.ResolvedDispositions["X"]
	y := sess.State.ResolvedDispositions["Y"]
	if x.Disposition != folio.DispositionNewVersion {
		t.Errorf("X = %s, want new_version", x.Disposition)
	}
	if y.Disposition != folio.DispositionSkip || y.VersionID != x.VersionID || y.ProjectID != projectID {
		t.Errorf("Y = %+v, want skip onto %s", y, x.VersionID)
	}
	if n := f.versions(t); n != 2 {
		t.Errorf("versions = %d, want 2", n)
	}
}

func TestIngest_UsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	candidate := testutil.NewCandidate("A", testutil.Files{"a": "1", "b": "2"})

	mine := f.ingest(t, alice, candidate)
	theirs := f.ingest(t, "bob", candidate)
	if got := theirs.State.ResolvedDispositions["A"].Disposition; got != folio.DispositionNewProject {
		t.Errorf("bob's upload = %s, want new_project", got)
	}

	if _, err := f.svc.GetSession(ctx, "bob", mine.ID); !errors.Is(err, folio.ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
	if _, err := f.svc.Advance(ctx, "bob", mine.ID, folio.StatusStarted); !errors.Is(err, folio.ErrSessionNotFound) {
		t.Errorf("Advance() error = %v, want ErrSessionNotFound", err)
	}
	projectID := mine.State.ResolvedDispositions["A"].ProjectID
	if err := f.svc.RenameProject(ctx, "bob", projectID, "mine now"); !errors.Is(err, folio.ErrProjectNotFound) {
		t.Errorf("RenameProject() error = %v, want ErrProjectNotFound", err)
	}

	sessions, err := f.svc.ListSessions(ctx, alice)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != mine.ID {
		t.Errorf("ListSessions() = %d sessions, want only alice's", len(sessions))
	}
}

func TestIngest_RequiresUser(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Ingest(context.Background(), "", testutil.NewArchive("a.zip")); err == nil {
		t.Error("Ingest() expected error for empty user")
	}
}

func TestPutSelection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.ingest(t, alice, testutil.NewCandidate("A", testutil.Files{"a": "1"}))
	sess = f.advanceTo(t, sess, folio.StatusNeedsClassification)

	got, err := f.svc.PutSelection(ctx, alice, sess.ID, folio.StatusNeedsClassification, "classification", json.RawMessage(`{"A":"individual"}`))
	if err != nil {
		t.Fatalf("PutSelection() error = %v", err)
	}
	if string(got.State.Selections["classification"]) != `{"A":"individual"}` {
		t.Errorf("Selections = %s", got.State.Selections["classification"])
	}
	if got.Status != folio.StatusNeedsClassification || got.Revision != sess.Revision+1 {
		t.Errorf("session = %s rev %d", got.Status, got.Revision)
	}
	if got.State.ResolvedDispositions["A"].Disposition != folio.DispositionNewProject {
		t.Error("PutSelection changed dispositions")
	}

	reloaded, err := f.svc.GetSession(ctx, alice, sess.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if _, ok := reloaded.State.Selections["classification"]; !ok {
		t.Error("selection not persisted")
	}

	var invalid *folio.InvalidDecisionError
	if _, err := f.svc.PutSelection(ctx, alice, sess.ID, folio.StatusNeedsClassification, "k", json.RawMessage(`{`)); !errors.As(err, &invalid) {
		t.Errorf("PutSelection() error = %v, want *InvalidDecisionError", err)
	}
	if _, err := f.svc.PutSelection(ctx, alice, sess.ID, folio.StatusNeedsClassification, "", json.RawMessage(`1`)); !errors.As(err, &invalid) {
		t.Errorf("PutSelection() error = %v, want *InvalidDecisionError", err)
	}
}

func TestProjectMaintenance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.ingest(t, alice, testutil.NewCandidate("A", testutil.Files{"src/main.go": "package main", "README.md": "# A"}))
	rec := sess.State.ResolvedDispositions["A"]

	if err := f.svc.RenameProject(ctx, alice, rec.ProjectID, "  Portfolio site "); err != nil {
		t.Fatalf("RenameProject() error = %v", err)
	}
	if err := f.svc.SetProjectAttributes(ctx, alice, rec.ProjectID, folio.ClassificationIndividual, folio.ProjectTypeCode); err != nil {
		t.Fatalf("SetProjectAttributes() error = %v", err)
	}
	project, err := f.db.FindProject(ctx, rec.ProjectID)
	if err != nil {
		t.Fatalf("FindProject() error = %v", err)
	}
	if project.DisplayName != "Portfolio site" || project.Classification.String != "individual" || project.ProjectType.String != "code" {
		t.Errorf("project = %+v", project)
	}

	var invalid *folio.InvalidDecisionError
	if err := f.svc.SetProjectAttributes(ctx, alice, rec.ProjectID, "solo", ""); !errors.As(err, &invalid) {
		t.Errorf("SetProjectAttributes() error = %v, want *InvalidDecisionError", err)
	}
	if err := f.svc.RenameProject(ctx, alice, rec.ProjectID, " "); !errors.As(err, &invalid) {
		t.Errorf("RenameProject() error = %v, want *InvalidDecisionError", err)
	}

	files, err := f.svc.ListVersionFiles(ctx, alice, rec.VersionID)
	if err != nil {
		t.Fatalf("ListVersionFiles() error = %v", err)
	}
	if len(files) != 2 || files[0].Relpath != "README.md" || files[1].Relpath != "src/main.go" {
		t.Errorf("files = %+v", files)
	}
	if _, err := f.svc.ListVersionFiles(ctx, "bob", rec.VersionID); !errors.Is(err, folio.ErrProjectNotFound) {
		t.Errorf("ListVersionFiles() error = %v, want ErrProjectNotFound", err)
	}

	// A renamed project still matches by content.
	again := f.ingest(t, alice, testutil.NewCandidate("renamed-dir", testutil.Files{"src/main.go": "package main", "README.md": "# A"}))
	if got := again.State.ResolvedDispositions["renamed-dir"]; got.Disposition != folio.DispositionSkip || got.ProjectID != rec.ProjectID {
		t.Errorf("resubmission = %+v, want skip in %s", got, rec.ProjectID)
	}
}

func TestGetHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, err := f.db.CreateOperation(ctx, "ingest", `{"path":"upload.zip"}`, epoch)
	if err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}
	if err := f.db.FinishOperation(ctx, id, "success", epoch.Add(time.Second)); err != nil {
		t.Fatalf("FinishOperation() error = %v", err)
	}

	ops, err := f.svc.GetHistory(ctx, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(ops) != 1 || ops[0].Operation != "ingest" || ops[0].Status != "success" {
		t.Errorf("GetHistory() = %+v", ops)
	}
}

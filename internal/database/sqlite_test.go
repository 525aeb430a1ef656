package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"folio-go/internal/database/sqlc"
	"folio-go/internal/folio"
)

// newTestDB creates a new in-memory database with schema applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	if _, err := db.db.Exec(Schema); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newProject(userID, name string) *sqlc.Project {
	return &sqlc.Project{
		ID:          uuid.New().String(),
		UserID:      userID,
		DisplayName: name,
		CreatedAt:   testTime,
		UpdatedAt:   testTime,
	}
}

func newVersion(projectID, strict string, files ...folio.FileHash) *folio.VersionCommit {
	return &folio.VersionCommit{
		Version: &sqlc.ProjectVersion{
			ID:                uuid.New().String(),
			ProjectID:         projectID,
			StrictFingerprint: strict,
			LooseFingerprint:  "32:",
			FileCount:         int64(len(files)),
			CreatedAt:         testTime,
		},
		Files: files,
	}
}

func newSession(t *testing.T, db *SQLiteDatabase, userID string) *sqlc.UploadSession {
	t.Helper()
	s := &sqlc.UploadSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    string(folio.StatusStarted),
		State:     "{}",
		Revision:  1,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
	if err := db.CreateSession(context.Background(), s); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return s
}

func TestOpenConnection_ForeignKeysEnabled(t *testing.T) {
	db, err := OpenConnection(filepath.Join(t.TempDir(), "fk.db"))
	if err != nil {
		t.Fatalf("OpenConnection() error = %v", err)
	}
	defer db.Close()

	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		t.Fatalf("PRAGMA foreign_keys error = %v", err)
	}
	if enabled != 1 {
		t.Errorf("foreign_keys = %d, want 1", enabled)
	}
}

func TestSQLiteDatabase_FindProject(t *testing.T) {
	ctx := context.Background()

	t.Run("returns nil when project not found", func(t *testing.T) {
		db := newTestDB(t)

		p, err := db.FindProject(ctx, "missing")
		if err != nil {
			t.Fatalf("FindProject() error = %v", err)
		}
		if p != nil {
			t.Errorf("FindProject() = %v, want nil", p)
		}
	})

	t.Run("finds project created by change set", func(t *testing.T) {
		db := newTestDB(t)
		p := newProject("u1", "thesis")

		if err := db.ApplyChangeSet(ctx, &folio.ChangeSet{Projects: []*sqlc.Project{p}}); err != nil {
			t.Fatalf("ApplyChangeSet() error = %v", err)
		}

		found, err := db.FindProject(ctx, p.ID)
		if err != nil {
			t.Fatalf("FindProject() error = %v", err)
		}
		if found == nil || found.DisplayName != "thesis" {
			t.Fatalf("FindProject() = %v, want thesis", found)
		}
	})
}

func TestSQLiteDatabase_ApplyChangeSet(t *testing.T) {
	ctx := context.Background()
	file := func(path, hash string) folio.FileHash {
		return folio.FileHash{RelPath: path, Hash: hash, Size: 3}
	}

	t.Run("commits project version and files", func(t *testing.T) {
		db := newTestDB(t)
		p := newProject("u1", "thesis")
		v := newVersion(p.ID, "fp-1", file("a.tex", "h1"), file("b.tex", "h2"), file("c.tex", "h2"))

		err := db.ApplyChangeSet(ctx, &folio.ChangeSet{
			Projects: []*sqlc.Project{p},
			Versions: []*folio.VersionCommit{v},
		})
		if err != nil {
			t.Fatalf("ApplyChangeSet() error = %v", err)
		}

		files, err := db.ListVersionFiles(ctx, v.Version.ID)
		if err != nil {
			t.Fatalf("ListVersionFiles() error = %v", err)
		}
		if len(files) != 3 {
			t.Fatalf("len(files) = %d, want 3", len(files))
		}
		if files[0].Relpath != "a.tex" {
			t.Errorf("files[0].Relpath = %q, want a.tex", files[0].Relpath)
		}

		hashes, err := db.ListVersionContentHashes(ctx, v.Version.ID)
		if err != nil {
			t.Fatalf("ListVersionContentHashes() error = %v", err)
		}
		if len(hashes) != 2 {
			t.Errorf("len(hashes) = %d, want 2 distinct", len(hashes))
		}

		rows, err := db.ListVersionsForUser(ctx, "u1")
		if err != nil {
			t.Fatalf("ListVersionsForUser() error = %v", err)
		}
		if len(rows) != 1 || rows[0].DisplayName != "thesis" {
			t.Errorf("ListVersionsForUser() = %v, want one thesis version", rows)
		}
	})

	t.Run("duplicate fingerprint is a typed error and rolls back", func(t *testing.T) {
		db := newTestDB(t)
		p := newProject("u1", "thesis")
		if err := db.ApplyChangeSet(ctx, &folio.ChangeSet{
			Projects: []*sqlc.Project{p},
			Versions: []*folio.VersionCommit{newVersion(p.ID, "fp-1", file("a.tex", "h1"))},
		}); err != nil {
			t.Fatalf("ApplyChangeSet() error = %v", err)
		}

		other := newProject("u1", "notes")
		err := db.ApplyChangeSet(ctx, &folio.ChangeSet{
			Projects: []*sqlc.Project{other},
			Versions: []*folio.VersionCommit{newVersion(p.ID, "fp-1", file("a.tex", "h1"))},
		})
		var dupErr *folio.DuplicateVersionError
		if !errors.As(err, &dupErr) {
			t.Fatalf("ApplyChangeSet() error = %v, want DuplicateVersionError", err)
		}
		if dupErr.ProjectID != p.ID {
			t.Errorf("DuplicateVersionError.ProjectID = %q, want %q", dupErr.ProjectID, p.ID)
		}

		found, err := db.FindProject(ctx, other.ID)
		if err != nil {
			t.Fatalf("FindProject() error = %v", err)
		}
		if found != nil {
			t.Error("project from failed change set was committed")
		}
	})

	t.Run("same fingerprint under another project is allowed", func(t *testing.T) {
		db := newTestDB(t)
		p1 := newProject("u1", "one")
		p2 := newProject("u1", "two")
		err := db.ApplyChangeSet(ctx, &folio.ChangeSet{
			Projects: []*sqlc.Project{p1, p2},
			Versions: []*folio.VersionCommit{
				newVersion(p1.ID, "fp-1", file("a.tex", "h1")),
				newVersion(p2.ID, "fp-1", file("a.tex", "h1")),
			},
		})
		if err != nil {
			t.Fatalf("ApplyChangeSet() error = %v", err)
		}
	})

	t.Run("stale session revision rolls back identities", func(t *testing.T) {
		db := newTestDB(t)
		s := newSession(t, db, "u1")
		p := newProject("u1", "thesis")

		err := db.ApplyChangeSet(ctx, &folio.ChangeSet{
			Projects: []*sqlc.Project{p},
			Session: &folio.SessionUpdate{
				ID:               s.ID,
				ExpectedRevision: 7,
				Status:           folio.StatusNeedsDedup,
				State:            "{}",
				UpdatedAt:        testTime,
			},
		})
		var conflict *folio.StateConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("ApplyChangeSet() error = %v, want StateConflictError", err)
		}

		found, _ := db.FindProject(ctx, p.ID)
		if found != nil {
			t.Error("project committed despite session conflict")
		}
	})
}

func TestSQLiteDatabase_UpdateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("increments revision", func(t *testing.T) {
		db := newTestDB(t)
		s := newSession(t, db, "u1")

		err := db.UpdateSession(ctx, &folio.SessionUpdate{
			ID:               s.ID,
			ExpectedRevision: 1,
			Status:           folio.StatusNeedsClassification,
			State:            `{"root_archive_name":"x.zip"}`,
			UpdatedAt:        testTime.Add(time.Minute),
		})
		if err != nil {
			t.Fatalf("UpdateSession() error = %v", err)
		}

		got, err := db.FindSession(ctx, s.ID)
		if err != nil {
			t.Fatalf("FindSession() error = %v", err)
		}
		if got.Revision != 2 {
			t.Errorf("Revision = %d, want 2", got.Revision)
		}
		if got.Status != string(folio.StatusNeedsClassification) {
			t.Errorf("Status = %q, want needs_classification", got.Status)
		}
	})

	t.Run("stale revision conflicts", func(t *testing.T) {
		db := newTestDB(t)
		s := newSession(t, db, "u1")

		err := db.UpdateSession(ctx, &folio.SessionUpdate{ID: s.ID, ExpectedRevision: 2, Status: folio.StatusFailed, State: "{}"})
		var conflict *folio.StateConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("UpdateSession() error = %v, want StateConflictError", err)
		}
		if conflict.Actual != folio.StatusStarted {
			t.Errorf("conflict.Actual = %q, want started", conflict.Actual)
		}
	})

	t.Run("missing session", func(t *testing.T) {
		db := newTestDB(t)

		err := db.UpdateSession(ctx, &folio.SessionUpdate{ID: "nope", ExpectedRevision: 1, Status: folio.StatusFailed, State: "{}"})
		if !errors.Is(err, folio.ErrSessionNotFound) {
			t.Fatalf("UpdateSession() error = %v, want ErrSessionNotFound", err)
		}
	})
}

func TestSQLiteDatabase_ProjectAttributes(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	p := newProject("u1", "thesis")
	if err := db.ApplyChangeSet(ctx, &folio.ChangeSet{Projects: []*sqlc.Project{p}}); err != nil {
		t.Fatalf("ApplyChangeSet() error = %v", err)
	}

	if err := db.RenameProject(ctx, p.ID, "Master thesis", testTime); err != nil {
		t.Fatalf("RenameProject() error = %v", err)
	}
	if err := db.SetProjectAttributes(ctx, p.ID, "individual", "text", testTime); err != nil {
		t.Fatalf("SetProjectAttributes() error = %v", err)
	}

	got, err := db.FindProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("FindProject() error = %v", err)
	}
	if got.DisplayName != "Master thesis" {
		t.Errorf("DisplayName = %q, want %q", got.DisplayName, "Master thesis")
	}
	if got.Classification != (sql.NullString{String: "individual", Valid: true}) {
		t.Errorf("Classification = %v, want individual", got.Classification)
	}

	if err := db.RenameProject(ctx, "missing", "x", testTime); !errors.Is(err, folio.ErrProjectNotFound) {
		t.Errorf("RenameProject(missing) error = %v, want ErrProjectNotFound", err)
	}
}

func TestSQLiteDatabase_Operations(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	id, err := db.CreateOperation(ctx, "Ingest", "thesis.zip", testTime)
	if err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}
	if err := db.FinishOperation(ctx, id, "success", testTime.Add(time.Second)); err != nil {
		t.Fatalf("FinishOperation() error = %v", err)
	}
	if _, err := db.CreateOperation(ctx, "ResolveDedup", "s-1", testTime.Add(time.Minute)); err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}

	ops, err := db.ListOperations(ctx, 10)
	if err != nil {
		t.Fatalf("ListOperations() error = %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	if ops[0].Operation != "ResolveDedup" {
		t.Errorf("ops[0].Operation = %q, want newest first", ops[0].Operation)
	}
	if ops[1].Status != "success" || !ops[1].FinishedAt.Valid {
		t.Errorf("ops[1] = %+v, want finished success", ops[1])
	}
}

func TestSQLiteDatabase_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.db")
	db, err := NewSQLiteDatabase(path)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	defer db.Close()

	if err := db.CheckMigrations(); err == nil {
		t.Error("CheckMigrations() expected error before migration")
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() error = %v", err)
	}
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}

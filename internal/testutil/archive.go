package testutil

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"folio-go/internal/folio"
)

// Files maps relative paths to file contents.
type Files map[string]string

// NewCandidate builds a candidate from files. Entries are sorted by path.
func NewCandidate(name string, files Files) folio.Candidate {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	c := folio.Candidate{Name: name}
	for _, p := range paths {
		c.Files = append(c.Files, folio.FileEntry{RelPath: p, Data: []byte(files[p])})
	}
	return c
}

// NumberedFiles returns n files "f00.txt".."f<n-1>.txt" whose contents are
// "<seed>-<i>". Two calls with the same seed produce identical sets.
func NumberedFiles(seed string, n int) Files {
	files := make(Files, n)
	for i := 0; i < n; i++ {
		files[fmt.Sprintf("f%02d.txt", i)] = fmt.Sprintf("%s-%d", seed, i)
	}
	return files
}

// NewArchive builds an archive source over the given candidates with a
// layout that auto-assigns every candidate to a root of the same name.
func NewArchive(name string, candidates ...folio.Candidate) folio.StaticArchive {
	a := &folio.Archive{
		Name: name,
		Layout: folio.Layout{
			AutoAssignments: make(map[string]string, len(candidates)),
		},
		Candidates: candidates,
	}
	for _, c := range candidates {
		a.Layout.AutoAssignments[c.Name] = c.Name
		a.Layout.PendingProjects = append(a.Layout.PendingProjects, c.Name)
	}
	return folio.StaticArchive{Archive: a}
}

// WriteTree writes files under root, creating parent directories.
func WriteTree(t *testing.T, root string, files Files) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
	}
}

// WriteZip writes a zip archive at path containing files.
func WriteZip(t *testing.T, path string, files Files) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create zip: %v", err)
	}
	defer f.Close()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add zip entry: %v", err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("failed to write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish zip: %v", err)
	}
}

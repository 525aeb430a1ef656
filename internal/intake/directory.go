package intake

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"folio-go/internal/folio"
)

// DirectorySource reads an archive that has already been extracted to disk.
type DirectorySource struct {
	root   string
	ignore []string
}

// NewDirectorySource creates a source rooted at root. ignore holds extra
// patterns applied on top of the directory's .folioignore.
func NewDirectorySource(root string, ignore []string) *DirectorySource {
	return &DirectorySource{root: root, ignore: ignore}
}

func (s *DirectorySource) Name() string {
	return filepath.Base(filepath.Clean(s.root))
}

// Load walks the directory. Unreadable files are kept with their read error
// set; a missing or unreadable root is an *folio.ArchiveError.
func (s *DirectorySource) Load(ctx context.Context) (*folio.Archive, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, &folio.ArchiveError{Archive: s.Name(), Err: err}
	}
	if !info.IsDir() {
		return nil, &folio.ArchiveError{Archive: s.Name(), Err: fmt.Errorf("not a directory or zip file")}
	}

	extra, err := ParseIgnoreFile(filepath.Join(s.root, IgnoreFileName))
	if err != nil {
		return nil, &folio.ArchiveError{Archive: s.Name(), Err: err}
	}
	matcher := NewIgnoreMatcher(s.ignore).With(extra)

	var entries []entry
	err = filepath.WalkDir(s.root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if walkErr != nil {
			if p == s.root {
				return walkErr
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			entries = append(entries, entry{path: rel, readErr: walkErr})
			return nil
		}
		if rel == "." {
			return nil
		}
		if matcher.Match(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		data, readErr := os.ReadFile(p)
		entries = append(entries, entry{path: rel, data: data, readErr: readErr})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &folio.ArchiveError{Archive: s.Name(), Err: err}
	}

	return group(ctx, s.Name(), entries)
}

var _ folio.ArchiveSource = (*DirectorySource)(nil)

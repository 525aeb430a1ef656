package intake

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"folio-go/internal/folio"
)

// ZipSource reads a .zip upload.
type ZipSource struct {
	path   string
	ignore []string
}

// NewZipSource creates a source for the zip file at p.
func NewZipSource(p string, ignore []string) *ZipSource {
	return &ZipSource{path: p, ignore: ignore}
}

func (s *ZipSource) Name() string {
	return filepath.Base(s.path)
}

// Load reads every member of the zip. A zip that cannot be opened, or that
// names a member outside its root, is an *folio.ArchiveError. A member whose
// content fails to decompress is kept with its read error set.
func (s *ZipSource) Load(ctx context.Context) (*folio.Archive, error) {
	zr, err := zip.OpenReader(s.path)
	if err != nil {
		return nil, &folio.ArchiveError{Archive: s.Name(), Err: err}
	}
	defer zr.Close()

	var (
		entries    []entry
		ignoreData []byte
	)
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		name, err := cleanEntryPath(f.Name)
		if err != nil {
			return nil, &folio.ArchiveError{Archive: s.Name(), Err: err}
		}
		if !f.Mode().IsRegular() {
			continue
		}
		data, readErr := readMember(f)
		entries = append(entries, entry{path: name, data: data, readErr: readErr})
	}

	prefix := unwrap(entries)

	for _, e := range entries {
		if e.path == IgnoreFileName && e.readErr == nil {
			ignoreData = e.data
		}
	}
	extra, err := ParseIgnore(bytes.NewReader(ignoreData))
	if err != nil {
		return nil, &folio.ArchiveError{Archive: s.Name(), Err: err}
	}
	matcher := NewIgnoreMatcher(s.ignore).With(extra)

	kept := entries[:0]
	for _, e := range entries {
		if !matcher.Match(e.path) {
			kept = append(kept, e)
		}
	}

	archive, err := group(ctx, s.Name(), kept)
	if err != nil {
		return nil, err
	}
	prefixAssignments(archive, prefix)
	return archive, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	return data, nil
}

var _ folio.ArchiveSource = (*ZipSource)(nil)

// Package intake turns an uploaded directory or zip file into the parsed
// archive consumed by the ingestion service.
//
// Every top-level directory of the archive is a candidate project and the
// files beneath it are that candidate's files, keyed by their path relative
// to the candidate root. Files directly at the top level belong to no
// candidate and are reported as stray locations. A zip whose entries all sit
// under one wrapping folder is read as if that folder were the root.
package intake

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"folio-go/internal/folio"
)

// entry is one file found in an archive before grouping.
type entry struct {
	path    string // slash-separated, relative to the archive root
	data    []byte
	readErr error
}

// NewSource returns an ArchiveSource for p: a ZipSource for .zip files and a
// DirectorySource otherwise. Nothing is read until Load.
func NewSource(p string, ignore []string) folio.ArchiveSource {
	if strings.EqualFold(filepath.Ext(p), ".zip") {
		return NewZipSource(p, ignore)
	}
	return NewDirectorySource(p, ignore)
}

// group builds the archive from a flat entry list. Entries must already have
// passed the ignore matcher.
func group(ctx context.Context, name string, entries []entry) (*folio.Archive, error) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	archive := &folio.Archive{
		Name: name,
		Layout: folio.Layout{
			AutoAssignments: make(map[string]string),
			PendingProjects: []string{},
			StrayLocations:  []string{},
		},
	}

	byName := make(map[string]*folio.Candidate)
	var order []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		top, rest, nested := strings.Cut(e.path, "/")
		if !nested {
			archive.Layout.StrayLocations = append(archive.Layout.StrayLocations, e.path)
			continue
		}
		c, ok := byName[top]
		if !ok {
			c = &folio.Candidate{Name: top}
			byName[top] = c
			order = append(order, top)
		}
		c.Files = append(c.Files, folio.FileEntry{RelPath: rest, Data: e.data, ReadErr: e.readErr})
	}

	for _, n := range order {
		archive.Candidates = append(archive.Candidates, *byName[n])
		archive.Layout.AutoAssignments[n] = n
		archive.Layout.PendingProjects = append(archive.Layout.PendingProjects, n)
	}
	return archive, nil
}

// unwrap strips a single wrapping folder shared by every entry, provided the
// folder itself holds at least one subdirectory. It returns the stripped
// prefix, or "" when the entries were left alone.
func unwrap(entries []entry) string {
	if len(entries) == 0 {
		return ""
	}
	var wrapper string
	hasSubdir := false
	for _, e := range entries {
		top, rest, nested := strings.Cut(e.path, "/")
		if !nested {
			return ""
		}
		if wrapper == "" {
			wrapper = top
		} else if top != wrapper {
			return ""
		}
		if strings.Contains(rest, "/") {
			hasSubdir = true
		}
	}
	if !hasSubdir {
		return ""
	}
	for i := range entries {
		entries[i].path = strings.TrimPrefix(entries[i].path, wrapper+"/")
	}
	return wrapper
}

// cleanEntryPath normalizes an archive member name. Names that escape the
// archive root are rejected.
func cleanEntryPath(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("absolute member path %q", name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("member path %q escapes the archive", name)
	}
	return clean, nil
}

// prefixAssignments points auto-assignments at their location inside the
// original archive when a wrapping folder was stripped.
func prefixAssignments(a *folio.Archive, prefix string) {
	if prefix == "" {
		return
	}
	for n, root := range a.Layout.AutoAssignments {
		a.Layout.AutoAssignments[n] = path.Join(prefix, root)
	}
	for i, s := range a.Layout.StrayLocations {
		a.Layout.StrayLocations[i] = path.Join(prefix, s)
	}
}

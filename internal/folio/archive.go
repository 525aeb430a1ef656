package folio

import "context"

// FileEntry is one file extracted from a submitted archive.
// RelPath is relative to the candidate project's root and uses forward slashes.
// ReadErr is set when the entry exists but its bytes could not be read; such
// entries are hashed as empty content rather than dropped.
type FileEntry struct {
	RelPath string
	Data    []byte
	ReadErr error
}

// Candidate is one project-shaped directory discovered in an archive.
type Candidate struct {
	Name  string
	Files []FileEntry
}

// Layout is the parsed shape of an archive as reported by intake.
type Layout struct {
	// AutoAssignments maps candidate names to their root path inside the archive.
	AutoAssignments map[string]string `json:"auto_assignments"`
	// PendingProjects lists candidates that still need downstream classification.
	PendingProjects []string `json:"pending_projects"`
	// StrayLocations lists archive paths that belong to no candidate.
	StrayLocations []string `json:"stray_locations"`
}

// Archive is the parsed content of one upload.
type Archive struct {
	Name       string
	Layout     Layout
	Candidates []Candidate
}

// ArchiveSource loads a parsed archive. Load returns an *ArchiveError when the
// archive as a whole is corrupt or unreadable.
type ArchiveSource interface {
	Name() string
	Load(ctx context.Context) (*Archive, error)
}

// StaticArchive is an ArchiveSource over an already parsed Archive.
type StaticArchive struct {
	Archive *Archive
}

func (s StaticArchive) Name() string { return s.Archive.Name }

func (s StaticArchive) Load(context.Context) (*Archive, error) { return s.Archive, nil }

package folio

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// EmptyContentHash is the digest of zero bytes. Zero-length and unreadable
// files hash to it so their presence still counts toward similarity.
var EmptyContentHash = HashBytes(nil)

// FileHash is the content identity of one file within a candidate project.
type FileHash struct {
	RelPath string `json:"relpath"`
	Hash    string `json:"hash"`
	Size    int64  `json:"size"`
}

// HashedCandidate is a candidate project whose file set has been fully hashed
// and fingerprinted.
type HashedCandidate struct {
	Name   string
	Files  []FileHash // sorted by RelPath
	Strict string
	Loose  Sketch

	data map[string][]byte // content hash -> bytes, for the blob store
}

// HashSet returns the distinct content hashes of the candidate.
func (c *HashedCandidate) HashSet() map[string]struct{} {
	return hashSet(c.Files)
}

// Content returns the bytes for a content hash seen in this candidate.
func (c *HashedCandidate) Content(hash string) ([]byte, bool) {
	b, ok := c.data[hash]
	return b, ok
}

// Hasher computes per-file content hashes and per-candidate fingerprints.
type Hasher struct {
	workers    int
	sketchSize int
}

// NewHasher creates a Hasher that hashes up to workers files in parallel.
func NewHasher(workers, sketchSize int) *Hasher {
	if workers <= 0 {
		workers = 1
	}
	if sketchSize <= 0 {
		sketchSize = DefaultSketchSize
	}
	return &Hasher{workers: workers, sketchSize: sketchSize}
}

// HashBytes returns the lowercase hex SHA-256 digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashCandidate hashes every file of the candidate and then computes its
// fingerprints. Fingerprinting starts only after every file hash is known.
func (h *Hasher) HashCandidate(ctx context.Context, c Candidate) (*HashedCandidate, error) {
	if err := validateCandidate(c); err != nil {
		return nil, err
	}

	files := make([]FileHash, len(c.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)
	for i := range c.Files {
		entry := c.Files[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			files[i] = hashEntry(entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("hashing candidate %q: %w", c.Name, err)
	}

	data := make(map[string][]byte, len(c.Files))
	for i, entry := range c.Files {
		if entry.ReadErr == nil {
			data[files[i].Hash] = entry.Data
		} else {
			data[files[i].Hash] = nil
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return &HashedCandidate{
		Name:   c.Name,
		Files:  files,
		Strict: StrictFingerprint(files),
		Loose:  NewSketch(hashList(files), h.sketchSize),
		data:   data,
	}, nil
}

func hashEntry(entry FileEntry) FileHash {
	if entry.ReadErr != nil || len(entry.Data) == 0 {
		return FileHash{RelPath: entry.RelPath, Hash: EmptyContentHash, Size: 0}
	}
	return FileHash{
		RelPath: entry.RelPath,
		Hash:    HashBytes(entry.Data),
		Size:    int64(len(entry.Data)),
	}
}

// StrictFingerprint digests the (relpath, hash) pairs of a file set sorted by
// relpath. Every field is length-prefixed so distinct sets cannot collide by
// concatenation. The input slice is not modified.
func StrictFingerprint(files []FileHash) string {
	sorted := append([]FileHash(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RelPath < sorted[j].RelPath })

	hasher := sha256.New()
	writeField := func(data []byte) {
		hasher.Write(binary.BigEndian.AppendUint64(nil, uint64(len(data))))
		hasher.Write(data)
	}

	writeField(binary.BigEndian.AppendUint64(nil, uint64(len(sorted))))
	for _, f := range sorted {
		writeField([]byte(f.RelPath))
		writeField([]byte(f.Hash))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

func validateCandidate(c Candidate) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("candidate name is empty")
	}
	if len(c.Files) == 0 {
		return fmt.Errorf("candidate %q has no files", c.Name)
	}
	seen := make(map[string]struct{}, len(c.Files))
	for _, f := range c.Files {
		if err := validateRelPath(f.RelPath); err != nil {
			return fmt.Errorf("candidate %q: %w", c.Name, err)
		}
		if _, dup := seen[f.RelPath]; dup {
			return fmt.Errorf("candidate %q: duplicate path %q", c.Name, f.RelPath)
		}
		seen[f.RelPath] = struct{}{}
	}
	return nil
}

func validateRelPath(p string) error {
	switch {
	case p == "":
		return fmt.Errorf("empty relative path")
	case strings.HasPrefix(p, "/"):
		return fmt.Errorf("path %q is absolute", p)
	case strings.Contains(p, "\\"):
		return fmt.Errorf("path %q uses backslashes", p)
	case path.Clean(p) != p:
		return fmt.Errorf("path %q is not clean", p)
	case p == ".." || strings.HasPrefix(p, "../"):
		return fmt.Errorf("path %q escapes the project root", p)
	}
	return nil
}

func hashSet(files []FileHash) map[string]struct{} {
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		set[f.Hash] = struct{}{}
	}
	return set
}

func hashList(files []FileHash) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Hash
	}
	return out
}

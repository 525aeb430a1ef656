package folio

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Disposition is the verdict for a candidate project.
type Disposition string

const (
	DispositionSkip       Disposition = "skip"
	DispositionNewProject Disposition = "new_project"
	DispositionNewVersion Disposition = "new_version"
	DispositionAsk        Disposition = "ask"
)

// ParseDecision converts a user decision into a Disposition. Ask is not a
// valid decision.
func ParseDecision(s string) (Disposition, error) {
	switch d := Disposition(s); d {
	case DispositionSkip, DispositionNewProject, DispositionNewVersion:
		return d, nil
	}
	return "", fmt.Errorf("unknown decision %q", s)
}

// MatchConfig holds the thresholds used to classify candidates.
type MatchConfig struct {
	// HighThreshold is the similarity at or above which a candidate is a new
	// version of the best-matching project.
	HighThreshold float64
	// LowThreshold is the similarity at or below which a candidate is a new
	// project.
	LowThreshold float64
	// SmallProjectFiles is the distinct-hash count below which the absolute
	// overlap floor applies.
	SmallProjectFiles int
	// MinAbsoluteOverlap is the number of shared hashes a small project needs
	// before a high-similarity match is accepted.
	MinAbsoluteOverlap int
	// SketchSize is the number of values kept in loose fingerprints.
	SketchSize int
	// PrefilterMargin is added to sketch estimates before comparing against
	// LowThreshold. Versions still below the threshold are not compared
	// exactly. A margin of 1 disables the prefilter.
	PrefilterMargin float64
	// Workers bounds the number of versions compared in parallel.
	Workers int
}

// DefaultMatchConfig returns the default thresholds.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		HighThreshold:      0.8,
		LowThreshold:       0.3,
		SmallProjectFiles:  5,
		MinAbsoluteOverlap: 2,
		SketchSize:         DefaultSketchSize,
		PrefilterMargin:    0.15,
		Workers:            runtime.NumCPU(),
	}
}

// Validate checks that the thresholds are consistent.
func (c MatchConfig) Validate() error {
	if c.LowThreshold < 0 || c.LowThreshold > 1 {
		return fmt.Errorf("low_threshold must be between 0 and 1, got %v", c.LowThreshold)
	}
	if c.HighThreshold < 0 || c.HighThreshold > 1 {
		return fmt.Errorf("high_threshold must be between 0 and 1, got %v", c.HighThreshold)
	}
	if c.LowThreshold >= c.HighThreshold {
		return fmt.Errorf("low_threshold (%v) must be below high_threshold (%v)", c.LowThreshold, c.HighThreshold)
	}
	if c.SmallProjectFiles < 0 {
		return fmt.Errorf("small_project_files must not be negative, got %d", c.SmallProjectFiles)
	}
	if c.MinAbsoluteOverlap < 1 {
		return fmt.Errorf("min_absolute_overlap must be at least 1, got %d", c.MinAbsoluteOverlap)
	}
	if c.SketchSize < 1 || c.SketchSize > 1024 {
		return fmt.Errorf("sketch_size must be between 1 and 1024, got %d", c.SketchSize)
	}
	if c.PrefilterMargin < 0 || c.PrefilterMargin > 1 {
		return fmt.Errorf("prefilter_margin must be between 0 and 1, got %v", c.PrefilterMargin)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// VersionSnapshot is the matching view of a committed version.
type VersionSnapshot struct {
	VersionID         string
	ProjectID         string
	ProjectName       string
	StrictFingerprint string
	Loose             Sketch
	FileCount         int
	CreatedAt         time.Time
}

// VersionCatalog is the read side of the identity store used for matching.
type VersionCatalog interface {
	ListUserVersions(ctx context.Context, userID string) ([]VersionSnapshot, error)
	VersionHashes(ctx context.Context, versionID string) ([]string, error)
}

// Match is the matcher's verdict for one candidate.
type Match struct {
	Disposition      Disposition
	Reason           string
	BestProjectID    string
	BestProjectName  string
	BestVersionID    string
	Similarity       float64
	Overlap          int
	Compared         int
	Prefiltered      int
	CandidateHashes  int
	BestVersionFiles int
}

// Matcher compares candidates against a user's committed versions.
type Matcher struct {
	cfg     MatchConfig
	catalog VersionCatalog
	logger  Logger
}

// NewMatcher creates a matcher. An invalid configuration falls back to
// DefaultMatchConfig.
func NewMatcher(cfg MatchConfig, catalog VersionCatalog, logger Logger) *Matcher {
	if err := cfg.Validate(); err != nil {
		logger.Warn("invalid match config, using defaults", "error", err)
		cfg = DefaultMatchConfig()
	}
	return &Matcher{cfg: cfg, catalog: catalog, logger: logger}
}

// Config returns the configuration in use.
func (m *Matcher) Config() MatchConfig {
	return m.cfg
}

// Index loads the user's versions once so that many candidates from the same
// upload can be matched against the same snapshot.
func (m *Matcher) Index(ctx context.Context, userID string) (*MatchIndex, error) {
	versions, err := m.catalog.ListUserVersions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing versions for user %s: %w", userID, err)
	}
	return &MatchIndex{
		cfg:      m.cfg,
		catalog:  m.catalog,
		versions: versions,
		sets:     make(map[string]map[string]struct{}),
	}, nil
}

// MatchIndex is a snapshot of a user's versions with lazily loaded hash sets.
type MatchIndex struct {
	cfg      MatchConfig
	catalog  VersionCatalog
	versions []VersionSnapshot

	mu   sync.Mutex
	sets map[string]map[string]struct{}
}

// Versions returns the number of versions in the snapshot.
func (ix *MatchIndex) Versions() int {
	return len(ix.versions)
}

type scored struct {
	version    *VersionSnapshot
	similarity float64
	overlap    int
}

// better reports whether a ranks above b. The ordering is total so the
// reduction does not depend on the order results arrive in.
func better(a, b scored) bool {
	if a.similarity != b.similarity {
		return a.similarity > b.similarity
	}
	if a.overlap != b.overlap {
		return a.overlap > b.overlap
	}
	if !a.version.CreatedAt.Equal(b.version.CreatedAt) {
		return a.version.CreatedAt.After(b.version.CreatedAt)
	}
	return a.version.VersionID < b.version.VersionID
}

// Match classifies a hashed candidate against the snapshot.
func (ix *MatchIndex) Match(ctx context.Context, c *HashedCandidate) (*Match, error) {
	set := c.HashSet()
	result := &Match{CandidateHashes: len(set)}

	if exact := ix.exactMatch(c.Strict); exact != nil {
		result.Disposition = DispositionSkip
		result.Reason = "identical to an existing version"
		result.setBest(scored{version: exact, similarity: 1, overlap: len(set)})
		return result, nil
	}

	var candidates []*VersionSnapshot
	for i := range ix.versions {
		v := &ix.versions[i]
		if EstimateSimilarity(c.Loose, v.Loose)+ix.cfg.PrefilterMargin < ix.cfg.LowThreshold {
			result.Prefiltered++
			continue
		}
		candidates = append(candidates, v)
	}

	scores := make([]scored, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Workers)
	for i, v := range candidates {
		g.Go(func() error {
			other, err := ix.hashSet(gctx, v.VersionID)
			if err != nil {
				return err
			}
			sim, overlap := Jaccard(set, other)
			scores[i] = scored{version: v, similarity: sim, overlap: overlap}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("comparing candidate %q: %w", c.Name, err)
	}
	result.Compared = len(scores)

	var best *scored
	for i := range scores {
		if best == nil || better(scores[i], *best) {
			best = &scores[i]
		}
	}
	if best != nil {
		result.setBest(*best)
	}
	result.Disposition, result.Reason = classify(ix.cfg, len(set), best)
	return result, nil
}

func (m *Match) setBest(s scored) {
	m.BestProjectID = s.version.ProjectID
	m.BestProjectName = s.version.ProjectName
	m.BestVersionID = s.version.VersionID
	m.BestVersionFiles = s.version.FileCount
	m.Similarity = s.similarity
	m.Overlap = s.overlap
}

func (ix *MatchIndex) exactMatch(strict string) *VersionSnapshot {
	var found *VersionSnapshot
	for i := range ix.versions {
		v := &ix.versions[i]
		if v.StrictFingerprint != strict {
			continue
		}
		if found == nil || v.ProjectID < found.ProjectID ||
			(v.ProjectID == found.ProjectID && v.VersionID < found.VersionID) {
			found = v
		}
	}
	return found
}

func (ix *MatchIndex) hashSet(ctx context.Context, versionID string) (map[string]struct{}, error) {
	ix.mu.Lock()
	set, ok := ix.sets[versionID]
	ix.mu.Unlock()
	if ok {
		return set, nil
	}

	hashes, err := ix.catalog.VersionHashes(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("loading hashes for version %s: %w", versionID, err)
	}
	set = make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		set[h] = struct{}{}
	}

	ix.mu.Lock()
	ix.sets[versionID] = set
	ix.mu.Unlock()
	return set, nil
}

// classify turns the best match into a disposition. best is nil when no
// version was compared.
func classify(cfg MatchConfig, candidateHashes int, best *scored) (Disposition, string) {
	if best == nil {
		return DispositionNewProject, "no comparable versions"
	}
	switch {
	case best.similarity >= cfg.HighThreshold:
		if candidateHashes < cfg.SmallProjectFiles && best.overlap < cfg.MinAbsoluteOverlap {
			return DispositionAsk, fmt.Sprintf("small project shares only %d file(s) with %s", best.overlap, best.version.ProjectName)
		}
		return DispositionNewVersion, fmt.Sprintf("%.0f%% similar to %s", best.similarity*100, best.version.ProjectName)
	case best.similarity <= cfg.LowThreshold:
		return DispositionNewProject, fmt.Sprintf("at most %.0f%% similar to any project", best.similarity*100)
	default:
		return DispositionAsk, fmt.Sprintf("%.0f%% similar to %s", best.similarity*100, best.version.ProjectName)
	}
}

// Jaccard returns |a ∩ b| / |a ∪ b| and the size of the intersection. Two
// empty sets have similarity 0.
func Jaccard(a, b map[string]struct{}) (float64, int) {
	if len(a) > len(b) {
		a, b = b, a
	}
	shared := 0
	for h := range a {
		if _, ok := b[h]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0, 0
	}
	return float64(shared) / float64(union), shared
}

// sortSnapshots orders versions by creation time then id.
func sortSnapshots(versions []VersionSnapshot) {
	sort.Slice(versions, func(i, j int) bool {
		if !versions[i].CreatedAt.Equal(versions[j].CreatedAt) {
			return versions[i].CreatedAt.Before(versions[j].CreatedAt)
		}
		return versions[i].VersionID < versions[j].VersionID
	})
}

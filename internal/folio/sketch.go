package folio

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// DefaultSketchSize is the number of minimum hash values kept per sketch.
const DefaultSketchSize = 32

// Sketch is a bottom-k summary of a content-hash set. Values holds the K
// smallest distinct hash values of the set in ascending order, or the whole
// set when it has fewer than K members.
type Sketch struct {
	K      int
	Values []uint64
}

// NewSketch builds a bottom-k sketch from content hashes. Duplicates are
// ignored and input order does not matter.
func NewSketch(hashes []string, k int) Sketch {
	if k <= 0 {
		k = DefaultSketchSize
	}
	seen := make(map[uint64]struct{}, len(hashes))
	values := make([]uint64, 0, len(hashes))
	for _, h := range hashes {
		v := sketchValue(h)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	if len(values) > k {
		values = values[:k]
	}
	return Sketch{K: k, Values: values}
}

// sketchValue maps a content hash onto the sketch domain. SHA-256 hex digests
// are already uniform, so their first 64 bits are used directly.
func sketchValue(hash string) uint64 {
	if len(hash) >= 16 {
		if v, err := strconv.ParseUint(hash[:16], 16, 64); err == nil {
			return v
		}
	}
	h := fnv.New64a()
	h.Write([]byte(hash))
	return h.Sum64()
}

// String encodes the sketch as "k:v1,v2,..." with fixed-width hex values.
func (s Sketch) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(s.K))
	b.WriteByte(':')
	for i, v := range s.Values {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%016x", v)
	}
	return b.String()
}

// ParseSketch decodes a sketch produced by Sketch.String.
func ParseSketch(encoded string) (Sketch, error) {
	kPart, valuesPart, ok := strings.Cut(encoded, ":")
	if !ok {
		return Sketch{}, fmt.Errorf("invalid sketch %q: missing size prefix", encoded)
	}
	k, err := strconv.Atoi(kPart)
	if err != nil || k <= 0 {
		return Sketch{}, fmt.Errorf("invalid sketch size %q", kPart)
	}
	if valuesPart == "" {
		return Sketch{K: k}, nil
	}
	parts := strings.Split(valuesPart, ",")
	values := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 64)
		if err != nil {
			return Sketch{}, fmt.Errorf("invalid sketch value %q: %w", p, err)
		}
		values[i] = v
	}
	if !sort.SliceIsSorted(values, func(i, j int) bool { return values[i] < values[j] }) {
		return Sketch{}, fmt.Errorf("invalid sketch: values are not sorted")
	}
	return Sketch{K: k, Values: values}, nil
}

// EstimateSimilarity estimates the Jaccard similarity of the two sets the
// sketches summarize. Sketches built with different sizes are compared at the
// smaller size.
func EstimateSimilarity(a, b Sketch) float64 {
	k := min(a.K, b.K)
	av := truncate(a.Values, k)
	bv := truncate(b.Values, k)

	var i, j, taken, shared int
	for taken < k && (i < len(av) || j < len(bv)) {
		switch {
		case j >= len(bv) || (i < len(av) && av[i] < bv[j]):
			i++
		case i >= len(av) || bv[j] < av[i]:
			j++
		default:
			shared++
			i++
			j++
		}
		taken++
	}
	if taken == 0 {
		return 0
	}
	return float64(shared) / float64(taken)
}

func truncate(values []uint64, k int) []uint64 {
	if len(values) > k {
		return values[:k]
	}
	return values
}

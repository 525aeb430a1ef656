package folio_test

import (
	"fmt"
	"math"
	"testing"

	"folio-go/internal/folio"
)

func hashes(prefix string, from, to int) []string {
	out := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, folio.HashBytes([]byte(fmt.Sprintf("%s-%d", prefix, i))))
	}
	return out
}

func TestNewSketch(t *testing.T) {
	t.Run("keeps k smallest distinct values", func(t *testing.T) {
		in := hashes("s", 0, 100)
		s := folio.NewSketch(append(in, in[:10]...), 16)
		if s.K != 16 || len(s.Values) != 16 {
			t.Fatalf("sketch has K=%d, %d values, want 16/16", s.K, len(s.Values))
		}
		for i := 1; i < len(s.Values); i++ {
			if s.Values[i-1] >= s.Values[i] {
				t.Fatalf("values not strictly ascending at %d", i)
			}
		}
	})

	t.Run("small set is kept whole", func(t *testing.T) {
		s := folio.NewSketch(hashes("s", 0, 3), 16)
		if len(s.Values) != 3 {
			t.Errorf("got %d values, want 3", len(s.Values))
		}
	})

	t.Run("order independent", func(t *testing.T) {
		in := hashes("s", 0, 50)
		rev := make([]string, len(in))
		for i := range in {
			rev[len(in)-1-i] = in[i]
		}
		if folio.NewSketch(in, 8).String() != folio.NewSketch(rev, 8).String() {
			t.Error("sketch depends on input order")
		}
	})

	t.Run("non-hex input still maps", func(t *testing.T) {
		s := folio.NewSketch([]string{"short", "also-short"}, 4)
		if len(s.Values) != 2 {
			t.Errorf("got %d values, want 2", len(s.Values))
		}
	})

	t.Run("zero size uses default", func(t *testing.T) {
		if s := folio.NewSketch(nil, 0); s.K != folio.DefaultSketchSize {
			t.Errorf("K = %d, want %d", s.K, folio.DefaultSketchSize)
		}
	})
}

func TestParseSketch(t *testing.T) {
	s := folio.NewSketch(hashes("p", 0, 20), 8)
	parsed, err := folio.ParseSketch(s.String())
	if err != nil {
		t.Fatalf("ParseSketch() error = %v", err)
	}
	if parsed.String() != s.String() {
		t.Errorf("ParseSketch() = %s, want %s", parsed, s)
	}

	empty, err := folio.ParseSketch("32:")
	if err != nil || empty.K != 32 || len(empty.Values) != 0 {
		t.Errorf("ParseSketch(32:) = %+v, %v", empty, err)
	}

	for _, bad := range []string{"", "nocolon", "0:", "x:00", "2:zz", "2:0000000000000002,0000000000000001"} {
		if _, err := folio.ParseSketch(bad); err == nil {
			t.Errorf("ParseSketch(%q) expected error", bad)
		}
	}
}

func TestEstimateSimilarity(t *testing.T) {
	a := hashes("a", 0, 300)

	t.Run("identical", func(t *testing.T) {
		if got := folio.EstimateSimilarity(folio.NewSketch(a, 64), folio.NewSketch(a, 64)); got != 1 {
			t.Errorf("EstimateSimilarity() = %v, want 1", got)
		}
	})

	t.Run("disjoint", func(t *testing.T) {
		b := hashes("b", 0, 300)
		if got := folio.EstimateSimilarity(folio.NewSketch(a, 64), folio.NewSketch(b, 64)); got != 0 {
			t.Errorf("EstimateSimilarity() = %v, want 0", got)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := folio.EstimateSimilarity(folio.NewSketch(nil, 8), folio.NewSketch(nil, 8)); got != 0 {
			t.Errorf("EstimateSimilarity() = %v, want 0", got)
		}
	})

	t.Run("small sets are exact", func(t *testing.T) {
		x := hashes("x", 0, 10)
		y := append(append([]string(nil), x[:5]...), hashes("y", 0, 5)...)
		got := folio.EstimateSimilarity(folio.NewSketch(x, 32), folio.NewSketch(y, 32))
		if math.Abs(got-5.0/15.0) > 1e-9 {
			t.Errorf("EstimateSimilarity() = %v, want %v", got, 5.0/15.0)
		}
	})

	t.Run("tracks jaccard on large sets", func(t *testing.T) {
		// 200 shared of 400 distinct: J = 0.5
		b := append(append([]string(nil), a[:200]...), hashes("c", 0, 100)...)
		got := folio.EstimateSimilarity(folio.NewSketch(a, 256), folio.NewSketch(b, 256))
		if math.Abs(got-0.5) > 0.15 {
			t.Errorf("EstimateSimilarity() = %v, want about 0.5", got)
		}
	})

	t.Run("mixed sizes compare at the smaller size", func(t *testing.T) {
		got := folio.EstimateSimilarity(folio.NewSketch(a, 16), folio.NewSketch(a, 64))
		if got != 1 {
			t.Errorf("EstimateSimilarity() = %v, want 1", got)
		}
	})
}

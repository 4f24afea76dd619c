package pairs

import (
	"errors"
	"math"
	"reflect"
	"sort"
	"testing"

	"github.com/probelab/saeprobe/internal/tensor"
)

func matrixFrom(rows, cols int, vals ...float32) *tensor.Matrix {
	m := tensor.NewMatrix(rows, cols)
	copy(m.Data, vals)
	return m
}

// smallInputs builds a 4-ablator, 3-reader fixture where rows 0 and 1 are
// positive scalar multiples (similarity 1), row 2 points the other way, and
// row 3 is all zeros.
func smallInputs() (*tensor.Matrix, *tensor.Matrix) {
	effects := matrixFrom(4, 3,
		1, 2, -1,
		2, 4, -2,
		-1, -2, 1,
		0, 0, 0,
	)
	cooc := tensor.NewMatrix(4, 4)
	return effects, cooc
}

func TestWorkedExample(t *testing.T) {
	effects, cooc := smallInputs()
	got, err := Find(effects, cooc, Options{
		CooccurrenceThreshold: 0,
		SimilarityThreshold:   0.99,
		SignMode:              SignModeRaw,
	})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly pair (0,1), got %v", got)
	}
	p := got[0]
	if p.I != 0 || p.J != 1 {
		t.Errorf("expected (0,1), got (%d,%d)", p.I, p.J)
	}
	if math.Abs(p.Similarity-1.0) > 1e-5 {
		t.Errorf("expected similarity 1.0, got %v", p.Similarity)
	}
}

func TestDeterminism(t *testing.T) {
	effects, cooc := smallInputs()
	opts := Options{SimilarityThreshold: -1, CooccurrenceThreshold: 10}
	first, err := Find(effects, cooc, opts)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := Find(effects, cooc, opts)
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, first, again)
		}
	}
}

func TestThresholdCorrectness(t *testing.T) {
	effects := matrixFrom(3, 2,
		1, 0,
		1, 0.1,
		0.9, 0.2,
	)
	cooc := matrixFrom(3, 3,
		0, 5, 0,
		5, 0, 1,
		0, 1, 0,
	)
	got, err := Find(effects, cooc, Options{
		CooccurrenceThreshold: 2,
		SimilarityThreshold:   0.5,
		SignMode:              SignModeRaw,
	})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	for _, p := range got {
		if cooc.At(p.I, p.J) > 2 {
			t.Errorf("pair (%d,%d) violates cooccurrence threshold: %v", p.I, p.J, cooc.At(p.I, p.J))
		}
		if p.Similarity < 0.5 {
			t.Errorf("pair (%d,%d) violates similarity threshold: %v", p.I, p.J, p.Similarity)
		}
	}
	// (0,1) co-occurs 5 times and must be excluded even though the rows are
	// nearly parallel.
	for _, p := range got {
		if p.I == 0 && p.J == 1 {
			t.Error("pair (0,1) should have been excluded by co-occurrence")
		}
	}
}

func TestUpperTriangularOnly(t *testing.T) {
	effects, cooc := smallInputs()
	got, err := Find(effects, cooc, Options{SimilarityThreshold: -1, CooccurrenceThreshold: 100})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	seen := map[[2]int]bool{}
	for _, p := range got {
		if p.I >= p.J {
			t.Errorf("pair (%d,%d) is not upper-triangular", p.I, p.J)
		}
		key := [2]int{p.I, p.J}
		if seen[key] {
			t.Errorf("pair (%d,%d) appears twice", p.I, p.J)
		}
		seen[key] = true
		if seen[[2]int{p.J, p.I}] {
			t.Errorf("both orderings of (%d,%d) appear", p.I, p.J)
		}
	}
}

func TestSortOrder(t *testing.T) {
	effects, cooc := smallInputs()
	got, err := Find(effects, cooc, Options{SimilarityThreshold: -1, CooccurrenceThreshold: 100})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if cur.Similarity > prev.Similarity {
			t.Fatalf("similarity increases at %d: %v after %v", i, cur, prev)
		}
		if cur.Similarity == prev.Similarity {
			if cur.I < prev.I || (cur.I == prev.I && cur.J <= prev.J) {
				t.Fatalf("tie not broken by (i,j) ascending at %d: %v after %v", i, cur, prev)
			}
		}
	}
}

func TestShardingEquivalence(t *testing.T) {
	effects, cooc := smallInputs()
	opts := Options{SimilarityThreshold: -1, CooccurrenceThreshold: 100}

	full, err := Find(effects, cooc, opts)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	lowOpts := opts
	lowOpts.IndexRange = &Range{Start: 0, End: 2}
	highOpts := opts
	highOpts.IndexRange = &Range{Start: 2, End: 4}

	low, err := Find(effects, cooc, lowOpts)
	if err != nil {
		t.Fatalf("Find(low): %v", err)
	}
	high, err := Find(effects, cooc, highOpts)
	if err != nil {
		t.Fatalf("Find(high): %v", err)
	}

	merged := append(append([]Pair{}, low...), high...)
	sort.Slice(merged, func(a, b int) bool {
		if merged[a].Similarity != merged[b].Similarity {
			return merged[a].Similarity > merged[b].Similarity
		}
		if merged[a].I != merged[b].I {
			return merged[a].I < merged[b].I
		}
		return merged[a].J < merged[b].J
	})
	if !reflect.DeepEqual(full, merged) {
		t.Fatalf("sharded merge differs from full run:\nfull:   %v\nmerged: %v", full, merged)
	}
}

func TestExcludeEverything(t *testing.T) {
	effects, cooc := smallInputs()
	got, err := Find(effects, cooc, Options{CooccurrenceThreshold: -1, SimilarityThreshold: 0})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestZeroNormRowExcluded(t *testing.T) {
	effects, cooc := smallInputs()
	got, err := Find(effects, cooc, Options{CooccurrenceThreshold: 100, SimilarityThreshold: 0.01})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	for _, p := range got {
		if p.I == 3 || p.J == 3 {
			t.Errorf("zero-norm row 3 appeared in pair %v", p)
		}
	}
}

func TestSignModeChangesSimilarity(t *testing.T) {
	// Same signs, very different magnitudes: sign mode sees them as
	// identical, raw mode does not.
	effects := matrixFrom(2, 3,
		100, 0.001, -50,
		0.1, 10, -0.1,
	)
	cooc := tensor.NewMatrix(2, 2)

	signed, err := Find(effects, cooc, Options{SignMode: SignModeSign, SimilarityThreshold: 0.999, CooccurrenceThreshold: 0})
	if err != nil {
		t.Fatalf("Find(sign): %v", err)
	}
	if len(signed) != 1 {
		t.Fatalf("sign mode expected the pair, got %v", signed)
	}

	raw, err := Find(effects, cooc, Options{SignMode: SignModeRaw, SimilarityThreshold: 0.999, CooccurrenceThreshold: 0})
	if err != nil {
		t.Fatalf("Find(raw): %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("raw mode should not see the pair as parallel, got %v", raw)
	}
}

func TestMaxSteps(t *testing.T) {
	effects, cooc := smallInputs()
	var anchors []int
	_, err := Find(effects, cooc, Options{
		SimilarityThreshold:   -1,
		CooccurrenceThreshold: 100,
		MaxSteps:              2,
		Progress:              func(i int) { anchors = append(anchors, i) },
	})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !reflect.DeepEqual(anchors, []int{0, 1}) {
		t.Fatalf("expected anchors [0 1], got %v", anchors)
	}
}

func TestValidation(t *testing.T) {
	effects, cooc := smallInputs()

	tests := []struct {
		name    string
		effects *tensor.Matrix
		cooc    *tensor.Matrix
		opts    Options
		wantInv bool // InvalidParameterError; otherwise ShapeMismatchError
	}{
		{"similarity too high", effects, cooc, Options{SimilarityThreshold: 1.5}, true},
		{"similarity too low", effects, cooc, Options{SimilarityThreshold: -1.5}, true},
		{"negative max steps", effects, cooc, Options{MaxSteps: -1}, true},
		{"inverted range", effects, cooc, Options{IndexRange: &Range{Start: 3, End: 1}}, true},
		{"negative range start", effects, cooc, Options{IndexRange: &Range{Start: -1, End: 1}}, true},
		{"cooc not square", effects, tensor.NewMatrix(4, 5), Options{}, false},
		{"cooc wrong side", effects, tensor.NewMatrix(5, 5), Options{}, false},
	}

	for _, tt := range tests {
		_, err := Find(tt.effects, tt.cooc, tt.opts)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		var inv *InvalidParameterError
		var sm *tensor.ShapeMismatchError
		if tt.wantInv && !errors.As(err, &inv) {
			t.Errorf("%s: expected InvalidParameterError, got %v", tt.name, err)
		}
		if !tt.wantInv && !errors.As(err, &sm) {
			t.Errorf("%s: expected ShapeMismatchError, got %v", tt.name, err)
		}
	}
}

func TestInputsNotMutated(t *testing.T) {
	effects, cooc := smallInputs()
	before := append([]float32{}, effects.Data...)
	if _, err := Find(effects, cooc, Options{SimilarityThreshold: 0, CooccurrenceThreshold: 0}); err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !reflect.DeepEqual(before, effects.Data) {
		t.Fatal("effects matrix was mutated")
	}
}

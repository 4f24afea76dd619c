// Package pairs finds ordered pairs of ablator features whose measured effect
// vectors point in nearly the same direction while the features themselves
// rarely co-occur on the prompt corpus.
package pairs

import (
	"math"
	"sort"
	"time"

	"github.com/viterin/vek/vek32"

	"github.com/probelab/saeprobe/internal/logger"
	"github.com/probelab/saeprobe/internal/metrics"
	"github.com/probelab/saeprobe/internal/tensor"
)

// SignMode controls how effect magnitudes enter the similarity comparison.
type SignMode int

const (
	// SignModeSign reduces each effect to -1/0/+1 before normalizing, so the
	// comparison measures direction-of-effect agreement rather than magnitude.
	SignModeSign SignMode = iota
	// SignModeRaw uses the measured effect magnitudes directly.
	SignModeRaw
)

// Range restricts which anchor indices are processed. Start is inclusive, End
// exclusive. Partitioned runs over disjoint ranges can be concatenated and
// re-sorted to reproduce an unsharded run.
type Range struct {
	Start int
	End   int
}

// Options parameterize one search run.
type Options struct {
	// CooccurrenceThreshold excludes pairs co-occurring strictly more often
	// than this. -1 excludes everything.
	CooccurrenceThreshold int
	// SimilarityThreshold excludes pairs with cosine similarity strictly
	// below this. Must lie in [-1, 1].
	SimilarityThreshold float64
	SignMode            SignMode
	// MaxSteps caps the number of anchors processed; 0 means no cap.
	MaxSteps int
	// IndexRange, when non-nil, restricts the anchors processed.
	IndexRange *Range
	// Progress, when non-nil, is called once per anchor processed.
	Progress func(anchor int)
}

// Pair is one surviving candidate. I is the driving anchor and I < J always.
type Pair struct {
	I          int
	J          int
	Similarity float64
}

// Find returns every pair passing both thresholds, sorted by similarity
// descending with ties broken by (I, J) ascending. Inputs are read-only; an
// empty result is a legitimate outcome, not an error.
func Find(effects, cooccurrences *tensor.Matrix, opts Options) ([]Pair, error) {
	if err := validate(effects, cooccurrences, opts); err != nil {
		return nil, err
	}
	start := time.Now()

	n := effects.Rows
	normalized := normalizeRows(effects, opts.SignMode)

	lo, hi := 0, n
	if opts.IndexRange != nil {
		lo = opts.IndexRange.Start
		if opts.IndexRange.End < hi {
			hi = opts.IndexRange.End
		}
	}

	coocLimit := float32(opts.CooccurrenceThreshold)
	var results []Pair
	processed := 0

	for i := lo; i < hi; i++ {
		if opts.MaxSteps > 0 && processed >= opts.MaxSteps {
			logger.Log.Info("reached max steps, stopping early", "max_steps", opts.MaxSteps, "anchor", i)
			break
		}
		processed++
		if opts.Progress != nil {
			opts.Progress(i)
		}

		anchor := normalized.Row(i)
		coocRow := cooccurrences.Row(i)
		for j := i + 1; j < n; j++ {
			if coocRow[j] > coocLimit {
				continue
			}
			sim := float64(vek32.Dot(anchor, normalized.Row(j)))
			if sim < opts.SimilarityThreshold {
				continue
			}
			results = append(results, Pair{I: i, J: j, Similarity: sim})
			metrics.RecordPairSimilarity(sim)
		}
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Similarity != results[b].Similarity {
			return results[a].Similarity > results[b].Similarity
		}
		if results[a].I != results[b].I {
			return results[a].I < results[b].I
		}
		return results[a].J < results[b].J
	})

	metrics.RecordPairSearch(processed, len(results), time.Since(start))
	return results, nil
}

func validate(effects, cooccurrences *tensor.Matrix, opts Options) error {
	if effects == nil || cooccurrences == nil {
		return &InvalidParameterError{Param: "effects/cooccurrences", Reason: "matrix is nil"}
	}
	if err := effects.CheckShape(); err != nil {
		return err
	}
	if err := cooccurrences.CheckShape(); err != nil {
		return err
	}
	if effects.Rows < 1 || effects.Cols < 1 {
		return &tensor.ShapeMismatchError{What: "effects matrix is empty"}
	}
	if cooccurrences.Rows != cooccurrences.Cols {
		return &tensor.ShapeMismatchError{
			What: "cooccurrence matrix is not square",
		}
	}
	if cooccurrences.Rows != effects.Rows {
		return &tensor.ShapeMismatchError{
			What: "cooccurrence side does not match effects rows",
		}
	}
	if opts.SimilarityThreshold < -1 || opts.SimilarityThreshold > 1 || math.IsNaN(opts.SimilarityThreshold) {
		return &InvalidParameterError{Param: "similarity_threshold", Reason: "must be in [-1, 1]"}
	}
	if opts.MaxSteps < 0 {
		return &InvalidParameterError{Param: "max_steps", Reason: "must be non-negative"}
	}
	if opts.IndexRange != nil {
		if opts.IndexRange.Start < 0 {
			return &InvalidParameterError{Param: "index_range", Reason: "start must be non-negative"}
		}
		if opts.IndexRange.Start > opts.IndexRange.End {
			return &InvalidParameterError{Param: "index_range", Reason: "start exceeds end"}
		}
	}
	return nil
}

// normalizeRows unit-normalizes every effect row under the sign mode. A
// zero-norm row becomes the zero vector, so its similarity to everything is 0
// and any positive threshold excludes it without a division fault.
func normalizeRows(effects *tensor.Matrix, mode SignMode) *tensor.Matrix {
	out := effects.Clone()
	if mode == SignModeSign {
		for i, v := range out.Data {
			switch {
			case v > 0:
				out.Data[i] = 1
			case v < 0:
				out.Data[i] = -1
			}
		}
	}
	for i := 0; i < out.Rows; i++ {
		row := out.Row(i)
		norm := float32(math.Sqrt(float64(vek32.Dot(row, row))))
		if norm == 0 {
			continue
		}
		vek32.MulNumber_Inplace(row, 1/norm)
	}
	return out
}

// Package cooccur accumulates feature co-occurrence counts from per-prompt
// SAE activation records produced by the measurement pipeline.
package cooccur

import (
	"fmt"

	"github.com/probelab/saeprobe/internal/archive"
	"github.com/probelab/saeprobe/internal/metrics"
	"github.com/probelab/saeprobe/internal/tensor"
)

// Accumulator folds prompt activation matrices into a co-occurrence matrix
// and an activation-frequency vector over a fixed feature universe.
type Accumulator struct {
	numFeatures   int
	cooccurrences *tensor.Matrix
	howOften      *tensor.Vector
	prompts       int

	active []int // scratch, reused across prompts
}

func NewAccumulator(numFeatures int) *Accumulator {
	return &Accumulator{
		numFeatures:   numFeatures,
		cooccurrences: tensor.NewMatrix(numFeatures, numFeatures),
		howOften:      tensor.NewVector(numFeatures),
	}
}

// AddPrompt folds one prompt's activations (tokens x features) in. A feature
// counts as active when it fires on any token; each active pair is counted
// once per prompt, including the diagonal.
func (a *Accumulator) AddPrompt(acts *tensor.Matrix) error {
	if err := acts.CheckShape(); err != nil {
		return err
	}
	if acts.Cols != a.numFeatures {
		return &tensor.ShapeMismatchError{
			What: fmt.Sprintf("activations have %d features, accumulator has %d", acts.Cols, a.numFeatures),
		}
	}

	a.active = a.active[:0]
	for f := 0; f < acts.Cols; f++ {
		for s := 0; s < acts.Rows; s++ {
			if acts.At(s, f) > 0 {
				a.active = append(a.active, f)
				break
			}
		}
	}

	for _, i := range a.active {
		a.howOften.Data[i]++
		row := a.cooccurrences.Row(i)
		for _, j := range a.active {
			row[j]++
		}
	}

	a.prompts++
	metrics.RecordCooccurrencePrompts(1)
	return nil
}

// Prompts reports how many prompts have been folded in.
func (a *Accumulator) Prompts() int {
	return a.prompts
}

// Snapshot returns the accumulated counts as a v2 archive. The tensors alias
// the accumulator's storage; save before folding in more prompts.
func (a *Accumulator) Snapshot() *archive.V2 {
	return &archive.V2{
		Cooccurrences:     a.cooccurrences,
		HowOftenActivated: a.howOften,
	}
}

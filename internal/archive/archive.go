// Package archive reads and writes the compressed tensor archives produced by
// the ablation measurement pipeline. The v2 layout stores three named tensors;
// the older v1 layout keyed each ablator's effect vector by its stringified
// feature index and is supported read-only.
package archive

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/probelab/saeprobe/internal/tensor"
)

const (
	KeyEffects           = "effects_eE"
	KeyCooccurrences     = "cooccurrences_ee"
	KeyHowOftenActivated = "how_often_activated_e"

	// v1 stored the co-occurrence matrix under a bare name alongside the
	// per-feature keys.
	keyV1Cooccurrences = "cooccurrences"
)

// V2 is one measurement run's results. Any field may be nil when the run only
// produced a subset (e.g. a pure co-occurrence pass has no effects).
type V2 struct {
	Effects           *tensor.Matrix // ablator x reader
	Cooccurrences     *tensor.Matrix // ablator x ablator
	HowOftenActivated *tensor.Vector // per ablator
}

// Validate cross-checks the shapes of whichever tensors are present against a
// single ablator universe.
func (a *V2) Validate() error {
	n := -1
	note := ""
	if a.Effects != nil {
		if err := a.Effects.CheckShape(); err != nil {
			return err
		}
		n = a.Effects.Rows
		note = fmt.Sprintf("%s rows=%d", KeyEffects, n)
	}
	if a.Cooccurrences != nil {
		if err := a.Cooccurrences.CheckShape(); err != nil {
			return err
		}
		if a.Cooccurrences.Rows != a.Cooccurrences.Cols {
			return &tensor.ShapeMismatchError{
				What: fmt.Sprintf("%s is %dx%d, want square", KeyCooccurrences, a.Cooccurrences.Rows, a.Cooccurrences.Cols),
			}
		}
		if n >= 0 && a.Cooccurrences.Rows != n {
			return &tensor.ShapeMismatchError{
				What: fmt.Sprintf("%s is %dx%d but %s", KeyCooccurrences, a.Cooccurrences.Rows, a.Cooccurrences.Cols, note),
			}
		}
		n = a.Cooccurrences.Rows
		note = fmt.Sprintf("%s side=%d", KeyCooccurrences, n)
	}
	if a.HowOftenActivated != nil {
		if n >= 0 && a.HowOftenActivated.Len() != n {
			return &tensor.ShapeMismatchError{
				What: fmt.Sprintf("%s has %d entries but %s", KeyHowOftenActivated, a.HowOftenActivated.Len(), note),
			}
		}
	}
	return nil
}

// SaveV2 writes the archive to path (.safetensors or .safetensors.zst).
func SaveV2(path string, a *V2) error {
	if err := a.Validate(); err != nil {
		return err
	}
	tensors := map[string]tensor.Dense{}
	if a.Effects != nil {
		tensors[KeyEffects] = tensor.FromMatrix(a.Effects)
	}
	if a.Cooccurrences != nil {
		tensors[KeyCooccurrences] = tensor.FromMatrix(a.Cooccurrences)
	}
	if a.HowOftenActivated != nil {
		tensors[KeyHowOftenActivated] = tensor.FromVector(a.HowOftenActivated)
	}
	if len(tensors) == 0 {
		return fmt.Errorf("refusing to save empty archive to %s", path)
	}
	return tensor.Save(path, tensors)
}

// LoadV2 reads a v2 archive. Unknown tensor names are rejected rather than
// silently ignored.
func LoadV2(path string) (*V2, error) {
	raw, err := tensor.Load(path)
	if err != nil {
		return nil, err
	}

	out := &V2{}
	for name, d := range raw {
		switch name {
		case KeyEffects:
			m, err := d.Matrix()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out.Effects = m
		case KeyCooccurrences:
			m, err := d.Matrix()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out.Cooccurrences = m
		case KeyHowOftenActivated:
			v, err := d.Vector()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out.HowOftenActivated = v
		default:
			return nil, fmt.Errorf("archive %s has unexpected tensor %q", path, name)
		}
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// V1 maps ablator feature index to that ablator's effect vector over readers.
type V1 struct {
	Effects       map[int]*tensor.Vector
	Cooccurrences *tensor.Matrix
}

// Indices returns the ablator indices in ascending order.
func (a *V1) Indices() []int {
	out := make([]int, 0, len(a.Effects))
	for idx := range a.Effects {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// LoadV1 reads a legacy per-feature-key archive.
func LoadV1(path string) (*V1, error) {
	raw, err := tensor.Load(path)
	if err != nil {
		return nil, err
	}

	out := &V1{Effects: make(map[int]*tensor.Vector)}
	width := -1
	for name, d := range raw {
		if name == keyV1Cooccurrences {
			m, err := d.Matrix()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out.Cooccurrences = m
			continue
		}
		idx, err := strconv.Atoi(name)
		if err != nil {
			return nil, fmt.Errorf("archive %s has non-index tensor %q", path, name)
		}
		v, err := d.Vector()
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		if width >= 0 && v.Len() != width {
			return nil, &tensor.ShapeMismatchError{
				What: fmt.Sprintf("effect vector %d has %d readers, earlier vectors have %d", idx, v.Len(), width),
			}
		}
		width = v.Len()
		out.Effects[idx] = v
	}
	return out, nil
}

package cooccur

import (
	"testing"

	"github.com/probelab/saeprobe/internal/tensor"
)

func actsFrom(rows, cols int, vals ...float32) *tensor.Matrix {
	m := tensor.NewMatrix(rows, cols)
	copy(m.Data, vals)
	return m
}

func TestAddPrompt(t *testing.T) {
	acc := NewAccumulator(3)

	// Prompt 1: features 0 and 2 active (feature 0 on two tokens still
	// counts once).
	err := acc.AddPrompt(actsFrom(2, 3,
		1, 0, 0,
		2, 0, 5,
	))
	if err != nil {
		t.Fatalf("AddPrompt: %v", err)
	}
	// Prompt 2: only feature 0 active.
	err = acc.AddPrompt(actsFrom(1, 3,
		3, 0, 0,
	))
	if err != nil {
		t.Fatalf("AddPrompt: %v", err)
	}

	snap := acc.Snapshot()
	cooc := snap.Cooccurrences
	if cooc.At(0, 2) != 1 || cooc.At(2, 0) != 1 {
		t.Errorf("cooc(0,2)=%v cooc(2,0)=%v, want 1,1", cooc.At(0, 2), cooc.At(2, 0))
	}
	if cooc.At(0, 0) != 2 {
		t.Errorf("cooc(0,0)=%v, want 2", cooc.At(0, 0))
	}
	if cooc.At(0, 1) != 0 {
		t.Errorf("cooc(0,1)=%v, want 0", cooc.At(0, 1))
	}

	howOften := snap.HowOftenActivated
	if howOften.Data[0] != 2 || howOften.Data[1] != 0 || howOften.Data[2] != 1 {
		t.Errorf("how_often = %v, want [2 0 1]", howOften.Data)
	}

	if acc.Prompts() != 2 {
		t.Errorf("Prompts() = %d, want 2", acc.Prompts())
	}
}

func TestAddPromptShapeMismatch(t *testing.T) {
	acc := NewAccumulator(3)
	if err := acc.AddPrompt(actsFrom(1, 2, 1, 1)); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestSnapshotValidates(t *testing.T) {
	acc := NewAccumulator(4)
	if err := acc.Snapshot().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

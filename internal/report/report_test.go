package report

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/probelab/saeprobe/internal/motif"
	"github.com/probelab/saeprobe/internal/pairs"
	"github.com/probelab/saeprobe/internal/tensor"
)

type stubDescriber map[int]string

func (s stubDescriber) Description(_ context.Context, index int) (string, error) {
	desc, ok := s[index]
	if !ok {
		return "", fmt.Errorf("feature %d has no description", index)
	}
	return desc, nil
}

func TestWritePairs(t *testing.T) {
	cooc := tensor.NewMatrix(3, 3)
	cooc.Set(0, 2, 1)
	howOften := tensor.NewVector(3)
	copy(howOften.Data, []float32{4, 0, 9})

	results := []pairs.Pair{{I: 0, J: 2, Similarity: 0.98765}}
	pc := PairContext{
		SAE:               "gemma-2-2b/20-gemmascope-res-16k",
		Cooccurrences:     cooc,
		HowOftenActivated: howOften,
	}
	d := stubDescriber{0: "numbers", 2: "punctuation"}

	var buf strings.Builder
	if err := WritePairs(context.Background(), &buf, results, pc, d); err != nil {
		t.Fatalf("WritePairs: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Found 1 similar non-co-occurring pairs",
		"Pair 1: Ablator 0 and Ablator 2",
		"Cosine similarity: 0.9877",
		"Co-occurrence count: 1",
		"Ablator 0: numbers",
		"Ablator 2: punctuation",
		"Ablator 0 activated on 4 prompts",
		"Ablator 2 activated on 9 prompts",
		"https://www.neuronpedia.org/gemma-2-2b/20-gemmascope-res-16k/0",
		"https://www.neuronpedia.org/gemma-2-2b/20-gemmascope-res-16k/2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWritePairsLookupFailure(t *testing.T) {
	results := []pairs.Pair{{I: 0, J: 1, Similarity: 1}}
	var buf strings.Builder
	err := WritePairs(context.Background(), &buf, results, PairContext{SAE: "m/s"}, stubDescriber{})
	if err != nil {
		t.Fatalf("WritePairs: %v", err)
	}
	if !strings.Contains(buf.String(), "description unavailable") {
		t.Errorf("expected inline failure note:\n%s", buf.String())
	}
}

func TestWriteMotifs(t *testing.T) {
	tuples := []motif.Tuple{{A: 0, B: 1, C: 3, D: 2}}
	var buf strings.Builder
	err := WriteMotifs(context.Background(), &buf, tuples, "m/s", stubDescriber{0: "alpha", 3: "delta"})
	if err != nil {
		t.Fatalf("WriteMotifs: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Found 1 four-node motifs",
		"Motif 1: A=0 B=1 C=3 D=2",
		"A 0: alpha",
		"C 3: delta",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteClusters(t *testing.T) {
	labels := []int{0, 0, 1, 2, 2, 2}
	var buf strings.Builder
	err := WriteClusters(context.Background(), &buf, labels, stubDescriber{
		0: "a", 1: "b", 3: "d", 4: "e", 5: "f",
	})
	if err != nil {
		t.Fatalf("WriteClusters: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Found 3 clusters over 6 vectors") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "Cluster 0 size: 2") || !strings.Contains(out, "Cluster 2 size: 3") {
		t.Errorf("missing cluster groups:\n%s", out)
	}
	if strings.Contains(out, "Cluster 1 size") {
		t.Errorf("singleton cluster should be omitted:\n%s", out)
	}
}

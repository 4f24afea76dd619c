// Package report renders the human-readable result files for the analysis
// tools, annotated with feature descriptions and dashboard links.
package report

import (
	"context"
	"fmt"
	"io"

	"github.com/probelab/saeprobe/internal/motif"
	"github.com/probelab/saeprobe/internal/neuronpedia"
	"github.com/probelab/saeprobe/internal/pairs"
	"github.com/probelab/saeprobe/internal/tensor"
)

// Describer supplies a natural-language description for a feature index.
// *neuronpedia.Client satisfies it; tests use a stub.
type Describer interface {
	Description(ctx context.Context, index int) (string, error)
}

// PairContext carries the reporting-only inputs alongside the ranked pairs.
type PairContext struct {
	SAE               neuronpedia.SAEID
	Cooccurrences     *tensor.Matrix
	HowOftenActivated *tensor.Vector
}

// WritePairs renders the ranked pair list. A failed description lookup is
// reported inline for that feature rather than aborting the report.
func WritePairs(ctx context.Context, w io.Writer, results []pairs.Pair, pc PairContext, d Describer) error {
	if _, err := fmt.Fprintf(w, "Found %d similar non-co-occurring pairs\n\n", len(results)); err != nil {
		return err
	}

	for i, p := range results {
		fmt.Fprintf(w, "Pair %d: Ablator %d and Ablator %d\n", i+1, p.I, p.J)
		fmt.Fprintf(w, "  Cosine similarity: %.4f\n", p.Similarity)
		if pc.Cooccurrences != nil {
			fmt.Fprintf(w, "  Co-occurrence count: %g\n", pc.Cooccurrences.At(p.I, p.J))
		}

		fmt.Fprintf(w, "  Ablator %d: %s\n", p.I, describe(ctx, d, p.I))
		fmt.Fprintf(w, "  Ablator %d: %s\n", p.J, describe(ctx, d, p.J))

		if pc.HowOftenActivated != nil {
			fmt.Fprintf(w, "  Ablator %d activated on %g prompts\n", p.I, pc.HowOftenActivated.Data[p.I])
			fmt.Fprintf(w, "  Ablator %d activated on %g prompts\n", p.J, pc.HowOftenActivated.Data[p.J])
		}

		fmt.Fprintf(w, "  URLs: %s\n", neuronpedia.ConstructURL(pc.SAE, p.I))
		fmt.Fprintf(w, "        %s\n", neuronpedia.ConstructURL(pc.SAE, p.J))
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteMotifs renders the four-tuple list. Descriptions apply to the A and C
// positions only; B and D index the reader universe, which has no entries in
// the ablator's description collection.
func WriteMotifs(ctx context.Context, w io.Writer, results []motif.Tuple, sae neuronpedia.SAEID, d Describer) error {
	if _, err := fmt.Fprintf(w, "Found %d four-node motifs\n\n", len(results)); err != nil {
		return err
	}
	for i, tup := range results {
		fmt.Fprintf(w, "Motif %d: A=%d B=%d C=%d D=%d\n", i+1, tup.A, tup.B, tup.C, tup.D)
		if d != nil {
			fmt.Fprintf(w, "  A %d: %s\n", tup.A, describe(ctx, d, tup.A))
			fmt.Fprintf(w, "  C %d: %s\n", tup.C, describe(ctx, d, tup.C))
		}
		if sae != "" {
			fmt.Fprintf(w, "  URLs: %s\n", neuronpedia.ConstructURL(sae, tup.A))
			fmt.Fprintf(w, "        %s\n", neuronpedia.ConstructURL(sae, tup.C))
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// ClusterGroup is one multi-member cluster with its member descriptions.
type ClusterGroup struct {
	Label   int
	Members []int
}

// WriteClusters renders every group with more than one member.
func WriteClusters(ctx context.Context, w io.Writer, labels []int, d Describer) error {
	groups := map[int][]int{}
	order := []int{}
	for idx, label := range labels {
		if _, seen := groups[label]; !seen {
			order = append(order, label)
		}
		groups[label] = append(groups[label], idx)
	}

	if _, err := fmt.Fprintf(w, "Found %d clusters over %d vectors\n\n", len(groups), len(labels)); err != nil {
		return err
	}
	for _, label := range order {
		members := groups[label]
		if len(members) < 2 {
			continue
		}
		fmt.Fprintf(w, "Cluster %d size: %d\n", label, len(members))
		for _, idx := range members {
			fmt.Fprintf(w, "  %d: %s\n", idx, describe(ctx, d, idx))
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func describe(ctx context.Context, d Describer, index int) string {
	if d == nil {
		return "(no description source)"
	}
	desc, err := d.Description(ctx, index)
	if err != nil {
		return fmt.Sprintf("(description unavailable: %v)", err)
	}
	return desc
}

// Package motif searches a signed adjacency structure for a four-node
// pattern: a pair of source nodes A and C sharing a positive hub B, where a
// fourth node D is positively linked from A but negatively linked from C.
// The roles of A and C are deliberately not interchangeable.
package motif

import (
	"fmt"
	"sort"
	"time"

	"github.com/probelab/saeprobe/internal/metrics"
	"github.com/probelab/saeprobe/internal/tensor"
)

// Adjacency maps a source node id to its signed weight vector over target
// nodes; position is the target id, sign is the edge polarity, zero means no
// edge. Every vector must span the same target universe.
type Adjacency map[int][]float32

// FromVectors builds an Adjacency from per-node effect vectors.
func FromVectors(vectors map[int]*tensor.Vector) Adjacency {
	adj := make(Adjacency, len(vectors))
	for id, v := range vectors {
		adj[id] = v.Data
	}
	return adj
}

// InvalidInputError reports an adjacency map whose vectors do not agree on a
// single node universe.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid adjacency input: %s", e.Reason)
}

// Tuple is one motif occurrence: A and C share positive hub B, and D is
// positive from A but negative from C.
type Tuple struct {
	A int
	B int
	C int
	D int
}

// Find exhaustively enumerates motif occurrences. Source nodes are visited in
// ascending id order and hub/target candidates in ascending index order, so
// the output is deterministic. The cross product of positive and negative
// neighbor sets per (A, C) pair makes this quadratic-to-cubic in node degree.
func Find(adj Adjacency) ([]Tuple, error) {
	if err := validate(adj); err != nil {
		return nil, err
	}
	start := time.Now()

	sources := make([]int, 0, len(adj))
	for id := range adj {
		sources = append(sources, id)
	}
	sort.Ints(sources)

	pos := make(map[int][]int, len(adj))
	neg := make(map[int][]int, len(adj))
	for _, id := range sources {
		for target, weight := range adj[id] {
			if target == id {
				continue
			}
			if weight > 0 {
				pos[id] = append(pos[id], target)
			} else if weight < 0 {
				neg[id] = append(neg[id], target)
			}
		}
		metrics.RecordNeighborSetSize(len(pos[id]))
		metrics.RecordNeighborSetSize(len(neg[id]))
	}

	var results []Tuple
	for _, a := range sources {
		posA := toSet(pos[a])
		for _, c := range sources {
			if a == c {
				continue
			}

			commonB := intersect(pos[c], posA)
			if len(commonB) == 0 {
				continue
			}
			candidateD := intersect(neg[c], posA)
			if len(candidateD) == 0 {
				continue
			}

			for _, b := range commonB {
				for _, d := range candidateD {
					if b == d {
						continue
					}
					results = append(results, Tuple{A: a, B: b, C: c, D: d})
				}
			}
		}
	}

	metrics.RecordMotifSearch(len(results), time.Since(start))
	return results, nil
}

func validate(adj Adjacency) error {
	width := -1
	for id, weights := range adj {
		if width >= 0 && len(weights) != width {
			return &InvalidInputError{
				Reason: fmt.Sprintf("node %d has %d targets, earlier nodes have %d", id, len(weights), width),
			}
		}
		width = len(weights)
	}
	return nil
}

func toSet(ids []int) map[int]struct{} {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// intersect keeps the members of ordered that are also in set, preserving
// order. ordered is always an ascending neighbor list, so the result is too.
func intersect(ordered []int, set map[int]struct{}) []int {
	var out []int
	for _, id := range ordered {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

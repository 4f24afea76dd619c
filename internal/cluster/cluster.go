// Package cluster groups SAE decoder vectors by cosine distance using
// complete-linkage agglomerative clustering.
package cluster

import (
	"fmt"
	"math"
	"time"

	"github.com/viterin/vek/vek32"
	"gonum.org/v1/gonum/mat"

	"github.com/probelab/saeprobe/internal/metrics"
	"github.com/probelab/saeprobe/internal/tensor"
)

// Options selects the stopping rule: a target cluster count, or a distance
// threshold past which clusters are not merged. Exactly one must be set.
type Options struct {
	NumClusters       int
	DistanceThreshold float64
}

// Labels assigns every input row a cluster label in [0, k). Labels are dense
// and ordered by each cluster's first member row.
func Labels(vectors *tensor.Matrix, opts Options) ([]int, error) {
	if err := vectors.CheckShape(); err != nil {
		return nil, err
	}
	n := vectors.Rows
	if n < 1 {
		return nil, fmt.Errorf("cannot cluster an empty matrix")
	}
	if (opts.NumClusters > 0) == (opts.DistanceThreshold > 0) {
		return nil, fmt.Errorf("exactly one of NumClusters and DistanceThreshold must be set")
	}
	if opts.NumClusters > n {
		return nil, fmt.Errorf("requested %d clusters from %d vectors", opts.NumClusters, n)
	}
	start := time.Now()

	dist := cosineDistances(vectors)

	// Each row starts as its own cluster; merged clusters point at their
	// survivor. Complete linkage updates via the max rule.
	parent := make([]int, n)
	alive := make([]bool, n)
	for i := range parent {
		parent[i] = i
		alive[i] = true
	}
	remaining := n
	merges := 0

	target := opts.NumClusters
	if target == 0 {
		target = 1
	}

	for remaining > target {
		bi, bj, best := -1, -1, math.Inf(1)
		for i := 0; i < n; i++ {
			if !alive[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !alive[j] {
					continue
				}
				if d := dist.At(i, j); d < best {
					bi, bj, best = i, j, d
				}
			}
		}
		if opts.DistanceThreshold > 0 && best > opts.DistanceThreshold {
			break
		}

		// Fold bj into bi.
		for k := 0; k < n; k++ {
			if !alive[k] || k == bi || k == bj {
				continue
			}
			d := math.Max(dist.At(bi, k), dist.At(bj, k))
			dist.SetSym(bi, k, d)
		}
		alive[bj] = false
		for k := range parent {
			if parent[k] == bj {
				parent[k] = bi
			}
		}
		remaining--
		merges++
	}

	labels := make([]int, n)
	next := 0
	assigned := make(map[int]int, remaining)
	for i := range labels {
		root := parent[i]
		label, ok := assigned[root]
		if !ok {
			label = next
			assigned[root] = label
			next++
		}
		labels[i] = label
	}

	metrics.RecordClustering(merges, time.Since(start))
	return labels, nil
}

// cosineDistances builds the symmetric pairwise distance matrix 1 - cos(i,j).
// A zero-norm row sits at distance 1 from everything.
func cosineDistances(vectors *tensor.Matrix) *mat.SymDense {
	n := vectors.Rows
	norms := make([]float64, n)
	for i := 0; i < n; i++ {
		row := vectors.Row(i)
		norms[i] = math.Sqrt(float64(vek32.Dot(row, row)))
	}

	dist := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1.0
			if norms[i] > 0 && norms[j] > 0 {
				cos := float64(vek32.Dot(vectors.Row(i), vectors.Row(j))) / (norms[i] * norms[j])
				d = 1 - cos
			}
			dist.SetSym(i, j, d)
		}
	}
	return dist
}

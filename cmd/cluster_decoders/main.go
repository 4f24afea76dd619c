package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/probelab/saeprobe/internal/cluster"
	"github.com/probelab/saeprobe/internal/config"
	"github.com/probelab/saeprobe/internal/hub"
	"github.com/probelab/saeprobe/internal/logger"
	"github.com/probelab/saeprobe/internal/neuronpedia"
	"github.com/probelab/saeprobe/internal/report"
	"github.com/probelab/saeprobe/internal/tensor"
)

func main() {
	repo := flag.String("repo", "", "Hub repository holding the SAE weights, e.g. google/gemma-scope-2b-pt-res")
	file := flag.String("file", "", "Weights file within the repository")
	localPath := flag.String("local-path", "", "Load the weights from a local file instead of the hub")
	tensorName := flag.String("tensor-name", "W_dec", "Decoder matrix tensor name")
	saeID := flag.String("sae-neuronpedia-id", "", "Neuronpedia SAE id for member descriptions")
	numClusters := flag.Int("num-clusters", 500, "Stop merging at this many clusters (0 to use --distance-threshold)")
	distThreshold := flag.Float64("distance-threshold", 0, "Stop merging when the closest clusters exceed this cosine distance")
	abridge := flag.Int("abridge", 0, "Only cluster the first N decoder rows; 0 means all")
	workers := flag.Int("lookup-workers", 8, "Concurrent Neuronpedia lookups")
	force := flag.Bool("force-download", false, "Re-download even if cached")
	flag.Parse()

	cfg := config.DefaultCluster()
	cfg.Repo = *repo
	cfg.File = *file
	cfg.LocalPath = *localPath
	cfg.TensorName = *tensorName
	cfg.SAEID = *saeID
	cfg.NumClusters = *numClusters
	cfg.DistanceThreshold = *distThreshold
	cfg.Abridge = *abridge
	cfg.LookupWorkers = *workers
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Setup("info", "console")
	ctx := context.Background()

	path := cfg.LocalPath
	if path == "" {
		fmt.Printf("Fetching %s from %s\n", cfg.File, cfg.Repo)
		var err error
		path, err = hub.Download(ctx, cfg.Repo, cfg.File, hub.Options{Force: *force})
		if err != nil {
			log.Fatalf("Download failed: %v", err)
		}
	}

	fmt.Printf("Loading %s\n", path)
	tensors, err := tensor.Load(path)
	if err != nil {
		log.Fatalf("Failed to load weights: %v", err)
	}
	d, ok := tensors[cfg.TensorName]
	if !ok {
		log.Fatalf("Tensor %q not found in %s", cfg.TensorName, path)
	}
	decoders, err := d.Matrix()
	if err != nil {
		log.Fatalf("Tensor %q: %v", cfg.TensorName, err)
	}
	fmt.Printf("Decoder matrix: %d x %d\n", decoders.Rows, decoders.Cols)

	if cfg.Abridge > 0 && cfg.Abridge < decoders.Rows {
		decoders = &tensor.Matrix{
			Rows: cfg.Abridge,
			Cols: decoders.Cols,
			Data: decoders.Data[:cfg.Abridge*decoders.Cols],
		}
		fmt.Printf("Abridged to first %d rows\n", cfg.Abridge)
	}

	labels, err := cluster.Labels(decoders, cluster.Options{
		NumClusters:       cfg.NumClusters,
		DistanceThreshold: cfg.DistanceThreshold,
	})
	if err != nil {
		log.Fatalf("Clustering failed: %v", err)
	}

	var describer report.Describer
	if cfg.SAEID != "" {
		client, err := neuronpedia.NewClient(neuronpedia.SAEID(cfg.SAEID), cfg.LookupWorkers, cfg.CacheSize)
		if err != nil {
			log.Fatalf("Failed to create Neuronpedia client: %v", err)
		}
		describer = client
	}
	if err := report.WriteClusters(ctx, os.Stdout, labels, describer); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/probelab/saeprobe/internal/archive"
	"github.com/probelab/saeprobe/internal/logger"
	"github.com/probelab/saeprobe/internal/motif"
	"github.com/probelab/saeprobe/internal/neuronpedia"
	"github.com/probelab/saeprobe/internal/report"
)

func main() {
	inputPath := flag.String("input-path", "", "Path to the per-feature effects archive (.safetensors or .safetensors.zst)")
	saeID := flag.String("ablator-sae-neuronpedia-id", "", "Neuronpedia SAE id for A/C descriptions")
	workers := flag.Int("lookup-workers", 8, "Concurrent Neuronpedia lookups")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("--input-path required")
	}

	logger.Setup("info", "console")

	fmt.Printf("Loading archive: %s\n", *inputPath)
	arch, err := archive.LoadV1(*inputPath)
	if err != nil {
		log.Fatalf("Failed to load archive: %v", err)
	}
	fmt.Printf("Loaded %d source features\n", len(arch.Effects))

	adj := motif.FromVectors(arch.Effects)
	found, err := motif.Find(adj)
	if err != nil {
		log.Fatalf("Motif search failed: %v", err)
	}

	ctx := context.Background()
	var describer report.Describer
	if *saeID != "" {
		client, err := neuronpedia.NewClient(neuronpedia.SAEID(*saeID), *workers, 4096)
		if err != nil {
			log.Fatalf("Failed to create Neuronpedia client: %v", err)
		}
		describer = client
	}
	if err := report.WriteMotifs(ctx, os.Stdout, found, neuronpedia.SAEID(*saeID), describer); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}
}

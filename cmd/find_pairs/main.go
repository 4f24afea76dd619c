package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/schollz/progressbar/v2"

	"github.com/probelab/saeprobe/internal/archive"
	"github.com/probelab/saeprobe/internal/arrowio"
	"github.com/probelab/saeprobe/internal/config"
	"github.com/probelab/saeprobe/internal/flightexport"
	"github.com/probelab/saeprobe/internal/logger"
	"github.com/probelab/saeprobe/internal/monitoring"
	"github.com/probelab/saeprobe/internal/neuronpedia"
	"github.com/probelab/saeprobe/internal/pairs"
	"github.com/probelab/saeprobe/internal/report"
)

func main() {
	inputPath := flag.String("input-path", "", "Path to the combined effects archive (.safetensors or .safetensors.zst)")
	cooccurrencePath := flag.String("cooccurrence-path", "", "Optional separate co-occurrence archive; defaults to the input archive")
	coocThreshold := flag.Int("cooccurrence-threshold", 10, "Keep pairs that co-occurred at most this many times")
	simThreshold := flag.Float64("cosine-sim-threshold", 0.4, "Keep pairs with cosine similarity at least this value")
	saeID := flag.String("ablator-sae-neuronpedia-id", "", "Neuronpedia SAE id for feature descriptions, e.g. gemma-2-2b/20-gemmascope-res-65k")
	skipBefore := flag.Int("skip-before", 0, "First ablator index to process (inclusive)")
	skipAfter := flag.Int("skip-after", 0, "Last ablator index bound (exclusive); 0 means to the end")
	rawEffects := flag.Bool("raw-effects", false, "Compare raw effect rows instead of their signs")
	maxSteps := flag.Int("max-steps", 0, "Stop after this many anchors; 0 means no cap")
	workers := flag.Int("lookup-workers", 8, "Concurrent Neuronpedia lookups")
	output := flag.String("output", "", "Report file; default similar_pairs_<timestamp>.txt, \"-\" for stdout")
	arrowOut := flag.String("arrow-out", "", "Optional Arrow IPC file for the pair table")
	flightAddr := flag.String("flight-addr", "", "Optional Arrow Flight server to push the pair table to")
	monitorAddr := flag.String("monitor-addr", "", "Optional address for /health and /metrics, e.g. :9090")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("--input-path required")
	}
	if *saeID == "" {
		log.Fatal("--ablator-sae-neuronpedia-id required")
	}

	cfg := config.DefaultPairSearch()
	cfg.InputPath = *inputPath
	cfg.CooccurrencePath = *cooccurrencePath
	cfg.AblatorSAEID = *saeID
	cfg.CooccurrenceThreshold = *coocThreshold
	cfg.SimilarityThreshold = *simThreshold
	cfg.RawEffects = *rawEffects
	cfg.MaxSteps = *maxSteps
	cfg.SkipBefore = *skipBefore
	cfg.SkipAfter = *skipAfter
	cfg.LookupWorkers = *workers
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Setup("info", "console")

	if *monitorAddr != "" {
		mon := monitoring.NewMonitor("find_pairs")
		mon.Start(*monitorAddr)
		defer mon.Stop(context.Background())
	}

	fmt.Printf("Loading archive: %s\n", cfg.InputPath)
	arch, err := archive.LoadV2(cfg.InputPath)
	if err != nil {
		log.Fatalf("Failed to load archive: %v", err)
	}

	cooc := arch.Cooccurrences
	if cfg.CooccurrencePath != "" {
		fmt.Printf("Loading co-occurrences: %s\n", cfg.CooccurrencePath)
		coocArch, err := archive.LoadV2(cfg.CooccurrencePath)
		if err != nil {
			log.Fatalf("Failed to load co-occurrence archive: %v", err)
		}
		cooc = coocArch.Cooccurrences
	}

	opts := pairs.Options{
		CooccurrenceThreshold: cfg.CooccurrenceThreshold,
		SimilarityThreshold:   cfg.SimilarityThreshold,
		MaxSteps:              cfg.MaxSteps,
	}
	if cfg.RawEffects {
		opts.SignMode = pairs.SignModeRaw
	}
	if cfg.SkipBefore > 0 || cfg.SkipAfter > 0 {
		end := cfg.SkipAfter
		if end == 0 {
			end = arch.Effects.Rows
		}
		opts.IndexRange = &pairs.Range{Start: cfg.SkipBefore, End: end}
	}

	anchors := arch.Effects.Rows
	if opts.IndexRange != nil {
		anchors = opts.IndexRange.End - opts.IndexRange.Start
	}
	bar := progressbar.New(anchors)
	opts.Progress = func(int) { bar.Add(1) }

	start := time.Now()
	found, err := pairs.Find(arch.Effects, cooc, opts)
	if err != nil {
		log.Fatalf("Pair search failed: %v", err)
	}
	fmt.Printf("\nSearched %d anchors in %s\n", anchors, time.Since(start).Round(time.Millisecond))

	ctx := context.Background()
	describer, err := neuronpedia.NewClient(neuronpedia.SAEID(cfg.AblatorSAEID), cfg.LookupWorkers, cfg.CacheSize)
	if err != nil {
		log.Fatalf("Failed to create Neuronpedia client: %v", err)
	}
	pctx := report.PairContext{
		SAE:               neuronpedia.SAEID(cfg.AblatorSAEID),
		Cooccurrences:     cooc,
		HowOftenActivated: arch.HowOftenActivated,
	}

	out := os.Stdout
	if *output != "-" {
		path := *output
		if path == "" {
			path = fmt.Sprintf("similar_pairs_%s.txt", time.Now().Format("2006-01-02_15-04-05"))
		}
		f, err := os.Create(path)
		if err != nil {
			log.Fatalf("Failed to create report file: %v", err)
		}
		defer f.Close()
		out = f
		fmt.Printf("Writing report to %s\n", path)
	}
	if err := report.WritePairs(ctx, out, found, pctx, describer); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	if *arrowOut != "" {
		if err := arrowio.WritePairsFile(*arrowOut, found, cooc); err != nil {
			log.Fatalf("Failed to write Arrow file: %v", err)
		}
		fmt.Printf("Wrote pair table: %s\n", *arrowOut)
	}
	if *flightAddr != "" {
		rec := arrowio.PairRecord(found, cooc)
		defer rec.Release()

		fc := flightexport.NewClient(*flightAddr)
		if err := fc.Connect(ctx); err != nil {
			log.Fatalf("Failed to connect to Flight server: %v", err)
		}
		defer fc.Close()
		if err := fc.Put(ctx, "similar_pairs", rec); err != nil {
			log.Fatalf("Failed to push pair table: %v", err)
		}
		fmt.Printf("Pushed pair table to %s\n", *flightAddr)
	}
}

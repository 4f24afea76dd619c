package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v2"

	"github.com/probelab/saeprobe/internal/archive"
	"github.com/probelab/saeprobe/internal/config"
	"github.com/probelab/saeprobe/internal/cooccur"
	"github.com/probelab/saeprobe/internal/logger"
	"github.com/probelab/saeprobe/internal/monitoring"
	"github.com/probelab/saeprobe/internal/tensor"
)

func main() {
	activationsDir := flag.String("activations-dir", "", "Directory of per-prompt activation archives (token x feature matrices)")
	outputDir := flag.String("output-dir", "cooccurrence_results", "Directory for checkpointed co-occurrence archives")
	numFeatures := flag.Int("num-features", 0, "Feature dimension of the activation matrices")
	saveFrequency := flag.Int("save-frequency", 240, "Checkpoint every this many prompts")
	neverSave := flag.Bool("never-save", false, "Skip checkpoints and the final archive (timing runs)")
	monitorAddr := flag.String("monitor-addr", "", "Optional address for /health and /metrics, e.g. :9090")
	flag.Parse()

	cfg := config.DefaultCooccurrence()
	cfg.ActivationsDir = *activationsDir
	cfg.OutputDir = *outputDir
	cfg.NumFeatures = *numFeatures
	cfg.SaveFrequency = *saveFrequency
	cfg.NeverSave = *neverSave
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Setup("info", "console")

	if *monitorAddr != "" {
		mon := monitoring.NewMonitor("cooccurrence")
		mon.Start(*monitorAddr)
		defer mon.Stop(context.Background())
	}

	files, err := activationFiles(cfg.ActivationsDir)
	if err != nil {
		log.Fatalf("Failed to list activation archives: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("No activation archives in %s", cfg.ActivationsDir)
	}
	fmt.Printf("Found %d activation archives\n", len(files))

	runDir := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s",
		time.Now().Format("2006-01-02_15-04-05"), uuid.NewString()[:8]))
	if !cfg.NeverSave {
		if err := os.MkdirAll(runDir, 0o755); err != nil {
			log.Fatalf("Failed to create output dir: %v", err)
		}
		fmt.Printf("Writing checkpoints to %s\n", runDir)
	}

	acc := cooccur.NewAccumulator(cfg.NumFeatures)
	bar := progressbar.New(len(files))

	for _, path := range files {
		tensors, err := tensor.Load(path)
		if err != nil {
			log.Fatalf("Failed to load %s: %v", path, err)
		}
		for _, name := range sortedKeys(tensors) {
			acts, err := tensors[name].Matrix()
			if err != nil {
				log.Fatalf("Tensor %q in %s: %v", name, path, err)
			}
			if err := acc.AddPrompt(acts); err != nil {
				log.Fatalf("Tensor %q in %s: %v", name, path, err)
			}

			if !cfg.NeverSave && acc.Prompts()%cfg.SaveFrequency == 0 {
				if err := checkpoint(runDir, acc); err != nil {
					log.Fatalf("Checkpoint failed: %v", err)
				}
			}
		}
		bar.Add(1)
	}

	fmt.Printf("\nProcessed %d prompts\n", acc.Prompts())
	if !cfg.NeverSave {
		if err := checkpoint(runDir, acc); err != nil {
			log.Fatalf("Final save failed: %v", err)
		}
		fmt.Println("Done")
	}
}

func activationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".safetensors") || strings.HasSuffix(name, ".safetensors.zst") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

func sortedKeys(tensors map[string]tensor.Dense) []string {
	keys := make([]string, 0, len(tensors))
	for k := range tensors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func checkpoint(runDir string, acc *cooccur.Accumulator) error {
	path := filepath.Join(runDir, fmt.Sprintf("cooccurrences_%07d.safetensors.zst", acc.Prompts()))
	if err := archive.SaveV2(path, acc.Snapshot()); err != nil {
		return err
	}
	fmt.Printf("\nSaved %s\n", path)
	return nil
}

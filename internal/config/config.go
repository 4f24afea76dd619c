package config

import "fmt"

// PairSearch holds the parameters for a relationship-finder run.
type PairSearch struct {
	InputPath        string
	CooccurrencePath string // optional separate archive for the co-occurrence matrix
	AblatorSAEID     string

	CooccurrenceThreshold int
	SimilarityThreshold   float64
	RawEffects            bool // compare raw magnitudes instead of signs
	MaxSteps              int
	SkipBefore            int // first anchor index to process
	SkipAfter             int // last anchor index to process, exclusive; 0 = to the end

	LookupWorkers int
	CacheSize     int
}

func DefaultPairSearch() PairSearch {
	return PairSearch{
		CooccurrenceThreshold: 0,
		SimilarityThreshold:   0.0,
		LookupWorkers:         8,
		CacheSize:             4096,
	}
}

func (c *PairSearch) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("input path is required")
	}
	if c.AblatorSAEID == "" {
		return fmt.Errorf("ablator SAE id is required")
	}
	if c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("invalid similarity threshold: %f (must be in [-1,1])", c.SimilarityThreshold)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("invalid max steps: %d (must be non-negative)", c.MaxSteps)
	}
	if c.SkipBefore < 0 {
		return fmt.Errorf("invalid skip-before: %d (must be non-negative)", c.SkipBefore)
	}
	if c.SkipAfter != 0 && c.SkipAfter < c.SkipBefore {
		return fmt.Errorf("invalid skip range: [%d, %d)", c.SkipBefore, c.SkipAfter)
	}
	if c.LookupWorkers <= 0 {
		return fmt.Errorf("invalid lookup workers: %d (must be positive)", c.LookupWorkers)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("invalid cache size: %d (must be positive)", c.CacheSize)
	}
	return nil
}

// Cooccurrence holds the parameters for a co-occurrence accumulation run.
type Cooccurrence struct {
	ActivationsDir string
	OutputDir      string
	NumFeatures    int
	SaveFrequency  int
	NeverSave      bool
}

func DefaultCooccurrence() Cooccurrence {
	return Cooccurrence{
		SaveFrequency: 240,
	}
}

func (c *Cooccurrence) Validate() error {
	if c.ActivationsDir == "" {
		return fmt.Errorf("activations dir is required")
	}
	if c.NumFeatures <= 0 {
		return fmt.Errorf("invalid feature count: %d (must be positive)", c.NumFeatures)
	}
	if c.SaveFrequency <= 0 {
		return fmt.Errorf("invalid save frequency: %d (must be positive)", c.SaveFrequency)
	}
	return nil
}

// Cluster holds the parameters for a decoder-vector clustering run.
type Cluster struct {
	Repo       string
	File       string
	LocalPath  string // bypasses the hub download when set
	TensorName string
	SAEID      string

	NumClusters       int
	DistanceThreshold float64
	Abridge           int // keep only the first N vectors; 0 = all

	LookupWorkers int
	CacheSize     int
}

func DefaultCluster() Cluster {
	return Cluster{
		TensorName:    "W_dec",
		NumClusters:   500,
		LookupWorkers: 8,
		CacheSize:     16384,
	}
}

func (c *Cluster) Validate() error {
	if c.LocalPath == "" && (c.Repo == "" || c.File == "") {
		return fmt.Errorf("either a local path or a hub repo and file are required")
	}
	if c.TensorName == "" {
		return fmt.Errorf("tensor name is required")
	}
	if (c.NumClusters > 0) == (c.DistanceThreshold > 0) {
		return fmt.Errorf("exactly one of cluster count and distance threshold must be set")
	}
	if c.Abridge < 0 {
		return fmt.Errorf("invalid abridge: %d (must be non-negative)", c.Abridge)
	}
	if c.LookupWorkers <= 0 {
		return fmt.Errorf("invalid lookup workers: %d (must be positive)", c.LookupWorkers)
	}
	return nil
}

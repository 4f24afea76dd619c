// Package neuronpedia fetches human-written feature descriptions from the
// Neuronpedia API and builds dashboard links for report annotation.
package neuronpedia

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/probelab/saeprobe/internal/metrics"
)

const DefaultBaseURL = "https://www.neuronpedia.org"

// SAEID identifies a feature collection, e.g.
// "gemma-2-2b/20-gemmascope-res-16k".
type SAEID string

// Client looks up feature descriptions with a bounded worker pool and an LRU
// cache. Safe for concurrent use.
type Client struct {
	BaseURL string
	SAE     SAEID
	// Workers bounds concurrent HTTP fetches in DescribeAll.
	Workers int

	httpClient *http.Client
	cache      *lru.Cache[int, string]
}

// NewClient builds a client for one feature collection. cacheSize bounds the
// in-process description cache.
func NewClient(sae SAEID, workers, cacheSize int) (*Client, error) {
	if workers < 1 {
		return nil, fmt.Errorf("workers must be positive, got %d", workers)
	}
	cache, err := lru.New[int, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating description cache: %w", err)
	}
	return &Client{
		BaseURL:    DefaultBaseURL,
		SAE:        sae,
		Workers:    workers,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
	}, nil
}

type explanation struct {
	Description string `json:"description"`
}

type featureResponse struct {
	Explanations []explanation `json:"explanations"`
}

// Description fetches the description for one feature index. A feature with
// no stored explanation is an error for that feature only.
func (c *Client) Description(ctx context.Context, index int) (string, error) {
	if desc, ok := c.cache.Get(index); ok {
		metrics.RecordDescriptionCacheHit()
		return desc, nil
	}

	start := time.Now()
	url := fmt.Sprintf("%s/api/feature/%s/%d", c.BaseURL, c.SAE, index)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request for feature %d: %w", index, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordDescriptionLookup("error", time.Since(start))
		return "", fmt.Errorf("fetching feature %d: %w", index, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordDescriptionLookup("error", time.Since(start))
		return "", fmt.Errorf("fetching feature %d: unexpected status %s", index, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordDescriptionLookup("error", time.Since(start))
		return "", fmt.Errorf("reading feature %d response: %w", index, err)
	}

	var parsed featureResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.RecordDescriptionLookup("error", time.Since(start))
		return "", fmt.Errorf("decoding feature %d response: %w", index, err)
	}
	if len(parsed.Explanations) == 0 {
		metrics.RecordDescriptionLookup("missing", time.Since(start))
		return "", fmt.Errorf("feature %d has no description", index)
	}

	desc := parsed.Explanations[0].Description
	c.cache.Add(index, desc)
	metrics.RecordDescriptionLookup("ok", time.Since(start))
	return desc, nil
}

// Result is one feature's lookup outcome.
type Result struct {
	Index       int
	Description string
	Err         error
}

// DescribeAll fetches descriptions for all indices with at most c.Workers
// in-flight requests. Per-feature failures are reported in the results, not
// as a batch error; only context cancellation aborts the batch.
func (c *Client) DescribeAll(ctx context.Context, indices []int) ([]Result, error) {
	results := make([]Result, len(indices))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Workers)
	for pos, index := range indices {
		g.Go(func() error {
			desc, err := c.Description(ctx, index)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			mu.Lock()
			results[pos] = Result{Index: index, Description: desc, Err: err}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ConstructURL builds the human-viewable dashboard link for a feature.
func ConstructURL(sae SAEID, index int) string {
	return fmt.Sprintf("%s/%s/%d", DefaultBaseURL, sae, index)
}

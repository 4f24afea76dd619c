// Package hub downloads model artifacts from the HuggingFace Hub with a
// simple on-disk cache.
package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/probelab/saeprobe/internal/logger"
)

// BaseURL is overridable for tests.
var BaseURL = "https://huggingface.co"

// Options configure one download.
type Options struct {
	// CacheDir defaults to ~/.cache/saeprobe/hub.
	CacheDir string
	// Force re-downloads even when a cached copy exists.
	Force bool
}

// Download fetches <repo>/resolve/main/<file> and returns the local path.
// Cached copies are reused unless Force is set.
func Download(ctx context.Context, repo, file string, opts Options) (string, error) {
	cacheDir := opts.CacheDir
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving cache dir: %w", err)
		}
		cacheDir = filepath.Join(home, ".cache", "saeprobe", "hub")
	}

	local := filepath.Join(cacheDir, repo, filepath.FromSlash(file))
	if !opts.Force {
		if _, err := os.Stat(local); err == nil {
			logger.Log.Debug("using cached artifact", "path", local)
			return local, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}

	url := fmt.Sprintf("%s/%s/resolve/main/%s", BaseURL, repo, strings.TrimPrefix(file, "/"))
	logger.Log.Info("downloading artifact", "url", url)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: unexpected status %s", url, resp.Status)
	}

	// Download to a temp name first so a partial fetch never looks cached.
	tmp, err := os.CreateTemp(filepath.Dir(local), ".download-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing %s: %w", local, err)
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("finalizing %s: %w", local, err)
	}

	logger.Log.Info("downloaded artifact", "path", local, "bytes", n, "elapsed", time.Since(start))
	return local, nil
}

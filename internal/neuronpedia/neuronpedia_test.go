package neuronpedia

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient("gemma-2-2b/20-gemmascope-res-16k", 4, 128)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.BaseURL = srv.URL
	return c, srv
}

func TestDescription(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/feature/gemma-2-2b/20-gemmascope-res-16k/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"explanations":[{"description":"references to religion"}]}`)
	})

	desc, err := c.Description(context.Background(), 16873)
	if err != nil {
		t.Fatalf("Description: %v", err)
	}
	if desc != "references to religion" {
		t.Errorf("got %q", desc)
	}
}

func TestDescriptionCached(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"explanations":[{"description":"x"}]}`)
	})

	for i := 0; i < 3; i++ {
		if _, err := c.Description(context.Background(), 7); err != nil {
			t.Fatalf("Description: %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 HTTP call, got %d", calls.Load())
	}
}

func TestDescriptionMissing(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"explanations":[]}`)
	})
	if _, err := c.Description(context.Background(), 1); err == nil {
		t.Fatal("expected error for feature without description")
	}
}

func TestDescriptionHTTPError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	if _, err := c.Description(context.Background(), 1); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestDescribeAll(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		idx := parts[len(parts)-1]
		if idx == "13" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"explanations":[{"description":"feature %s"}]}`, idx)
	})

	results, err := c.DescribeAll(context.Background(), []int{5, 13, 9})
	if err != nil {
		t.Fatalf("DescribeAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Description != "feature 5" || results[0].Err != nil {
		t.Errorf("result[0] = %+v", results[0])
	}
	if results[1].Err == nil {
		t.Error("expected per-feature error for index 13")
	}
	if results[2].Description != "feature 9" {
		t.Errorf("result[2] = %+v", results[2])
	}
}

func TestDescribeAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"explanations":[{"description":"x"}]}`)
	})
	if _, err := c.DescribeAll(ctx, []int{1, 2, 3}); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestConstructURL(t *testing.T) {
	got := ConstructURL("gemma-2-2b/20-gemmascope-res-16k", 42)
	want := "https://www.neuronpedia.org/gemma-2-2b/20-gemmascope-res-16k/42"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

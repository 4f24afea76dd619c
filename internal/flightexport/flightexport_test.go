package flightexport

import (
	"context"
	"testing"

	"github.com/probelab/saeprobe/internal/arrowio"
	"github.com/probelab/saeprobe/internal/pairs"
)

func TestPutRequiresConnect(t *testing.T) {
	c := NewClient("localhost:3000")
	rec := arrowio.PairRecord([]pairs.Pair{{I: 0, J: 1, Similarity: 1}}, nil)
	defer rec.Release()

	if err := c.Put(context.Background(), "pairs", rec); err == nil {
		t.Fatal("expected error before Connect")
	}
}

func TestCloseWithoutConnect(t *testing.T) {
	c := NewClient("localhost:3000")
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

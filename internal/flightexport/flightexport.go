// Package flightexport pushes result tables to an Arrow Flight endpoint so a
// vector store can index effect directions alongside the ranked pairs.
package flightexport

import (
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/probelab/saeprobe/internal/logger"
)

// Client wraps an Arrow Flight connection for result upload.
type Client struct {
	addr    string
	timeout time.Duration
	client  flight.Client
}

// NewClient prepares a client for the given host:port; Connect establishes
// the connection.
func NewClient(addr string) *Client {
	return &Client{
		addr:    addr,
		timeout: 30 * time.Second,
	}
}

// Connect dials the Flight server.
func (c *Client) Connect(ctx context.Context) error {
	client, err := flight.NewClientWithMiddleware(
		c.addr,
		nil,
		nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return fmt.Errorf("creating Flight client for %s: %w", c.addr, err)
	}
	c.client = client
	return nil
}

// Close disconnects from the Flight server.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Put uploads one record under the given dataset path.
func (c *Client) Put(ctx context.Context, dataset string, rec arrow.Record) error {
	if c.client == nil {
		return fmt.Errorf("client not connected, call Connect() first")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream, err := c.client.DoPut(ctx)
	if err != nil {
		return fmt.Errorf("opening DoPut stream: %w", err)
	}

	wr := flight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()))
	wr.SetFlightDescriptor(&flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{dataset},
	})

	if err := wr.Write(rec); err != nil {
		wr.Close()
		return fmt.Errorf("writing record: %w", err)
	}
	if err := wr.Close(); err != nil {
		return fmt.Errorf("closing record writer: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("closing stream: %w", err)
	}

	logger.Log.Info("pushed record to flight endpoint", "addr", c.addr, "dataset", dataset, "rows", rec.NumRows())
	return nil
}

package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ChronoCoders/emotional-chain-sub007/batcher"
	"github.com/ChronoCoders/emotional-chain-sub007/metrics"
	"github.com/ChronoCoders/emotional-chain-sub007/protocol"
)

// ChannelSink delivers emitted batches to an in-process channel. Delivery
// blocks until a consumer receives or the context is cancelled.
type ChannelSink struct {
	Ch chan *protocol.Signed[protocol.BatchProof]
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{Ch: make(chan *protocol.Signed[protocol.BatchProof], buffer)}
}

// PublishBatch sends the batch to the channel.
func (s *ChannelSink) PublishBatch(ctx context.Context, batch *protocol.Signed[protocol.BatchProof]) error {
	select {
	case s.Ch <- batch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HTTPSink POSTs emitted batches to a downstream endpoint.
type HTTPSink struct {
	Endpoint   string
	HTTPClient *http.Client
}

// PublishBatch posts the signed batch as JSON.
func (s *HTTPSink) PublishBatch(ctx context.Context, batch *protocol.Signed[protocol.BatchProof]) error {
	body, err := protocol.SerializeMessage(batch)
	if err != nil {
		return fmt.Errorf("serialize batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("downstream returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// LogSink records emitted batches to the structured log. Useful as a
// default when no downstream channel is configured.
type LogSink struct {
	Log *slog.Logger
}

// PublishBatch logs the batch's public aggregates.
func (s *LogSink) PublishBatch(_ context.Context, batch *protocol.Signed[protocol.BatchProof]) error {
	b := batch.UnsafeObject()
	s.Log.Info("batch published",
		"batchId", b.BatchID,
		"validatorCount", b.ValidatorCount,
		"thresholdsPassed", b.ThresholdsPassed,
		"merkleRoot", b.AggregatedProof.MerkleRoot.String())
	return nil
}

// MeteredSink wraps another sink and counts emissions.
type MeteredSink struct {
	Next batcher.BatchSink
}

// PublishBatch increments the emission counter and forwards the batch.
func (s *MeteredSink) PublishBatch(ctx context.Context, batch *protocol.Signed[protocol.BatchProof]) error {
	metrics.BatchesEmitted.Inc()
	if s.Next == nil {
		return nil
	}
	return s.Next.PublishBatch(ctx, batch)
}

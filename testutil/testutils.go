package testutil

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ChronoCoders/emotional-chain-sub007/batcher"
	"github.com/ChronoCoders/emotional-chain-sub007/crypto"
	"github.com/ChronoCoders/emotional-chain-sub007/proof"
	"github.com/ChronoCoders/emotional-chain-sub007/protocol"
)

// =====================================
// Configuration Generators
// =====================================

// TestConfigOption is a function that modifies a BatchConfig.
type TestConfigOption func(*protocol.BatchConfig)

// WithBatchSize sets the exact batch member count.
func WithBatchSize(size int) TestConfigOption {
	return func(cfg *protocol.BatchConfig) {
		cfg.BatchSize = size
	}
}

// WithMaxWait sets the forced-flush age limit.
func WithMaxWait(d time.Duration) TestConfigOption {
	return func(cfg *protocol.BatchConfig) {
		cfg.MaxWait = d
	}
}

// WithMaxJitter sets the release jitter bound.
func WithMaxJitter(d time.Duration) TestConfigOption {
	return func(cfg *protocol.BatchConfig) {
		cfg.MaxJitter = d
	}
}

// WithDummyPassRate sets the synthetic pass probability.
func WithDummyPassRate(rate float64) TestConfigOption {
	return func(cfg *protocol.BatchConfig) {
		cfg.DummyPassRate = rate
	}
}

// WithReplayWindow sets the verifier's maximum accepted batch age.
func WithReplayWindow(d time.Duration) TestConfigOption {
	return func(cfg *protocol.BatchConfig) {
		cfg.ReplayWindow = d
	}
}

// GenerateTestConfig creates a BatchConfig with defaults and applies options.
func GenerateTestConfig(options ...TestConfigOption) *protocol.BatchConfig {
	cfg := protocol.DefaultBatchConfig()
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// =====================================
// Key and Proof Generators
// =====================================

// GenerateTestKeyPair creates an Ed25519 key pair, failing the test on error.
func GenerateTestKeyPair(t *testing.T) (crypto.PublicKey, crypto.PrivateKey) {
	t.Helper()
	pubKey, privKey, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	return pubKey, privKey
}

// GenerateTestProof produces a threshold proof through the real hash
// backend for a passing score.
func GenerateTestProof(t *testing.T, submitterID string, score, threshold int64) *protocol.ThresholdProof {
	t.Helper()
	producer := proof.NewProducer(proof.NewHashBackend(), nil, nil, DiscardLogger())
	tp, err := producer.Produce(submitterID, score, threshold)
	if err != nil {
		t.Fatalf("produce proof: %v", err)
	}
	return tp
}

// GenerateTestSignedProof creates a key pair and a signed proof whose
// submitter id matches the signer.
func GenerateTestSignedProof(t *testing.T, score, threshold int64) (*protocol.Signed[protocol.ThresholdProof], crypto.PrivateKey) {
	t.Helper()
	pubKey, privKey := GenerateTestKeyPair(t)
	tp := GenerateTestProof(t, pubKey.String(), score, threshold)
	signed, err := protocol.NewSigned(privKey, tp)
	if err != nil {
		t.Fatalf("sign proof: %v", err)
	}
	return signed, privKey
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =====================================
// Coordinator Harness
// =====================================

// CaptureSink is a BatchSink that delivers emitted batches to a channel.
type CaptureSink struct {
	Ch chan *protocol.Signed[protocol.BatchProof]
}

// NewCaptureSink creates a capture sink with the given buffer.
func NewCaptureSink(buffer int) *CaptureSink {
	return &CaptureSink{Ch: make(chan *protocol.Signed[protocol.BatchProof], buffer)}
}

// PublishBatch delivers the batch or fails when ctx is done.
func (s *CaptureSink) PublishBatch(ctx context.Context, batch *protocol.Signed[protocol.BatchProof]) error {
	select {
	case s.Ch <- batch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TestCoordinator bundles a coordinator with its injected fake clock,
// seeded randomness and capture sink.
type TestCoordinator struct {
	Coordinator *batcher.Coordinator
	Clock       *clockwork.FakeClock
	Rand        *rand.Rand
	Sink        *CaptureSink
}

// NewTestCoordinator builds a deterministic coordinator: fake clock,
// fixed rng seed and a buffered channel sink capturing emitted batches.
func NewTestCoordinator(t *testing.T, cfg *protocol.BatchConfig) *TestCoordinator {
	t.Helper()

	clock := clockwork.NewFakeClock()
	rng := rand.New(rand.NewSource(1))
	sink := NewCaptureSink(16)

	coordinator, err := batcher.NewCoordinator(cfg, batcher.Deps{
		Clock: clock,
		Rand:  rng,
		Log:   DiscardLogger(),
		Sink:  sink,
	})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	t.Cleanup(coordinator.Stop)

	return &TestCoordinator{
		Coordinator: coordinator,
		Clock:       clock,
		Rand:        rng,
		Sink:        sink,
	}
}

// WaitForBatch receives one emitted batch from the capture sink, failing
// the test after the timeout. The timeout is real wall time because sink
// delivery happens on a goroutine the fake clock does not gate.
func (tc *TestCoordinator) WaitForBatch(t *testing.T, timeout time.Duration) *protocol.Signed[protocol.BatchProof] {
	t.Helper()
	select {
	case batch := <-tc.Sink.Ch:
		return batch
	case <-time.After(timeout):
		t.Fatalf("no batch emitted within %s", timeout)
		return nil
	}
}

// ExpectNoBatch asserts that no batch arrives on the capture sink within
// the wait period.
func (tc *TestCoordinator) ExpectNoBatch(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case batch := <-tc.Sink.Ch:
		t.Fatalf("unexpected batch emitted: %s", batch.UnsafeObject().BatchID)
	case <-time.After(wait):
	}
}

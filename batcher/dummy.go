package batcher

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/ChronoCoders/emotional-chain-sub007/crypto"
	"github.com/ChronoCoders/emotional-chain-sub007/proof"
	"github.com/ChronoCoders/emotional-chain-sub007/protocol"
)

// Dummy transaction payload size bounds.
const (
	dummyTxMinPayload = 64
	dummyTxMaxPayload = 1024
)

// DummyGenerator produces filler entries that are structurally
// indistinguishable from real ones: synthetic threshold proofs used to pad
// under-filled batches, and dummy network transactions emitted at random
// intervals independent of the batch cycle.
type DummyGenerator struct {
	cfg    *protocol.BatchConfig
	clock  clockwork.Clock
	nonces crypto.NonceSource
	log    *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewDummyGenerator creates a generator. Nil clock, nonce source and
// logger default to real implementations; rng must be non-nil only when a
// deterministic outcome distribution is required.
func NewDummyGenerator(cfg *protocol.BatchConfig, clock clockwork.Clock, rng *rand.Rand, nonces crypto.NonceSource, log *slog.Logger) *DummyGenerator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if nonces == nil {
		nonces = crypto.SystemNonceSource()
	}
	if log == nil {
		log = slog.Default()
	}
	return &DummyGenerator{
		cfg:    cfg,
		clock:  clock,
		nonces: nonces,
		log:    log,
		rng:    rng,
	}
}

// GenerateDummyProof builds a ThresholdProof-shaped filler value: a
// synthetic submitter identity, a commitment over random bytes, an
// artifact matching the real artifact's byte-size distribution, and a pass
// boolean drawn from the configured biased distribution.
//
// The returned proof carries the internal synthetic marker; callers strip
// it at the generator's trust boundary.
func (g *DummyGenerator) GenerateDummyProof() (*protocol.ThresholdProof, error) {
	submitter, err := g.nonces.Nonce(32)
	if err != nil {
		return nil, fmt.Errorf("synthetic submitter: %w", err)
	}

	commitSeed, err := g.nonces.Nonce(crypto.NonceSize + 8)
	if err != nil {
		return nil, fmt.Errorf("synthetic commitment: %w", err)
	}

	artifact, err := proof.RandomArtifact(g.nonces)
	if err != nil {
		return nil, err
	}

	g.rngMu.Lock()
	passes := g.rng.Float64() < g.cfg.DummyPassRate
	g.rngMu.Unlock()

	dummy := &protocol.ThresholdProof{
		SubmitterID:         hex.EncodeToString(submitter),
		Timestamp:           g.clock.Now(),
		ProofArtifact:       artifact,
		Commitment:          crypto.Hash(commitSeed),
		ScoreAboveThreshold: passes,
		IsValid:             true,
	}
	dummy.MarkSynthetic()
	return dummy, nil
}

// StartGenerating emits dummy transactions at memoryless random intervals
// within the configured bounds, independent of the batch cycle. It returns
// a stop function that cancels the emitter; the emitter also stops when
// ctx is done. Stop is idempotent and waits for the emitter goroutine.
func (g *DummyGenerator) StartGenerating(ctx context.Context, onGenerate func(*protocol.DummyTransaction)) (stop func()) {
	runCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			delay := g.nextInterval()
			select {
			case <-runCtx.Done():
				return
			case <-g.clock.After(delay):
			}

			tx, err := g.generateDummyTransaction()
			if err != nil {
				g.log.Error("dummy transaction generation failed", "err", err)
				continue
			}
			onGenerate(tx)
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

func (g *DummyGenerator) nextInterval() time.Duration {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()

	span := g.cfg.DummyTxMaxInterval - g.cfg.DummyTxMinInterval
	if span <= 0 {
		return g.cfg.DummyTxMinInterval
	}
	return g.cfg.DummyTxMinInterval + time.Duration(g.rng.Int63n(int64(span)))
}

// generateDummyTransaction builds filler network traffic of randomized size.
func (g *DummyGenerator) generateDummyTransaction() (*protocol.DummyTransaction, error) {
	g.rngMu.Lock()
	size := dummyTxMinPayload + g.rng.Intn(dummyTxMaxPayload-dummyTxMinPayload)
	g.rngMu.Unlock()

	payload, err := g.nonces.Nonce(size)
	if err != nil {
		return nil, fmt.Errorf("dummy payload: %w", err)
	}

	return &protocol.DummyTransaction{
		ID:        uuid.New().String(),
		Timestamp: g.clock.Now(),
		Payload:   payload,
	}, nil
}

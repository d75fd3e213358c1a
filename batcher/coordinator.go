package batcher

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/ChronoCoders/emotional-chain-sub007/crypto"
	"github.com/ChronoCoders/emotional-chain-sub007/protocol"
)

// BatchState tracks a batch instance through its lifecycle.
type BatchState int

const (
	// Collecting accepts queued proofs until the batch threshold.
	Collecting BatchState = iota
	// Ready has selected its members and awaits release scheduling.
	Ready
	// Releasing waits out the jitter delay before emission.
	Releasing
	// Closed is emitted or discarded; terminal.
	Closed
)

func (s BatchState) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Ready:
		return "ready"
	case Releasing:
		return "releasing"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// BatchSink receives emitted batches for downstream publication
// (consensus, log). The sink is an external collaborator; the coordinator
// only guarantees that whatever crosses this boundary is a complete,
// signed, fixed-size batch.
type BatchSink interface {
	PublishBatch(ctx context.Context, batch *protocol.Signed[protocol.BatchProof]) error
}

// recentBatchCap bounds the in-memory window of emitted batches kept for
// the query API. Batches are never persisted individually.
const recentBatchCap = 32

// Deps are the coordinator's injected collaborators. Nil fields default
// to production implementations (real clock, seeded randomness, discard
// sink behavior, slog.Default).
type Deps struct {
	Clock      clockwork.Clock
	Rand       *rand.Rand
	Log        *slog.Logger
	Sink       BatchSink
	Dummies    *DummyGenerator
	SigningKey crypto.PrivateKey
}

// Coordinator queues threshold proofs and releases them in fixed-size,
// shuffled, jitter-delayed batches. A single Coordinator instance owns one
// proof queue; it is long-lived and may have one batch releasing while the
// next is already collecting.
type Coordinator struct {
	cfg        *protocol.BatchConfig
	log        *slog.Logger
	clock      clockwork.Clock
	sink       BatchSink
	dummies    *DummyGenerator
	verifier   *protocol.Verifier
	signingKey crypto.PrivateKey

	rngMu sync.Mutex
	rng   *rand.Rand

	mu           sync.Mutex
	queue        map[string]*protocol.ThresholdProof
	order        []string
	inFlight     int
	lastEmission time.Time
	recent       []*protocol.BatchProof
	stopped      bool

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCoordinator creates a coordinator for the given configuration.
func NewCoordinator(cfg *protocol.BatchConfig, deps Deps) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("batch config: %w", err)
	}

	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Dummies == nil {
		// The generator gets its own rng; sharing one across goroutines
		// behind two different mutexes would race.
		dummyRng := rand.New(rand.NewSource(deps.Rand.Int63()))
		deps.Dummies = NewDummyGenerator(cfg, deps.Clock, dummyRng, nil, deps.Log)
	}
	if deps.SigningKey == nil {
		_, key, err := crypto.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("generate coordinator key: %w", err)
		}
		deps.SigningKey = key
	}

	runCtx, cancel := context.WithCancel(context.Background())

	return &Coordinator{
		cfg:          cfg,
		log:          deps.Log,
		clock:        deps.Clock,
		sink:         deps.Sink,
		dummies:      deps.Dummies,
		verifier:     protocol.NewVerifier(cfg.ReplayWindow, deps.Clock, deps.Log),
		signingKey:   deps.SigningKey,
		rng:          deps.Rand,
		queue:        make(map[string]*protocol.ThresholdProof),
		lastEmission: deps.Clock.Now(),
		runCtx:       runCtx,
		cancel:       cancel,
	}, nil
}

// PublicKey returns the key emitted batches are signed with.
func (c *Coordinator) PublicKey() (crypto.PublicKey, error) {
	return c.signingKey.PublicKey()
}

// Start launches the periodic forced-flush check. It returns immediately;
// Stop cancels the check along with any pending releases.
func (c *Coordinator) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := c.clock.NewTicker(c.cfg.FlushCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-c.runCtx.Done():
				return
			case <-ticker.Chan():
				c.checkForcedFlush()
			}
		}
	}()
}

// Stop cancels the forced-flush check and all pending release timers, then
// waits for every background task to finish. A batch whose jitter delay
// has not elapsed is discarded without emission. Stop is idempotent.
func (c *Coordinator) Stop() {
	// Mark stopped before waiting so no new release can slip in between
	// the wait returning and the flag being set.
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// QueueProof inserts or replaces the submitter's pending proof. Re-queuing
// is idempotent: a submitter has at most one proof queued at a time, and a
// replacement keeps the original arrival position. When the queue reaches
// the batch size, the members are selected immediately (blocking new
// entries from joining this batch) and released after a jitter delay.
func (c *Coordinator) QueueProof(p *protocol.ThresholdProof) error {
	if p == nil || p.SubmitterID == "" {
		return fmt.Errorf("proof must have a submitter id")
	}
	if !p.IsValid {
		return fmt.Errorf("refusing to queue proof marked invalid (submitter %s)", p.SubmitterID)
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return protocol.ErrCoordinatorStopped
	}

	if _, exists := c.queue[p.SubmitterID]; !exists {
		c.order = append(c.order, p.SubmitterID)
	}
	c.queue[p.SubmitterID] = p

	var members []*protocol.ThresholdProof
	if len(c.queue) >= c.cfg.BatchSize {
		members = c.selectMembersLocked(c.cfg.BatchSize)
	}
	depth := len(c.queue)
	c.mu.Unlock()

	c.log.Debug("proof queued", "submitterId", p.SubmitterID, "queueDepth", depth)

	if members != nil {
		c.scheduleRelease(members, false)
	}
	return nil
}

// QueueLength returns the number of pending proofs.
func (c *Coordinator) QueueLength() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// State reports the collecting batch's state: Ready at the batch
// threshold, Releasing while an emission awaits its jitter delay, Closed
// after Stop, otherwise Collecting.
func (c *Coordinator) State() BatchState {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.stopped:
		return Closed
	case len(c.queue) >= c.cfg.BatchSize:
		return Ready
	case c.inFlight > 0:
		return Releasing
	default:
		return Collecting
	}
}

// CreateBatchProof drains the queued proofs, pads them with synthetic
// members to exactly BatchSize and builds the batch immediately, without
// jitter. It fails with ErrEmptyQueue when no proofs are queued. The
// jittered release path is used by the automatic threshold and
// forced-flush triggers; this synchronous form serves tests and
// operational tooling. Every batch that reaches the sink has exactly
// BatchSize members regardless of which path emitted it.
func (c *Coordinator) CreateBatchProof() (*protocol.BatchProof, error) {
	members, err := c.selectPadded()
	if err != nil {
		return nil, err
	}
	return c.buildAndEmit(c.runCtx, members, false)
}

// ForceCreateBatch pads the queue with dummy proofs up to BatchSize and
// builds the batch immediately. It guarantees constant batch size
// regardless of real traffic volume and fails with ErrEmptyQueue when
// nothing real is queued.
func (c *Coordinator) ForceCreateBatch() (*protocol.BatchProof, error) {
	members, err := c.selectPadded()
	if err != nil {
		return nil, err
	}
	return c.buildAndEmit(c.runCtx, members, true)
}

// VerifyBatchProof checks structural integrity and freshness of a batch.
// It never raises; failures return false with a logged reason.
func (c *Coordinator) VerifyBatchProof(batch *protocol.BatchProof) bool {
	return c.verifier.VerifyBatchProof(batch)
}

// RecentBatches returns the emitted batches still in the in-memory window,
// newest last.
func (c *Coordinator) RecentBatches() []*protocol.BatchProof {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*protocol.BatchProof, len(c.recent))
	copy(out, c.recent)
	return out
}

// GetBatch returns an emitted batch by id, or nil if outside the window.
func (c *Coordinator) GetBatch(batchID string) *protocol.BatchProof {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, b := range c.recent {
		if b.BatchID == batchID {
			return b
		}
	}
	return nil
}

// checkForcedFlush pads and releases an under-filled queue once the time
// since the last emitted batch exceeds MaxWait.
func (c *Coordinator) checkForcedFlush() {
	c.mu.Lock()
	overdue := len(c.queue) > 0 &&
		len(c.queue) < c.cfg.BatchSize &&
		c.clock.Since(c.lastEmission) > c.cfg.MaxWait
	c.mu.Unlock()

	if !overdue {
		return
	}

	members, err := c.selectPadded()
	if err != nil {
		c.log.Error("forced flush failed", "err", err)
		return
	}
	c.scheduleRelease(members, true)
}

// selectPadded drains the queue and pads with dummy proofs to BatchSize.
func (c *Coordinator) selectPadded() ([]*protocol.ThresholdProof, error) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil, protocol.ErrCoordinatorStopped
	}
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return nil, protocol.ErrEmptyQueue
	}
	members := c.selectMembersLocked(c.cfg.BatchSize)
	c.mu.Unlock()

	padded := 0
	for len(members) < c.cfg.BatchSize {
		dummy, err := c.dummies.GenerateDummyProof()
		if err != nil {
			return nil, fmt.Errorf("pad batch: %w", err)
		}
		members = append(members, dummy)
		padded++
	}
	if padded > 0 {
		c.log.Info("queue padded with synthetic proofs", "real", len(members)-padded, "synthetic", padded)
	}
	return members, nil
}

// selectMembersLocked removes up to n proofs from the queue in arrival
// order. Callers hold c.mu.
func (c *Coordinator) selectMembersLocked(n int) []*protocol.ThresholdProof {
	if n > len(c.order) {
		n = len(c.order)
	}

	members := make([]*protocol.ThresholdProof, 0, n)
	for _, id := range c.order[:n] {
		members = append(members, c.queue[id])
		delete(c.queue, id)
	}
	c.order = append([]string{}, c.order[n:]...)
	return members
}

// scheduleRelease runs the jitter delay as a detached, cancellable task so
// ingestion for the next batch continues while this one waits.
func (c *Coordinator) scheduleRelease(members []*protocol.ThresholdProof, forced bool) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		c.log.Warn("release dropped, coordinator stopped", "members", len(members))
		return
	}
	c.inFlight++
	c.mu.Unlock()

	delay := c.releaseJitter()
	c.log.Debug("batch release scheduled", "members", len(members), "jitter", delay, "forced", forced)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			c.inFlight--
			c.mu.Unlock()
		}()

		select {
		case <-c.runCtx.Done():
			c.log.Info("batch release cancelled before emission", "members", len(members))
			return
		case <-c.clock.After(delay):
		}

		// With zero jitter both select channels can be ready at once and
		// the timer branch may win against an already-cancelled context.
		if c.runCtx.Err() != nil {
			c.log.Info("batch release cancelled before emission", "members", len(members))
			return
		}

		if _, err := c.buildAndEmit(c.runCtx, members, forced); err != nil {
			c.log.Error("batch emission failed", "err", err)
		}
	}()
}

// releaseJitter draws a uniform random delay in [0, MaxJitter) to
// decorrelate batch completion time from any individual submission time.
func (c *Coordinator) releaseJitter() time.Duration {
	if c.cfg.MaxJitter <= 0 {
		return 0
	}
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return time.Duration(c.rng.Int63n(int64(c.cfg.MaxJitter)))
}

// buildAndEmit shuffles the members, aggregates them and publishes the
// resulting batch. The emitted BatchProof exposes only ValidatorCount and
// ThresholdsPassed as plaintext aggregates.
func (c *Coordinator) buildAndEmit(ctx context.Context, members []*protocol.ThresholdProof, forced bool) (*protocol.BatchProof, error) {
	c.shuffle(members)

	synthetic := 0
	passed := 0
	commitments := make([]crypto.Digest, 0, len(members))
	for _, m := range members {
		if m.Synthetic() {
			synthetic++
			m.StripSynthetic()
		}
		if m.ScoreAboveThreshold {
			passed++
		}
		commitments = append(commitments, m.Commitment)
	}

	aggregated, err := protocol.AggregateProofs(members)
	if err != nil {
		return nil, fmt.Errorf("aggregate batch: %w", err)
	}

	batch := &protocol.BatchProof{
		BatchID:          uuid.New().String(),
		Commitments:      commitments,
		AggregatedProof:  aggregated,
		Timestamp:        c.clock.Now(),
		ValidatorCount:   len(members),
		ThresholdsPassed: passed,
		IsValid:          true,
	}

	c.mu.Lock()
	c.lastEmission = batch.Timestamp
	c.recent = append(c.recent, batch)
	if len(c.recent) > recentBatchCap {
		c.recent = c.recent[len(c.recent)-recentBatchCap:]
	}
	c.mu.Unlock()

	c.log.Info("batch emitted",
		"batchId", batch.BatchID,
		"validatorCount", batch.ValidatorCount,
		"thresholdsPassed", batch.ThresholdsPassed,
		"synthetic", synthetic,
		"forced", forced)

	if c.sink != nil {
		signed, err := protocol.NewSigned(c.signingKey, batch)
		if err != nil {
			c.log.Error("batch signing failed", "batchId", batch.BatchID, "err", err)
			return batch, nil
		}
		if err := c.sink.PublishBatch(ctx, signed); err != nil {
			c.log.Error("batch publication failed", "batchId", batch.BatchID, "err", err)
		}
	}

	return batch, nil
}

// shuffle applies a uniform random permutation (Fisher-Yates) to remove
// positional correlation with arrival order.
func (c *Coordinator) shuffle(members []*protocol.ThresholdProof) {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()

	for i := len(members) - 1; i > 0; i-- {
		j := c.rng.Intn(i + 1)
		members[i], members[j] = members[j], members[i]
	}
}

package batcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/ChronoCoders/emotional-chain-sub007/crypto"
	"github.com/ChronoCoders/emotional-chain-sub007/protocol"
)

// chanSink captures emitted batches for assertions.
type chanSink struct {
	ch chan *protocol.Signed[protocol.BatchProof]
}

func newChanSink() *chanSink {
	return &chanSink{ch: make(chan *protocol.Signed[protocol.BatchProof], 16)}
}

func (s *chanSink) PublishBatch(ctx context.Context, batch *protocol.Signed[protocol.BatchProof]) error {
	select {
	case s.ch <- batch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fixture struct {
	c     *Coordinator
	clock *clockwork.FakeClock
	sink  *chanSink
}

func newFixture(t *testing.T, cfg *protocol.BatchConfig) *fixture {
	t.Helper()

	clock := clockwork.NewFakeClock()
	sink := newChanSink()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := NewCoordinator(cfg, Deps{
		Clock: clock,
		Rand:  rand.New(rand.NewSource(1)),
		Log:   log,
		Sink:  sink,
	})
	require.NoError(t, err)
	t.Cleanup(c.Stop)

	return &fixture{c: c, clock: clock, sink: sink}
}

func (f *fixture) waitForBatch(t *testing.T) *protocol.BatchProof {
	t.Helper()
	select {
	case signed := <-f.sink.ch:
		return signed.UnsafeObject()
	case <-time.After(5 * time.Second):
		t.Fatal("no batch emitted")
		return nil
	}
}

func (f *fixture) expectNoBatch(t *testing.T) {
	t.Helper()
	select {
	case signed := <-f.sink.ch:
		t.Fatalf("unexpected batch emitted: %s", signed.UnsafeObject().BatchID)
	case <-time.After(100 * time.Millisecond):
	}
}

// realProof fabricates a valid-shaped real proof without running a backend.
func realProof(submitter string, passes bool) *protocol.ThresholdProof {
	return &protocol.ThresholdProof{
		SubmitterID:         submitter,
		Timestamp:           time.Unix(1700000000, 0).UTC(),
		ProofArtifact:       []byte("artifact for " + submitter),
		Commitment:          crypto.Hash([]byte("commitment for " + submitter)),
		ScoreAboveThreshold: passes,
		IsValid:             true,
	}
}

func TestFullBatchCountsPasses(t *testing.T) {
	// Ten real submissions, seven passing, released synchronously.
	f := newFixture(t, protocol.DefaultBatchConfig())

	for i := 0; i < 10; i++ {
		p := realProof(fmt.Sprintf("validator-%d", i), i < 7)
		require.NoError(t, f.c.QueueProof(p))
		if i < 9 {
			require.Equal(t, i+1, f.c.QueueLength())
		}
	}

	// The tenth submission triggered an automatic jittered release; the
	// members were already drained from the queue.
	require.Equal(t, 0, f.c.QueueLength())

	f.clock.BlockUntil(1)
	f.clock.Advance(protocol.DefaultBatchConfig().MaxJitter)

	batch := f.waitForBatch(t)
	require.Equal(t, 10, batch.ValidatorCount)
	require.Equal(t, 7, batch.ThresholdsPassed)
	require.Len(t, batch.Commitments, 10)
	require.Equal(t, 10, batch.AggregatedProof.MemberCount)
	require.Equal(t, protocol.MerkleSHA3Scheme, batch.AggregatedProof.Scheme)
	require.True(t, batch.IsValid)
	require.True(t, f.c.VerifyBatchProof(batch))
}

func TestForcedFlushPadsWithDummies(t *testing.T) {
	// Four real submissions padded to the full batch size.
	f := newFixture(t, protocol.DefaultBatchConfig())

	realCommitments := make(map[crypto.Digest]bool)
	for i := 0; i < 4; i++ {
		p := realProof(fmt.Sprintf("validator-%d", i), true)
		realCommitments[p.Commitment] = true
		require.NoError(t, f.c.QueueProof(p))
	}

	batch, err := f.c.ForceCreateBatch()
	require.NoError(t, err)

	require.Equal(t, 10, batch.ValidatorCount)
	require.Len(t, batch.Commitments, 10)
	require.Equal(t, 0, f.c.QueueLength())

	// Exactly the four real commitments appear; the rest is synthetic.
	found := 0
	for _, commitment := range batch.Commitments {
		if realCommitments[commitment] {
			found++
		}
	}
	require.Equal(t, 4, found)

	// All four real proofs pass; the six synthetic members contribute
	// between zero and six more passes.
	require.GreaterOrEqual(t, batch.ThresholdsPassed, 4)
	require.LessOrEqual(t, batch.ThresholdsPassed, 10)

	require.True(t, f.c.VerifyBatchProof(batch))
}

func TestForcedFlushTimerPath(t *testing.T) {
	cfg := protocol.DefaultBatchConfig()
	cfg.MaxJitter = 0
	f := newFixture(t, cfg)

	f.c.Start()
	f.clock.BlockUntil(1) // flush ticker armed

	require.NoError(t, f.c.QueueProof(realProof("validator-0", true)))
	require.NoError(t, f.c.QueueProof(realProof("validator-1", false)))

	// Walk the clock past MaxWait one check interval at a time. Once the
	// queue is overdue a tick triggers the padded release; with zero
	// jitter the batch follows on the same or the next tick.
	ticks := int(cfg.MaxWait/cfg.FlushCheckInterval) + 3
	var batch *protocol.BatchProof
	for i := 0; i < ticks && batch == nil; i++ {
		f.clock.Advance(cfg.FlushCheckInterval)
		select {
		case signed := <-f.sink.ch:
			batch = signed.UnsafeObject()
		case <-time.After(50 * time.Millisecond):
		}
	}

	require.NotNil(t, batch, "forced flush never emitted a batch")
	require.Equal(t, 10, batch.ValidatorCount)
	require.Equal(t, 0, f.c.QueueLength())
}

func TestStopDuringJitterEmitsNothing(t *testing.T) {
	f := newFixture(t, protocol.DefaultBatchConfig())

	for i := 0; i < 10; i++ {
		require.NoError(t, f.c.QueueProof(realProof(fmt.Sprintf("validator-%d", i), true)))
	}

	// The release goroutine is waiting out its jitter delay.
	f.clock.BlockUntil(1)

	// Stop cancels the pending release and waits for the goroutine, so
	// nothing is emitted afterward even if the clock moves on.
	f.c.Stop()
	f.clock.Advance(protocol.DefaultBatchConfig().MaxJitter)

	f.expectNoBatch(t)
	require.Empty(t, f.c.RecentBatches())
	require.Equal(t, Closed, f.c.State())
}

func TestQueueProofIdempotentReplace(t *testing.T) {
	f := newFixture(t, protocol.DefaultBatchConfig())

	first := realProof("validator-0", false)
	require.NoError(t, f.c.QueueProof(first))
	require.Equal(t, 1, f.c.QueueLength())

	replacement := realProof("validator-0", true)
	replacement.Commitment = crypto.Hash([]byte("replacement commitment"))
	require.NoError(t, f.c.QueueProof(replacement))
	require.Equal(t, 1, f.c.QueueLength())

	batch, err := f.c.CreateBatchProof()
	require.NoError(t, err)
	require.Equal(t, 10, batch.ValidatorCount)
	require.Contains(t, batch.Commitments, replacement.Commitment)
	require.NotContains(t, batch.Commitments, first.Commitment)
}

func TestCreateBatchProofPadsToBatchSize(t *testing.T) {
	// An undersized queue must never reach the sink undersized: the
	// synchronous path pads with synthetic members like the forced flush.
	f := newFixture(t, protocol.DefaultBatchConfig())

	require.NoError(t, f.c.QueueProof(realProof("validator-0", true)))

	batch, err := f.c.CreateBatchProof()
	require.NoError(t, err)
	require.Equal(t, 10, batch.ValidatorCount)
	require.Len(t, batch.Commitments, 10)
	require.Equal(t, 10, batch.AggregatedProof.MemberCount)
	require.True(t, f.c.VerifyBatchProof(batch))

	// The sink sees the same fixed-size batch.
	emitted := f.waitForBatch(t)
	require.Equal(t, batch.BatchID, emitted.BatchID)
	require.Equal(t, 10, emitted.ValidatorCount)
}

func TestArrivalOrderDoesNotAffectAggregates(t *testing.T) {
	// The same multiset of proofs must yield the same public aggregates
	// whatever order submitters arrived in.
	proofs := make([]*protocol.ThresholdProof, 9)
	for i := range proofs {
		proofs[i] = realProof(fmt.Sprintf("validator-%d", i), i < 6)
	}

	emit := func(order []int) *protocol.BatchProof {
		f := newFixture(t, protocol.DefaultBatchConfig())
		for _, idx := range order {
			require.NoError(t, f.c.QueueProof(proofs[idx]))
		}
		batch, err := f.c.CreateBatchProof()
		require.NoError(t, err)
		return batch
	}

	forward := emit([]int{0, 1, 2, 3, 4, 5, 6, 7, 8})
	reversed := emit([]int{8, 7, 6, 5, 4, 3, 2, 1, 0})

	require.Equal(t, forward.ValidatorCount, reversed.ValidatorCount)
	require.Equal(t, forward.ThresholdsPassed, reversed.ThresholdsPassed)

	// Same members, so the commitment multisets match.
	sortDigests := func(in []crypto.Digest) []string {
		out := make([]string, len(in))
		for i, d := range in {
			out[i] = d.String()
		}
		sort.Strings(out)
		return out
	}
	require.Equal(t, sortDigests(forward.Commitments), sortDigests(reversed.Commitments))
}

func TestCreateBatchProofEmptyQueue(t *testing.T) {
	f := newFixture(t, protocol.DefaultBatchConfig())

	_, err := f.c.CreateBatchProof()
	require.ErrorIs(t, err, protocol.ErrEmptyQueue)

	_, err = f.c.ForceCreateBatch()
	require.ErrorIs(t, err, protocol.ErrEmptyQueue)
}

func TestReleaseAfterCancelEmitsNothing(t *testing.T) {
	// With zero jitter the release timer is ready the moment it is armed,
	// so the waiting goroutine can win the select against the cancelled
	// context. The post-timer cancellation check must still drop the batch.
	cfg := protocol.DefaultBatchConfig()
	cfg.MaxJitter = 0
	f := newFixture(t, cfg)

	members := []*protocol.ThresholdProof{realProof("validator-0", true)}

	f.c.cancel()
	f.c.scheduleRelease(members, false)
	f.c.wg.Wait()

	f.expectNoBatch(t)
	require.Empty(t, f.c.RecentBatches())
}

func TestReleaseAfterStopIsDropped(t *testing.T) {
	cfg := protocol.DefaultBatchConfig()
	cfg.MaxJitter = 0
	f := newFixture(t, cfg)
	f.c.Stop()

	// Stop marks the coordinator stopped before waiting, so a late
	// release attempt is rejected up front and never arms a timer.
	f.c.scheduleRelease([]*protocol.ThresholdProof{realProof("validator-0", true)}, false)

	f.expectNoBatch(t)
	require.Empty(t, f.c.RecentBatches())
}

func TestQueueProofValidation(t *testing.T) {
	f := newFixture(t, protocol.DefaultBatchConfig())

	require.Error(t, f.c.QueueProof(nil))
	require.Error(t, f.c.QueueProof(&protocol.ThresholdProof{IsValid: true}))

	invalid := realProof("validator-0", true)
	invalid.IsValid = false
	require.Error(t, f.c.QueueProof(invalid))
}

func TestStoppedCoordinatorRejectsWork(t *testing.T) {
	f := newFixture(t, protocol.DefaultBatchConfig())
	f.c.Stop()

	require.ErrorIs(t, f.c.QueueProof(realProof("validator-0", true)), protocol.ErrCoordinatorStopped)

	_, err := f.c.CreateBatchProof()
	require.ErrorIs(t, err, protocol.ErrCoordinatorStopped)

	_, err = f.c.ForceCreateBatch()
	require.ErrorIs(t, err, protocol.ErrCoordinatorStopped)
}

func TestBatchExposesNoMemberData(t *testing.T) {
	// The published batch must not leak submitter identities, scores or
	// the synthetic flag of padded members.
	f := newFixture(t, protocol.DefaultBatchConfig())

	for i := 0; i < 4; i++ {
		require.NoError(t, f.c.QueueProof(realProof(fmt.Sprintf("validator-%d", i), true)))
	}

	batch, err := f.c.ForceCreateBatch()
	require.NoError(t, err)

	encoded, err := json.Marshal(batch)
	require.NoError(t, err)
	payload := string(encoded)

	require.NotContains(t, payload, "validator-")
	require.NotContains(t, payload, "score")
	require.NotContains(t, payload, "synthetic")
	require.NotContains(t, payload, "submitter")
}

func TestStateTransitions(t *testing.T) {
	f := newFixture(t, protocol.DefaultBatchConfig())
	require.Equal(t, Collecting, f.c.State())

	for i := 0; i < 9; i++ {
		require.NoError(t, f.c.QueueProof(realProof(fmt.Sprintf("validator-%d", i), true)))
	}
	require.Equal(t, Collecting, f.c.State())

	// The tenth proof moves the batch through Ready into Releasing.
	require.NoError(t, f.c.QueueProof(realProof("validator-9", true)))
	require.Equal(t, Releasing, f.c.State())

	f.clock.BlockUntil(1)
	f.clock.Advance(protocol.DefaultBatchConfig().MaxJitter)
	f.waitForBatch(t)

	f.c.Stop()
	require.Equal(t, Closed, f.c.State())
}

func TestRecentBatchLookup(t *testing.T) {
	f := newFixture(t, protocol.DefaultBatchConfig())

	require.NoError(t, f.c.QueueProof(realProof("validator-0", true)))
	batch, err := f.c.CreateBatchProof()
	require.NoError(t, err)

	require.Len(t, f.c.RecentBatches(), 1)
	require.Equal(t, batch.BatchID, f.c.GetBatch(batch.BatchID).BatchID)
	require.Nil(t, f.c.GetBatch("no-such-batch"))
}

func TestEmittedBatchIsSigned(t *testing.T) {
	f := newFixture(t, protocol.DefaultBatchConfig())

	require.NoError(t, f.c.QueueProof(realProof("validator-0", true)))
	_, err := f.c.CreateBatchProof()
	require.NoError(t, err)

	select {
	case signed := <-f.sink.ch:
		_, signer, err := signed.Recover()
		require.NoError(t, err)

		coordinatorKey, err := f.c.PublicKey()
		require.NoError(t, err)
		require.True(t, coordinatorKey.Equal(signer))
	case <-time.After(5 * time.Second):
		t.Fatal("no batch emitted")
	}
}

func TestIngestionContinuesDuringRelease(t *testing.T) {
	// A batch waiting out its jitter must not block the next batch from
	// collecting.
	f := newFixture(t, protocol.DefaultBatchConfig())

	for i := 0; i < 10; i++ {
		require.NoError(t, f.c.QueueProof(realProof(fmt.Sprintf("validator-%d", i), true)))
	}
	f.clock.BlockUntil(1)

	require.NoError(t, f.c.QueueProof(realProof("late-validator", true)))
	require.Equal(t, 1, f.c.QueueLength())

	f.clock.Advance(protocol.DefaultBatchConfig().MaxJitter)
	batch := f.waitForBatch(t)
	require.Equal(t, 10, batch.ValidatorCount)
	require.Equal(t, 1, f.c.QueueLength())
}

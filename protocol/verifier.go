package protocol

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Verifier checks structural integrity and freshness of released batches.
//
// Verification never raises: it is safe to run in contexts that must not be
// destabilized by malformed input. Any mismatch returns false with a logged
// reason. The verifier explicitly cannot and does not verify individual
// submitter correctness; that happens before a proof is queued.
type Verifier struct {
	replayWindow time.Duration
	clock        clockwork.Clock
	log          *slog.Logger
}

// NewVerifier creates a batch verifier. A nil clock defaults to the real
// clock; a nil logger defaults to slog.Default.
func NewVerifier(replayWindow time.Duration, clock clockwork.Clock, log *slog.Logger) *Verifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Verifier{
		replayWindow: replayWindow,
		clock:        clock,
		log:          log,
	}
}

// VerifyBatchProof checks a released batch:
//
//	(a) the batch is no older than the replay window,
//	(b) the commitment count equals ValidatorCount,
//	(c) the aggregated proof's self-declared member count equals ValidatorCount.
func (v *Verifier) VerifyBatchProof(batch *BatchProof) bool {
	if batch == nil {
		v.log.Warn("batch verification failed", "reason", "nil batch")
		return false
	}

	log := v.log.With("batchId", batch.BatchID)

	if !batch.IsValid {
		log.Warn("batch verification failed", "reason", "batch not marked valid")
		return false
	}

	age := v.clock.Since(batch.Timestamp)
	if age > v.replayWindow {
		log.Warn("batch verification failed",
			"reason", "batch older than replay window",
			"age", age, "replayWindow", v.replayWindow)
		return false
	}

	if len(batch.Commitments) != batch.ValidatorCount {
		log.Warn("batch verification failed",
			"reason", "commitment count does not match validator count",
			"commitments", len(batch.Commitments), "validatorCount", batch.ValidatorCount)
		return false
	}

	if batch.AggregatedProof.MemberCount != batch.ValidatorCount {
		log.Warn("batch verification failed",
			"reason", "aggregated member count does not match validator count",
			"memberCount", batch.AggregatedProof.MemberCount, "validatorCount", batch.ValidatorCount)
		return false
	}

	if batch.ThresholdsPassed > batch.ValidatorCount || batch.ThresholdsPassed < 0 {
		log.Warn("batch verification failed",
			"reason", "thresholds passed outside valid range",
			"thresholdsPassed", batch.ThresholdsPassed, "validatorCount", batch.ValidatorCount)
		return false
	}

	return true
}

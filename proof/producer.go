package proof

import (
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/ChronoCoders/emotional-chain-sub007/crypto"
	"github.com/ChronoCoders/emotional-chain-sub007/protocol"
)

// Producer creates threshold proofs from private scores.
//
// Failures are caller-retriable with a fresh nonce: the producer draws a
// new nonce on every attempt and never reuses one.
type Producer struct {
	backend Backend
	nonces  crypto.NonceSource
	clock   clockwork.Clock
	log     *slog.Logger
}

// NewProducer creates a producer on the given backend. Nil dependencies
// default to system randomness, the real clock and slog.Default.
func NewProducer(backend Backend, nonces crypto.NonceSource, clock clockwork.Clock, log *slog.Logger) *Producer {
	if nonces == nil {
		nonces = crypto.SystemNonceSource()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Producer{
		backend: backend,
		nonces:  nonces,
		clock:   clock,
		log:     log,
	}
}

// Produce turns a private score into a ThresholdProof for the given
// submitter. The score and threshold must lie in the declared domain
// [MinScore, MaxScore]; out-of-domain input fails with ErrInvalidScoreRange
// or ErrInvalidThreshold. Backend failures are wrapped in
// ProofGenerationError and retriable with a fresh nonce.
func (p *Producer) Produce(submitterID string, score, threshold int64) (*protocol.ThresholdProof, error) {
	if score < protocol.MinScore || score > protocol.MaxScore {
		return nil, fmt.Errorf("score %d: %w", score, protocol.ErrInvalidScoreRange)
	}
	if threshold < protocol.MinScore || threshold > protocol.MaxScore {
		return nil, fmt.Errorf("threshold %d: %w", threshold, protocol.ErrInvalidThreshold)
	}

	nonce, err := p.nonces.Nonce(crypto.NonceSize)
	if err != nil {
		return nil, &protocol.ProofGenerationError{Backend: p.backend.Name(), Err: err}
	}

	commitment, err := p.backend.Commit(score, nonce)
	if err != nil {
		return nil, &protocol.ProofGenerationError{Backend: p.backend.Name(), Err: err}
	}

	artifact, err := p.backend.Produce(score, threshold, nonce)
	if err != nil {
		return nil, &protocol.ProofGenerationError{Backend: p.backend.Name(), Err: err}
	}

	p.log.Debug("threshold proof produced",
		"submitterId", submitterID,
		"backend", p.backend.Name(),
		"artifactBytes", len(artifact))

	return &protocol.ThresholdProof{
		SubmitterID:         submitterID,
		Timestamp:           p.clock.Now(),
		ProofArtifact:       artifact,
		Commitment:          commitment,
		ScoreAboveThreshold: score >= threshold,
		IsValid:             true,
	}, nil
}

// VerifyArtifact checks a proof's artifact against its commitment using
// the producer's backend.
func (p *Producer) VerifyArtifact(tp *protocol.ThresholdProof, threshold int64) (bool, error) {
	return p.backend.Verify(tp.ProofArtifact, tp.Commitment, threshold)
}

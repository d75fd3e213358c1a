package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidScoreRange indicates a score outside its declared domain.
	// The caller may retry with a corrected score and a fresh nonce.
	ErrInvalidScoreRange = errors.New("score outside valid range")

	// ErrInvalidThreshold indicates a threshold outside the score domain.
	ErrInvalidThreshold = errors.New("threshold outside valid range")

	// ErrEmptyQueue indicates batch creation was requested with no queued proofs.
	ErrEmptyQueue = errors.New("proof queue is empty")

	// ErrCoordinatorStopped indicates an operation on a stopped coordinator.
	ErrCoordinatorStopped = errors.New("coordinator is stopped")
)

// ProofGenerationError wraps a threshold-proof backend failure.
// Generation errors are retriable with a fresh nonce.
type ProofGenerationError struct {
	Backend string
	Err     error
}

func (e *ProofGenerationError) Error() string {
	return fmt.Sprintf("proof generation failed (%s backend): %v", e.Backend, e.Err)
}

func (e *ProofGenerationError) Unwrap() error {
	return e.Err
}

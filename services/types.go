package services

import (
	"time"

	"github.com/ChronoCoders/emotional-chain-sub007/protocol"
)

// SubmitProofRequest wraps a signed threshold proof for HTTP transport.
type SubmitProofRequest struct {
	Proof *protocol.Signed[protocol.ThresholdProof] `json:"proof"`
}

// SubmitProofResponse reports the outcome of a proof submission.
type SubmitProofResponse struct {
	Accepted   bool   `json:"accepted"`
	QueueDepth int    `json:"queue_depth"`
	Message    string `json:"message,omitempty"`
}

// BatchListResponse contains the emitted batches still in the query window.
type BatchListResponse struct {
	Batches []*protocol.BatchProof `json:"batches"`
}

// BatchResponse contains a single emitted batch.
type BatchResponse struct {
	Batch *protocol.BatchProof `json:"batch"`
}

// StatusResponse describes the coordinator's current state.
type StatusResponse struct {
	State      string    `json:"state"`
	QueueDepth int       `json:"queue_depth"`
	BatchSize  int       `json:"batch_size"`
	Threshold  int64     `json:"threshold"`
	PublicKey  string    `json:"public_key"`
	Timestamp  time.Time `json:"timestamp"`
}

package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"github.com/ChronoCoders/emotional-chain-sub007/batcher"
	"github.com/ChronoCoders/emotional-chain-sub007/metrics"
	"github.com/ChronoCoders/emotional-chain-sub007/proof"
	"github.com/ChronoCoders/emotional-chain-sub007/protocol"
)

// BatcherServiceConfig configures the HTTP ingestion service.
type BatcherServiceConfig struct {
	// Threshold is the public pass threshold artifacts are checked against.
	Threshold int64

	// BatchConfig is the coordinator's batching configuration.
	BatchConfig *protocol.BatchConfig
}

// BatcherService is the HTTP surface of the batching subsystem. It
// authenticates signed proof submissions, verifies them against the
// proving backend and hands them to the coordinator.
type BatcherService struct {
	cfg         *BatcherServiceConfig
	coordinator *batcher.Coordinator
	backend     proof.Backend
	clock       clockwork.Clock
	log         *slog.Logger
}

// NewBatcherService creates the service around an existing coordinator.
func NewBatcherService(cfg *BatcherServiceConfig, coordinator *batcher.Coordinator, backend proof.Backend, clock clockwork.Clock, log *slog.Logger) *BatcherService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &BatcherService{
		cfg:         cfg,
		coordinator: coordinator,
		backend:     backend,
		clock:       clock,
		log:         log,
	}
}

// RegisterRoutes registers the service's routes with the router.
func (s *BatcherService) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/proofs", s.handleSubmitProof)
	r.Get("/api/v1/batches", s.handleListBatches)
	r.Get("/api/v1/batches/{batchID}", s.handleGetBatch)
	r.Get("/api/v1/status", s.handleStatus)
}

// handleSubmitProof authenticates and queues a threshold proof.
func (s *BatcherService) handleSubmitProof(w http.ResponseWriter, r *http.Request) {
	var req SubmitProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ProofsRejected.Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Proof == nil {
		metrics.ProofsRejected.Inc()
		http.Error(w, "missing proof", http.StatusBadRequest)
		return
	}

	tp, signer, err := req.Proof.Recover()
	if err != nil {
		metrics.ProofsRejected.Inc()
		http.Error(w, fmt.Errorf("could not recover proof signature: %w", err).Error(), http.StatusForbidden)
		return
	}

	if signer.String() != tp.SubmitterID {
		metrics.ProofsRejected.Inc()
		http.Error(w, "signer does not match submitter id", http.StatusForbidden)
		return
	}

	ok, err := s.backend.Verify(tp.ProofArtifact, tp.Commitment, s.cfg.Threshold)
	if err != nil || !ok {
		metrics.ProofsRejected.Inc()
		s.log.Warn("proof artifact rejected", "submitterId", tp.SubmitterID, "err", err)
		http.Error(w, "proof artifact rejected", http.StatusUnprocessableEntity)
		return
	}

	if err := s.coordinator.QueueProof(tp); err != nil {
		metrics.ProofsRejected.Inc()
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	metrics.ProofsAccepted.Inc()

	json.NewEncoder(w).Encode(&SubmitProofResponse{
		Accepted:   true,
		QueueDepth: s.coordinator.QueueLength(),
	})
}

// handleListBatches returns the emitted batches still in the query window.
func (s *BatcherService) handleListBatches(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(&BatchListResponse{Batches: s.coordinator.RecentBatches()})
}

// handleGetBatch returns one emitted batch by id.
func (s *BatcherService) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	batch := s.coordinator.GetBatch(batchID)
	if batch == nil {
		http.Error(w, "batch not found", http.StatusNotFound)
		return
	}

	if !s.coordinator.VerifyBatchProof(batch) {
		metrics.VerificationFailures.Inc()
	}

	json.NewEncoder(w).Encode(&BatchResponse{Batch: batch})
}

// handleStatus reports coordinator state and queue depth.
func (s *BatcherService) handleStatus(w http.ResponseWriter, r *http.Request) {
	pubKey, err := s.coordinator.PublicKey()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(&StatusResponse{
		State:      s.coordinator.State().String(),
		QueueDepth: s.coordinator.QueueLength(),
		BatchSize:  s.cfg.BatchConfig.BatchSize,
		Threshold:  s.cfg.Threshold,
		PublicKey:  pubKey.String(),
		Timestamp:  s.clock.Now(),
	})
}

package protocol

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/ChronoCoders/emotional-chain-sub007/crypto"
)

// MerkleSHA3Scheme identifies the aggregation scheme of emitted batches.
const MerkleSHA3Scheme = "merkle-sha3-256"

// ThresholdProof is a single validator's assertion that its private
// wellness score meets a public threshold.
//
// ScoreAboveThreshold is plaintext: only the batch, not the individual
// proof, hides per-submitter outcomes. Whether the backend must instead
// return a zero-knowledge boolean is an open trust-boundary question owned
// by the proving backend.
type ThresholdProof struct {
	// SubmitterID is the hex-encoded public key of the submitting validator.
	SubmitterID string `json:"submitter_id"`

	// Timestamp records proof creation time.
	Timestamp time.Time `json:"timestamp"`

	// ProofArtifact is the opaque output of the threshold-proof backend.
	ProofArtifact []byte `json:"proof_artifact"`

	// Commitment hides the score while binding score and nonce.
	Commitment crypto.Digest `json:"commitment"`

	// ScoreAboveThreshold is the asserted comparison outcome.
	ScoreAboveThreshold bool `json:"score_above_threshold"`

	// IsValid reports whether the producer's backend accepted the inputs.
	IsValid bool `json:"is_valid"`

	// synthetic marks dummy proofs inside the generator's trust boundary.
	// Never serialized; stripped before any external exposure.
	synthetic bool
}

// ArtifactDigest returns the SHA3-256 digest of the proof artifact, the
// Merkle leaf value for this proof.
func (p *ThresholdProof) ArtifactDigest() crypto.Digest {
	return crypto.Hash(p.ProofArtifact)
}

// MarkSynthetic tags the proof as generator-produced filler.
func (p *ThresholdProof) MarkSynthetic() {
	p.synthetic = true
}

// Synthetic reports whether the proof is filler. Internal use only.
func (p *ThresholdProof) Synthetic() bool {
	return p.synthetic
}

// StripSynthetic removes the synthetic marker. Called at the generator's
// boundary so filler is indistinguishable from real proofs downstream.
func (p *ThresholdProof) StripSynthetic() {
	p.synthetic = false
}

// AggregatedProof is the Merkle aggregation metadata of a batch.
type AggregatedProof struct {
	// MerkleRoot commits to the ordered member artifact digests.
	MerkleRoot crypto.Digest `json:"merkle_root"`

	// MemberCount is the self-declared number of aggregated members.
	MemberCount int `json:"member_count"`

	// Scheme names the aggregation scheme, MerkleSHA3Scheme today.
	Scheme string `json:"scheme"`
}

// BatchProof is the published, immutable result of one batch cycle.
// Only ValidatorCount and ThresholdsPassed are plaintext aggregates; no raw
// score or per-submitter linkage crosses this boundary.
type BatchProof struct {
	BatchID          string          `json:"batch_id"`
	Commitments      []crypto.Digest `json:"commitments"`
	AggregatedProof  AggregatedProof `json:"aggregated_proof"`
	Timestamp        time.Time       `json:"timestamp"`
	ValidatorCount   int             `json:"validator_count"`
	ThresholdsPassed int             `json:"thresholds_passed"`
	IsValid          bool            `json:"is_valid"`
}

// DummyTransaction is filler network traffic emitted independently of the
// batch cycle so external observers cannot infer real activity bursts from
// timing alone.
type DummyTransaction struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   []byte    `json:"payload"`
}

// Signed wraps a message with an Ed25519 signature for authentication.
// The signature covers the serialized object plus the public key to prevent
// substitution.
type Signed[T any] struct {
	PublicKey crypto.PublicKey `json:"public_key"`
	Signature crypto.Signature `json:"signature"`
	Object    *T               `json:"object"`
}

// NewSigned creates an authenticated message by signing the serialized
// object and public key.
func NewSigned[T any](privkey crypto.PrivateKey, obj *T) (*Signed[T], error) {
	pubkey, err := privkey.PublicKey()
	if err != nil {
		return nil, err
	}

	serializedData, err := SerializeMessage(obj)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(privkey, append(serializedData, pubkey...))
	if err != nil {
		return nil, err
	}

	return &Signed[T]{
		PublicKey: pubkey,
		Signature: signature,
		Object:    obj,
	}, nil
}

// UnsafeObject returns the wrapped object without verifying the signature.
func (s *Signed[T]) UnsafeObject() *T {
	return s.Object
}

// Recover verifies the signature and returns the authenticated object with
// the signer's public key.
func (s *Signed[T]) Recover() (*T, crypto.PublicKey, error) {
	serializedData, err := SerializeMessage(s.Object)
	if err != nil {
		return nil, nil, err
	}

	if !s.Signature.Verify(s.PublicKey, append(serializedData, s.PublicKey...)) {
		return nil, nil, errors.New("signature not valid")
	}

	return s.Object, s.PublicKey, nil
}

// SerializeMessage encodes a message for signing and transport.
func SerializeMessage[T any](msg *T) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage decodes a message of the given type from a reader.
func DecodeMessage[T any](r io.Reader) (*T, error) {
	var msg T
	if err := json.NewDecoder(r).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package proof

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ChronoCoders/emotional-chain-sub007/crypto"
)

// Backend is the threshold-proof capability consumed by the Producer.
// Implementations must be replaceable with a real SNARK/STARK prover
// without coordinator changes.
type Backend interface {
	// Name identifies the backend in errors and logs.
	Name() string

	// Commit computes the backend's hiding commitment to a score.
	Commit(score int64, nonce []byte) (crypto.Digest, error)

	// Produce creates an opaque artifact asserting score >= threshold.
	Produce(score, threshold int64, nonce []byte) ([]byte, error)

	// Verify checks an artifact against a commitment and threshold.
	// It cannot recover the score.
	Verify(artifact []byte, commitment crypto.Digest, threshold int64) (bool, error)
}

const (
	hashArtifactVersion = 0x01

	// HashArtifactSize is the constant byte length of HashBackend artifacts.
	// The dummy generator matches this size distribution.
	HashArtifactSize = 1 + crypto.DigestSize + hashArtifactSaltSize

	hashArtifactSaltSize = 32
)

var hashArtifactDomain = []byte("emotionalchain.threshold.v1")

// HashBackend is the placeholder threshold-proof backend. Its artifact
// binds commitment and threshold under SHA3 but proves nothing about the
// hidden score; it exists so the surrounding batching infrastructure can be
// exercised and later plugged into a real proving backend.
type HashBackend struct {
	Nonces crypto.NonceSource
}

// NewHashBackend creates the placeholder backend with system randomness.
func NewHashBackend() *HashBackend {
	return &HashBackend{Nonces: crypto.SystemNonceSource()}
}

// Name identifies the backend.
func (b *HashBackend) Name() string { return "hash" }

// Commit computes the SHA3 hash commitment over score and nonce.
func (b *HashBackend) Commit(score int64, nonce []byte) (crypto.Digest, error) {
	return crypto.Commit(score, nonce)
}

// Produce builds the placeholder artifact:
//
//	version || SHA3(domain || commitment || threshold_be64) || salt
//
// The salt varies the artifact bytes per call so identical assertions are
// not byte-identical on the wire.
func (b *HashBackend) Produce(score, threshold int64, nonce []byte) ([]byte, error) {
	commitment, err := crypto.Commit(score, nonce)
	if err != nil {
		return nil, err
	}

	salt, err := b.Nonces.Nonce(hashArtifactSaltSize)
	if err != nil {
		return nil, fmt.Errorf("artifact salt: %w", err)
	}

	artifact := make([]byte, 0, HashArtifactSize)
	artifact = append(artifact, hashArtifactVersion)
	binding := bindingDigest(commitment, threshold)
	artifact = append(artifact, binding.Bytes()...)
	artifact = append(artifact, salt...)
	return artifact, nil
}

// Verify checks the artifact's structure and its binding to the commitment
// and threshold. It cannot check the hidden score.
func (b *HashBackend) Verify(artifact []byte, commitment crypto.Digest, threshold int64) (bool, error) {
	if len(artifact) != HashArtifactSize {
		return false, fmt.Errorf("artifact must be %d bytes, got %d", HashArtifactSize, len(artifact))
	}
	if artifact[0] != hashArtifactVersion {
		return false, fmt.Errorf("unknown artifact version %#x", artifact[0])
	}

	expected := bindingDigest(commitment, threshold)
	return bytes.Equal(artifact[1:1+crypto.DigestSize], expected.Bytes()), nil
}

// RandomArtifact returns filler bytes matching the placeholder artifact's
// version header and byte-size distribution. Used for synthetic proofs so
// padding is structurally indistinguishable from real entries.
func RandomArtifact(nonces crypto.NonceSource) ([]byte, error) {
	body, err := nonces.Nonce(HashArtifactSize - 1)
	if err != nil {
		return nil, fmt.Errorf("artifact filler: %w", err)
	}
	return append([]byte{hashArtifactVersion}, body...), nil
}

func bindingDigest(commitment crypto.Digest, threshold int64) crypto.Digest {
	var thresholdBytes [8]byte
	binary.BigEndian.PutUint64(thresholdBytes[:], uint64(threshold))
	return crypto.Hash(hashArtifactDomain, commitment.Bytes(), thresholdBytes[:])
}

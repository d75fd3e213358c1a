package zkproof

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	mimcNative "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/ChronoCoders/emotional-chain-sub007/crypto"
)

// ErrBelowThreshold indicates a score that admits no satisfying witness.
var ErrBelowThreshold = errors.New("score below threshold, no proof exists")

// Groth16Backend produces and verifies Groth16 threshold proofs on BN254.
// It implements the proof.Backend capability.
type Groth16Backend struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// NewGroth16Backend compiles the threshold circuit and runs a local
// Groth16 setup. Compilation and setup are done once; Produce and Verify
// reuse the keys.
func NewGroth16Backend() (*Groth16Backend, error) {
	var circuit ThresholdCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, fmt.Errorf("compile threshold circuit: %w", err)
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}

	return &Groth16Backend{ccs: ccs, pk: pk, vk: vk}, nil
}

// Name identifies the backend.
func (b *Groth16Backend) Name() string { return "groth16" }

// Commit computes the MiMC commitment over score and nonce, matching the
// in-circuit hash. The nonce is reduced into the BN254 scalar field.
func (b *Groth16Backend) Commit(score int64, nonce []byte) (crypto.Digest, error) {
	if len(nonce) < crypto.NonceSize {
		return crypto.Digest{}, fmt.Errorf("nonce must be at least %d bytes, got %d", crypto.NonceSize, len(nonce))
	}

	scoreEl := scoreElement(score)
	nonceEl := nonceElement(nonce)

	h := mimcNative.NewMiMC()
	scoreBytes := scoreEl.Bytes()
	nonceBytes := nonceEl.Bytes()
	h.Write(scoreBytes[:])
	h.Write(nonceBytes[:])

	return crypto.DigestFromBytes(h.Sum(nil))
}

// Produce creates a Groth16 proof that the committed score meets the
// threshold. The artifact is the serialized proof.
func (b *Groth16Backend) Produce(score, threshold int64, nonce []byte) ([]byte, error) {
	if score < threshold {
		return nil, ErrBelowThreshold
	}

	commitment, err := b.Commit(score, nonce)
	if err != nil {
		return nil, err
	}

	nonceEl := nonceElement(nonce)
	assignment := &ThresholdCircuit{
		Commitment: new(big.Int).SetBytes(commitment.Bytes()),
		Threshold:  threshold,
		Score:      score,
		Nonce:      nonceEl.BigInt(new(big.Int)),
	}

	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("build witness: %w", err)
	}

	zkProof, err := groth16.Prove(b.ccs, b.pk, witness)
	if err != nil {
		return nil, fmt.Errorf("groth16 prove: %w", err)
	}

	var buf bytes.Buffer
	if _, err := zkProof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize proof: %w", err)
	}
	return buf.Bytes(), nil
}

// Verify checks the serialized Groth16 proof against the public commitment
// and threshold. An invalid proof yields (false, nil); only a malformed
// artifact yields an error.
func (b *Groth16Backend) Verify(artifact []byte, commitment crypto.Digest, threshold int64) (bool, error) {
	zkProof := groth16.NewProof(ecc.BN254)
	if _, err := zkProof.ReadFrom(bytes.NewReader(artifact)); err != nil {
		return false, fmt.Errorf("decode proof artifact: %w", err)
	}

	assignment := &ThresholdCircuit{
		Commitment: new(big.Int).SetBytes(commitment.Bytes()),
		Threshold:  threshold,
	}

	publicWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, fmt.Errorf("build public witness: %w", err)
	}

	if err := groth16.Verify(zkProof, b.vk, publicWitness); err != nil {
		return false, nil
	}
	return true, nil
}

func scoreElement(score int64) fr.Element {
	var el fr.Element
	el.SetInt64(score)
	return el
}

// nonceElement reduces the nonce into the scalar field. Commit and Produce
// use the same reduction so the native and in-circuit hashes agree.
func nonceElement(nonce []byte) fr.Element {
	var el fr.Element
	el.SetBytes(nonce)
	return el
}

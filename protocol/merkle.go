package protocol

import (
	"github.com/ChronoCoders/emotional-chain-sub007/crypto"
)

// MerkleRoot computes the binary Merkle root of the given leaves.
// Levels with an odd node count duplicate the last node upward. The root is
// deterministic for a fixed leaf order; a different order yields a
// different root (leaf order is not canonicalized).
func MerkleRoot(leaves []crypto.Digest) (crypto.Digest, error) {
	if len(leaves) == 0 {
		return crypto.Digest{}, ErrEmptyQueue
	}

	level := make([]crypto.Digest, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]crypto.Digest, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, crypto.Hash(level[i].Bytes(), level[i+1].Bytes()))
		}
		level = next
	}

	return level[0], nil
}

// AggregateProofs builds the AggregatedProof for an ordered member set.
// The Merkle leaves are the SHA3-256 digests of each member's proof artifact.
func AggregateProofs(members []*ThresholdProof) (AggregatedProof, error) {
	leaves := make([]crypto.Digest, 0, len(members))
	for _, m := range members {
		leaves = append(leaves, m.ArtifactDigest())
	}

	root, err := MerkleRoot(leaves)
	if err != nil {
		return AggregatedProof{}, err
	}

	return AggregatedProof{
		MerkleRoot:  root,
		MemberCount: len(members),
		Scheme:      MerkleSHA3Scheme,
	}, nil
}

package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"
)

// DigestSize is the byte length of all digests in the subsystem (SHA3-256).
const DigestSize = 32

// NonceSize is the minimum nonce length for hiding commitments (256 bits).
const NonceSize = 32

// Digest is a fixed-length SHA3-256 output.
type Digest [DigestSize]byte

// Bytes returns the digest as a byte slice.
func (d Digest) Bytes() []byte {
	return d[:]
}

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText encodes the digest as lowercase hex for JSON and YAML.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a hex-encoded digest.
func (d *Digest) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	if len(raw) != DigestSize {
		return fmt.Errorf("digest must be %d bytes, got %d", DigestSize, len(raw))
	}
	copy(d[:], raw)
	return nil
}

// DigestFromBytes copies data into a Digest. Input must be exactly DigestSize bytes.
func DigestFromBytes(data []byte) (Digest, error) {
	var d Digest
	if len(data) != DigestSize {
		return d, fmt.Errorf("digest must be %d bytes, got %d", DigestSize, len(data))
	}
	copy(d[:], data)
	return d, nil
}

// Hash computes the SHA3-256 digest of the concatenated inputs.
func Hash(parts ...[]byte) Digest {
	h := sha3.New256()
	for _, p := range parts {
		h.Write(p)
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Commit computes a hiding, binding commitment to a score:
//
//	commitment = SHA3-256(score_be64 || nonce)
//
// Hiding and binding hold under SHA3's collision resistance given a fresh
// nonce of at least NonceSize bytes.
func Commit(score int64, nonce []byte) (Digest, error) {
	if len(nonce) < NonceSize {
		return Digest{}, fmt.Errorf("nonce must be at least %d bytes, got %d", NonceSize, len(nonce))
	}
	var scoreBytes [8]byte
	binary.BigEndian.PutUint64(scoreBytes[:], uint64(score))
	return Hash(scoreBytes[:], nonce), nil
}

// NonceSource supplies cryptographically secure random bytes.
// Tests substitute a deterministic source.
type NonceSource interface {
	// Nonce returns n fresh random bytes.
	Nonce(n int) ([]byte, error)
}

// ReaderNonceSource draws nonces from an io.Reader.
type ReaderNonceSource struct {
	R io.Reader
}

// Nonce returns n bytes read from the underlying reader.
func (s *ReaderNonceSource) Nonce(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.R, buf); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return buf, nil
}

// SystemNonceSource returns a NonceSource backed by crypto/rand.
func SystemNonceSource() NonceSource {
	return &ReaderNonceSource{R: rand.Reader}
}

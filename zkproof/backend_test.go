package zkproof

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ChronoCoders/emotional-chain-sub007/crypto"
)

var (
	backendOnce sync.Once
	backend     *Groth16Backend
	backendErr  error
)

// sharedBackend compiles the circuit and runs setup once for the whole
// test binary; setup takes seconds.
func sharedBackend(t *testing.T) *Groth16Backend {
	t.Helper()
	backendOnce.Do(func() {
		backend, backendErr = NewGroth16Backend()
	})
	require.NoError(t, backendErr)
	return backend
}

func testNonce() []byte {
	return bytes.Repeat([]byte{0x5A}, crypto.NonceSize)
}

func TestGroth16ProveVerify(t *testing.T) {
	b := sharedBackend(t)

	commitment, err := b.Commit(82, testNonce())
	require.NoError(t, err)

	artifact, err := b.Produce(82, 70, testNonce())
	require.NoError(t, err)
	require.NotEmpty(t, artifact)

	ok, err := b.Verify(artifact, commitment, 70)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGroth16AtThreshold(t *testing.T) {
	b := sharedBackend(t)

	commitment, err := b.Commit(70, testNonce())
	require.NoError(t, err)

	artifact, err := b.Produce(70, 70, testNonce())
	require.NoError(t, err)

	ok, err := b.Verify(artifact, commitment, 70)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGroth16BelowThreshold(t *testing.T) {
	b := sharedBackend(t)

	_, err := b.Produce(42, 70, testNonce())
	require.ErrorIs(t, err, ErrBelowThreshold)
}

func TestGroth16WrongCommitment(t *testing.T) {
	b := sharedBackend(t)

	artifact, err := b.Produce(82, 70, testNonce())
	require.NoError(t, err)

	other, err := b.Commit(83, testNonce())
	require.NoError(t, err)

	ok, err := b.Verify(artifact, other, 70)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGroth16WrongThreshold(t *testing.T) {
	b := sharedBackend(t)

	commitment, err := b.Commit(82, testNonce())
	require.NoError(t, err)

	artifact, err := b.Produce(82, 70, testNonce())
	require.NoError(t, err)

	// The proof is bound to threshold 70, not 60.
	ok, err := b.Verify(artifact, commitment, 60)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGroth16MalformedArtifact(t *testing.T) {
	b := sharedBackend(t)

	commitment, err := b.Commit(82, testNonce())
	require.NoError(t, err)

	_, err = b.Verify([]byte("not a proof"), commitment, 70)
	require.Error(t, err)
}

func TestGroth16CommitMatchesDomainRules(t *testing.T) {
	b := sharedBackend(t)

	_, err := b.Commit(82, []byte("short"))
	require.Error(t, err)

	c1, err := b.Commit(82, testNonce())
	require.NoError(t, err)
	c2, err := b.Commit(82, testNonce())
	require.NoError(t, err)
	require.Equal(t, c1, c2)

	c3, err := b.Commit(83, testNonce())
	require.NoError(t, err)
	require.NotEqual(t, c1, c3)
}

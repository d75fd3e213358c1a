package services

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ChronoCoders/emotional-chain-sub007/proof"
	"github.com/ChronoCoders/emotional-chain-sub007/protocol"
	"github.com/ChronoCoders/emotional-chain-sub007/testutil"
)

const testThreshold = 70

func newTestService(t *testing.T) (*BatcherService, *testutil.TestCoordinator, *httptest.Server) {
	t.Helper()

	tc := testutil.NewTestCoordinator(t, testutil.GenerateTestConfig())
	service := NewBatcherService(&BatcherServiceConfig{
		Threshold:   testThreshold,
		BatchConfig: testutil.GenerateTestConfig(),
	}, tc.Coordinator, proof.NewHashBackend(), tc.Clock, testutil.DiscardLogger())

	router := chi.NewRouter()
	service.RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return service, tc, server
}

func submitBody(t *testing.T, signed *protocol.Signed[protocol.ThresholdProof]) *bytes.Reader {
	t.Helper()
	body, err := protocol.SerializeMessage(&SubmitProofRequest{Proof: signed})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestSubmitProofAccepted(t *testing.T) {
	_, tc, server := newTestService(t)

	signed, _ := testutil.GenerateTestSignedProof(t, 82, testThreshold)

	resp, err := http.Post(server.URL+"/api/v1/proofs", "application/json", submitBody(t, signed))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result, err := protocol.DecodeMessage[SubmitProofResponse](resp.Body)
	require.NoError(t, err)
	require.True(t, result.Accepted)
	require.Equal(t, 1, result.QueueDepth)
	require.Equal(t, 1, tc.Coordinator.QueueLength())
}

func TestSubmitProofRejectsUnsignedGarbage(t *testing.T) {
	_, _, server := newTestService(t)

	resp, err := http.Post(server.URL+"/api/v1/proofs", "application/json", bytes.NewReader([]byte("not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitProofRejectsMissingProof(t *testing.T) {
	_, _, server := newTestService(t)

	resp, err := http.Post(server.URL+"/api/v1/proofs", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitProofRejectsTamperedSignature(t *testing.T) {
	_, tc, server := newTestService(t)

	signed, _ := testutil.GenerateTestSignedProof(t, 82, testThreshold)
	signed.Object.ScoreAboveThreshold = !signed.Object.ScoreAboveThreshold

	resp, err := http.Post(server.URL+"/api/v1/proofs", "application/json", submitBody(t, signed))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, 0, tc.Coordinator.QueueLength())
}

func TestSubmitProofRejectsSubmitterMismatch(t *testing.T) {
	_, tc, server := newTestService(t)

	// Proof signed by a key other than the claimed submitter.
	pubKey, _ := testutil.GenerateTestKeyPair(t)
	tp := testutil.GenerateTestProof(t, pubKey.String(), 82, testThreshold)

	_, otherPriv := testutil.GenerateTestKeyPair(t)
	signed, err := protocol.NewSigned(otherPriv, tp)
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/api/v1/proofs", "application/json", submitBody(t, signed))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, 0, tc.Coordinator.QueueLength())
}

func TestSubmitProofRejectsWrongThresholdArtifact(t *testing.T) {
	_, tc, server := newTestService(t)

	// Artifact bound to a different threshold than the service enforces.
	signed, _ := testutil.GenerateTestSignedProof(t, 82, testThreshold+10)

	resp, err := http.Post(server.URL+"/api/v1/proofs", "application/json", submitBody(t, signed))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, 0, tc.Coordinator.QueueLength())
}

func TestGetBatchEndpoints(t *testing.T) {
	_, tc, server := newTestService(t)

	// Emit one batch to query.
	signed, _ := testutil.GenerateTestSignedProof(t, 82, testThreshold)
	require.NoError(t, tc.Coordinator.QueueProof(signed.UnsafeObject()))
	batch, err := tc.Coordinator.CreateBatchProof()
	require.NoError(t, err)

	resp, err := http.Get(server.URL + "/api/v1/batches")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list, err := protocol.DecodeMessage[BatchListResponse](resp.Body)
	require.NoError(t, err)
	require.Len(t, list.Batches, 1)
	require.Equal(t, batch.BatchID, list.Batches[0].BatchID)

	single, err := http.Get(server.URL + "/api/v1/batches/" + batch.BatchID)
	require.NoError(t, err)
	defer single.Body.Close()
	require.Equal(t, http.StatusOK, single.StatusCode)

	got, err := protocol.DecodeMessage[BatchResponse](single.Body)
	require.NoError(t, err)
	require.Equal(t, batch.BatchID, got.Batch.BatchID)

	missing, err := http.Get(server.URL + "/api/v1/batches/no-such-batch")
	require.NoError(t, err)
	defer missing.Body.Close()
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	_, tc, server := newTestService(t)

	resp, err := http.Get(server.URL + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status, err := protocol.DecodeMessage[StatusResponse](resp.Body)
	require.NoError(t, err)
	require.Equal(t, "collecting", status.State)
	require.Equal(t, 0, status.QueueDepth)
	require.Equal(t, 10, status.BatchSize)
	require.Equal(t, int64(testThreshold), status.Threshold)

	coordinatorKey, err := tc.Coordinator.PublicKey()
	require.NoError(t, err)
	require.Equal(t, coordinatorKey.String(), status.PublicKey)
}

// Package proof implements the client-side commitment and threshold-proof
// producer.
//
// The producer turns a private wellness score into a hiding commitment and
// an opaque proof artifact asserting score >= threshold. The artifact is
// produced by a pluggable Backend capability: the default HashBackend is a
// structural placeholder, and the zkproof package provides a Groth16
// backend behind the same interface. Swapping backends requires no change
// to the coordinator or verifier, which treat commitments and artifacts as
// opaque bytes.
//
// The producer also emits ScoreAboveThreshold as a plaintext boolean
// alongside the artifact. This is the subsystem's explicit trust boundary:
// individual outcomes are hidden by batching, not by the pre-batch proof
// object itself.
package proof

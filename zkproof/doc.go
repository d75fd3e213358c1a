// Package zkproof provides a Groth16 threshold-proof backend.
//
// It implements the proof.Backend capability with a real zero-knowledge
// circuit over BN254: the prover demonstrates knowledge of a score and
// nonce such that MiMC(score, nonce) equals the public commitment and the
// public threshold does not exceed the score, without revealing either
// witness. This is the proving backend the placeholder HashBackend is
// swappable for; the coordinator and verifier are unchanged.
//
// Unlike the placeholder, this backend can only attest passing scores: a
// score below the threshold admits no satisfying witness, and Produce
// fails. Callers that need to submit failing assertions use the
// placeholder's plaintext boolean instead.
//
// The proving and verifying keys come from an unaudited local setup
// (groth16.Setup at construction time). A production deployment would load
// keys from a trusted ceremony.
package zkproof

// Package crypto provides the cryptographic primitives for the proof
// batching subsystem.
//
// It covers three concerns:
//
//   - Ed25519 identity keys and signatures. Validators are identified by
//     their hex-encoded public key, and every proof submission and emitted
//     batch is signed.
//   - Hash commitments. A commitment binds a private wellness score and a
//     fresh nonce without revealing either, using SHA3-256.
//   - Secure randomness. Nonces and dummy-proof material are drawn from a
//     NonceSource so tests can substitute deterministic bytes.
//
// The commitment here is a plain hash commitment, not a zero-knowledge
// artifact. The threshold-proof backend built on top of it (see the proof
// and zkproof packages) is the swappable part; the commitment shape is
// shared by both.
package crypto

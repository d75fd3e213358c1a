// Package testutil provides test helpers for the batching subsystem.
//
// The helpers build deterministic fixtures: coordinators wired to fake
// clocks and seeded randomness, threshold proofs produced through the
// real hash backend, and signed submissions for HTTP-level tests.
package testutil

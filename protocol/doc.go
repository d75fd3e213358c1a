// Package protocol defines the data model and structural rules of the
// privacy-preserving proof batching subsystem.
//
// # Why batching
//
// Each validator's biometric-threshold assertion is published only as part
// of a fixed-size batch. Three mechanisms defeat timing and correlation
// analysis:
//
//  1. Padding: every emitted batch contains exactly BatchSize members.
//     When real traffic is low, synthetic dummy proofs fill the gap, so an
//     observer cannot infer activity volume from batch contents.
//  2. Shuffling: members are permuted uniformly at random before
//     aggregation, removing positional correlation with arrival order.
//  3. Jitter: release is delayed by a uniform random interval, so batch
//     completion time does not reveal any individual submission time.
//
// # Data model
//
// ThresholdProof is a single validator's assertion that its private score
// meets a public threshold, carrying an opaque proof artifact and a hiding
// commitment. BatchProof is the published aggregate: the member
// commitments, a Merkle root over the member artifacts, and two plaintext
// aggregates (ValidatorCount, ThresholdsPassed). No per-submitter outcome
// is recoverable from an emitted BatchProof.
//
// # Verification
//
// VerifyBatchProof checks structural integrity and freshness only. It never
// returns an error; malformed input yields false with a logged reason. Per
// submitter correctness is the proving backend's responsibility before a
// proof is ever queued.
package protocol

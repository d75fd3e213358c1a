// Package batcher implements the batch proof coordinator and the dummy
// proof generator.
//
// The Coordinator owns the single pending-proof queue (one pending proof
// per submitter until flushed), assembles fixed-size batches, shuffles
// members, aggregates them into a Merkle root, and releases each batch
// after a randomized jitter delay. A periodic forced-flush check pads
// under-filled queues with synthetic proofs so batch size never reveals
// real traffic volume.
//
// Queue mutation is serialized behind a single mutex: there is one logical
// writer, so a proof cannot be lost between the queue reaching the batch
// threshold and the batch draining it. Batch selection happens under that
// lock; the post-selection jitter wait runs as a detached, cancellable
// task, so ingestion for the next batch is never blocked by the current
// batch's release.
//
// Clock and randomness are injected (clockwork.Clock and math/rand), so
// the jitter, forced-flush and dummy-transaction schedules are all testable
// without wall-clock waits. Stop cancels every pending timer
// deterministically; a batch whose jitter has not elapsed at shutdown is
// discarded, never partially emitted.
package batcher

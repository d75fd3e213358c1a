// Package services exposes the batching subsystem over HTTP and wires the
// coordinator to downstream batch consumers.
//
// BatcherService is the ingestion surface: validators POST signed threshold
// proofs, which are authenticated (the signer must match the proof's
// submitter), structurally verified against the proving backend, and then
// queued with the coordinator. Emitted batches are readable from the same
// service while they remain in the coordinator's in-memory window.
//
// Publication to the downstream consensus/log channel is modeled by the
// batcher.BatchSink interface; this package provides channel, HTTP POST
// and logging sinks plus a metrics-counting wrapper.
package services

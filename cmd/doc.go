// Package cmd provides CLI commands for the proof batching subsystem.
//
// # Commands
//
// batcherd: Runs the batch proof coordinator as a long-lived daemon with
// the HTTP ingestion API, dummy traffic generation and metrics.
//
//	go run ./cmd/batcherd --addr=:8080
//	go run ./cmd/batcherd --config=batcherd.yaml
//
// emoctl: CLI for interacting with a running batcher: generate a
// validator keypair, produce and submit a threshold proof, and fetch or
// verify emitted batches.
//
//	go run ./cmd/emoctl keygen
//	go run ./cmd/emoctl submit --batcher=http://localhost:8080 --score=82 --key=<hex>
//	go run ./cmd/emoctl batches --batcher=http://localhost:8080
//
// # Configuration
//
// batcherd supports a YAML configuration file via the --config flag.
// Command-line flags override config file values.
//
// Example config:
//
//	http_addr: ":8080"
//	metrics_addr: ":9090"
//	log_json: true
//	threshold: 70
//	sink_url: ""
//	keys:
//	  signing_key: ""   # Hex-encoded Ed25519, generates if empty
//	batch:
//	  batch_size: 10
//	  max_wait: 5m
//	  max_jitter: 30s
//	  replay_window: 15m
//	  dummy_pass_rate: 0.7
package cmd

// Command emoctl provides CLI tools for interacting with a running batcherd.
//
// # Commands
//
// keygen: Generate a validator Ed25519 key pair.
//
//	emoctl keygen
//
// submit: Produce a threshold proof for a score and submit it.
//
//	emoctl submit --batcher=http://localhost:8080 --score=82 --threshold=70 --key=<hex>
//
// batches: List emitted batches and verify their aggregates.
//
//	emoctl batches --batcher=http://localhost:8080
//
// status: Display the coordinator's state and queue depth.
//
//	emoctl status --batcher=http://localhost:8080
package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/ChronoCoders/emotional-chain-sub007/cmd/common"
	"github.com/ChronoCoders/emotional-chain-sub007/crypto"
	"github.com/ChronoCoders/emotional-chain-sub007/proof"
	"github.com/ChronoCoders/emotional-chain-sub007/protocol"
	"github.com/ChronoCoders/emotional-chain-sub007/services"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "keygen":
		err = runKeygen()
	case "submit":
		err = runSubmit(args)
	case "batches":
		err = runBatches(args)
	case "status":
		err = runStatus(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`emoctl - batch proof coordinator CLI

Usage:
  emoctl <command> [options]

Commands:
  keygen    Generate a validator Ed25519 key pair
  submit    Produce a threshold proof and submit it
  batches   List emitted batches and verify their aggregates
  status    Show coordinator state and queue depth
  help      Show this help`)
}

func runKeygen() error {
	pubKey, privKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	fmt.Printf("Public key:  %s\n", pubKey.String())
	fmt.Printf("Private key: %s\n", hex.EncodeToString(privKey.Bytes()))
	return nil
}

func runSubmit(args []string) error {
	var (
		batcherURL  = "http://localhost:8080"
		backendName = "hash"
		keyHex      string
		score       int64
		threshold   int64 = 70
		scoreSet    bool
	)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--batcher", "-b":
			i++
			if i < len(args) {
				batcherURL = args[i]
			}
		case "--backend":
			i++
			if i < len(args) {
				backendName = args[i]
			}
		case "--key", "-k":
			i++
			if i < len(args) {
				keyHex = args[i]
			}
		case "--score", "-s":
			i++
			if i < len(args) {
				v, err := strconv.ParseInt(args[i], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid score: %w", err)
				}
				score = v
				scoreSet = true
			}
		case "--threshold", "-t":
			i++
			if i < len(args) {
				v, err := strconv.ParseInt(args[i], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid threshold: %w", err)
				}
				threshold = v
			}
		case "--help", "-h":
			fmt.Println("Usage: emoctl submit --batcher=URL --score=N [--threshold=N] [--backend=hash|groth16] [--key=hex]")
			return nil
		}
	}

	if !scoreSet {
		return fmt.Errorf("--score is required")
	}

	signingKey, err := common.LoadOrGenerateSigningKey(keyHex)
	if err != nil {
		return fmt.Errorf("signing key: %w", err)
	}
	pubKey, err := signingKey.PublicKey()
	if err != nil {
		return err
	}

	backend, err := common.NewBackend(backendName)
	if err != nil {
		return err
	}

	producer := proof.NewProducer(backend, nil, nil, nil)
	tp, err := producer.Produce(pubKey.String(), score, threshold)
	if err != nil {
		return fmt.Errorf("produce proof: %w", err)
	}

	signed, err := protocol.NewSigned(signingKey, tp)
	if err != nil {
		return fmt.Errorf("sign proof: %w", err)
	}

	body, err := protocol.SerializeMessage(&services.SubmitProofRequest{Proof: signed})
	if err != nil {
		return err
	}

	resp, err := http.Post(batcherURL+"/api/v1/proofs", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("batcher returned status %d", resp.StatusCode)
	}

	result, err := protocol.DecodeMessage[services.SubmitProofResponse](resp.Body)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Printf("Submitted as %s\n", tp.SubmitterID)
	fmt.Printf("Commitment: %s\n", tp.Commitment.String())
	fmt.Printf("Accepted: %v, queue depth: %d\n", result.Accepted, result.QueueDepth)
	return nil
}

func runBatches(args []string) error {
	batcherURL, err := parseBatcherURL(args, "Usage: emoctl batches --batcher=URL")
	if err != nil || batcherURL == "" {
		return err
	}

	resp, err := http.Get(batcherURL + "/api/v1/batches")
	if err != nil {
		return fmt.Errorf("fetch batches: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("batcher returned status %d", resp.StatusCode)
	}

	list, err := protocol.DecodeMessage[services.BatchListResponse](resp.Body)
	if err != nil {
		return fmt.Errorf("decode batches: %w", err)
	}

	if len(list.Batches) == 0 {
		fmt.Println("No batches in the query window")
		return nil
	}

	verifier := protocol.NewVerifier(protocol.DefaultBatchConfig().ReplayWindow, nil, nil)
	for _, batch := range list.Batches {
		ok := verifier.VerifyBatchProof(batch)
		fmt.Printf("%s  validators=%d passed=%d root=%s verified=%v\n",
			batch.BatchID, batch.ValidatorCount, batch.ThresholdsPassed,
			batch.AggregatedProof.MerkleRoot.String(), ok)
	}
	return nil
}

func runStatus(args []string) error {
	batcherURL, err := parseBatcherURL(args, "Usage: emoctl status --batcher=URL")
	if err != nil || batcherURL == "" {
		return err
	}

	resp, err := http.Get(batcherURL + "/api/v1/status")
	if err != nil {
		return fmt.Errorf("fetch status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("batcher returned status %d", resp.StatusCode)
	}

	status, err := protocol.DecodeMessage[services.StatusResponse](resp.Body)
	if err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	fmt.Printf("State:       %s\n", status.State)
	fmt.Printf("Queue depth: %d\n", status.QueueDepth)
	fmt.Printf("Batch size:  %d\n", status.BatchSize)
	fmt.Printf("Threshold:   %d\n", status.Threshold)
	fmt.Printf("Public key:  %s\n", status.PublicKey)
	return nil
}

// parseBatcherURL handles the shared --batcher flag. An empty return URL
// with nil error means help was printed.
func parseBatcherURL(args []string, helpText string) (string, error) {
	batcherURL := "http://localhost:8080"
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--batcher", "-b":
			i++
			if i < len(args) {
				batcherURL = args[i]
			}
		case "--help", "-h":
			fmt.Println(helpText)
			return "", nil
		}
	}
	return batcherURL, nil
}

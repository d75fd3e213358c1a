// Command batcherd runs the batch proof coordinator as a daemon.
//
// The daemon exposes the HTTP ingestion API for signed threshold proof
// submissions, batches them with padding, shuffling and release jitter,
// and publishes emitted batches to the configured sink. It also runs the
// independent dummy transaction emitter so the node produces cover
// traffic whether or not real submissions arrive.
//
// # Usage
//
//	go run ./cmd/batcherd --addr=:8080
//	go run ./cmd/batcherd --config=batcherd.yaml --backend=groth16
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChronoCoders/emotional-chain-sub007/api/httpserver"
	"github.com/ChronoCoders/emotional-chain-sub007/batcher"
	"github.com/ChronoCoders/emotional-chain-sub007/cmd/common"
	"github.com/ChronoCoders/emotional-chain-sub007/metrics"
	"github.com/ChronoCoders/emotional-chain-sub007/protocol"
	"github.com/ChronoCoders/emotional-chain-sub007/services"
)

func main() {
	var (
		configPath    = flag.String("config", "", "Path to YAML config file")
		addr          = flag.String("addr", "", "HTTP listen address")
		metricsAddr   = flag.String("metrics-addr", "", "Metrics listen address (disabled if empty)")
		enablePprof   = flag.Bool("pprof", false, "Enable pprof debug API")
		logJSON       = flag.Bool("log-json", false, "Log in JSON format")
		logDebug      = flag.Bool("log-debug", false, "Log at debug level")
		threshold     = flag.Int64("threshold", 0, "Public pass threshold")
		backendName   = flag.String("backend", "", "Proof backend: hash or groth16")
		sinkURL       = flag.String("sink-url", "", "Downstream batch endpoint (logs batches if empty)")
		signingKeyHex = flag.String("signing-key", "", "Ed25519 signing key (hex, generates if empty)")
	)
	flag.Parse()

	isFlagSet := func(name string) bool {
		found := false
		flag.Visit(func(f *flag.Flag) {
			if f.Name == name {
				found = true
			}
		})
		return found
	}

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if isFlagSet("pprof") {
		cfg.EnablePprof = *enablePprof
	}
	if isFlagSet("log-json") {
		cfg.LogJSON = *logJSON
	}
	if isFlagSet("log-debug") {
		cfg.LogDebug = *logDebug
	}
	if isFlagSet("threshold") {
		cfg.Threshold = *threshold
	}
	if *backendName != "" {
		cfg.Backend = *backendName
	}
	if *sinkURL != "" {
		cfg.SinkURL = *sinkURL
	}
	if *signingKeyHex != "" {
		cfg.Keys.SigningKey = *signingKeyHex
	}

	if err := run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfiguration(configPath string) (*common.Config, error) {
	if configPath != "" {
		return common.LoadConfig(configPath)
	}
	return common.DefaultConfig(), nil
}

func run(cfg *common.Config) error {
	log := common.NewLogger(cfg.LogJSON, cfg.LogDebug)

	signingKey, err := common.LoadOrGenerateSigningKey(cfg.Keys.SigningKey)
	if err != nil {
		return fmt.Errorf("signing key: %w", err)
	}
	pubKey, err := signingKey.PublicKey()
	if err != nil {
		return fmt.Errorf("signing key: %w", err)
	}
	log.Info("Coordinator identity", "publicKey", pubKey.String())

	backend, err := common.NewBackend(cfg.Backend)
	if err != nil {
		return err
	}
	log.Info("Proof backend ready", "backend", backend.Name())

	var inner batcher.BatchSink
	if cfg.SinkURL != "" {
		inner = &services.HTTPSink{Endpoint: cfg.SinkURL}
	} else {
		inner = &services.LogSink{Log: log}
	}
	sink := &services.MeteredSink{Next: inner}

	coordinator, err := batcher.NewCoordinator(cfg.Batch, batcher.Deps{
		Log:        log.With("service", "coordinator"),
		Sink:       sink,
		SigningKey: signingKey,
	})
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}
	coordinator.Start()

	metrics.RegisterQueueDepth(func() float64 {
		return float64(coordinator.QueueLength())
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cover traffic runs regardless of real submission volume.
	dummies := batcher.NewDummyGenerator(cfg.Batch, nil, nil, nil, log.With("service", "dummies"))
	stopDummies := dummies.StartGenerating(ctx, func(tx *protocol.DummyTransaction) {
		metrics.DummyTransactions.Inc()
		log.Debug("Dummy transaction emitted", "id", tx.ID, "payloadBytes", len(tx.Payload))
	})

	service := services.NewBatcherService(&services.BatcherServiceConfig{
		Threshold:   cfg.Threshold,
		BatchConfig: cfg.Batch,
	}, coordinator, backend, nil, log.With("service", "api"))

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.HTTPAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, service)
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	stopDummies()
	coordinator.Stop()
	srv.Shutdown()
	return nil
}

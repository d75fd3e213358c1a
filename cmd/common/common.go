// Package common provides shared utilities for the batcher CLI commands.
//
// This package contains helpers used across the standalone binaries
// (batcherd, emoctl) to reduce code duplication:
//
//   - Key loading and generation for Ed25519 signing keys
//   - YAML configuration loading with flag overrides
//   - Proof backend and batch sink factory functions
package common

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ChronoCoders/emotional-chain-sub007/crypto"
	"github.com/ChronoCoders/emotional-chain-sub007/proof"
	"github.com/ChronoCoders/emotional-chain-sub007/protocol"
	"github.com/ChronoCoders/emotional-chain-sub007/zkproof"
)

// Config is the YAML configuration for batcherd. Flag values override
// config file values.
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	EnablePprof bool   `yaml:"enable_pprof"`
	LogJSON     bool   `yaml:"log_json"`
	LogDebug    bool   `yaml:"log_debug"`

	// Threshold is the public pass threshold all submitted artifacts
	// are verified against.
	Threshold int64 `yaml:"threshold"`

	// Backend selects the proving backend: "hash" or "groth16".
	Backend string `yaml:"backend"`

	// SinkURL is the downstream endpoint emitted batches are POSTed
	// to. Empty means batches are only logged.
	SinkURL string `yaml:"sink_url"`

	Keys struct {
		// SigningKey is the coordinator's hex-encoded Ed25519 private
		// key. A fresh key is generated when empty.
		SigningKey string `yaml:"signing_key"`
	} `yaml:"keys"`

	Batch *protocol.BatchConfig `yaml:"batch"`
}

// DefaultConfig returns a config with production defaults.
func DefaultConfig() *Config {
	cfg := &Config{
		HTTPAddr:  ":8080",
		Threshold: 70,
		Backend:   "hash",
		Batch:     protocol.DefaultBatchConfig(),
	}
	return cfg
}

// LoadConfig reads a YAML config file, layered over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Batch == nil {
		cfg.Batch = protocol.DefaultBatchConfig()
	}
	return cfg, nil
}

// LoadOrGenerateSigningKey loads an Ed25519 private key from a hex string,
// or generates a new key pair if hexKey is empty.
func LoadOrGenerateSigningKey(hexKey string) (crypto.PrivateKey, error) {
	if hexKey != "" {
		keyBytes, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return crypto.NewPrivateKeyFromBytes(keyBytes), nil
	}
	_, privKey, err := crypto.GenerateKeyPair()
	return privKey, err
}

// NewBackend creates a proof backend by name. The groth16 backend
// compiles its circuit and runs an unaudited local setup, which takes
// a few seconds on first start.
func NewBackend(name string) (proof.Backend, error) {
	switch name {
	case "", "hash":
		return proof.NewHashBackend(), nil
	case "groth16":
		return zkproof.NewGroth16Backend()
	default:
		return nil, fmt.Errorf("unknown proof backend %q", name)
	}
}

// NewLogger creates a slog logger writing to stderr.
func NewLogger(json, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

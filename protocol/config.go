package protocol

import (
	"fmt"
	"time"
)

// Score domain bounds. Wellness scores are externally computed and clamped
// to this range before they ever reach the producer.
const (
	MinScore int64 = 0
	MaxScore int64 = 100
)

// BatchConfig provides configuration parameters for the batching subsystem.
type BatchConfig struct {
	// BatchSize is the exact number of members (real plus synthetic) in
	// every emitted batch.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// MaxWait is how long the queue may go without an emitted batch before
	// a forced flush pads it with dummy proofs.
	MaxWait time.Duration `json:"max_wait" yaml:"max_wait"`

	// FlushCheckInterval is how often the forced-flush condition is checked.
	FlushCheckInterval time.Duration `json:"flush_check_interval" yaml:"flush_check_interval"`

	// MaxJitter bounds the uniform random release delay [0, MaxJitter).
	MaxJitter time.Duration `json:"max_jitter" yaml:"max_jitter"`

	// ReplayWindow is the maximum batch age accepted by the verifier.
	ReplayWindow time.Duration `json:"replay_window" yaml:"replay_window"`

	// DummyPassRate is the probability that a synthetic member asserts a
	// passing score, approximating real-world pass rates.
	DummyPassRate float64 `json:"dummy_pass_rate" yaml:"dummy_pass_rate"`

	// DummyTxMinInterval and DummyTxMaxInterval bound the random delay
	// between filler dummy transactions.
	DummyTxMinInterval time.Duration `json:"dummy_tx_min_interval" yaml:"dummy_tx_min_interval"`
	DummyTxMaxInterval time.Duration `json:"dummy_tx_max_interval" yaml:"dummy_tx_max_interval"`
}

// DefaultBatchConfig returns the default batching configuration.
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		BatchSize:          10,
		MaxWait:            5 * time.Minute,
		FlushCheckInterval: 30 * time.Second,
		MaxJitter:          30 * time.Second,
		ReplayWindow:       15 * time.Minute,
		DummyPassRate:      0.7,
		DummyTxMinInterval: 30 * time.Second,
		DummyTxMaxInterval: 120 * time.Second,
	}
}

// Validate checks configuration invariants.
func (c *BatchConfig) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.MaxWait <= 0 {
		return fmt.Errorf("max_wait must be positive, got %s", c.MaxWait)
	}
	if c.FlushCheckInterval <= 0 {
		return fmt.Errorf("flush_check_interval must be positive, got %s", c.FlushCheckInterval)
	}
	if c.MaxJitter < 0 {
		return fmt.Errorf("max_jitter must not be negative, got %s", c.MaxJitter)
	}
	if c.ReplayWindow <= 0 {
		return fmt.Errorf("replay_window must be positive, got %s", c.ReplayWindow)
	}
	if c.DummyPassRate < 0 || c.DummyPassRate > 1 {
		return fmt.Errorf("dummy_pass_rate must be in [0,1], got %f", c.DummyPassRate)
	}
	if c.DummyTxMinInterval <= 0 || c.DummyTxMaxInterval < c.DummyTxMinInterval {
		return fmt.Errorf("invalid dummy transaction interval bounds [%s, %s]",
			c.DummyTxMinInterval, c.DummyTxMaxInterval)
	}
	return nil
}

package refresh

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
)

// Config controls the epoch scheduler and the optional submitter worker.
type Config struct {
	// EpochLength is the number of chain heights per epoch.
	EpochLength uint64

	// Submitter enables the local refresh worker: after every snapshot this
	// node runs propagation and posts the result with SubmitterStake bonded.
	Submitter        bool
	SubmitterAddress string
	SubmitterStake   *uint256.Int

	// PollInterval is how often the scheduler samples the clock height.
	PollInterval time.Duration

	// SweepInterval is how often expired windows and overdue rounds are
	// finalized.
	SweepInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		EpochLength:   100,
		PollInterval:  200 * time.Millisecond,
		SweepInterval: 2 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.EpochLength == 0 {
		return fmt.Errorf("epoch length must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	if c.Submitter {
		if c.SubmitterAddress == "" {
			return fmt.Errorf("submitter address is required when submitter is enabled")
		}
		if c.SubmitterStake == nil || c.SubmitterStake.IsZero() {
			return fmt.Errorf("submitter stake is required when submitter is enabled")
		}
	}
	return nil
}

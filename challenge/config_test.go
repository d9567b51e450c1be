package challenge

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window", func(c *Config) { c.ChallengeWindow = 0 }},
		{"zero round deadline", func(c *Config) { c.RoundDeadline = 0 }},
		{"nil min stake", func(c *Config) { c.MinStake = nil }},
		{"zero min stake", func(c *Config) { c.MinStake = uint256.NewInt(0) }},
		{"zero stake ratio", func(c *Config) { c.StakeRatioBps = 0 }},
		{"fee over 10000 bps", func(c *Config) { c.ProtocolFeeBps = 10_001 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestRequiredChallengerStake(t *testing.T) {
	tests := []struct {
		name     string
		ratioBps uint32
		stake    uint64
		want     uint64
	}{
		{"symmetric", 10_000, 1_000_000, 1_000_000},
		{"half", 5_000, 1_000_000, 500_000},
		{"premium", 15_000, 1_000_000, 1_500_000},
		{"rounds down", 10_000, 3, 3},
		{"third rounds down", 3_333, 100, 33},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.StakeRatioBps = tc.ratioBps
			got := cfg.RequiredChallengerStake(uint256.NewInt(tc.stake))
			if got.Cmp(uint256.NewInt(tc.want)) != 0 {
				t.Fatalf("required stake = %s, want %d", got.Dec(), tc.want)
			}
		})
	}
}

package challenge

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Config carries the protocol parameters of the commit-and-challenge game.
// These are governance-exposed constants, never hard-coded.
type Config struct {
	// ChallengeWindow is how many heights a submission stays open to
	// challenges before it auto-resolves in the submitter's favor.
	ChallengeWindow uint64
	// RoundDeadline is how many heights each bisection move may take. A missed
	// deadline forfeits the game to the responsive party.
	RoundDeadline uint64
	// MinStake is the minimum submitter bond.
	MinStake *uint256.Int
	// StakeRatioBps is the challenger bond requirement relative to the
	// submitter's stake, in basis points. 10000 = symmetric stakes.
	StakeRatioBps uint32
	// ProtocolFeeBps is the slice of a slashed bond burned to the deterrent
	// fund, in basis points; the rest pays the winner.
	ProtocolFeeBps uint32
	// RetentionWindow is how many heights resolved records are kept before
	// archival.
	RetentionWindow uint64
}

// DefaultConfig mirrors the reference deployment values.
func DefaultConfig() Config {
	return Config{
		ChallengeWindow: 600,
		RoundDeadline:   100,
		MinStake:        uint256.NewInt(1_000_000),
		StakeRatioBps:   10_000,
		ProtocolFeeBps:  500,
		RetentionWindow: 10_000,
	}
}

// Validate rejects configurations that break game liveness.
func (c Config) Validate() error {
	if c.ChallengeWindow == 0 {
		return fmt.Errorf("challenge window must be positive")
	}
	if c.RoundDeadline == 0 {
		return fmt.Errorf("round deadline must be positive")
	}
	if c.MinStake == nil || c.MinStake.IsZero() {
		return fmt.Errorf("minimum stake must be positive")
	}
	if c.StakeRatioBps == 0 {
		return fmt.Errorf("stake ratio must be positive")
	}
	if c.ProtocolFeeBps > 10_000 {
		return fmt.Errorf("protocol fee cannot exceed 10000 basis points")
	}
	return nil
}

// RequiredChallengerStake returns the minimum challenger bond for a submitter
// bond.
func (c Config) RequiredChallengerStake(submitterStake *uint256.Int) *uint256.Int {
	required := new(uint256.Int).Mul(submitterStake, uint256.NewInt(uint64(c.StakeRatioBps)))
	return required.Div(required, uint256.NewInt(10_000))
}

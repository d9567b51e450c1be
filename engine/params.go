package engine

import (
	"fmt"

	"github.com/trustmesh/rpn/types"
)

// Params are the protocol constants governing propagation. They are protocol
// parameters exposed through configuration, not hard-coded values, because
// every party must agree on them for replay to be meaningful.
type Params struct {
	// Decay is the per-hop damping factor applied to the inbound sum.
	Decay types.Score
	// MaxScore is the cap every score saturates at; seeds start here.
	MaxScore types.Score
	// Epsilon is the convergence threshold: a pass whose largest per-account
	// delta is below Epsilon ends the run.
	Epsilon types.Score
	// MaxPasses bounds the number of passes over cyclic graphs.
	MaxPasses uint32
	// MaxAccounts bounds the snapshot size so step counts, and therefore
	// bisection depth, stay predictable.
	MaxAccounts int
}

// DefaultParams mirror the reference deployment values.
func DefaultParams() Params {
	return Params{
		Decay:       types.Score(types.ScoreScale),     // 1.0
		MaxScore:    types.Score(types.ScoreScale),     // 1.0
		Epsilon:     types.Score(types.ScoreScale / 1e6), // 0.000001
		MaxPasses:   8,
		MaxAccounts: 100_000,
	}
}

// Validate rejects parameter sets that make propagation ill-defined.
func (p Params) Validate() error {
	if p.MaxScore == 0 {
		return fmt.Errorf("max score must be positive")
	}
	if p.MaxPasses == 0 {
		return fmt.Errorf("max passes must be at least 1")
	}
	if p.MaxAccounts <= 0 {
		return fmt.Errorf("max accounts must be positive")
	}
	return nil
}

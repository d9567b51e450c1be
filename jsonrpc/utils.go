package jsonrpc

import (
	"encoding/hex"
	"fmt"

	"github.com/trustmesh/rpn/types"
)

// JSON-RPC Method name constants
const (
	// Trust graph methods
	MethodGraphUpsertEdge = "graph.upsertedge"
	MethodGraphRemoveEdge = "graph.removeedge"
	MethodGraphSetSeeds   = "graph.setseeds"
	MethodGraphGetEdge    = "graph.getedge"
	MethodGraphGetScore   = "graph.getscore"

	// Refresh submission methods
	MethodRefreshSubmit        = "refresh.submit"
	MethodRefreshGetSubmission = "refresh.getsubmission"
	MethodRefreshProveStep     = "refresh.provestep"

	// Challenge game methods
	MethodChallengeOpen           = "challenge.open"
	MethodChallengePropose        = "challenge.propose"
	MethodChallengeRespond        = "challenge.respond"
	MethodChallengeFinalStepProof = "challenge.finalstepproof"
	MethodChallengeFinalize       = "challenge.finalize"
	MethodChallengeGet            = "challenge.get"

	// Stake ledger methods
	MethodStakeGetBalance = "stake.getbalance"

	// Health methods
	MethodHealthCheck = "health.check"
)

func parseDigest(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("invalid hex digest %q: %w", s, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("digest must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func digestHex(d [32]byte) string {
	return hex.EncodeToString(d[:])
}

func parseMerkleProof(p merkleProofParam) (types.MerkleProof, error) {
	siblings := make([][32]byte, len(p.Siblings))
	for i, s := range p.Siblings {
		sib, err := parseDigest(s)
		if err != nil {
			return types.MerkleProof{}, fmt.Errorf("sibling %d: %w", i, err)
		}
		siblings[i] = sib
	}
	return types.MerkleProof{Index: p.Index, Siblings: siblings}, nil
}

func merkleProofToParam(p types.MerkleProof) merkleProofParam {
	siblings := make([]string, len(p.Siblings))
	for i, sib := range p.Siblings {
		siblings[i] = digestHex(sib)
	}
	return merkleProofParam{Index: p.Index, Siblings: siblings}
}

func parseStepRecord(p stepRecordParam) (*types.StepRecord, error) {
	prev, err := types.ParseScore(p.PrevScore)
	if err != nil {
		return nil, fmt.Errorf("prev_score: %w", err)
	}
	next, err := types.ParseScore(p.NewScore)
	if err != nil {
		return nil, fmt.Errorf("new_score: %w", err)
	}
	in, err := parseDigest(p.InputStateDigest)
	if err != nil {
		return nil, fmt.Errorf("input_state_digest: %w", err)
	}
	out, err := parseDigest(p.OutputStateDigest)
	if err != nil {
		return nil, fmt.Errorf("output_state_digest: %w", err)
	}
	return &types.StepRecord{
		Index:             p.Index,
		Pass:              p.Pass,
		Account:           p.Account,
		PrevScore:         prev,
		NewScore:          next,
		InputStateDigest:  in,
		OutputStateDigest: out,
	}, nil
}

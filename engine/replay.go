package engine

import (
	"fmt"

	"github.com/trustmesh/rpn/commitment"
	"github.com/trustmesh/rpn/errors"
	"github.com/trustmesh/rpn/types"
)

// BuildWitness reconstructs, off-chain, everything a verifier needs to replay
// the single step at index: the updated account's leaf path against the input
// state digest plus every truster's witnessed score and proof. The submitter
// runs this from its retained computation when a bisection narrows to one step.
func BuildWitness(snap *types.GraphSnapshot, params Params, index uint64) (*types.StepWitness, error) {
	st, err := newRunState(snap, params)
	if err != nil {
		return nil, err
	}
	order := VisitOrder(snap)
	if len(order) == 0 {
		return nil, fmt.Errorf("snapshot has no propagation steps")
	}
	if index/uint64(len(order)) >= uint64(params.MaxPasses) {
		return nil, fmt.Errorf("step index %d beyond maximum pass bound", index)
	}
	for i := uint64(0); i < index; i++ {
		st.applyStep(order[i%uint64(len(order))])
	}

	account := order[index%uint64(len(order))]
	accountIdx, ok := snap.AccountIndex(account)
	if !ok {
		return nil, fmt.Errorf("account %s missing from snapshot index", account)
	}
	leafProof, err := commitment.Prove(st.leaves, uint64(accountIdx))
	if err != nil {
		return nil, err
	}

	witness := &types.StepWitness{LeafProof: leafProof}
	for _, e := range snap.Inbound(account) {
		ti, ok := snap.AccountIndex(e.From)
		if !ok {
			return nil, fmt.Errorf("truster %s missing from snapshot index", e.From)
		}
		proof, err := commitment.Prove(st.leaves, uint64(ti))
		if err != nil {
			return nil, err
		}
		witness.Trusters = append(witness.Trusters, types.TrusterWitness{
			Account: e.From,
			Score:   st.scores[e.From],
			Proof:   proof,
		})
	}
	return witness, nil
}

// ReplayOutcome is the result of independently re-executing one step.
type ReplayOutcome struct {
	ExpectedScore        types.Score
	ExpectedOutputDigest [32]byte
	// Matches is true when the submitter's claimed step output is exactly what
	// re-execution produces.
	Matches bool
}

// ReplayStep re-executes exactly one step of the propagation given the agreed
// input state digest, using only the snapshot (which the chain holds) and the
// supplied witness. A nil error with Matches=false means the claim was
// honestly verifiable and wrong; a ProofMismatch error means the witness
// itself fails verification. Either way the claim does not stand.
func ReplayStep(snap *types.GraphSnapshot, params Params, step *types.StepRecord, witness *types.StepWitness) (*ReplayOutcome, error) {
	account, pass, err := StepAccount(snap, params, step.Index)
	if err != nil {
		return nil, err
	}
	if account != step.Account || pass != step.Pass {
		return nil, errors.NewError(errors.ErrCodeProofMismatch,
			fmt.Sprintf("step %d updates %s in pass %d, record claims %s in pass %d",
				step.Index, account, pass, step.Account, step.Pass))
	}

	n := uint64(len(snap.Accounts))
	accountIdx, ok := snap.AccountIndex(step.Account)
	if !ok {
		return nil, errors.NewError(errors.ErrCodeProofMismatch, "updated account not in snapshot")
	}
	if witness.LeafProof.Index != uint64(accountIdx) {
		return nil, errors.NewError(errors.ErrCodeProofMismatch, "leaf proof index does not match account position")
	}
	prevLeaf := commitment.ScoreLeafHash(step.Account, step.PrevScore)
	if !commitment.Verify(step.InputStateDigest, prevLeaf, witness.LeafProof, n) {
		return nil, errors.NewError(errors.ErrCodeProofMismatch, errors.ErrMsgProofMismatch)
	}

	// Every inbound truster must be witnessed, in snapshot edge order, each
	// score proven against the agreed input state.
	inbound := snap.Inbound(step.Account)
	if len(witness.Trusters) != len(inbound) {
		return nil, errors.NewError(errors.ErrCodeProofMismatch, "witness truster set does not match snapshot edges")
	}
	witnessScores := make(map[string]types.Score, len(inbound))
	for i, e := range inbound {
		tw := witness.Trusters[i]
		if tw.Account != e.From {
			return nil, errors.NewError(errors.ErrCodeProofMismatch, "witness truster order does not match snapshot edges")
		}
		ti, ok := snap.AccountIndex(e.From)
		if !ok || tw.Proof.Index != uint64(ti) {
			return nil, errors.NewError(errors.ErrCodeProofMismatch, "truster proof index does not match account position")
		}
		leaf := commitment.ScoreLeafHash(tw.Account, tw.Score)
		if !commitment.Verify(step.InputStateDigest, leaf, tw.Proof, n) {
			return nil, errors.NewError(errors.ErrCodeProofMismatch, errors.ErrMsgProofMismatch)
		}
		witnessScores[tw.Account] = tw.Score
	}

	expected := computeScore(snap, params, step.Account, func(acct string) types.Score {
		return witnessScores[acct]
	})
	expectedLeaf := commitment.ScoreLeafHash(step.Account, expected)
	expectedOut, err := commitment.RootFromProof(expectedLeaf, witness.LeafProof, n)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeProofMismatch, err.Error())
	}

	return &ReplayOutcome{
		ExpectedScore:        expected,
		ExpectedOutputDigest: expectedOut,
		Matches:              expected == step.NewScore && expectedOut == step.OutputStateDigest,
	}, nil
}

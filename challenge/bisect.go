package challenge

import (
	"fmt"

	"github.com/trustmesh/rpn/commitment"
	"github.com/trustmesh/rpn/engine"
	"github.com/trustmesh/rpn/errors"
	"github.com/trustmesh/rpn/events"
	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/monitoring"
	"github.com/trustmesh/rpn/types"
)

// partyOf maps a caller account to its side of the game.
func partyOf(sub *types.Submission, game *types.ChallengeGame, caller string) (types.Party, error) {
	switch caller {
	case sub.Submitter:
		return types.PartySubmitter, nil
	case game.Challenger:
		return types.PartyChallenger, nil
	default:
		return 0, errors.NewError(errors.ErrCodeWrongTurn, errors.ErrMsgWrongTurn)
	}
}

// Propose posts the current round mover's midpoint digest: the claimed state
// after step mid, mid = (lo+hi)/2.
func (m *Manager) Propose(submissionID, caller string, digest [32]byte) (*types.ChallengeGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, game, err := m.loadGame(submissionID)
	if err != nil {
		return nil, err
	}
	if res, err := m.enforceRoundDeadline(sub, game); err != nil {
		return nil, err
	} else if res != types.ResolutionPending {
		return nil, errors.NewError(errors.ErrCodeDeadlineExceeded, errors.ErrMsgRoundExpired)
	}

	if game.Status != types.GameBisecting {
		return nil, errors.NewError(errors.ErrCodeInvalidTransition, errors.ErrMsgInvalidTransition)
	}
	party, err := partyOf(sub, game, caller)
	if err != nil {
		return nil, err
	}
	if game.Phase != types.PhasePropose || party != game.Mover {
		return nil, errors.NewError(errors.ErrCodeWrongTurn, errors.ErrMsgWrongTurn)
	}

	mid := (game.Lo + game.Hi) / 2
	game.ProposedMid = mid
	game.ProposedDigest = digest
	game.Phase = types.PhaseRespond
	game.RoundDeadline = m.clock.CurrentHeight() + m.cfg.RoundDeadline
	if party == types.PartyChallenger {
		game.ChallengerClaims[mid] = digest
	}

	if err := m.challenges.Store(game); err != nil {
		return nil, err
	}
	logx.Debug("CHALLENGE", fmt.Sprintf("Midpoint proposed | submission=%s round=%d mid=%d by=%s",
		submissionID, game.Round, mid, party))
	return game, nil
}

// Respond lets the opponent accept or dispute the pending midpoint proposal.
// Agreement narrows to the upper half they still distrust; dispute narrows to
// the lower half containing the divergence.
func (m *Manager) Respond(submissionID, caller string, agree bool) (*types.ChallengeGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, game, err := m.loadGame(submissionID)
	if err != nil {
		return nil, err
	}
	if res, err := m.enforceRoundDeadline(sub, game); err != nil {
		return nil, err
	} else if res != types.ResolutionPending {
		return nil, errors.NewError(errors.ErrCodeDeadlineExceeded, errors.ErrMsgRoundExpired)
	}

	if game.Status != types.GameBisecting {
		return nil, errors.NewError(errors.ErrCodeInvalidTransition, errors.ErrMsgInvalidTransition)
	}
	party, err := partyOf(sub, game, caller)
	if err != nil {
		return nil, err
	}
	if game.Phase != types.PhaseRespond || party != game.Mover.Opponent() {
		return nil, errors.NewError(errors.ErrCodeWrongTurn, errors.ErrMsgWrongTurn)
	}

	if agree {
		// Both now accept the state after ProposedMid; the divergence lies in
		// (mid, hi].
		game.AgreedInputDigest = game.ProposedDigest
		game.Lo = game.ProposedMid + 1
	} else {
		// The divergence lies in [lo, mid].
		game.Hi = game.ProposedMid
	}

	game.Round++
	game.Mover = game.Mover.Opponent()
	game.Phase = types.PhasePropose
	game.RoundDeadline = m.clock.CurrentHeight() + m.cfg.RoundDeadline

	if game.Lo == game.Hi {
		game.Status = types.GameAwaitingFinalStepProof
	}

	if err := m.challenges.Store(game); err != nil {
		return nil, err
	}

	m.router.Publish(events.NewBisectionAdvanced(submissionID, game.Round, game.Lo, game.Hi))
	logx.Debug("CHALLENGE", fmt.Sprintf("Bisection advanced | submission=%s round=%d range=[%d,%d] agree=%t",
		submissionID, game.Round, game.Lo, game.Hi, agree))
	return game, nil
}

// SubmitFinalStepProof is the submitter's one-step defense once bisection has
// isolated a single disputed step: the step record, its inclusion proof
// against the committed root, and the witness needed to re-execute it. The
// chain replays exactly that step and resolves the game.
func (m *Manager) SubmitFinalStepProof(
	submissionID string,
	step *types.StepRecord,
	inclusion types.MerkleProof,
	witness *types.StepWitness,
) (types.Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, game, err := m.loadGame(submissionID)
	if err != nil {
		return types.ResolutionPending, err
	}
	if res, err := m.enforceRoundDeadline(sub, game); err != nil {
		return types.ResolutionPending, err
	} else if res != types.ResolutionPending {
		return res, nil
	}

	if game.Status != types.GameAwaitingFinalStepProof {
		return types.ResolutionPending, errors.NewError(errors.ErrCodeInvalidTransition, errors.ErrMsgInvalidTransition)
	}

	// Any verification failure is a failed defense: the submitter had one
	// chance to prove the isolated step and could not.
	if step.Index != game.Lo {
		return m.resolveLocked(sub, game, types.ResolutionChallengerWins, "final step index mismatch")
	}
	if step.InputStateDigest != game.AgreedInputDigest {
		return m.resolveLocked(sub, game, types.ResolutionChallengerWins, "final step contradicts agreed input state")
	}
	if !commitment.VerifyStep(sub.MerkleRoot, step, inclusion, sub.StepCount) {
		return m.resolveLocked(sub, game, types.ResolutionChallengerWins, errors.ErrMsgProofMismatch)
	}

	snap, err := m.snapshots.GetByEpoch(sub.Epoch)
	if err != nil {
		return types.ResolutionPending, err
	}
	outcome, err := engine.ReplayStep(snap, m.params, step, witness)
	if err != nil {
		// ProofMismatch from replay means the witness fails verification.
		return m.resolveLocked(sub, game, types.ResolutionChallengerWins, err.Error())
	}
	if !outcome.Matches {
		return m.resolveLocked(sub, game, types.ResolutionChallengerWins,
			fmt.Sprintf("replay computed %s, submitter claimed %s", outcome.ExpectedScore, step.NewScore))
	}

	// The submitter's step stands. If the challenger's own recorded claim for
	// this position matches too, the bisection narrowed to a step where no
	// disagreement existed: a protocol bug, never a normal outcome.
	if claimed, ok := game.ChallengerClaims[game.Lo]; ok && claimed == step.OutputStateDigest {
		monitoring.IncreaseInvariantViolationCount()
		logx.Error("CHALLENGE", fmt.Sprintf(
			"INVARIANT VIOLATION: both parties agree on disputed step | submission=%s step=%d digest=%x",
			submissionID, game.Lo, claimed[:8]))
	}
	return m.resolveLocked(sub, game, types.ResolutionSubmitterWins, "final step verified")
}

func (m *Manager) loadGame(submissionID string) (*types.Submission, *types.ChallengeGame, error) {
	sub, err := m.submissions.GetByID(submissionID)
	if err != nil {
		return nil, nil, err
	}
	if sub == nil {
		return nil, nil, errors.NewError(errors.ErrCodeSubmissionNotFound, errors.ErrMsgSubmissionNotFound)
	}
	game, err := m.challenges.GetBySubmissionID(submissionID)
	if err != nil {
		return nil, nil, err
	}
	if game == nil {
		return nil, nil, errors.NewError(errors.ErrCodeChallengeNotFound, errors.ErrMsgChallengeNotFound)
	}
	return sub, game, nil
}

package challenge

import (
	"fmt"

	"github.com/trustmesh/rpn/commitment"
	"github.com/trustmesh/rpn/errors"
	"github.com/trustmesh/rpn/events"
	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/monitoring"
	"github.com/trustmesh/rpn/types"
)

// Finalize drives every height-based transition for a submission: an expired
// unchallenged window resolves for the submitter; a missed bisection deadline
// forfeits the game to the responsive party. It is idempotent and callable by
// anyone; no transition here requires a live counterparty.
func (m *Manager) Finalize(submissionID string) (types.Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, err := m.submissions.GetByID(submissionID)
	if err != nil {
		return types.ResolutionPending, err
	}
	if sub == nil {
		return types.ResolutionPending, errors.NewError(errors.ErrCodeSubmissionNotFound, errors.ErrMsgSubmissionNotFound)
	}

	switch sub.Status {
	case types.SubmissionResolvedSubmitterWins:
		return types.ResolutionSubmitterWins, nil
	case types.SubmissionResolvedChallengerWins:
		return types.ResolutionChallengerWins, nil
	case types.SubmissionClosed:
		return types.ResolutionPending, errors.NewError(errors.ErrCodeInvalidTransition, errors.ErrMsgInvalidTransition)
	}

	if sub.Status == types.SubmissionOpen {
		if m.clock.CurrentHeight() <= sub.WindowDeadline {
			return types.ResolutionPending, nil
		}
		// Window expired with no challenge: the submission stands.
		return m.resolveLocked(sub, nil, types.ResolutionSubmitterWins, "challenge window expired unchallenged")
	}

	game, err := m.challenges.GetBySubmissionID(submissionID)
	if err != nil {
		return types.ResolutionPending, err
	}
	if game == nil {
		return types.ResolutionPending, errors.NewError(errors.ErrCodeChallengeNotFound, errors.ErrMsgChallengeNotFound)
	}
	return m.enforceRoundDeadline(sub, game)
}

// enforceRoundDeadline forfeits the game when the party on the move has let
// its deadline lapse. Returns ResolutionPending when the game is still live.
func (m *Manager) enforceRoundDeadline(sub *types.Submission, game *types.ChallengeGame) (types.Resolution, error) {
	switch game.Status {
	case types.GameBisecting, types.GameAwaitingFinalStepProof:
		// live states, checked below
	default:
		return types.ResolutionPending, nil
	}
	if m.clock.CurrentHeight() <= game.RoundDeadline {
		return types.ResolutionPending, nil
	}

	var overdue types.Party
	switch game.Status {
	case types.GameAwaitingFinalStepProof:
		// Only the submitter can supply the one-step proof.
		overdue = types.PartySubmitter
	default:
		if game.Phase == types.PhasePropose {
			overdue = game.Mover
		} else {
			overdue = game.Mover.Opponent()
		}
	}

	winner := types.ResolutionSubmitterWins
	if overdue == types.PartySubmitter {
		winner = types.ResolutionChallengerWins
	}
	return m.resolveLocked(sub, game, winner,
		fmt.Sprintf("%s missed the round deadline", overdue))
}

// resolveLocked settles stakes, publishes scores when the submitter prevails,
// and moves both records to their resolved states. game may be nil for an
// unchallenged window expiry.
func (m *Manager) resolveLocked(
	sub *types.Submission,
	game *types.ChallengeGame,
	winner types.Resolution,
	reason string,
) (types.Resolution, error) {
	now := m.clock.CurrentHeight()

	if winner == types.ResolutionSubmitterWins {
		if err := m.escrow.Release(sub.EscrowID, sub.Submitter); err != nil {
			return types.ResolutionPending, err
		}
		if game != nil {
			if err := m.escrow.Slash(game.EscrowID, m.cfg.ProtocolFeeBps, sub.Submitter); err != nil {
				return types.ResolutionPending, err
			}
		}
		sub.Status = types.SubmissionResolvedSubmitterWins
		if game != nil {
			game.Status = types.GameResolvedSubmitterWins
		}
		// The refresh becomes canonical only now.
		if err := m.scores.StoreEpochScores(sub.Epoch, sub.FinalScores); err != nil {
			return types.ResolutionPending, err
		}
	} else {
		if err := m.escrow.Release(game.EscrowID, game.Challenger); err != nil {
			return types.ResolutionPending, err
		}
		if err := m.escrow.Slash(sub.EscrowID, m.cfg.ProtocolFeeBps, game.Challenger); err != nil {
			return types.ResolutionPending, err
		}
		sub.Status = types.SubmissionResolvedChallengerWins
		game.Status = types.GameResolvedChallengerWins
	}

	sub.ResolvedAt = now
	if err := m.submissions.Store(sub); err != nil {
		return types.ResolutionPending, err
	}
	if game != nil {
		game.ResolvedAt = now
		if err := m.challenges.Store(game); err != nil {
			return types.ResolutionPending, err
		}
		m.openGames--
		monitoring.SetOpenChallengeCount(m.openGames)
		monitoring.RecordBisectionRounds(int(game.Round))
	}

	monitoring.RecordResolvedGame(winner.String())
	m.router.Publish(events.NewChallengeResolved(sub.ID, winner))
	logx.Info("CHALLENGE", fmt.Sprintf("Game resolved | submission=%s winner=%s reason=%s",
		sub.ID, winner, reason))
	return winner, nil
}

// FinalizeExpired sweeps every live submission once: expired windows and
// missed deadlines resolve, resolved records past retention are archived.
// The refresh manager calls this periodically; anyone may call it.
func (m *Manager) FinalizeExpired() error {
	m.mu.Lock()
	subs, err := m.submissions.GetAll()
	m.mu.Unlock()
	if err != nil {
		return err
	}

	for _, sub := range subs {
		switch sub.Status {
		case types.SubmissionOpen, types.SubmissionChallenged:
			if _, err := m.Finalize(sub.ID); err != nil {
				logx.Error("CHALLENGE", fmt.Sprintf("Finalize sweep failed | submission=%s err=%v", sub.ID, err))
			}
		case types.SubmissionResolvedSubmitterWins, types.SubmissionResolvedChallengerWins:
			if err := m.archiveIfExpired(sub.ID); err != nil {
				logx.Error("CHALLENGE", fmt.Sprintf("Archive sweep failed | submission=%s err=%v", sub.ID, err))
			}
		}
	}
	return nil
}

// archiveIfExpired closes a resolved submission past its retention window and
// prunes the game record. Canonical scores survive archival. The record is
// re-read under the lock; the sweep's copy may be stale by the time we hold it.
func (m *Manager) archiveIfExpired(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, err := m.submissions.GetByID(id)
	if err != nil {
		return err
	}
	if sub == nil {
		return nil
	}
	switch sub.Status {
	case types.SubmissionResolvedSubmitterWins, types.SubmissionResolvedChallengerWins:
	default:
		return nil
	}
	if m.clock.CurrentHeight() <= sub.ResolvedAt+m.cfg.RetentionWindow {
		return nil
	}
	if err := m.challenges.Delete(sub.ID); err != nil {
		return err
	}
	sub.Status = types.SubmissionClosed
	sub.FinalScores = nil
	if err := m.submissions.Store(sub); err != nil {
		return err
	}
	logx.Info("CHALLENGE", fmt.Sprintf("Submission archived | id=%s", sub.ID))
	return nil
}

// stateDigest commits a score state over the snapshot's account order.
func stateDigest(snap *types.GraphSnapshot, scoreAt func(string) types.Score) [32]byte {
	return commitment.StateRoot(snap.Accounts, scoreAt)
}

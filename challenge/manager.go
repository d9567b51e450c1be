package challenge

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/trustmesh/rpn/commitment"
	"github.com/trustmesh/rpn/engine"
	"github.com/trustmesh/rpn/errors"
	"github.com/trustmesh/rpn/events"
	"github.com/trustmesh/rpn/interfaces"
	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/monitoring"
	"github.com/trustmesh/rpn/store"
	"github.com/trustmesh/rpn/types"
)

// Manager owns submission lifecycle and challenge adjudication. Every
// externally observable transition (submit, open_challenge, bisection moves,
// finalize) is atomic under one mutex, matching the transaction-serialized
// scheduling model of the surrounding ledger: no operation blocks, and all
// deadlines are height thresholds checked lazily on later calls.
type Manager struct {
	mu sync.Mutex

	cfg    Config
	params engine.Params

	clock  interfaces.Clock
	escrow interfaces.Escrow

	snapshots   store.SnapshotStore
	submissions store.SubmissionStore
	challenges  store.ChallengeStore
	scores      store.ScoreStore
	router      *events.EventRouter

	openGames int
}

// NewManager wires the challenge state machine to its collaborators.
func NewManager(
	cfg Config,
	params engine.Params,
	clock interfaces.Clock,
	escrow interfaces.Escrow,
	stores *store.Stores,
	router *events.EventRouter,
) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid challenge config: %w", err)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine params: %w", err)
	}
	return &Manager{
		cfg:         cfg,
		params:      params,
		clock:       clock,
		escrow:      escrow,
		snapshots:   stores.Snapshots,
		submissions: stores.Submissions,
		challenges:  stores.Challenges,
		scores:      stores.Scores,
		router:      router,
	}, nil
}

// Submit posts a refresh result: the Merkle root over the step sequence, the
// final scores (bound by their digest), and the submitter's bond. The
// challenge window starts at the current height.
//
// lastStep and lastStepProof disclose the final record of the committed
// sequence. The chain verifies its inclusion under merkleRoot and requires its
// output state to equal finalScoresDigest, which pins the posted scores to the
// committed computation: a root and a score set that describe two different
// runs are rejected here, before any stake is at risk.
func (m *Manager) Submit(
	epoch uint64,
	submitter string,
	merkleRoot [32]byte,
	finalScoresDigest [32]byte,
	stepCount uint64,
	finalScores map[string]types.Score,
	lastStep *types.StepRecord,
	lastStepProof types.MerkleProof,
	stake *uint256.Int,
) (*types.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, err := m.snapshots.GetByEpoch(epoch)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errors.NewError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("no snapshot for epoch %d", epoch))
	}

	id := store.SubmissionID(epoch, submitter)
	existing, err := m.submissions.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		monitoring.RecordRejectedSubmission(monitoring.SubmissionDuplicated)
		return nil, errors.NewError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("submission %s already exists", id))
	}

	if stake == nil || stake.Cmp(m.cfg.MinStake) < 0 {
		monitoring.RecordRejectedSubmission(monitoring.SubmissionStakeInsufficient)
		return nil, errors.NewError(errors.ErrCodeStakeInsufficient, errors.ErrMsgStakeInsufficient)
	}

	if !engine.ValidStepCount(snap, m.params, stepCount) {
		monitoring.RecordRejectedSubmission(monitoring.SubmissionBadStepCount)
		return nil, errors.NewError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("step count %d is not a whole number of passes for this snapshot", stepCount))
	}

	// The posted digest must bind the posted scores; the chain checks this
	// cheaply so that get_score can later serve the scores themselves.
	claimedDigest := ScoresDigest(snap, finalScores)
	if claimedDigest != finalScoresDigest {
		return nil, errors.NewError(errors.ErrCodeInvalidRequest,
			"final scores digest does not match posted scores")
	}
	if stepCount == 0 {
		// Nothing to bisect: an empty step sequence is only valid when the
		// final state equals the initial state, which the chain derives alone.
		initial, err := engine.InitialStateDigest(snap, m.params)
		if err != nil {
			return nil, err
		}
		if finalScoresDigest != initial {
			return nil, errors.NewError(errors.ErrCodeInvalidRequest,
				"empty step sequence cannot change scores")
		}
	} else {
		// The posted scores must be the committed sequence's final state.
		// Without this, a fraudulent score set can ride an honest root:
		// bisection then isolates an honest step the submitter can defend,
		// and the unproven scores become canonical.
		if lastStep == nil {
			monitoring.RecordRejectedSubmission(monitoring.SubmissionUnboundScores)
			return nil, errors.NewError(errors.ErrCodeInvalidRequest,
				"missing final step disclosure")
		}
		if lastStep.Index != stepCount-1 {
			monitoring.RecordRejectedSubmission(monitoring.SubmissionUnboundScores)
			return nil, errors.NewError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("disclosed step index %d is not the last step", lastStep.Index))
		}
		if !commitment.VerifyStep(merkleRoot, lastStep, lastStepProof, stepCount) {
			monitoring.RecordRejectedSubmission(monitoring.SubmissionUnboundScores)
			return nil, errors.NewError(errors.ErrCodeInvalidRequest,
				"final step disclosure does not match the committed root")
		}
		if lastStep.OutputStateDigest != finalScoresDigest {
			monitoring.RecordRejectedSubmission(monitoring.SubmissionUnboundScores)
			return nil, errors.NewError(errors.ErrCodeInvalidRequest,
				"posted scores are not the committed sequence's final state")
		}
	}

	escrowID, err := m.escrow.Lock(submitter, stake)
	if err != nil {
		return nil, err
	}

	now := m.clock.CurrentHeight()
	sub := &types.Submission{
		ID:                id,
		Epoch:             epoch,
		Submitter:         submitter,
		SnapshotDigest:    snap.Digest(),
		MerkleRoot:        merkleRoot,
		FinalScoresDigest: finalScoresDigest,
		FinalScores:       finalScores,
		StepCount:         stepCount,
		Stake:             new(uint256.Int).Set(stake),
		EscrowID:          escrowID,
		SubmittedAt:       now,
		WindowDeadline:    now + m.cfg.ChallengeWindow,
		Status:            types.SubmissionOpen,
	}
	if err := m.submissions.Store(sub); err != nil {
		return nil, err
	}

	monitoring.IncreaseSubmissionCount()
	m.router.Publish(events.NewSubmissionPosted(sub.ID, epoch, submitter, stepCount))
	logx.Info("CHALLENGE", fmt.Sprintf("Submission posted | id=%s root=%x steps=%d window_deadline=%d",
		sub.ID, merkleRoot[:8], stepCount, sub.WindowDeadline))
	return sub, nil
}

// OpenChallenge bonds a challenger against a submission. One game per
// submission at a time; symmetric-stake requirement deters frivolous
// challenges and frivolous defense alike.
func (m *Manager) OpenChallenge(submissionID, challenger string, stake *uint256.Int) (*types.ChallengeGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, err := m.submissions.GetByID(submissionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errors.NewError(errors.ErrCodeSubmissionNotFound, errors.ErrMsgSubmissionNotFound)
	}

	switch sub.Status {
	case types.SubmissionOpen:
		// fall through
	case types.SubmissionChallenged:
		return nil, errors.NewError(errors.ErrCodeAlreadyChallenged, errors.ErrMsgAlreadyChallenged)
	default:
		return nil, errors.NewError(errors.ErrCodeInvalidTransition, errors.ErrMsgInvalidTransition)
	}

	now := m.clock.CurrentHeight()
	if now > sub.WindowDeadline {
		return nil, errors.NewError(errors.ErrCodeDeadlineExceeded, errors.ErrMsgWindowClosed)
	}
	if sub.StepCount == 0 {
		return nil, errors.NewError(errors.ErrCodeInvalidTransition,
			"empty step sequence has nothing to dispute")
	}

	required := m.cfg.RequiredChallengerStake(sub.Stake)
	if stake == nil || stake.Cmp(required) < 0 {
		return nil, errors.NewError(errors.ErrCodeStakeInsufficient, errors.ErrMsgStakeInsufficient)
	}

	snap, err := m.snapshots.GetByEpoch(sub.Epoch)
	if err != nil {
		return nil, err
	}
	initial, err := engine.InitialStateDigest(snap, m.params)
	if err != nil {
		return nil, err
	}

	escrowID, err := m.escrow.Lock(challenger, stake)
	if err != nil {
		return nil, err
	}

	game := &types.ChallengeGame{
		ID:                submissionID,
		SubmissionID:      submissionID,
		Challenger:        challenger,
		Stake:             new(uint256.Int).Set(stake),
		EscrowID:          escrowID,
		Lo:                0,
		Hi:                sub.StepCount - 1,
		Round:             0,
		Mover:             types.PartySubmitter,
		Phase:             types.PhasePropose,
		AgreedInputDigest: initial,
		ChallengerClaims:  make(map[uint64][32]byte),
		RoundDeadline:     now + m.cfg.RoundDeadline,
		Status:            types.GameBisecting,
		OpenedAt:          now,
	}
	if game.Lo == game.Hi {
		// Single-step sequence: skip straight to final-step verification.
		game.Status = types.GameAwaitingFinalStepProof
	}

	sub.Status = types.SubmissionChallenged
	if err := m.challenges.Store(game); err != nil {
		return nil, err
	}
	if err := m.submissions.Store(sub); err != nil {
		return nil, err
	}

	m.openGames++
	monitoring.SetOpenChallengeCount(m.openGames)
	m.router.Publish(events.NewChallengeOpened(submissionID, challenger))
	logx.Info("CHALLENGE", fmt.Sprintf("Challenge opened | submission=%s challenger=%s range=[0,%d]",
		submissionID, challenger, game.Hi))
	return game, nil
}

// GetSubmission returns a submission by id, nil if unknown.
func (m *Manager) GetSubmission(id string) (*types.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.submissions.GetByID(id)
}

// GetChallenge returns the game for a submission, nil if none.
func (m *Manager) GetChallenge(submissionID string) (*types.ChallengeGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.challenges.GetBySubmissionID(submissionID)
}

// GetScore reads the canonical score of an account: the final scores of the
// most recently resolved submission. Unknown accounts read as zero.
func (m *Manager) GetScore(account string) (types.Score, error) {
	return m.scores.GetByAccount(account)
}

// LatestScoreEpoch reports the most recent epoch whose scores became
// canonical, zero when no refresh has finalized yet.
func (m *Manager) LatestScoreEpoch() (uint64, error) {
	epoch, ok, err := m.scores.LatestEpoch()
	if err != nil || !ok {
		return 0, err
	}
	return epoch, nil
}

// ScoresDigest commits a final score map over the snapshot's account order.
// Submitters use it to bind their posted scores; accounts outside the
// snapshot cannot carry scores.
func ScoresDigest(snap *types.GraphSnapshot, scores map[string]types.Score) [32]byte {
	return stateDigest(snap, func(acct string) types.Score {
		return scores[acct]
	})
}

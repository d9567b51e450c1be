package types

import (
	"github.com/holiman/uint256"
)

// SubmissionStatus tracks a refresh submission through its challenge window.
type SubmissionStatus int

const (
	// SubmissionOpen means the challenge window is running.
	SubmissionOpen SubmissionStatus = iota
	// SubmissionChallenged means a challenge game is in progress.
	SubmissionChallenged
	// SubmissionResolvedSubmitterWins and SubmissionResolvedChallengerWins are
	// terminal outcomes awaiting archival.
	SubmissionResolvedSubmitterWins
	SubmissionResolvedChallengerWins
	// SubmissionClosed means the record has passed its retention window.
	SubmissionClosed
)

func (s SubmissionStatus) String() string {
	switch s {
	case SubmissionOpen:
		return "open"
	case SubmissionChallenged:
		return "challenged"
	case SubmissionResolvedSubmitterWins:
		return "resolved_submitter_wins"
	case SubmissionResolvedChallengerWins:
		return "resolved_challenger_wins"
	case SubmissionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Submission is a posted refresh result: the Merkle root over the step
// sequence plus the final scores digest, bonded by the submitter's stake.
type Submission struct {
	ID                string           `json:"id"` // epoch:submitter
	Epoch             uint64           `json:"epoch"`
	Submitter         string           `json:"submitter"`
	SnapshotDigest    [32]byte         `json:"snapshot_digest"`
	MerkleRoot        [32]byte         `json:"merkle_root"`
	FinalScoresDigest [32]byte         `json:"final_scores_digest"`
	FinalScores       map[string]Score `json:"final_scores"`
	StepCount         uint64           `json:"step_count"`
	Stake             *uint256.Int     `json:"stake"`
	EscrowID          string           `json:"escrow_id"`
	SubmittedAt       uint64           `json:"submitted_at"` // block height
	WindowDeadline    uint64           `json:"window_deadline"`
	Status            SubmissionStatus `json:"status"`
	ResolvedAt        uint64           `json:"resolved_at"`
}

// Party identifies one side of a challenge game.
type Party int

const (
	PartySubmitter Party = iota
	PartyChallenger
)

func (p Party) String() string {
	if p == PartySubmitter {
		return "submitter"
	}
	return "challenger"
}

// Opponent returns the other side.
func (p Party) Opponent() Party {
	if p == PartySubmitter {
		return PartyChallenger
	}
	return PartySubmitter
}

// GamePhase is the sub-state within one bisection round.
type GamePhase int

const (
	// PhasePropose: the round's mover must post a midpoint digest.
	PhasePropose GamePhase = iota
	// PhaseRespond: the opponent must agree or dispute the proposal.
	PhaseRespond
)

func (p GamePhase) String() string {
	switch p {
	case PhasePropose:
		return "propose"
	case PhaseRespond:
		return "respond"
	default:
		return "unknown"
	}
}

// GameStatus is the challenge game state machine position.
type GameStatus int

const (
	GameBisecting GameStatus = iota
	GameAwaitingFinalStepProof
	GameResolvedSubmitterWins
	GameResolvedChallengerWins
	GameClosed
)

func (s GameStatus) String() string {
	switch s {
	case GameBisecting:
		return "bisecting"
	case GameAwaitingFinalStepProof:
		return "awaiting_final_step_proof"
	case GameResolvedSubmitterWins:
		return "resolved_submitter_wins"
	case GameResolvedChallengerWins:
		return "resolved_challenger_wins"
	case GameClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Resolution is the outcome reported by Finalize.
type Resolution int

const (
	ResolutionPending Resolution = iota
	ResolutionSubmitterWins
	ResolutionChallengerWins
)

func (r Resolution) String() string {
	switch r {
	case ResolutionSubmitterWins:
		return "submitter_wins"
	case ResolutionChallengerWins:
		return "challenger_wins"
	default:
		return "pending"
	}
}

// ChallengeGame is the dispute state for one submission. A submission accepts
// exactly one challenge until that challenge resolves.
type ChallengeGame struct {
	ID           string       `json:"id"`
	SubmissionID string       `json:"submission_id"`
	Challenger   string       `json:"challenger"`
	Stake        *uint256.Int `json:"stake"`
	EscrowID     string       `json:"escrow_id"`

	// Bisection range over the step sequence, inclusive.
	Lo uint64 `json:"lo"`
	Hi uint64 `json:"hi"`

	Round uint32    `json:"round"`
	Mover Party     `json:"mover"`
	Phase GamePhase `json:"phase"`

	// AgreedInputDigest is the state digest both parties accept immediately
	// before step Lo. ProposedDigest/ProposedMid hold the current round's
	// pending midpoint proposal.
	AgreedInputDigest [32]byte `json:"agreed_input_digest"`
	ProposedDigest    [32]byte `json:"proposed_digest"`
	ProposedMid       uint64   `json:"proposed_mid"`

	// ChallengerClaims records digests the challenger personally proposed,
	// used to detect the both-parties-agree invariant violation at the final
	// step.
	ChallengerClaims map[uint64][32]byte `json:"challenger_claims"`

	RoundDeadline uint64     `json:"round_deadline"` // block height
	Status        GameStatus `json:"status"`
	OpenedAt      uint64     `json:"opened_at"`
	ResolvedAt    uint64     `json:"resolved_at"`
}

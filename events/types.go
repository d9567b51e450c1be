package events

import (
	"time"

	"github.com/trustmesh/rpn/types"
)

// EventType is an enum-like string type for protocol events
type EventType string

const (
	EventEdgeUpdated       EventType = "EdgeUpdated"
	EventEpochAdvanced     EventType = "EpochAdvanced"
	EventSubmissionPosted  EventType = "SubmissionPosted"
	EventChallengeOpened   EventType = "ChallengeOpened"
	EventBisectionAdvanced EventType = "BisectionAdvanced"
	EventChallengeResolved EventType = "ChallengeResolved"
)

// ProtocolEvent represents any externally observable refresh-protocol event.
// Ref identifies the object the event concerns (submission id, epoch, edge key).
type ProtocolEvent interface {
	Type() EventType
	Timestamp() time.Time
	Ref() string
}

// EdgeUpdated fires when a trust edge is upserted or removed
type EdgeUpdated struct {
	from      string
	to        string
	weight    types.Score
	removed   bool
	timestamp time.Time
}

func NewEdgeUpdated(from, to string, weight types.Score, removed bool) *EdgeUpdated {
	return &EdgeUpdated{
		from:      from,
		to:        to,
		weight:    weight,
		removed:   removed,
		timestamp: time.Now(),
	}
}

func (e *EdgeUpdated) Type() EventType      { return EventEdgeUpdated }
func (e *EdgeUpdated) Timestamp() time.Time { return e.timestamp }
func (e *EdgeUpdated) Ref() string          { return e.from + "->" + e.to }
func (e *EdgeUpdated) From() string         { return e.from }
func (e *EdgeUpdated) To() string           { return e.to }
func (e *EdgeUpdated) Weight() types.Score  { return e.weight }
func (e *EdgeUpdated) Removed() bool        { return e.removed }

// EpochAdvanced fires when the refresh manager rolls into a new epoch
type EpochAdvanced struct {
	epoch          uint64
	snapshotDigest [32]byte
	timestamp      time.Time
}

func NewEpochAdvanced(epoch uint64, snapshotDigest [32]byte) *EpochAdvanced {
	return &EpochAdvanced{
		epoch:          epoch,
		snapshotDigest: snapshotDigest,
		timestamp:      time.Now(),
	}
}

func (e *EpochAdvanced) Type() EventType           { return EventEpochAdvanced }
func (e *EpochAdvanced) Timestamp() time.Time      { return e.timestamp }
func (e *EpochAdvanced) Ref() string               { return fmtUint(e.epoch) }
func (e *EpochAdvanced) Epoch() uint64             { return e.epoch }
func (e *EpochAdvanced) SnapshotDigest() [32]byte  { return e.snapshotDigest }

// SubmissionPosted fires when a refresh result is accepted on-chain
type SubmissionPosted struct {
	submissionID string
	epoch        uint64
	submitter    string
	stepCount    uint64
	timestamp    time.Time
}

func NewSubmissionPosted(submissionID string, epoch uint64, submitter string, stepCount uint64) *SubmissionPosted {
	return &SubmissionPosted{
		submissionID: submissionID,
		epoch:        epoch,
		submitter:    submitter,
		stepCount:    stepCount,
		timestamp:    time.Now(),
	}
}

func (e *SubmissionPosted) Type() EventType      { return EventSubmissionPosted }
func (e *SubmissionPosted) Timestamp() time.Time { return e.timestamp }
func (e *SubmissionPosted) Ref() string          { return e.submissionID }
func (e *SubmissionPosted) Epoch() uint64        { return e.epoch }
func (e *SubmissionPosted) Submitter() string    { return e.submitter }
func (e *SubmissionPosted) StepCount() uint64    { return e.stepCount }

// ChallengeOpened fires when a challenger bonds against a submission
type ChallengeOpened struct {
	submissionID string
	challenger   string
	timestamp    time.Time
}

func NewChallengeOpened(submissionID, challenger string) *ChallengeOpened {
	return &ChallengeOpened{
		submissionID: submissionID,
		challenger:   challenger,
		timestamp:    time.Now(),
	}
}

func (e *ChallengeOpened) Type() EventType      { return EventChallengeOpened }
func (e *ChallengeOpened) Timestamp() time.Time { return e.timestamp }
func (e *ChallengeOpened) Ref() string          { return e.submissionID }
func (e *ChallengeOpened) Challenger() string   { return e.challenger }

// BisectionAdvanced fires after each accepted bisection move
type BisectionAdvanced struct {
	submissionID string
	round        uint32
	lo           uint64
	hi           uint64
	timestamp    time.Time
}

func NewBisectionAdvanced(submissionID string, round uint32, lo, hi uint64) *BisectionAdvanced {
	return &BisectionAdvanced{
		submissionID: submissionID,
		round:        round,
		lo:           lo,
		hi:           hi,
		timestamp:    time.Now(),
	}
}

func (e *BisectionAdvanced) Type() EventType      { return EventBisectionAdvanced }
func (e *BisectionAdvanced) Timestamp() time.Time { return e.timestamp }
func (e *BisectionAdvanced) Ref() string          { return e.submissionID }
func (e *BisectionAdvanced) Round() uint32        { return e.round }
func (e *BisectionAdvanced) Lo() uint64           { return e.lo }
func (e *BisectionAdvanced) Hi() uint64           { return e.hi }

// ChallengeResolved fires when a game (or an unchallenged window) resolves
type ChallengeResolved struct {
	submissionID string
	resolution   types.Resolution
	timestamp    time.Time
}

func NewChallengeResolved(submissionID string, resolution types.Resolution) *ChallengeResolved {
	return &ChallengeResolved{
		submissionID: submissionID,
		resolution:   resolution,
		timestamp:    time.Now(),
	}
}

func (e *ChallengeResolved) Type() EventType              { return EventChallengeResolved }
func (e *ChallengeResolved) Timestamp() time.Time         { return e.timestamp }
func (e *ChallengeResolved) Ref() string                  { return e.submissionID }
func (e *ChallengeResolved) Resolution() types.Resolution { return e.resolution }

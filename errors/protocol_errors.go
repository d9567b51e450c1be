package errors

import (
	"github.com/trustmesh/rpn/jsonx"
)

// ProtocolErrorCode represents standardized error codes for refresh protocol operations
type ProtocolErrorCode string

const (
	// General errors
	ErrCodeInternal ProtocolErrorCode = "internal_error"

	// Validation errors
	ErrCodeInvalidRequest ProtocolErrorCode = "invalid_request"
	ErrCodeInvalidEdge    ProtocolErrorCode = "invalid_edge"
	ErrCodeEmptySeedSet   ProtocolErrorCode = "empty_seed_set"
	ErrCodeQuantityLimit  ProtocolErrorCode = "quantity_limit"

	// Challenge protocol errors
	ErrCodeAlreadyChallenged  ProtocolErrorCode = "already_challenged"
	ErrCodeDeadlineExceeded   ProtocolErrorCode = "deadline_exceeded"
	ErrCodeProofMismatch      ProtocolErrorCode = "proof_mismatch"
	ErrCodeStakeInsufficient  ProtocolErrorCode = "stake_insufficient"
	ErrCodeWrongTurn          ProtocolErrorCode = "wrong_turn"
	ErrCodeInvalidTransition  ProtocolErrorCode = "invalid_transition"
	ErrCodeSubmissionNotFound ProtocolErrorCode = "submission_not_found"
	ErrCodeChallengeNotFound  ProtocolErrorCode = "challenge_not_found"

	// Ledger errors
	ErrCodeInsufficientFunds ProtocolErrorCode = "insufficient_funds"
	ErrCodeEscrowNotFound    ProtocolErrorCode = "escrow_not_found"
	ErrCodeAccountNotFound   ProtocolErrorCode = "account_not_found"
)

// ProtocolError represents a standardized refresh protocol error
type ProtocolError struct {
	Code    ProtocolErrorCode `json:"code"`
	Message string            `json:"message"`
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	err, _ := jsonx.Marshal(ProtocolError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(err)
}

// Error message constants - user-friendly and concise
const (
	ErrMsgInvalidRequest     = "Request format is invalid"
	ErrMsgSelfTrust          = "An account cannot issue a trust edge to itself"
	ErrMsgZeroWeight         = "Zero-weight edges must be removed, not stored"
	ErrMsgEmptySeedSet       = "Propagation requires at least one seed account"
	ErrMsgQuantityLimit      = "Snapshot account count exceeds the configured maximum"
	ErrMsgAlreadyChallenged  = "Submission already has an open challenge"
	ErrMsgWindowClosed       = "Challenge window for this submission has closed"
	ErrMsgRoundExpired       = "Round deadline has passed"
	ErrMsgProofMismatch      = "Merkle proof does not reduce to the committed root"
	ErrMsgStakeInsufficient  = "Stake is below the required bond"
	ErrMsgWrongTurn          = "It is not this party's turn to move"
	ErrMsgInvalidTransition  = "Operation is not valid in the game's current state"
	ErrMsgSubmissionNotFound = "Submission could not be found"
	ErrMsgChallengeNotFound  = "Challenge could not be found"
	ErrMsgInsufficientFunds  = "Not enough available balance to lock"
	ErrMsgEscrowNotFound     = "Escrow handle does not exist"
	ErrMsgAccountNotFound    = "Account does not exist"
	ErrMsgInternal           = "Server error, please try again"
)

// NewError creates a new ProtocolError and returns it as error interface
func NewError(code ProtocolErrorCode, message string) error {
	return &ProtocolError{
		Code:    code,
		Message: message,
	}
}

// IsCode reports whether err is a ProtocolError carrying the given code
func IsCode(err error, code ProtocolErrorCode) bool {
	pe, ok := err.(*ProtocolError)
	return ok && pe.Code == code
}

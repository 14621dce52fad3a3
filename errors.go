package qbft

import "errors"

// Per-message errors. Messages failing with one of these are dropped.
var (
	ErrInvalidLeader     = errors.New("proposal from an operator that is not the round leader")
	ErrUnknownValidation = errors.New("validation response for an unknown request")
	ErrStaleRound        = errors.New("message for a round below the current round")
	ErrWrongRound        = errors.New("message for a round other than the current round")
	ErrDuplicateProposal = errors.New("a proposal was already accepted in this round")
	ErrUnknownOperator   = errors.New("message from an operator outside the membership")
)

// Fatal errors.
var (
	ErrChannelClosed = errors.New("outbound channel closed")
	ErrConfigInvalid = errors.New("invalid instance configuration")
)

// Validation failure reasons.
var (
	ErrValueNotFound = errors.New("value could not be found")
	ErrValueRejected = errors.New("value was rejected")
)

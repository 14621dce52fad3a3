package qbft

import (
	"fmt"
)

// InMessage is a message that can be delivered to an instance.
// The set of implementations is closed: ProposeMsg, PrepareMsg, ConfirmMsg,
// RoundChangeMsg, ValidationResponse and GetDataResult.
type InMessage interface {
	inbound()
}

// OutMessage is a message emitted by an instance.
// The set of implementations is closed: GetDataRequest, ProposeMsg, PrepareMsg,
// ConfirmMsg, ValidationRequest, RoundChangeMsg and DecidedEvent.
type OutMessage interface {
	outbound()
}

// ProposeMsg is broadcast by the leader of a round.
type ProposeMsg struct {
	Round Round
	Value []byte
	From  OperatorID // The operator who sent the message.
}

func (p ProposeMsg) String() string {
	return fmt.Sprintf("Propose(round: %d, from: %d, value: %.8x)", p.Round, p.From, p.Value)
}

// PrepareMsg is broadcast by an operator that validated the proposal of a round.
type PrepareMsg struct {
	Round Round
	Value []byte
	From  OperatorID
}

func (p PrepareMsg) String() string {
	return fmt.Sprintf("Prepare(round: %d, from: %d, value: %.8x)", p.Round, p.From, p.Value)
}

// ConfirmMsg is broadcast by an operator that saw a quorum of matching prepares.
type ConfirmMsg struct {
	Round Round
	Value []byte
	From  OperatorID
}

func (c ConfirmMsg) String() string {
	return fmt.Sprintf("Confirm(round: %d, from: %d, value: %.8x)", c.Round, c.From, c.Value)
}

// RoundChangeMsg is broadcast by an operator that abandons a round.
type RoundChangeMsg struct {
	Round Round // The round that is being abandoned.
	From  OperatorID
}

func (rc RoundChangeMsg) String() string {
	return fmt.Sprintf("RoundChange(round: %d, from: %d)", rc.Round, rc.From)
}

// GetDataRequest asks the data provider for the value to propose in a round.
type GetDataRequest struct {
	Round Round
}

// GetDataResult carries the value to propose in a round.
type GetDataResult struct {
	Round Round
	Value []byte
}

// ValidationRequest asks the application to check a proposed value.
type ValidationRequest struct {
	ID    ValidationID
	Round Round
	Value []byte
}

// ValidationOutcome is the verdict on a validation request.
type ValidationOutcome int

const (
	// ValidationSuccess means that the value may be prepared.
	ValidationSuccess ValidationOutcome = iota
	// ValidationFailure means that the value must not be prepared.
	ValidationFailure
)

func (o ValidationOutcome) String() string {
	switch o {
	case ValidationSuccess:
		return "success"
	case ValidationFailure:
		return "failure"
	default:
		return fmt.Sprintf("ValidationOutcome(%d)", int(o))
	}
}

// ValidationResponse answers a ValidationRequest.
type ValidationResponse struct {
	ID      ValidationID
	Outcome ValidationOutcome
	Err     error // reason for a failure; nil on success
}

// DecidedEvent is emitted once when an instance decides.
type DecidedEvent struct {
	Height InstanceHeight
	Round  Round
	Value  []byte
}

func (d DecidedEvent) String() string {
	return fmt.Sprintf("Decided(height: %d, round: %d, value: %.8x)", d.Height, d.Round, d.Value)
}

func (ProposeMsg) inbound()         {}
func (PrepareMsg) inbound()         {}
func (ConfirmMsg) inbound()         {}
func (RoundChangeMsg) inbound()     {}
func (ValidationResponse) inbound() {}
func (GetDataResult) inbound()      {}

func (GetDataRequest) outbound()    {}
func (ProposeMsg) outbound()        {}
func (PrepareMsg) outbound()        {}
func (ConfirmMsg) outbound()        {}
func (ValidationRequest) outbound() {}
func (RoundChangeMsg) outbound()    {}
func (DecidedEvent) outbound()      {}

// VoteKind identifies the tally a vote is counted in.
type VoteKind int

const (
	VotePrepare VoteKind = iota
	VoteConfirm
	VoteRoundChange
)

func (k VoteKind) String() string {
	switch k {
	case VotePrepare:
		return "prepare"
	case VoteConfirm:
		return "confirm"
	case VoteRoundChange:
		return "round-change"
	default:
		return fmt.Sprintf("VoteKind(%d)", int(k))
	}
}

package instance

import (
	"fmt"

	"github.com/relab/qbft"
)

// enterRound starts the timer for the current round, asks for a value to
// propose if this operator leads the round, and re-runs the prepare check on
// votes recorded before the round was entered.
func (inst *Instance) enterRound() error {
	inst.duration.RoundStarted()
	inst.timer.Reset(inst.duration.Duration())

	if inst.leaders.IsLeader(inst.round, inst.self, inst.membership) {
		inst.logger.Debugf("Leader of round %d, requesting a value", inst.round)
		if err := inst.send(qbft.GetDataRequest{Round: inst.round}); err != nil {
			return err
		}
	}

	if value, count := inst.votes.Leading(inst.round, qbft.VotePrepare); count >= inst.quorum {
		return inst.checkPrepareQuorum(inst.round, value)
	}
	return nil
}

func (inst *Instance) onTimeout() error {
	inst.logger.Infof("Round %d timed out", inst.round)
	inst.metrics.RoundChanges.WithLabelValues("timeout").Inc()
	inst.duration.RoundTimeout()

	if err := inst.send(qbft.RoundChangeMsg{Round: inst.round, From: inst.self}); err != nil {
		return err
	}
	inst.votes.Record(inst.round, qbft.VoteRoundChange, inst.self, nil)
	inst.round = inst.round.Next()
	return inst.enterRound()
}

// checkRound reports whether a message for round may be handled in the current round.
func (inst *Instance) checkRound(round qbft.Round) error {
	switch {
	case round < inst.round:
		return fmt.Errorf("%w: round %d, current round %d", qbft.ErrStaleRound, round, inst.round)
	case round > inst.round:
		return fmt.Errorf("%w: round %d, current round %d", qbft.ErrWrongRound, round, inst.round)
	}
	return nil
}

func (inst *Instance) checkMember(id qbft.OperatorID) error {
	if !inst.membership.Contains(id) {
		return fmt.Errorf("%w: %d", qbft.ErrUnknownOperator, id)
	}
	return nil
}

func (inst *Instance) onGetDataResult(res qbft.GetDataResult) error {
	if err := inst.checkRound(res.Round); err != nil {
		return err
	}
	if !inst.leaders.IsLeader(res.Round, inst.self, inst.membership) {
		return fmt.Errorf("%w: not the leader of round %d", qbft.ErrInvalidLeader, res.Round)
	}
	if _, ok := inst.proposed[res.Round]; ok {
		return fmt.Errorf("%w: already proposed in round %d", qbft.ErrDuplicateProposal, res.Round)
	}
	inst.proposed[res.Round] = struct{}{}

	proposal := qbft.ProposeMsg{Round: res.Round, Value: res.Value, From: inst.self}
	inst.logger.Debugf("Proposing %v", proposal)
	if err := inst.send(proposal); err != nil {
		return err
	}
	return inst.onPropose(proposal)
}

func (inst *Instance) onPropose(p qbft.ProposeMsg) error {
	if err := inst.checkMember(p.From); err != nil {
		return err
	}
	if err := inst.checkRound(p.Round); err != nil {
		return err
	}
	if !inst.leaders.IsLeader(p.Round, p.From, inst.membership) {
		return fmt.Errorf("%w: operator %d does not lead round %d", qbft.ErrInvalidLeader, p.From, p.Round)
	}
	if _, ok := inst.accepted[p.Round]; ok {
		return fmt.Errorf("%w: round %d", qbft.ErrDuplicateProposal, p.Round)
	}
	inst.accepted[p.Round] = struct{}{}

	id := inst.tracker.Insert(p.Round, p.Value)
	return inst.send(qbft.ValidationRequest{ID: id, Round: p.Round, Value: p.Value})
}

func (inst *Instance) onValidationResponse(resp qbft.ValidationResponse) error {
	entry, ok := inst.tracker.Take(resp.ID)
	if !ok {
		return fmt.Errorf("%w: %d", qbft.ErrUnknownValidation, resp.ID)
	}
	if resp.Outcome != qbft.ValidationSuccess {
		inst.logger.Debugf("Proposal for round %d failed validation: %v", entry.Round, resp.Err)
		inst.metrics.ValidationFailures.Inc()
		return nil
	}
	if entry.Round != inst.round {
		return fmt.Errorf("%w: validated proposal for round %d, current round %d", qbft.ErrStaleRound, entry.Round, inst.round)
	}

	inst.votes.Record(entry.Round, qbft.VotePrepare, inst.self, entry.Value)
	if err := inst.send(qbft.PrepareMsg{Round: entry.Round, Value: entry.Value, From: inst.self}); err != nil {
		return err
	}
	return inst.checkPrepareQuorum(entry.Round, entry.Value)
}

func (inst *Instance) onPrepare(p qbft.PrepareMsg) error {
	if err := inst.checkMember(p.From); err != nil {
		return err
	}
	if p.Round < inst.round {
		return inst.checkRound(p.Round)
	}
	inst.votes.Record(p.Round, qbft.VotePrepare, p.From, p.Value)
	return inst.checkPrepareQuorum(p.Round, p.Value)
}

// checkPrepareQuorum sends a Confirm for value once a quorum prepared it in the current round.
func (inst *Instance) checkPrepareQuorum(round qbft.Round, value []byte) error {
	if round != inst.round {
		return nil
	}
	if _, ok := inst.confirmSent[round]; ok {
		return nil
	}
	if inst.votes.CountMatching(round, qbft.VotePrepare, value) < inst.quorum {
		return nil
	}
	inst.confirmSent[round] = struct{}{}

	inst.logger.Debugf("Prepare quorum in round %d for %.8x", round, value)
	inst.votes.Record(round, qbft.VoteConfirm, inst.self, value)
	if err := inst.send(qbft.ConfirmMsg{Round: round, Value: value, From: inst.self}); err != nil {
		return err
	}
	return inst.checkConfirmQuorum(round, value)
}

func (inst *Instance) onConfirm(c qbft.ConfirmMsg) error {
	if err := inst.checkMember(c.From); err != nil {
		return err
	}
	if c.Round < inst.round {
		return inst.checkRound(c.Round)
	}
	inst.votes.Record(c.Round, qbft.VoteConfirm, c.From, c.Value)
	return inst.checkConfirmQuorum(c.Round, c.Value)
}

// checkConfirmQuorum decides value once a quorum confirmed it in round.
func (inst *Instance) checkConfirmQuorum(round qbft.Round, value []byte) error {
	if inst.votes.CountMatching(round, qbft.VoteConfirm, value) < inst.quorum {
		return nil
	}
	return inst.decide(round, value)
}

func (inst *Instance) decide(round qbft.Round, value []byte) error {
	inst.state = Decided
	inst.decision = Result{State: Decided, Round: round, Value: value}
	inst.duration.RoundSucceeded()
	inst.metrics.Decisions.Inc()
	inst.metrics.DecisionRound.Observe(float64(round))
	inst.logger.Infof("Decided %.8x in round %d", value, round)
	return inst.send(qbft.DecidedEvent{Height: inst.height, Round: round, Value: value})
}

func (inst *Instance) onRoundChange(rc qbft.RoundChangeMsg) error {
	if err := inst.checkMember(rc.From); err != nil {
		return err
	}
	if rc.Round < inst.round {
		return inst.checkRound(rc.Round)
	}
	inst.votes.Record(rc.Round, qbft.VoteRoundChange, rc.From, nil)
	if rc.Round == inst.round || inst.votes.CountMatching(rc.Round, qbft.VoteRoundChange, nil) < inst.quorum {
		return nil
	}

	inst.logger.Infof("Round change quorum for round %d, leaving round %d", rc.Round, inst.round)
	inst.metrics.RoundChanges.WithLabelValues("justified").Inc()
	inst.round = rc.Round
	return inst.enterRound()
}

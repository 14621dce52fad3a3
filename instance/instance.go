// Package instance implements a single QBFT consensus instance.
//
// An instance is driven by one goroutine that owns all of its state. The
// goroutine receives protocol messages, validation responses and data results
// on the inbound channel returned by New or Start, and it emits broadcasts,
// validation requests, data requests and the final decision through a Sender.
package instance

import (
	"context"
	"errors"
	"fmt"

	"github.com/relab/qbft"
	"github.com/relab/qbft/logging"
	"github.com/relab/qbft/quorumstore"
	"github.com/relab/qbft/synchronizer"
	"github.com/relab/qbft/validation"
)

var errAlreadyStarted = errors.New("instance already started")

// Result describes how an instance terminated.
type Result struct {
	State State
	// Round is the round the instance was in when it terminated,
	// or the round of the decision.
	Round qbft.Round
	// Value is the decided value. It is nil unless State is Decided.
	Value []byte
}

// Instance is a single-shot QBFT consensus instance.
type Instance struct {
	height     qbft.InstanceHeight
	self       qbft.OperatorID
	membership qbft.Membership
	quorum     int
	leaders    qbft.LeaderSelector
	duration   synchronizer.RoundDuration

	inbound chan qbft.InMessage
	out     Sender
	timer   synchronizer.Timer
	logger  logging.Logger
	metrics *Metrics

	state State
	round qbft.Round
	votes *quorumstore.Store
	// proposals awaiting validation
	tracker *validation.Tracker

	accepted    map[qbft.Round]struct{} // rounds in which a proposal was accepted
	proposed    map[qbft.Round]struct{} // rounds in which this operator proposed
	confirmSent map[qbft.Round]struct{}

	decision Result
}

// New validates cfg and creates an instance that emits its messages through out.
// It returns the channel on which the instance receives its input.
// No goroutine is started; call Run to drive the instance.
func New(cfg Config, out Sender, opts ...Option) (chan<- qbft.InMessage, *Instance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if out == nil {
		return nil, nil, fmt.Errorf("%w: sender is required", qbft.ErrConfigInvalid)
	}
	buffer := cfg.InboundBuffer
	if buffer == 0 {
		buffer = DefaultInboundBuffer
	}
	duration := cfg.RoundDuration
	if duration == nil {
		duration = synchronizer.NewFixedDuration(cfg.RoundTimeout)
	}
	inst := &Instance{
		height:      cfg.Height,
		self:        cfg.OperatorID,
		membership:  cfg.Membership,
		quorum:      cfg.QuorumSize,
		leaders:     cfg.LeaderSelector,
		duration:    duration,
		inbound:     make(chan qbft.InMessage, buffer),
		out:         out,
		state:       Idle,
		round:       cfg.InitialRound,
		votes:       quorumstore.New(),
		tracker:     validation.NewTracker(),
		accepted:    make(map[qbft.Round]struct{}),
		proposed:    make(map[qbft.Round]struct{}),
		confirmSent: make(map[qbft.Round]struct{}),
	}
	for _, opt := range opts {
		opt(inst)
	}
	if inst.logger == nil {
		inst.logger = logging.New("instance").Named(fmt.Sprintf("h%d/op%d", cfg.Height, cfg.OperatorID))
	}
	if inst.metrics == nil {
		inst.metrics = NewMetrics(nil)
	}
	if inst.timer == nil {
		inst.timer = synchronizer.NewRoundTimer()
	}
	return inst.inbound, inst, nil
}

// Run drives the instance until it decides, the context is cancelled,
// the inbound channel is closed, or the Sender fails.
// A Sender failure is returned as an error wrapping qbft.ErrChannelClosed.
// Run may be called only once.
func (inst *Instance) Run(ctx context.Context) (Result, error) {
	if inst.state != Idle {
		return Result{State: inst.state, Round: inst.round}, errAlreadyStarted
	}
	inst.state = Running
	defer inst.release()

	leader, _ := qbft.LeaderOf(inst.leaders, inst.round, inst.membership)
	inst.logger.Infof("Starting in round %d (leader %d, quorum %d of %d)", inst.round, leader, inst.quorum, inst.membership.Len())

	if err := inst.enterRound(); err != nil {
		return inst.fail(err)
	}
	for inst.state == Running {
		if err := ctx.Err(); err != nil {
			inst.cancel(err.Error())
			break
		}
		if err := inst.step(ctx); err != nil {
			return inst.fail(err)
		}
	}
	return inst.decision, nil
}

// step waits for and handles one event.
// A ready inbound message is always handled before a ready timer tick.
func (inst *Instance) step(ctx context.Context) error {
	select {
	case msg, ok := <-inst.inbound:
		return inst.receive(msg, ok)
	default:
	}
	select {
	case msg, ok := <-inst.inbound:
		return inst.receive(msg, ok)
	case <-inst.timer.C():
		return inst.onTimeout()
	case <-ctx.Done():
		inst.cancel(ctx.Err().Error())
		return nil
	}
}

func (inst *Instance) receive(msg qbft.InMessage, ok bool) error {
	if !ok {
		inst.cancel("inbound channel closed")
		return nil
	}
	err := inst.handle(msg)
	if err == nil || errors.Is(err, qbft.ErrChannelClosed) {
		return err
	}
	inst.logger.Debugf("Dropped %v: %v", msg, err)
	inst.metrics.DroppedMessages.WithLabelValues(dropReason(err)).Inc()
	return nil
}

func (inst *Instance) handle(msg qbft.InMessage) error {
	switch m := msg.(type) {
	case qbft.ProposeMsg:
		return inst.onPropose(m)
	case qbft.PrepareMsg:
		return inst.onPrepare(m)
	case qbft.ConfirmMsg:
		return inst.onConfirm(m)
	case qbft.RoundChangeMsg:
		return inst.onRoundChange(m)
	case qbft.ValidationResponse:
		return inst.onValidationResponse(m)
	case qbft.GetDataResult:
		return inst.onGetDataResult(m)
	default:
		return fmt.Errorf("unsupported message type %T", msg)
	}
}

// send emits msg. Any failure is reported as qbft.ErrChannelClosed.
func (inst *Instance) send(msg qbft.OutMessage) error {
	err := inst.out.Send(msg)
	if err == nil || errors.Is(err, qbft.ErrChannelClosed) {
		return err
	}
	return fmt.Errorf("%w: %w", qbft.ErrChannelClosed, err)
}

func (inst *Instance) cancel(reason string) {
	inst.logger.Infof("Cancelled in round %d: %s", inst.round, reason)
	inst.state = Cancelled
	inst.decision = Result{State: Cancelled, Round: inst.round}
}

func (inst *Instance) fail(err error) (Result, error) {
	inst.logger.Errorf("Terminating in round %d: %v", inst.round, err)
	inst.state = Cancelled
	return Result{State: Cancelled, Round: inst.round}, err
}

// release discards all per-instance state.
func (inst *Instance) release() {
	inst.timer.Stop()
	inst.votes.Reset()
	inst.tracker.Clear()
	clear(inst.accepted)
	clear(inst.proposed)
	clear(inst.confirmSent)
}

// Handle is returned by Start and reports the outcome of the instance goroutine.
type Handle struct {
	done   chan struct{}
	result Result
	err    error
}

// Done returns a channel that is closed when the instance has terminated.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the instance has terminated and returns its result.
func (h *Handle) Wait() (Result, error) {
	<-h.done
	return h.result, h.err
}

// Start creates an instance like New and runs it in a new goroutine.
func Start(ctx context.Context, cfg Config, out Sender, opts ...Option) (chan<- qbft.InMessage, *Handle, error) {
	inbound, inst, err := New(cfg, out, opts...)
	if err != nil {
		return nil, nil, err
	}
	h := &Handle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.result, h.err = inst.Run(ctx)
	}()
	return inbound, h, nil
}

// Package sim runs a group of operators in a single process.
//
// Every live operator gets a consensus instance and a router goroutine. The
// router answers the instance's data requests from a DataProvider, runs its
// validation requests on a shared processor.Processor, and broadcasts its
// protocol messages over a simulated rate-limited network. Silent operators
// are members of the group but never start, as if they had crashed.
package sim

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/relab/qbft"
	"github.com/relab/qbft/instance"
	"github.com/relab/qbft/leaderrotation"
	"github.com/relab/qbft/logging"
	"github.com/relab/qbft/processor"
	"github.com/relab/qbft/synchronizer"
)

// ErrNoAgreement is returned when live operators decided different values.
var ErrNoAgreement = errors.New("operators decided different values")

// DataProvider returns the value that operator proposes when it leads round.
type DataProvider func(operator qbft.OperatorID, round qbft.Round) ([]byte, error)

// Validator checks a proposed value. A nil error accepts the value.
type Validator func(operator qbft.OperatorID, value []byte) error

// DefaultData proposes a value naming the operator and the round.
func DefaultData(operator qbft.OperatorID, round qbft.Round) ([]byte, error) {
	return fmt.Appendf(nil, "op%d-round%d", operator, round), nil
}

// Config describes a simulated group.
type Config struct {
	// Operators is the size of the group; operators are numbered from 1.
	Operators int
	// Silent operators never start.
	Silent []qbft.OperatorID
	// QuorumSize defaults to qbft.QuorumSize(Operators).
	QuorumSize int
	Height     qbft.InstanceHeight
	// RoundTimeout is the duration of the first round.
	RoundTimeout time.Duration
	// MaxRoundTimeout enables exponential backoff of the round duration, up to this value.
	MaxRoundTimeout time.Duration
	// LeaderRotation is a name accepted by leaderrotation.New.
	LeaderRotation string
	LeaderOptions  leaderrotation.Options
	// LinkRate limits each link to this many messages per second. Zero means unlimited.
	LinkRate float64
	// LinkBurst is the burst size of each link. Defaults to 1 when LinkRate is set.
	LinkBurst int
	Processor processor.Config
}

// Decision is the value decided by one operator.
type Decision struct {
	Operator qbft.OperatorID
	Round    qbft.Round
	Value    []byte
}

func (d Decision) String() string {
	return fmt.Sprintf("operator %d decided %q in round %d", d.Operator, d.Value, d.Round)
}

// Result is the outcome of a simulation.
type Result struct {
	// Decisions of the live operators that decided, ordered by operator.
	Decisions []Decision
	Network   NetworkStats
	Processor processor.Stats
}

// Agreed returns the decided value if every decision has the same value.
func (r Result) Agreed() ([]byte, bool) {
	if len(r.Decisions) == 0 {
		return nil, false
	}
	v := r.Decisions[0].Value
	for _, d := range r.Decisions[1:] {
		if string(d.Value) != string(v) {
			return nil, false
		}
	}
	return v, true
}

// Option configures a Group.
type Option func(*Group)

// WithDataProvider sets the source of proposed values. Defaults to DefaultData.
func WithDataProvider(data DataProvider) Option {
	return func(g *Group) { g.data = data }
}

// WithValidator sets the validation function. By default every value is accepted.
func WithValidator(validate Validator) Option {
	return func(g *Group) { g.validate = validate }
}

// WithLogger sets the logger of the group. Instance loggers are named after it.
func WithLogger(logger logging.Logger) Option {
	return func(g *Group) { g.logger = logger }
}

// WithRegisterer registers the instance and processor metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(g *Group) { g.reg = reg }
}

// Group is a simulated group of operators running one consensus instance.
type Group struct {
	cfg        Config
	membership qbft.Membership
	live       []qbft.OperatorID
	leaders    qbft.LeaderSelector

	data     DataProvider
	validate Validator
	logger   logging.Logger
	reg      prometheus.Registerer

	mut       sync.Mutex
	decisions map[qbft.OperatorID]Decision
}

// New checks cfg and returns a group ready to run.
func New(cfg Config, opts ...Option) (*Group, error) {
	var err error
	if cfg.Operators <= 0 {
		err = multierr.Append(err, fmt.Errorf("number of operators must be positive, got %d", cfg.Operators))
	}
	if cfg.LinkRate < 0 {
		err = multierr.Append(err, fmt.Errorf("link rate must not be negative, got %v", cfg.LinkRate))
	}
	leaders, lerr := leaderrotation.New(cfg.LeaderRotation, cfg.LeaderOptions)
	err = multierr.Append(err, lerr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", qbft.ErrConfigInvalid, err)
	}

	ids := make([]qbft.OperatorID, cfg.Operators)
	for i := range ids {
		ids[i] = qbft.OperatorID(i + 1)
	}
	if cfg.QuorumSize == 0 {
		cfg.QuorumSize = qbft.QuorumSize(cfg.Operators)
	}
	g := &Group{
		cfg:        cfg,
		membership: qbft.NewMembership(ids...),
		leaders:    leaders,
		data:       DefaultData,
		decisions:  make(map[qbft.OperatorID]Decision),
	}
	for _, id := range ids {
		if !slices.Contains(cfg.Silent, id) {
			g.live = append(g.live, id)
		}
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logging.New("sim")
	}
	return g, nil
}

// Membership returns the membership of the group.
func (g *Group) Membership() qbft.Membership {
	return g.membership
}

// Live returns the operators that take part in the simulation.
func (g *Group) Live() []qbft.OperatorID {
	return slices.Clone(g.live)
}

type operator struct {
	id      qbft.OperatorID
	inbound chan<- qbft.InMessage
	outbox  *instance.Outbox
	handle  *instance.Handle
}

// Run starts every live operator and waits until all of them have decided or ctx is done.
// The returned error combines the errors of the instances; it wraps ErrNoAgreement
// if two operators decided different values. Run may be called only once.
func (g *Group) Run(parent context.Context) (Result, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	limit, burst := rate.Inf, g.cfg.LinkBurst
	if g.cfg.LinkRate > 0 {
		limit = rate.Limit(g.cfg.LinkRate)
		burst = max(burst, 1)
	}
	net := newNetwork(g.live, limit, burst, g.logger.Named("network"))

	pool := processor.New(g.cfg.Processor, processor.WithLogger(g.logger.Named("processor")), processor.WithRegisterer(g.reg))
	pool.Start(ctx)

	metrics := instance.NewMetrics(g.reg)
	operators := make(map[qbft.OperatorID]*operator, len(g.live))
	var startErr error
	for _, id := range g.live {
		op, err := g.startOperator(ctx, id, metrics)
		if err != nil {
			startErr = multierr.Append(startErr, err)
			continue
		}
		operators[id] = op
	}

	net.start(ctx, func(ctx context.Context, to qbft.OperatorID, msg qbft.InMessage) bool {
		return operators[to].deliver(ctx, msg)
	})

	decided := make(chan qbft.OperatorID, len(g.live))
	var routers sync.WaitGroup
	for _, op := range operators {
		routers.Add(1)
		go func() {
			defer routers.Done()
			g.route(ctx, op, net, pool.Sender("validate"), decided)
		}()
	}

	remaining := len(operators)
	for remaining > 0 {
		select {
		case <-decided:
			remaining--
		case <-ctx.Done():
			remaining = 0
		}
	}

	// shut down
	cancel()
	err := startErr
	for _, op := range operators {
		_, herr := op.handle.Wait()
		err = multierr.Append(err, herr)
		op.outbox.Close()
	}
	routers.Wait()
	net.wait()
	pool.Stop()

	res := Result{Network: net.stats(), Processor: pool.Stats()}
	g.mut.Lock()
	for _, id := range g.live {
		if d, ok := g.decisions[id]; ok {
			res.Decisions = append(res.Decisions, d)
		}
	}
	g.mut.Unlock()

	if len(res.Decisions) > 0 {
		if _, ok := res.Agreed(); !ok {
			err = multierr.Append(err, ErrNoAgreement)
		}
	}
	if len(res.Decisions) < len(g.live) && parent.Err() != nil {
		err = multierr.Append(err, fmt.Errorf("%d of %d live operators decided: %w", len(res.Decisions), len(g.live), parent.Err()))
	}
	return res, err
}

func (g *Group) startOperator(ctx context.Context, id qbft.OperatorID, metrics *instance.Metrics) (*operator, error) {
	cfg := instance.Config{
		Height:         g.cfg.Height,
		OperatorID:     id,
		Membership:     g.membership,
		QuorumSize:     g.cfg.QuorumSize,
		RoundTimeout:   g.cfg.RoundTimeout,
		LeaderSelector: g.leaders,
	}
	if g.cfg.MaxRoundTimeout > 0 {
		cfg.RoundDuration = synchronizer.NewBackoffDuration(g.cfg.RoundTimeout, g.cfg.MaxRoundTimeout, 2)
	}
	outbox := instance.NewOutbox(instance.DefaultInboundBuffer)
	logger := g.logger.Named(fmt.Sprintf("instance/h%d/op%d", g.cfg.Height, id))
	inbound, handle, err := instance.Start(ctx, cfg, outbox, instance.WithLogger(logger), instance.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("operator %d: %w", id, err)
	}
	return &operator{id: id, inbound: inbound, outbox: outbox, handle: handle}, nil
}

// deliver hands msg to the operator's instance unless it has terminated.
func (op *operator) deliver(ctx context.Context, msg qbft.InMessage) bool {
	if op == nil {
		return false
	}
	select {
	case op.inbound <- msg:
		return true
	case <-op.handle.Done():
	case <-ctx.Done():
	}
	return false
}

// route handles everything the operator's instance emits.
func (g *Group) route(ctx context.Context, op *operator, net *network, validator processor.Sender, decided chan<- qbft.OperatorID) {
	for {
		var msg qbft.OutMessage
		select {
		case msg = <-op.outbox.Messages():
		case <-ctx.Done():
			return
		}

		switch m := msg.(type) {
		case qbft.GetDataRequest:
			value, err := g.data(op.id, m.Round)
			if err != nil {
				g.logger.Warnf("Operator %d has no value for round %d: %v", op.id, m.Round, err)
				continue
			}
			op.deliver(ctx, qbft.GetDataResult{Round: m.Round, Value: value})

		case qbft.ValidationRequest:
			validator.SendAsync(func(ctx context.Context) {
				resp := qbft.ValidationResponse{ID: m.ID, Outcome: qbft.ValidationSuccess}
				if g.validate != nil {
					if err := g.validate(op.id, m.Value); err != nil {
						resp.Outcome = qbft.ValidationFailure
						resp.Err = err
					}
				}
				op.deliver(ctx, resp)
			})

		case qbft.ProposeMsg:
			net.broadcast(op.id, m)
		case qbft.PrepareMsg:
			net.broadcast(op.id, m)
		case qbft.ConfirmMsg:
			net.broadcast(op.id, m)
		case qbft.RoundChangeMsg:
			net.broadcast(op.id, m)

		case qbft.DecidedEvent:
			g.mut.Lock()
			g.decisions[op.id] = Decision{Operator: op.id, Round: m.Round, Value: m.Value}
			g.mut.Unlock()
			g.logger.Infof("Operator %d decided %q in round %d", op.id, m.Value, m.Round)
			decided <- op.id
		}
	}
}

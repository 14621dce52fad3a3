// Package processor runs work items on a bounded number of goroutines.
//
// Work is queued with Submit and picked up by a dispatcher goroutine, which
// takes a worker permit before it takes the next item. Submit never blocks: if
// the queue is full the item is dropped. Items carry no result; callers that
// need one correlate it themselves, typically by sending it on a channel from
// inside the work function.
package processor

import (
	"context"
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"

	"github.com/relab/qbft/logging"
)

// DefaultQueueSize is the queue capacity used when Config.QueueSize is zero.
const DefaultQueueSize = 1000

// Config configures a Processor.
type Config struct {
	// MaxWorkers is the maximum number of work items running at once.
	// Defaults to runtime.NumCPU().
	MaxWorkers int `mapstructure:"max-workers"`
	// QueueSize is the number of items that can wait for a worker.
	// Defaults to DefaultQueueSize.
	QueueSize int `mapstructure:"queue-size"`
}

// withDefaults returns a copy of c with zero fields replaced by their defaults.
func (c Config) withDefaults() Config {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = runtime.NumCPU()
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	return c
}

// Kind tells how a work item runs.
type Kind int

const (
	// Async work receives the processor's context and should return when it is cancelled.
	Async Kind = iota
	// Blocking work runs to completion.
	Blocking
)

func (k Kind) String() string {
	if k == Async {
		return "async"
	}
	return "blocking"
}

// WorkItem is a named unit of work.
type WorkItem struct {
	name     string
	kind     Kind
	async    func(context.Context)
	blocking func()
}

// NewAsync returns a work item that runs fn with the processor's context.
func NewAsync(name string, fn func(ctx context.Context)) WorkItem {
	return WorkItem{name: name, kind: Async, async: fn}
}

// NewBlocking returns a work item that runs fn.
func NewBlocking(name string, fn func()) WorkItem {
	return WorkItem{name: name, kind: Blocking, blocking: fn}
}

// Name returns the name of the work item.
func (w WorkItem) Name() string { return w.name }

// Kind returns the kind of the work item.
func (w WorkItem) Kind() Kind { return w.kind }

func (w WorkItem) run(ctx context.Context) {
	switch w.kind {
	case Async:
		w.async(ctx)
	case Blocking:
		w.blocking()
	}
}

// Stats is a snapshot of a processor's counters.
type Stats struct {
	Submitted uint64
	Completed uint64
	Dropped   uint64
}

// Processor is a bounded worker pool.
type Processor struct {
	cfg    Config
	queue  chan WorkItem
	sem    *semaphore.Weighted
	logger logging.Logger
	work   *prometheus.CounterVec

	submitted atomic.Uint64
	completed atomic.Uint64
	dropped   atomic.Uint64
	stopped   atomic.Bool

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger of the processor.
func WithLogger(logger logging.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithRegisterer registers the processor's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Processor) {
		p.work = newWorkCounter(reg)
	}
}

func newWorkCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	return promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: "qbft",
		Subsystem: "processor",
		Name:      "work_items_total",
		Help:      "Total number of work items by name and outcome",
	}, []string{"name", "outcome"})
}

// New returns a processor. It does not run anything until Start is called.
func New(cfg Config, opts ...Option) *Processor {
	cfg = cfg.withDefaults()
	p := &Processor{
		cfg:   cfg,
		queue: make(chan WorkItem, cfg.QueueSize),
		sem:   semaphore.NewWeighted(int64(cfg.MaxWorkers)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.New("processor")
	}
	if p.work == nil {
		p.work = newWorkCounter(nil)
	}
	return p
}

// Config returns the effective configuration of the processor.
func (p *Processor) Config() Config {
	return p.cfg
}

// Start starts the dispatcher. Work is run until ctx is cancelled or Stop is called.
func (p *Processor) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		p.wg.Add(1)
		go p.dispatch(ctx)
	})
}

// Stop stops the dispatcher and waits for running work to return.
// Queued work that has not started is discarded.
func (p *Processor) Stop() {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
		p.logger.Debugf("Stopped (%+v)", p.Stats())
	})
}

// Submit queues item without blocking. It returns false if the item was dropped
// because the queue is full or the processor is stopped.
func (p *Processor) Submit(item WorkItem) bool {
	if p.stopped.Load() {
		p.logger.Errorf("Processor stopped, dropping %s work %q", item.kind, item.name)
		p.drop(item, "stopped")
		return false
	}
	select {
	case p.queue <- item:
		p.submitted.Inc()
		return true
	default:
		p.logger.Warnf("Processor queue full, dropping %s work %q", item.kind, item.name)
		p.drop(item, "queue_full")
		return false
	}
}

func (p *Processor) drop(item WorkItem, reason string) {
	p.dropped.Inc()
	p.work.WithLabelValues(item.name, reason).Inc()
}

// Stats returns the processor's counters.
func (p *Processor) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Dropped:   p.dropped.Load(),
	}
}

func (p *Processor) dispatch(ctx context.Context) {
	defer p.wg.Done()
	for {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return
		}
		var item WorkItem
		select {
		case item = <-p.queue:
		case <-ctx.Done():
			p.sem.Release(1)
			return
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer p.sem.Release(1)
			item.run(ctx)
			p.completed.Inc()
			p.work.WithLabelValues(item.name, "completed").Inc()
		}()
	}
}

// Sender submits work under a fixed name.
type Sender struct {
	name string
	p    *Processor
}

// Sender returns a Sender that submits work named name to p.
func (p *Processor) Sender(name string) Sender {
	return Sender{name: name, p: p}
}

// SendAsync submits fn as async work.
func (s Sender) SendAsync(fn func(ctx context.Context)) bool {
	return s.p.Submit(NewAsync(s.name, fn))
}

// SendBlocking submits fn as blocking work.
func (s Sender) SendBlocking(fn func()) bool {
	return s.p.Submit(NewBlocking(s.name, fn))
}

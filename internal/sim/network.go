package sim

import (
	"context"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/relab/qbft"
	"github.com/relab/qbft/logging"
)

const linkQueueSize = 1024

// link carries messages from one operator to another, at most at the link's rate.
type link struct {
	from, to qbft.OperatorID
	queue    chan qbft.InMessage
	limiter  *rate.Limiter
}

// network is a simulated fully connected network between live operators.
// A broadcast is copied onto one link per receiver; a full link drops the copy.
type network struct {
	links  map[qbft.OperatorID]map[qbft.OperatorID]*link
	logger logging.Logger

	delivered atomic.Uint64
	dropped   atomic.Uint64

	wg sync.WaitGroup
}

func newNetwork(live []qbft.OperatorID, limit rate.Limit, burst int, logger logging.Logger) *network {
	n := &network{
		links:  make(map[qbft.OperatorID]map[qbft.OperatorID]*link),
		logger: logger,
	}
	for _, from := range live {
		n.links[from] = make(map[qbft.OperatorID]*link)
		for _, to := range live {
			if from == to {
				continue
			}
			n.links[from][to] = &link{
				from:    from,
				to:      to,
				queue:   make(chan qbft.InMessage, linkQueueSize),
				limiter: rate.NewLimiter(limit, burst),
			}
		}
	}
	return n
}

// start runs one goroutine per link, delivering with the given function until ctx is done.
func (n *network) start(ctx context.Context, deliver func(ctx context.Context, to qbft.OperatorID, msg qbft.InMessage) bool) {
	for _, out := range n.links {
		for _, l := range out {
			n.wg.Add(1)
			go func() {
				defer n.wg.Done()
				n.run(ctx, l, deliver)
			}()
		}
	}
}

func (n *network) run(ctx context.Context, l *link, deliver func(context.Context, qbft.OperatorID, qbft.InMessage) bool) {
	for {
		select {
		case msg := <-l.queue:
			if err := l.limiter.Wait(ctx); err != nil {
				return
			}
			if deliver(ctx, l.to, msg) {
				n.delivered.Inc()
			}
		case <-ctx.Done():
			return
		}
	}
}

// broadcast sends msg from the given operator to every other live operator.
func (n *network) broadcast(from qbft.OperatorID, msg qbft.InMessage) {
	for to, l := range n.links[from] {
		select {
		case l.queue <- msg:
		default:
			n.dropped.Inc()
			n.logger.Warnf("Link %d→%d is full, dropping %v", from, to, msg)
		}
	}
}

func (n *network) wait() {
	n.wg.Wait()
}

// NetworkStats counts the messages handled by the simulated network.
type NetworkStats struct {
	Delivered uint64
	Dropped   uint64
}

func (n *network) stats() NetworkStats {
	return NetworkStats{Delivered: n.delivered.Load(), Dropped: n.dropped.Load()}
}

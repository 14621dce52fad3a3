package processor

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/atomic"

	"github.com/relab/qbft/logging"
)

func newTestProcessor(t *testing.T, cfg Config) *Processor {
	t.Helper()
	p := New(cfg, WithLogger(logging.NewNop()))
	p.Start(context.Background())
	t.Cleanup(p.Stop)
	return p
}

func TestDefaults(t *testing.T) {
	p := New(Config{}, WithLogger(logging.NewNop()))
	want := Config{MaxWorkers: runtime.NumCPU(), QueueSize: DefaultQueueSize}
	if diff := cmp.Diff(want, p.Config()); diff != "" {
		t.Errorf("Config() mismatch (-want +got):\n%s", diff)
	}
}

func TestRunsAsyncAndBlockingWork(t *testing.T) {
	p := newTestProcessor(t, Config{MaxWorkers: 2, QueueSize: 4})

	var wg sync.WaitGroup
	wg.Add(2)
	var gotCtx atomic.Bool
	if !p.Submit(NewAsync("async", func(ctx context.Context) {
		defer wg.Done()
		gotCtx.Store(ctx != nil)
	})) {
		t.Fatal("async work was dropped")
	}
	if !p.Sender("blocking").SendBlocking(wg.Done) {
		t.Fatal("blocking work was dropped")
	}
	wg.Wait()

	if !gotCtx.Load() {
		t.Error("async work did not receive a context")
	}
	// completion is counted after the work function returns
	deadline := time.Now().Add(time.Second)
	for p.Stats().Completed != 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	want := Stats{Submitted: 2, Completed: 2}
	if diff := cmp.Diff(want, p.Stats()); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}
}

func TestMaxWorkers(t *testing.T) {
	const workers = 2
	const items = 10
	p := newTestProcessor(t, Config{MaxWorkers: workers, QueueSize: items})

	var running, peak atomic.Int64
	var wg sync.WaitGroup
	wg.Add(items)
	for range items {
		p.Submit(NewBlocking("sleep", func() {
			defer wg.Done()
			n := running.Inc()
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Dec()
		}))
	}
	wg.Wait()
	if got := peak.Load(); got > workers {
		t.Errorf("%d items ran at once, want at most %d", got, workers)
	}
}

func TestDropsWhenQueueFull(t *testing.T) {
	p := newTestProcessor(t, Config{MaxWorkers: 1, QueueSize: 1})

	started := make(chan struct{})
	release := make(chan struct{})
	p.Submit(NewBlocking("hold", func() {
		close(started)
		<-release
	}))
	<-started

	// the only worker is busy, so the next item waits in the queue
	ran := make(chan struct{})
	if !p.Submit(NewBlocking("queued", func() { close(ran) })) {
		t.Fatal("queued work was dropped")
	}
	if p.Submit(NewBlocking("overflow", func() { t.Error("dropped work ran") })) {
		t.Fatal("work was accepted by a full queue")
	}
	if got := testutil.ToFloat64(p.work.WithLabelValues("overflow", "queue_full")); got != 1 {
		t.Errorf("queue_full drops = %v, want 1", got)
	}

	close(release)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued work did not run")
	}
	if got := p.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
}

func TestSubmitAfterStop(t *testing.T) {
	p := New(Config{MaxWorkers: 1, QueueSize: 1}, WithLogger(logging.NewNop()))
	p.Start(context.Background())
	p.Stop()
	if p.Submit(NewBlocking("late", func() {})) {
		t.Error("stopped processor accepted work")
	}
	if got := p.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
}

func TestStopCancelsAsyncWork(t *testing.T) {
	p := New(Config{MaxWorkers: 1, QueueSize: 1}, WithLogger(logging.NewNop()))
	p.Start(context.Background())

	started := make(chan struct{})
	p.Submit(NewAsync("wait", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}))
	<-started

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestKindString(t *testing.T) {
	if Async.String() != "async" || Blocking.String() != "blocking" {
		t.Errorf("unexpected kind names %q, %q", Async, Blocking)
	}
}

package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPollInterval is the delay between the end of one poll and the start
// of the next.
const DefaultPollInterval = time.Second

// PollerService refreshes the board clock and relay status on a fixed
// cadence until stopped.
type PollerService struct {
	*core
	interval time.Duration

	mu     sync.Mutex // guards cancel and done
	cancel context.CancelFunc
	done   chan struct{}

	// Written only inside the loop so a completion's liveness check and Stop
	// cannot interleave.
	running atomic.Bool
	gen     atomic.Uint64
}

func newPoller(c *core, interval time.Duration) *PollerService {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollerService{core: c, interval: interval}
}

// Start schedules the first tick one interval from now. Starting a running
// poller is a no-op. Cancelling ctx stops the poller the same way Stop does.
func (p *PollerService) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	var gen uint64
	if !p.loop.Post(func() {
		gen = p.gen.Add(1)
		p.running.Store(true)
	}) {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	go p.run(runCtx, gen, p.interval, done)
	p.log.Infow("poller_started", "interval", p.interval)
}

// Stop cancels the next scheduled tick. A fetch already in flight finishes,
// but its result is discarded.
func (p *PollerService) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	p.loop.Post(func() { p.running.Store(false) })
	if cancel != nil {
		cancel()
		p.log.Infow("poller_stopped")
	}
}

// Running reports whether the poller is between Start and Stop.
func (p *PollerService) Running() bool {
	return p.running.Load()
}

// Interval returns the configured poll cadence.
func (p *PollerService) Interval() time.Duration {
	return p.interval
}

func (p *PollerService) run(ctx context.Context, gen uint64, interval time.Duration, done chan struct{}) {
	defer close(done)
	defer p.exited(gen, done)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	// Requests outlive Stop; only the next tick is cancelled.
	fetchCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		p.tick(fetchCtx, ctx, gen)
		timer.Reset(interval)
	}
}

// exited marks the poller stopped when run ends because the context given to
// Start was cancelled rather than through Stop.
func (p *PollerService) exited(gen uint64, done chan struct{}) {
	p.loop.Post(func() {
		if p.gen.Load() == gen {
			p.running.Store(false)
		}
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == done && p.cancel != nil {
		p.cancel()
		p.cancel = nil
		p.log.Infow("poller_stopped", "reason", "context cancelled")
	}
}

// tick polls once. runCtx is the poll loop's context: once it is cancelled the
// results are dropped, even though the requests themselves run on ctx.
func (p *PollerService) tick(ctx, runCtx context.Context, gen uint64) {
	live := liveFunc(func() bool {
		return p.running.Load() && p.gen.Load() == gen && runCtx.Err() == nil
	})
	// Disjoint data: order does not matter.
	_ = p.refreshTime(ctx, live)
	_ = p.refreshStatus(ctx, live)
}

// lastDone returns the channel closed when the most recent run goroutine exits.
func (p *PollerService) lastDone() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jvilloa/servicekit/metrics"
	"github.com/jvilloa/servicekit/session"
)

// Bounded is an elastic worker pool. Workers spawn on demand up to the max
// size, an unbounded backlog absorbs overflow, and idle workers above the
// core size exit after the keep-alive interval.
type Bounded struct {
	name      string
	core      int
	max       int
	keepAlive time.Duration
	clock     clockwork.Clock

	baseCtx    context.Context
	baseCancel context.CancelFunc

	work chan *Task
	wake chan struct{}
	quit chan struct{}

	mu       sync.Mutex
	backlog  backlog
	workers  int
	shutdown bool

	wg sync.WaitGroup
}

// BoundedOption customizes a Bounded pool.
type BoundedOption func(*Bounded)

// WithOrdering backs the pool's backlog with a priority order instead of
// submission order.
func WithOrdering(cmp Comparator) BoundedOption {
	return func(p *Bounded) {
		p.backlog = newOrderedBacklog(cmp)
	}
}

// WithClock replaces the pool's clock.
func WithClock(clock clockwork.Clock) BoundedOption {
	return func(p *Bounded) {
		p.clock = clock
	}
}

// NewBounded creates an elastic pool with the given sizing. Out-of-range
// sizes are clamped rather than rejected: sizing comes from configuration,
// which is validated at load time.
func NewBounded(name string, core, max int, keepAlive time.Duration, opts ...BoundedOption) *Bounded {
	if max < 1 {
		max = 1
	}
	if core < 0 {
		core = 0
	}
	if core > max {
		core = max
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Bounded{
		name:       name,
		core:       core,
		max:        max,
		keepAlive:  keepAlive,
		clock:      clockwork.NewRealClock(),
		baseCtx:    ctx,
		baseCancel: cancel,
		work:       make(chan *Task),
		wake:       make(chan struct{}, 1),
		quit:       make(chan struct{}),
		backlog:    newFIFOBacklog(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Pool.
func (p *Bounded) Name() string {
	return p.name
}

// Submit implements Pool. The task is handed directly to an idle worker when
// one is parked, otherwise a new worker is spawned while below the max size,
// otherwise the task joins the backlog.
func (p *Bounded) Submit(t *Task) error {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	metrics.TasksSubmittedTotal.WithLabelValues(p.name).Inc()

	select {
	case p.work <- t:
		p.mu.Unlock()
		return nil
	default:
	}

	if p.workers < p.max {
		p.workers++
		metrics.PoolWorkers.WithLabelValues(p.name).Set(float64(p.workers))
		p.wg.Add(1)
		go p.worker(t)
		p.mu.Unlock()
		return nil
	}

	p.backlog.push(t)
	metrics.PoolBacklog.WithLabelValues(p.name).Set(float64(p.backlog.len()))
	p.mu.Unlock()

	// A worker heading into its idle park between the failed direct handoff
	// and here would otherwise not see the queued task until the next
	// keep-alive tick.
	p.signalWake()
	return nil
}

func (p *Bounded) signalWake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Shutdown implements Pool.
func (p *Bounded) Shutdown() {
	p.mu.Lock()
	if !p.shutdown {
		p.shutdown = true
		close(p.quit)
	}
	p.mu.Unlock()
}

// Kill implements Pool. The backlog is discarded and every in-flight unit
// has its context cancelled.
func (p *Bounded) Kill() {
	p.Shutdown()

	p.mu.Lock()
	var dropped []*Task
	for p.backlog.len() > 0 {
		dropped = append(dropped, p.backlog.pop())
	}
	metrics.PoolBacklog.WithLabelValues(p.name).Set(0)
	p.mu.Unlock()

	for _, t := range dropped {
		t.discard()
		metrics.TasksCompletedTotal.WithLabelValues(p.name, "cancelled").Inc()
	}
	p.baseCancel()
}

// Terminated implements Pool.
func (p *Bounded) Terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown && p.workers == 0 && p.backlog.len() == 0
}

// Workers implements Pool.
func (p *Bounded) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}

// worker executes tasks until the pool shuts down or the keep-alive expires
// while the pool is above its core size. Each worker owns one session
// carrier for its whole lifetime.
func (p *Bounded) worker(t *Task) {
	defer p.wg.Done()
	ctx := session.WithCarrier(p.baseCtx, session.NewCarrier())

	for {
		if t != nil {
			p.runTask(ctx, t)
			t = nil
		}

		p.mu.Lock()
		if p.backlog.len() > 0 {
			t = p.backlog.pop()
			remaining := p.backlog.len()
			metrics.PoolBacklog.WithLabelValues(p.name).Set(float64(remaining))
			p.mu.Unlock()
			if remaining > 0 {
				p.signalWake()
			}
			continue
		}
		if p.shutdown {
			p.exitLocked()
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		select {
		case t = <-p.work:
		case <-p.wake:
		case <-p.quit:
		case <-p.clock.After(p.keepAlive):
			p.mu.Lock()
			if p.workers > p.core && p.backlog.len() == 0 {
				p.exitLocked()
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
		}
	}
}

func (p *Bounded) exitLocked() {
	p.workers--
	metrics.PoolWorkers.WithLabelValues(p.name).Set(float64(p.workers))
}

func (p *Bounded) runTask(ctx context.Context, t *Task) {
	t.execute(ctx)
	metrics.TasksCompletedTotal.WithLabelValues(p.name, taskStatus(t)).Inc()
}

func taskStatus(t *Task) string {
	err := t.Err()
	switch {
	case t.Cancelled() || errors.Is(err, ErrCancelled):
		return "cancelled"
	case err != nil:
		return "error"
	default:
		return "ok"
	}
}

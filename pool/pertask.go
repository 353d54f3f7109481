package pool

import (
	"context"
	"sync"

	"github.com/jvilloa/servicekit/metrics"
	"github.com/jvilloa/servicekit/session"
)

// PerTask runs every submitted unit on its own goroutine with no shared
// limits. It is the lightweight per-task concurrency model selected by
// configuration as an alternative to the bounded pool.
type PerTask struct {
	name string

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu       sync.Mutex
	active   int
	shutdown bool

	wg sync.WaitGroup
}

// NewPerTask creates a per-task pool.
func NewPerTask(name string) *PerTask {
	ctx, cancel := context.WithCancel(context.Background())
	return &PerTask{
		name:       name,
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// Name implements Pool.
func (p *PerTask) Name() string {
	return p.name
}

// Submit implements Pool.
func (p *PerTask) Submit(t *Task) error {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.active++
	metrics.TasksSubmittedTotal.WithLabelValues(p.name).Inc()
	metrics.PoolWorkers.WithLabelValues(p.name).Set(float64(p.active))
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		ctx := session.WithCarrier(p.baseCtx, session.NewCarrier())
		t.execute(ctx)
		metrics.TasksCompletedTotal.WithLabelValues(p.name, taskStatus(t)).Inc()

		p.mu.Lock()
		p.active--
		metrics.PoolWorkers.WithLabelValues(p.name).Set(float64(p.active))
		p.mu.Unlock()
	}()
	return nil
}

// Shutdown implements Pool. In-flight units keep running; there is no
// backlog to drain in this model.
func (p *PerTask) Shutdown() {
	p.mu.Lock()
	p.shutdown = true
	p.mu.Unlock()
}

// Kill implements Pool: every in-flight unit has its context cancelled.
func (p *PerTask) Kill() {
	p.Shutdown()
	p.baseCancel()
}

// Terminated implements Pool.
func (p *PerTask) Terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown && p.active == 0
}

// Workers implements Pool.
func (p *PerTask) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

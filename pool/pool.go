package pool

import (
	"container/heap"

	"github.com/eapache/queue"
)

// Pool abstracts a worker pool accepting units of work for asynchronous
// execution.
type Pool interface {
	// Name identifies the pool in logs and metrics.
	Name() string
	// Submit hands a task to the pool. It returns ErrPoolClosed once
	// shutdown has begun, and never blocks on a full pool.
	Submit(t *Task) error
	// Shutdown stops accepting new work and lets queued work finish.
	Shutdown()
	// Kill cancels queued and in-flight work (best-effort interruption).
	Kill()
	// Terminated reports whether every worker has exited and no work is
	// pending.
	Terminated() bool
	// Workers returns the current worker count.
	Workers() int
}

// Comparator defines a total order over tasks: negative means a runs before
// b. It is an optional capability a pool may adopt when its backlog is
// priority-ordered; no pool is required to use it.
type Comparator func(a, b *Task) int

// ByCreation orders tasks by descending creation time (most recently created
// first), with the submission sequence as a deterministic tie-break.
func ByCreation(a, b *Task) int {
	switch {
	case a.createdAt.After(b.createdAt):
		return -1
	case b.createdAt.After(a.createdAt):
		return 1
	case a.seq > b.seq:
		return -1
	case b.seq > a.seq:
		return 1
	default:
		return 0
	}
}

// backlog holds submitted tasks no worker was free to take.
type backlog interface {
	push(t *Task)
	pop() *Task
	len() int
}

// fifoBacklog is the default submission-order backlog.
type fifoBacklog struct {
	q *queue.Queue
}

func newFIFOBacklog() *fifoBacklog {
	return &fifoBacklog{q: queue.New()}
}

func (b *fifoBacklog) push(t *Task) { b.q.Add(t) }

func (b *fifoBacklog) pop() *Task { return b.q.Remove().(*Task) }

func (b *fifoBacklog) len() int { return b.q.Length() }

// orderedBacklog is a priority backlog driven by a Comparator.
type orderedBacklog struct {
	h taskHeap
}

func newOrderedBacklog(cmp Comparator) *orderedBacklog {
	return &orderedBacklog{h: taskHeap{cmp: cmp}}
}

func (b *orderedBacklog) push(t *Task) { heap.Push(&b.h, t) }

func (b *orderedBacklog) pop() *Task { return heap.Pop(&b.h).(*Task) }

func (b *orderedBacklog) len() int { return len(b.h.tasks) }

type taskHeap struct {
	cmp   Comparator
	tasks []*Task
}

func (h *taskHeap) Len() int { return len(h.tasks) }

func (h *taskHeap) Less(i, j int) bool { return h.cmp(h.tasks[i], h.tasks[j]) < 0 }

func (h *taskHeap) Swap(i, j int) { h.tasks[i], h.tasks[j] = h.tasks[j], h.tasks[i] }

func (h *taskHeap) Push(x any) { h.tasks = append(h.tasks, x.(*Task)) }

func (h *taskHeap) Pop() any {
	n := len(h.tasks)
	t := h.tasks[n-1]
	h.tasks[n-1] = nil
	h.tasks = h.tasks[:n-1]
	return t
}

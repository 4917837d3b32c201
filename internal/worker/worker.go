// Package worker provides a growable pool of single-goroutine execution
// lanes with bounded FIFO queues. The player offloads CPU-bound per-frame
// work (encode, encrypt, blocking reads) here so the pacing loop is never
// stalled by a slow caller.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrPoolExhausted is returned by Submit when every lane is at capacity
	// and the configured lane limit prevents adding another.
	ErrPoolExhausted = errors.New("worker: pool exhausted")

	ErrPoolClosed = errors.New("worker: pool closed")
)

// DefaultQueueCap is the per-lane job queue capacity.
const DefaultQueueCap = 100

// Job is a unit of work. Its result or error is delivered through the
// Future returned by Submit.
type Job func() (any, error)

// Future is the result slot for a submitted job.
type Future struct {
	done   chan struct{}
	result any
	err    error
}

// Wait blocks until the job completes or ctx is done.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once the job has completed.
func (f *Future) Done() <-chan struct{} { return f.done }

func (f *Future) complete(result any, err error) {
	f.result = result
	f.err = err
	close(f.done)
}

type task struct {
	fn  Job
	fut *Future
}

// lane is one worker goroutine with its own FIFO queue. pending counts jobs
// submitted but not yet finished, so a lane executing a long job is still
// considered full once its queue capacity is reached.
type lane struct {
	jobs    chan *task
	mu      sync.Mutex
	pending int
	cap     int
}

func newLane(queueCap int) *lane {
	ln := &lane{
		jobs: make(chan *task, queueCap),
		cap:  queueCap,
	}
	go ln.run()
	return ln
}

func (ln *lane) run() {
	for t := range ln.jobs {
		ln.exec(t)
		ln.mu.Lock()
		ln.pending--
		ln.mu.Unlock()
	}
}

// exec runs one job, turning a panic into the job's error. A failing job
// never takes the lane down; subsequent jobs keep processing.
func (ln *lane) exec(t *task) {
	defer func() {
		if r := recover(); r != nil {
			t.fut.complete(nil, fmt.Errorf("worker: job panic: %v", r))
		}
	}()
	result, err := t.fn()
	t.fut.complete(result, err)
}

// tryEnqueue reserves a pending slot and queues the task. It fails when the
// lane already has cap jobs outstanding.
func (ln *lane) tryEnqueue(t *task) bool {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	if ln.pending >= ln.cap {
		return false
	}
	ln.pending++
	ln.jobs <- t
	return true
}

// Pool is a set of lanes. Submit prefers an existing lane with spare
// capacity and spins up new lanes up to maxLanes; zero means unlimited.
type Pool struct {
	mu       sync.Mutex
	lanes    []*lane
	maxLanes int
	queueCap int
	closed   bool
}

// NewPool builds an empty pool. Lanes are created on demand by Submit.
func NewPool(maxLanes int) *Pool {
	return &Pool{maxLanes: maxLanes, queueCap: DefaultQueueCap}
}

// NewPoolWithQueueCap is NewPool with an explicit per-lane queue capacity.
func NewPoolWithQueueCap(maxLanes, queueCap int) *Pool {
	if queueCap <= 0 {
		queueCap = DefaultQueueCap
	}
	return &Pool{maxLanes: maxLanes, queueCap: queueCap}
}

// Submit enqueues fn and returns its Future. Jobs on one lane run strictly
// in submission order. Once a job starts executing it runs to completion;
// there is no cancellation after dequeue.
func (p *Pool) Submit(fn Job) (*Future, error) {
	t := &task{fn: fn, fut: &Future{done: make(chan struct{})}}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}

	for _, ln := range p.lanes {
		if ln.tryEnqueue(t) {
			return t.fut, nil
		}
	}

	if p.maxLanes > 0 && len(p.lanes) >= p.maxLanes {
		return nil, ErrPoolExhausted
	}
	ln := newLane(p.queueCap)
	p.lanes = append(p.lanes, ln)
	ln.tryEnqueue(t)
	return t.fut, nil
}

// Lanes reports how many lanes currently exist.
func (p *Pool) Lanes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lanes)
}

// Close stops all lanes once their queued jobs drain. Submit fails with
// ErrPoolClosed afterwards.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, ln := range p.lanes {
		close(ln.jobs)
	}
	p.lanes = nil
}

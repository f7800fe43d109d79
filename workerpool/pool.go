package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/gridclient/metrics"
)

var ErrStopped = errors.New("worker pool is not running")

type State int32

const (
	Running State = iota
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Task is a unit of work executed by the pool. The context is canceled when
// the pool is shut down without waiting.
type Task func(ctx context.Context)

// Pool runs submitted tasks on a fixed number of goroutines.
type Pool struct {
	mut    sync.RWMutex
	state  State
	queue  chan Task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger kitlog.Logger
}

// New starts a pool with the given number of workers.
func New(size int, logger kitlog.Logger) *Pool {
	if size <= 0 {
		panic("worker pool size must be positive")
	}

	if logger == nil {
		logger = kitlog.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		queue:  make(chan Task, size),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}

	p.wg.Add(size)

	for i := 0; i < size; i++ {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for task := range p.queue {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PoolTasks.WithLabelValues("panicked").Inc()
			level.Error(p.logger).Log("msg", "worker pool task panicked", "err", fmt.Errorf("%v", r))
		}
	}()

	task(p.ctx)
}

// Submit queues the task for execution. It blocks while the queue is full,
// until either the task is accepted, ctx is done, or the pool is stopped.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mut.RLock()
	defer p.mut.RUnlock()

	if p.state != Running {
		metrics.PoolTasks.WithLabelValues("rejected").Inc()
		return ErrStopped
	}

	select {
	case p.queue <- task:
		metrics.PoolTasks.WithLabelValues("accepted").Inc()
		return nil
	case <-p.ctx.Done():
		metrics.PoolTasks.WithLabelValues("rejected").Inc()
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state of the pool.
func (p *Pool) State() State {
	p.mut.RLock()
	defer p.mut.RUnlock()

	return p.state
}

// Done returns a channel that is closed once the pool context is canceled,
// which happens on an abrupt shutdown or after a graceful one has finished.
func (p *Pool) Done() <-chan struct{} {
	return p.ctx.Done()
}

// Shutdown stops accepting new tasks. With wait, the queued and running tasks
// are completed before it returns. Without wait, the pool context is canceled
// first, so the tasks observe cancellation and finish early. Calling Shutdown
// more than once is safe; every call returns after the workers have exited.
func (p *Pool) Shutdown(wait bool) {
	if !wait {
		// Unblocks the submitters waiting for a free slot in the queue.
		p.cancel()
	}

	p.mut.Lock()

	if p.state == Running {
		p.state = Draining
		close(p.queue)

		level.Debug(p.logger).Log("msg", "worker pool draining", "wait", wait)
	}

	p.mut.Unlock()

	p.wg.Wait()
	p.cancel()

	p.mut.Lock()
	p.state = Stopped
	p.mut.Unlock()
}

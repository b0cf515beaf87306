// Package workerpool is consumed through Pool, a generic fixed-or-dynamic
// set of goroutines that runs caller-supplied Task values and delivers
// their Result exclusively through a Poster, so results are always handed
// back to a single-threaded owner (in practice, a *corert.Scheduler) rather
// than raced across arbitrary goroutines.
package workerpool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/corert"
)

// Poster is the minimal shape a Pool needs from its result sink. It is
// satisfied implicitly by *corert.Scheduler, without either package
// importing the other's concrete types.
type Poster interface {
	Post(func()) error
}

// Task is one unit of work submitted to a Pool.
type Task[R any] struct {
	// Run performs the work. ctx is canceled if the owning Pool is closed
	// or, when StopOnError is set, once any task has failed.
	Run func(ctx context.Context) (R, error)
}

// Result is what a Task produces, delivered to the onResult callback given
// to New.
type Result[R any] struct {
	Value R
	Err   error
}

// Pool runs Task values submitted via Submit across a fixed or dynamic set
// of goroutines and reports each Result by posting a closure onto poster.
type Pool[R any] struct {
	cfg      config
	poster   Poster
	onResult func(Result[R])

	cancel *corert.CancellationSource
	tasks  chan Task[R]
	tokens tokenPool

	inflight sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	stopped   atomic.Bool
	stop      chan struct{}
}

// New constructs a Pool. onResult is invoked on the poster's goroutine for
// every completed task, successful or not; it must not block.
func New[R any](poster Poster, onResult func(Result[R]), opts ...Option) *Pool[R] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var tokens tokenPool
	if cfg.MaxWorkers > 0 {
		tokens = newFixedTokenPool(cfg.MaxWorkers, newWorkerToken)
	} else {
		tokens = newDynamicTokenPool(newWorkerToken)
	}

	return &Pool[R]{
		cfg:      cfg,
		poster:   poster,
		onResult: onResult,
		cancel:   corert.NewCancellationSource(),
		tasks:    make(chan Task[R], cfg.TasksBufferSize),
		tokens:   tokens,
		stop:     make(chan struct{}),
	}
}

// Start launches the dispatcher goroutine. Start may be called only once;
// subsequent calls are no-ops. ctx bounds the pool's entire lifetime in
// addition to Close.
func (p *Pool[R]) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		// Task contexts end with ctx or when the pool's source is
		// canceled (Close, or StopOnError tripping).
		runCtx, cancelRun := context.WithCancel(ctx)
		p.cancel.Token().OnCancel(func(any) { cancelRun() })
		d := &dispatcher[R]{
			tasks:    p.tasks,
			tokens:   p.tokens,
			inflight: &p.inflight,
			deliver:  p.deliver,
			stopped:  p.stopped.Load,
		}
		go d.run(runCtx, p.stop)
	})
}

// Submit enqueues a task for execution. It blocks if the tasks buffer (see
// WithTasksBufferSize) is full, unless the pool has already stopped, in
// which case it returns ErrStopped immediately.
func (p *Pool[R]) Submit(t Task[R]) error {
	if p.stopped.Load() {
		return ErrStopped
	}
	select {
	case p.tasks <- t:
		return nil
	case <-p.stop:
		return ErrStopped
	}
}

// TrySubmit behaves like Submit but never blocks: if the tasks buffer is
// full it returns ErrTasksBufferFull immediately instead of waiting for
// room.
func (p *Pool[R]) TrySubmit(t Task[R]) error {
	if p.stopped.Load() {
		return ErrStopped
	}
	select {
	case p.tasks <- t:
		return nil
	case <-p.stop:
		return ErrStopped
	default:
		return ErrTasksBufferFull
	}
}

// Token returns the CancellationSource's token, canceled when the pool
// stops, whether via Close or StopOnError tripping on a task failure.
func (p *Pool[R]) Token() corert.CancellationToken {
	return p.cancel.Token()
}

// Close stops accepting new dispatch, cancels the pool's token, and blocks
// until every in-flight task has finished executing.
func (p *Pool[R]) Close() {
	p.stopLocked("closed")
	p.inflight.Wait()
}

func (p *Pool[R]) stopLocked(reason any) {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		close(p.stop)
		p.cancel.Cancel(reason)
	})
}

func (p *Pool[R]) deliver(t Task[R], res Result[R]) {
	if res.Err != nil && p.cfg.StopOnError {
		p.stopLocked(res.Err)
	}
	_ = p.poster.Post(func() { p.onResult(res) })
}

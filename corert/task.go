package corert

import (
	"context"
	"sync"
)

// Task is a lazily-started, single-continuation unit of asynchronous
// work carrying its own cancellation token. It does not begin executing
// fn until Spawn is called; a Task that is never spawned is simply
// garbage, with no goroutine ever started.
//
// Unlike a literal coroutine, a Task's body runs on its own goroutine
// (Go has no stackful/stackless coroutine primitive); what the scheduler
// actually owns is the *delivery* of the result - both Wait and Continue
// observe a result that is only ever settled once, and Continue's
// callback always runs on the owning Scheduler's loop goroutine.
type Task[T any] struct {
	mu           sync.Mutex
	done         chan struct{}
	settled      bool
	value        T
	err          error
	continuation func(T, error)
	contSet      bool
	sched        *Scheduler
	token        CancellationToken
	fn           func(context.Context) (T, error)
	started      bool
}

// NewTask constructs a Task bound to token: if token is canceled before
// or during fn's execution, the context passed to fn is canceled too,
// but fn is still responsible for returning promptly.
func NewTask[T any](token CancellationToken, fn func(context.Context) (T, error)) *Task[T] {
	return &Task[T]{
		done:  make(chan struct{}),
		token: token,
		fn:    fn,
	}
}

// CancellationToken returns the token this task was constructed with.
func (t *Task[T]) CancellationToken() CancellationToken { return t.token }

// Spawn starts fn running on a new goroutine, bound to sched for
// continuation delivery. Calling Spawn more than once is a no-op; it
// returns t for chaining with Continue.
func (t *Task[T]) Spawn(sched *Scheduler) *Task[T] {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return t
	}
	t.started = true
	t.sched = sched
	t.mu.Unlock()

	go t.run()
	return t
}

func (t *Task[T]) run() {
	ctx, cancel := t.token.Context()
	defer cancel()
	val, err := t.fn(ctx)
	t.settle(val, err)
}

func (t *Task[T]) settle(val T, err error) {
	t.mu.Lock()
	if t.settled {
		t.mu.Unlock()
		return
	}
	t.settled = true
	t.value = val
	t.err = err
	cont := t.continuation
	sched := t.sched
	close(t.done)
	t.mu.Unlock()

	if cont != nil && sched != nil {
		_ = sched.postWakeup(func() { cont(val, err) })
	}
}

// Wait blocks the calling goroutine until the task settles or ctx is
// done, whichever happens first. It may be called from any goroutine,
// including before Spawn (in which case it blocks until someone spawns
// and completes the task).
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.value, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// spawnConfig holds Spawn's optional, explicitly-scoped cancellation
// source, set via WithCancellationSource.
type spawnConfig struct {
	source *CancellationSource
}

// SpawnOption customizes how Spawn derives a child task's cancellation
// token.
type SpawnOption func(*spawnConfig)

// WithCancellationSource scopes a spawned child task to src's token
// instead of automatically inheriting the parent's: the child is no
// longer canceled when the parent is, only when the caller cancels src
// (or some token src itself derives from) directly.
func WithCancellationSource(src *CancellationSource) SpawnOption {
	return func(c *spawnConfig) { c.source = src }
}

// Spawn starts fn as a new child task on sched. Unless overridden with
// WithCancellationSource, the child inherits parent unchanged: canceling
// parent cancels the child's context too, since the child's token is
// parent itself rather than something merely derived from it. This is
// the default "a sub-task shares its parent's cancellation" propagation;
// WithCancellationSource opts a child out, scoping it to an independent
// source the caller controls.
//
// There is deliberately no Scheduler.Spawn method: Go methods cannot
// introduce type parameters beyond their receiver's, and the child's
// result type T is independent of Scheduler, so this has to be a
// package-level generic function instead.
func Spawn[T any](sched *Scheduler, parent CancellationToken, fn func(context.Context) (T, error), opts ...SpawnOption) *Task[T] {
	var cfg spawnConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	token := parent
	if cfg.source != nil {
		token = cfg.source.Token()
	}

	return NewTask[T](token, fn).Spawn(sched)
}

// SpawnChild is Spawn, but takes the parent as a *Task rather than a
// bare token — the common case of one task's body spawning another.
func SpawnChild[T, P any](sched *Scheduler, parent *Task[P], fn func(context.Context) (T, error), opts ...SpawnOption) *Task[T] {
	return Spawn[T](sched, parent.CancellationToken(), fn, opts...)
}

// Continue registers cb to run on a scheduler's loop goroutine once the
// task settles: the Scheduler given to Spawn if it was non-nil and the
// task has not settled yet, otherwise sched. It is an error to call Continue more than once on the same
// task: a Task has exactly one continuation, matching the single-waiter
// discipline coroutine awaiters rely on. If the task has already
// settled, cb is posted immediately (never invoked inline).
func (t *Task[T]) Continue(sched *Scheduler, cb func(T, error)) error {
	t.mu.Lock()
	if t.contSet {
		t.mu.Unlock()
		return &CoroError{Category: CoroErrorAlreadyResolved}
	}
	t.contSet = true
	t.continuation = cb
	if t.sched == nil {
		t.sched = sched
	}
	settled := t.settled
	val, err := t.value, t.err
	t.mu.Unlock()

	if settled {
		return sched.postWakeup(func() { cb(val, err) })
	}
	return nil
}

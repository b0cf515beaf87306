package workerpool

import "errors"

// Namespace prefixes every sentinel error in this package, matching the
// "<namespace>: <detail>" convention used throughout corert.
const Namespace = "workerpool"

var (
	// ErrTasksBufferFull is returned by TrySubmit when the tasks channel
	// cannot take the task without blocking.
	ErrTasksBufferFull = errors.New(Namespace + ": tasks buffer is full")

	// ErrStopped is returned by Submit once the pool has been stopped,
	// either via Close or because StopOnError tripped a task failure.
	ErrStopped = errors.New(Namespace + ": pool stopped")

	// ErrTaskPanicked wraps a recovered panic from a task body.
	ErrTaskPanicked = errors.New(Namespace + ": task execution panicked")
)

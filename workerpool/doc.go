// Package workerpool provides the scheduler's auxiliary worker pool
// collaborator: a bounded (or dynamic) set of goroutines that run
// caller-supplied tasks off the scheduler's loop goroutine and deliver
// their results back onto it exclusively through Poster.Post. Workers
// never resume a coroutine directly; they only ever hand a result back
// to the scheduler, which is what actually invokes any continuation.
package workerpool

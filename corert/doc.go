// Package corert implements a single-threaded cooperative runtime: a
// scheduler that owns one goroutine's worth of execution order, a timer
// queue, a cancellation graph, and a small set of coroutine-flavored
// primitives (tasks, mutexes, condition variables, async sessions) built
// on top of it.
//
// Nothing in this package blocks the scheduler goroutine except the code
// the caller schedules onto it. Code on other goroutines reaches the
// scheduler's own state only through its exported methods (Post, Wake,
// ScheduleTimer, the FD handshake) and the cancellation graph; the
// primitives (Mutex, CondVar, Task, AsyncSessionTable) guard their own
// state with internal locks and may be used from any goroutine.
package corert

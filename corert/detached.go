package corert

import "context"

// SpawnDetached starts fn on its own goroutine immediately (unlike Task,
// there is no separate Spawn step), bound to token for cancellation.
// Errors and panics are logged through sched's logger and never
// propagated to any caller, matching the "fire and forget" contract of a
// detached coroutine: nothing observes its completion.
func SpawnDetached(sched *Scheduler, token CancellationToken, fn func(context.Context) error) {
	go func() {
		ctx, cancel := token.Context()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				logError(sched.Logger(), "detached task panicked", wrapError("panic", asError(r)))
			}
		}()
		if err := fn(ctx); err != nil {
			logError(sched.Logger(), "detached task failed", err)
		}
	}()
}

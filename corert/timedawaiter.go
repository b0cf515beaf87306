package corert

import (
	"context"
	"sync"
	"time"
)

// Sleep suspends the calling goroutine for d, racing the deadline
// against both ctx and token. Whichever fires first determines the
// outcome: a natural timeout returns nil, a canceled token returns
// token.Err() (which matches ErrCanceled under errors.Is), and a canceled
// ctx returns ctx.Err().
func Sleep(ctx context.Context, sched *Scheduler, d time.Duration, token CancellationToken) error {
	if err := token.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan struct{})
	var once sync.Once
	var result error
	var node *timerNode

	reg := token.OnCancel(func(reason any) {
		once.Do(func() {
			sched.CancelTimer(node)
			result = token.Err()
			close(done)
		})
	})

	node = sched.ScheduleTimer(d, func() {
		once.Do(func() {
			reg.Unregister()
			close(done)
		})
	})

	select {
	case <-done:
		return result
	case <-ctx.Done():
		once.Do(func() {
			sched.CancelTimer(node)
			reg.Unregister()
			result = ctx.Err()
			close(done)
		})
		return result
	}
}

// SleepUntil is Sleep expressed as an absolute deadline.
func SleepUntil(ctx context.Context, sched *Scheduler, deadline time.Time, token CancellationToken) error {
	return Sleep(ctx, sched, time.Until(deadline), token)
}

package corert

import (
	"time"

	"github.com/joeycumines/logiface"
)

// schedulerOptions holds the resolved configuration for a Scheduler.
type schedulerOptions struct {
	logger       *logiface.Logger[*Event]
	pollInterval time.Duration
}

// SchedulerOption configures a Scheduler at construction time.
type SchedulerOption interface {
	applyScheduler(*schedulerOptions)
}

type schedulerOptionFunc func(*schedulerOptions)

func (f schedulerOptionFunc) applyScheduler(o *schedulerOptions) { f(o) }

// WithLogger attaches a structured logger. A nil logger (or omitting
// this option) results in logging being a no-op.
func WithLogger(logger *logiface.Logger[*Event]) SchedulerOption {
	return schedulerOptionFunc(func(o *schedulerOptions) {
		o.logger = logger
	})
}

// WithPollInterval sets the value reported by Scheduler.PollInterval, a
// hint for how often external pollers feeding Notify should re-check
// their sources. Default 1ms. The scheduler itself does not poll, and
// shmchan's Multiplexer takes its own interval option.
func WithPollInterval(d time.Duration) SchedulerOption {
	return schedulerOptionFunc(func(o *schedulerOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	})
}

func resolveSchedulerOptions(opts []SchedulerOption) *schedulerOptions {
	o := &schedulerOptions{
		pollInterval: time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyScheduler(o)
		}
	}
	return o
}

package workerpool

import (
	"context"
	"fmt"
	"sync"
)

// dispatcher owns the single goroutine that drains the tasks channel and
// fans each task out onto its own goroutine, tracked by inflight. It never
// delivers a result itself; that is always done through the Pool's poster,
// from the goroutine that ran the task.
type dispatcher[R any] struct {
	tasks    <-chan Task[R]
	tokens   tokenPool
	inflight *sync.WaitGroup
	deliver  func(Task[R], Result[R])
	stopped  func() bool
}

func (d *dispatcher[R]) run(ctx context.Context, stop <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case t, ok := <-d.tasks:
			if !ok {
				return
			}
			if d.stopped() {
				continue
			}
			d.inflight.Add(1)
			go d.execute(ctx, t)
		}
	}
}

func (d *dispatcher[R]) execute(ctx context.Context, t Task[R]) {
	defer d.inflight.Done()

	tok := d.tokens.Get()
	defer d.tokens.Put(tok)

	var res Result[R]
	func() {
		defer func() {
			if r := recover(); r != nil {
				res = Result[R]{Err: fmt.Errorf("%w: %v", ErrTaskPanicked, r)}
			}
		}()
		res.Value, res.Err = t.Run(ctx)
	}()

	d.deliver(t, res)
}

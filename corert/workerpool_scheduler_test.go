package corert_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/corert"
	"github.com/joeycumines/corert/workerpool"
)

// TestSchedulerAsWorkerpoolPoster demonstrates the real integration point
// for the worker pool collaborator: a *corert.Scheduler needs no special
// accessor to act as a workerpool.Pool's result sink, since it already
// implements workerpool.Poster (Post(func()) error). Every Result is
// delivered on the scheduler's own loop goroutine, exactly as it would be
// for any other posted closure.
func TestSchedulerAsWorkerpoolPoster(t *testing.T) {
	sched := corert.NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	done := make(chan int, 1)
	pool := workerpool.New[int](sched, func(res workerpool.Result[int]) {
		done <- res.Value
	})
	pool.Start(ctx)
	defer pool.Close()

	require.NoError(t, pool.Submit(workerpool.Task[int]{Run: func(context.Context) (int, error) {
		return 42, nil
	}}))

	select {
	case v := <-done:
		require.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("result never delivered through the scheduler")
	}

	require.NoError(t, sched.Shutdown(context.Background()))
}

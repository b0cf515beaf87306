package workerpool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inlinePoster runs posted closures synchronously, which is adequate for
// tests that don't need the single-goroutine-affinity guarantee a real
// *corert.Scheduler provides.
type inlinePoster struct {
	mu sync.Mutex
}

func (p *inlinePoster) Post(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn()
	return nil
}

func TestPoolRunsSubmittedTasks(t *testing.T) {
	var mu sync.Mutex
	var got []int
	done := make(chan struct{})

	pool := New[int](&inlinePoster{}, func(res Result[int]) {
		mu.Lock()
		got = append(got, res.Value)
		if len(got) == 3 {
			close(done)
		}
		mu.Unlock()
	})
	pool.Start(context.Background())
	defer pool.Close()

	for i := 1; i <= 3; i++ {
		i := i
		require.NoError(t, pool.Submit(Task[int]{Run: func(context.Context) (int, error) { return i, nil }}))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all tasks completed")
	}

	mu.Lock()
	defer mu.Unlock()
	sum := 0
	for _, v := range got {
		sum += v
	}
	assert.Equal(t, 6, sum)
}

func TestPoolDeliversTaskError(t *testing.T) {
	done := make(chan error, 1)
	pool := New[int](&inlinePoster{}, func(res Result[int]) { done <- res.Err })
	pool.Start(context.Background())
	defer pool.Close()

	wantErr := errors.New("boom")
	_ = pool.Submit(Task[int]{Run: func(context.Context) (int, error) { return 0, wantErr }})

	select {
	case err := <-done:
		assert.ErrorIs(t, err, wantErr)
	case <-time.After(time.Second):
		t.Fatal("result never delivered")
	}
}

func TestPoolRecoversTaskPanic(t *testing.T) {
	done := make(chan error, 1)
	pool := New[int](&inlinePoster{}, func(res Result[int]) { done <- res.Err })
	pool.Start(context.Background())
	defer pool.Close()

	_ = pool.Submit(Task[int]{Run: func(context.Context) (int, error) { panic("boom") }})

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrTaskPanicked)
	case <-time.After(time.Second):
		t.Fatal("result never delivered")
	}
}

func TestPoolStopOnErrorCancelsToken(t *testing.T) {
	results := make(chan Result[int], 8)
	pool := New[int](&inlinePoster{}, func(res Result[int]) { results <- res }, WithStopOnError())
	pool.Start(context.Background())
	defer pool.Close()

	_ = pool.Submit(Task[int]{Run: func(context.Context) (int, error) { return 0, errors.New("fail") }})

	select {
	case <-results:
	case <-time.After(time.Second):
		t.Fatal("error result never delivered")
	}

	deadline := time.After(time.Second)
	for !pool.Token().Canceled() {
		select {
		case <-deadline:
			t.Fatal("pool token was never canceled after StopOnError tripped")
		case <-time.After(time.Millisecond):
		}
	}

	err := pool.Submit(Task[int]{Run: func(context.Context) (int, error) { return 1, nil }})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestPoolCloseWaitsForInflight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	pool := New[int](&inlinePoster{}, func(Result[int]) {})
	pool.Start(context.Background())

	_ = pool.Submit(Task[int]{Run: func(context.Context) (int, error) {
		close(started)
		<-release
		return 0, nil
	}})
	<-started

	closed := make(chan struct{})
	go func() {
		pool.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned before the in-flight task finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close never returned after the in-flight task finished")
	}
}

func TestPoolFixedWorkersBoundsConcurrency(t *testing.T) {
	const limit = 2
	var mu sync.Mutex
	current, peak := 0, 0

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(6)

	pool := New[int](&inlinePoster{}, func(Result[int]) { wg.Done() }, WithFixedWorkers(limit))
	pool.Start(context.Background())
	defer pool.Close()

	for i := 0; i < 6; i++ {
		_ = pool.Submit(Task[int]{Run: func(context.Context) (int, error) {
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
			return 0, nil
		}})
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, limit)
}

package corert

import (
	"context"
	"sync"
)

type condWaiter struct {
	ch       chan struct{}
	prev     *condWaiter
	next     *condWaiter
	unlinked bool
}

// CondVar is a condition variable for coroutine-style code: Wait
// atomically releases an owned Mutex and suspends the caller, re-
// acquiring the Mutex before returning. Waiters are woken in strict FIFO
// order by NotifyOne; NotifyAll wakes everyone currently waiting.
type CondVar struct {
	mu   sync.Mutex
	head *condWaiter
	tail *condWaiter
}

// NewCondVar returns a CondVar with no waiters.
func NewCondVar() *CondVar { return &CondVar{} }

// Wait releases m (held by owner) and blocks until notified, ctx is
// done, or (if released) some other goroutine notifies this CondVar. If
// owner does not hold m, Wait returns the Unlock error at once without
// waiting; otherwise it always re-acquires m for owner before returning,
// even on error.
func (c *CondVar) Wait(ctx context.Context, m *Mutex, owner any) error {
	w := &condWaiter{ch: make(chan struct{})}
	c.mu.Lock()
	c.enqueue(w)
	c.mu.Unlock()

	if err := m.Unlock(owner); err != nil {
		c.mu.Lock()
		c.removeWaiter(w)
		c.mu.Unlock()
		return err
	}

	var waitErr error
	select {
	case <-w.ch:
	case <-ctx.Done():
		c.mu.Lock()
		c.removeWaiter(w)
		c.mu.Unlock()
		waitErr = ctx.Err()
	}

	if lockErr := m.Lock(context.Background(), owner); lockErr != nil && waitErr == nil {
		waitErr = lockErr
	}
	return waitErr
}

// NotifyOne wakes the longest-waiting caller, if any.
func (c *CondVar) NotifyOne() {
	c.mu.Lock()
	w := c.dequeue()
	c.mu.Unlock()
	if w != nil {
		close(w.ch)
	}
}

// NotifyAll wakes every current waiter.
func (c *CondVar) NotifyAll() {
	c.mu.Lock()
	var woken []*condWaiter
	for w := c.dequeue(); w != nil; w = c.dequeue() {
		woken = append(woken, w)
	}
	c.mu.Unlock()
	for _, w := range woken {
		close(w.ch)
	}
}

func (c *CondVar) enqueue(w *condWaiter) {
	w.prev = c.tail
	if c.tail != nil {
		c.tail.next = w
	} else {
		c.head = w
	}
	c.tail = w
}

func (c *CondVar) dequeue() *condWaiter {
	w := c.head
	if w == nil {
		return nil
	}
	c.unlink(w)
	return w
}

func (c *CondVar) removeWaiter(w *condWaiter) {
	if w.unlinked {
		return
	}
	c.unlink(w)
}

func (c *CondVar) unlink(w *condWaiter) {
	w.unlinked = true
	if w.prev != nil {
		w.prev.next = w.next
	} else if c.head == w {
		c.head = w.next
	}
	if w.next != nil {
		w.next.prev = w.prev
	} else if c.tail == w {
		c.tail = w.prev
	}
	w.prev, w.next = nil, nil
}

package corert

import "sync"

// sessionEntry holds the single-delivery channel for one pending async
// session.
type sessionEntry[T any] struct {
	ch chan T
}

// AsyncSessionTable correlates an asynchronous reply with the coroutine
// awaiting it, the way a request/response protocol correlates replies
// with outstanding requests by id. CreateSession allocates an id
// (skipping zero, mirroring the teacher's registry id allocation) and a
// channel; Resolve delivers exactly once and removes the entry, so a
// session can never be resolved twice or leak after resolution.
type AsyncSessionTable[T any] struct {
	mu       sync.Mutex
	nextID   uint64
	sessions map[uint64]*sessionEntry[T]
}

// NewAsyncSessionTable returns an empty table.
func NewAsyncSessionTable[T any]() *AsyncSessionTable[T] {
	return &AsyncSessionTable[T]{sessions: make(map[uint64]*sessionEntry[T])}
}

// CreateSession allocates a new session id and returns it along with a
// channel that receives exactly one value when the session is resolved.
func (t *AsyncSessionTable[T]) CreateSession() (uint64, <-chan T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	if t.nextID == 0 {
		t.nextID++ // skip zero when the counter wraps
	}
	id := t.nextID
	ch := make(chan T, 1)
	t.sessions[id] = &sessionEntry[T]{ch: ch}
	return id, ch
}

// Resolve delivers val to the session identified by id and removes it.
// Resolving an id that does not exist (already resolved, canceled, or
// never issued) returns ErrSessionNotFound.
func (t *AsyncSessionTable[T]) Resolve(id uint64, val T) error {
	t.mu.Lock()
	e, ok := t.sessions[id]
	if ok {
		delete(t.sessions, id)
	}
	t.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.ch <- val
	close(e.ch)
	return nil
}

// Cancel removes a pending session without delivering a value, closing
// its channel so any waiter unblocks with a zero value, ok=false.
func (t *AsyncSessionTable[T]) Cancel(id uint64) {
	t.mu.Lock()
	e, ok := t.sessions[id]
	if ok {
		delete(t.sessions, id)
	}
	t.mu.Unlock()
	if ok {
		close(e.ch)
	}
}

// Len reports the number of sessions currently awaiting resolution.
func (t *AsyncSessionTable[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

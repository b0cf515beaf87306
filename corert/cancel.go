package corert

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// CancellationError is the reason recorded by a CancellationSource when
// no explicit reason is given to Cancel.
type CancellationError struct {
	Reason any
}

func (e *CancellationError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("corert: cancellation (reason=%v)", e.Reason)
	}
	return "corert: cancellation"
}

func (e *CancellationError) Is(target error) bool {
	return target == ErrCanceled
}

func (e *CancellationError) Unwrap() error { return ErrCanceled }

// cancellationState is the data shared between a CancellationSource and
// every CancellationToken/CancellationRegistration derived from it.
type cancellationState struct {
	mu        sync.Mutex
	canceled  bool
	reason    any
	listeners *registrationNode // intrusive doubly linked list, sentinel-free
}

// registrationNode is a node in the intrusive handler list. Unregister
// unlinks the node from the list under the owning state's mutex, which is
// what lets a CancellationRegistration be dropped without leaking the
// closure it holds, and without relying on closures being comparable.
type registrationNode struct {
	state    *cancellationState
	handler  func(reason any)
	prev     *registrationNode
	next     *registrationNode
	unlinked bool
}

// CancellationSource is the owning side of a cancellation graph node. The
// zero value is not usable; construct with NewCancellationSource.
type CancellationSource struct {
	state *cancellationState
}

// NewCancellationSource creates an independent, not-yet-canceled source.
func NewCancellationSource() *CancellationSource {
	return &CancellationSource{state: &cancellationState{}}
}

// Token returns a lightweight, copyable observer of this source.
func (s *CancellationSource) Token() CancellationToken {
	if s == nil {
		return CancellationToken{}
	}
	return CancellationToken{state: s.state}
}

// Cancel marks the source canceled and synchronously fires every
// registered handler with reason, in registration order. Subsequent
// calls are no-ops; only the first reason is retained.
func (s *CancellationSource) Cancel(reason any) {
	if reason == nil {
		reason = &CancellationError{}
	}
	s.state.mu.Lock()
	if s.state.canceled {
		s.state.mu.Unlock()
		return
	}
	s.state.canceled = true
	s.state.reason = reason

	var handlers []func(reason any)
	for n := s.state.listeners; n != nil; n = n.next {
		handlers = append(handlers, n.handler)
	}
	s.state.listeners = nil
	s.state.mu.Unlock()

	// listeners is kept newest-first, so walk the snapshot backwards to
	// fire handlers in registration order.
	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i](reason)
	}
}

// Canceled reports whether this source has been canceled.
func (s *CancellationSource) Canceled() bool {
	return s.Token().Canceled()
}

// CancellationToken is a cheaply-copyable handle to a CancellationSource's
// state. The zero value is a token that can never be canceled, matching
// the "empty token short-circuits all checks" rule.
type CancellationToken struct {
	state *cancellationState
}

// CanBeCancelled reports whether this token is backed by a real source.
// An empty (zero-value) token always returns false.
func (t CancellationToken) CanBeCancelled() bool {
	return t.state != nil
}

// Canceled reports whether the backing source has been canceled. Always
// false for an empty token.
func (t CancellationToken) Canceled() bool {
	if t.state == nil {
		return false
	}
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	return t.state.canceled
}

// Reason returns the cancellation reason, or nil if not canceled.
func (t CancellationToken) Reason() any {
	if t.state == nil {
		return nil
	}
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	return t.state.reason
}

// Err returns ErrCanceled-compatible error if canceled, else nil.
func (t CancellationToken) Err() error {
	if !t.Canceled() {
		return nil
	}
	if err, ok := t.Reason().(error); ok && errors.Is(err, ErrCanceled) {
		return err
	}
	return &CancellationError{Reason: t.Reason()}
}

// OnCancel registers handler to be invoked once, with the cancellation
// reason, when the token's source is canceled. If the source is already
// canceled, handler fires synchronously before OnCancel returns. The
// returned CancellationRegistration must be Unregistered by the caller if
// it is no longer needed before cancellation; it is safe to Unregister
// after the handler has already fired.
//
// Calling OnCancel on an empty token returns a registration whose
// Unregister is a no-op, and handler is never invoked.
func (t CancellationToken) OnCancel(handler func(reason any)) *CancellationRegistration {
	if t.state == nil {
		return &CancellationRegistration{}
	}

	t.state.mu.Lock()
	if t.state.canceled {
		reason := t.state.reason
		t.state.mu.Unlock()
		handler(reason)
		return &CancellationRegistration{}
	}

	n := &registrationNode{state: t.state, handler: handler}
	n.next = t.state.listeners
	if n.next != nil {
		n.next.prev = n
	}
	t.state.listeners = n
	t.state.mu.Unlock()

	return &CancellationRegistration{node: n}
}

// CancellationRegistration is a scoped handle to an OnCancel registration.
// Its zero value is a valid, already-inert registration.
type CancellationRegistration struct {
	node *registrationNode
}

// Unregister unlinks the handler so it will not be invoked by a future
// cancellation. It is idempotent and safe to call multiple times, and
// safe to call after the handler has already fired.
func (r *CancellationRegistration) Unregister() {
	if r == nil || r.node == nil {
		return
	}
	n := r.node
	s := n.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.unlinked {
		return
	}
	n.unlinked = true
	if n.prev != nil {
		n.prev.next = n.next
	} else if s.listeners == n {
		s.listeners = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	n.prev, n.next = nil, nil
}

// Context returns a context.Context that is canceled when t is canceled,
// bridging the cancellation graph into code written against the standard
// library's blocking-operation convention. The returned CancelFunc
// releases the underlying registration and must always be called.
func (t CancellationToken) Context() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	if !t.CanBeCancelled() {
		return ctx, cancel
	}
	reg := t.OnCancel(func(reason any) { cancel() })
	return ctx, func() {
		reg.Unregister()
		cancel()
	}
}

// AnyToken returns a token that becomes canceled the first time any of
// the given tokens is canceled, with that token's reason. Mirrors the
// composite-signal pattern of racing several cancellation sources
// together (e.g. a caller-supplied token racing a timeout).
func AnyToken(tokens ...CancellationToken) CancellationToken {
	composite := NewCancellationSource()
	var once sync.Once

	for _, t := range tokens {
		if !t.CanBeCancelled() {
			continue
		}
		if t.Canceled() {
			once.Do(func() { composite.Cancel(t.Reason()) })
			continue
		}
		tt := t
		tt.OnCancel(func(reason any) {
			once.Do(func() { composite.Cancel(reason) })
		})
	}

	return composite.Token()
}

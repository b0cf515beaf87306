package corert

import "sync"

// TargetEvent is a fan-out notification dispatched by an EventTarget.
// Detail carries whatever payload the dispatcher chooses to attach.
type TargetEvent struct {
	Type   string
	Detail any
}

// TargetListener receives dispatched events.
type TargetListener func(evt TargetEvent)

type listenerEntry struct {
	id       uint64
	listener TargetListener
}

// EventTarget is a DOM-EventTarget-style fan-out point: any number of
// listeners may register for a named event type, and DispatchEvent
// invokes all of them, in registration order, synchronously on the
// calling goroutine. Dropping a ListenerRegistration (calling
// Unregister) guarantees the listener is not invoked by any dispatch
// that starts afterward.
type EventTarget struct {
	mu        sync.RWMutex
	listeners map[string][]listenerEntry
	nextID    uint64
}

// NewEventTarget returns an EventTarget with no listeners.
func NewEventTarget() *EventTarget {
	return &EventTarget{listeners: make(map[string][]listenerEntry)}
}

// ListenerRegistration is a handle returned by AddEventListener. Its
// zero value is valid and Unregister is a no-op on it.
type ListenerRegistration struct {
	target    *EventTarget
	eventType string
	id        uint64
}

// AddEventListener registers listener for eventType and returns a handle
// that removes it when Unregister is called.
func (t *EventTarget) AddEventListener(eventType string, listener TargetListener) *ListenerRegistration {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.listeners[eventType] = append(t.listeners[eventType], listenerEntry{id: id, listener: listener})
	return &ListenerRegistration{target: t, eventType: eventType, id: id}
}

// Unregister removes the listener this registration refers to. It is
// idempotent and safe to call more than once.
func (r *ListenerRegistration) Unregister() {
	if r == nil || r.target == nil {
		return
	}
	t := r.target
	t.mu.Lock()
	defer t.mu.Unlock()
	entries := t.listeners[r.eventType]
	for i, e := range entries {
		if e.id == r.id {
			t.listeners[r.eventType] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	r.target = nil
}

// DispatchEvent synchronously invokes every listener currently
// registered for evt.Type, in registration order. Listeners that
// unregister during dispatch do not affect the current dispatch's
// snapshot, matching the DOM's dispatch-time snapshot semantics.
func (t *EventTarget) DispatchEvent(evt TargetEvent) {
	t.mu.RLock()
	entries := append([]listenerEntry(nil), t.listeners[evt.Type]...)
	t.mu.RUnlock()

	for _, e := range entries {
		e.listener(evt)
	}
}

package corert

import "testing"

func TestEventTargetDispatchesInOrder(t *testing.T) {
	et := NewEventTarget()
	var order []int
	et.AddEventListener("ping", func(TargetEvent) { order = append(order, 1) })
	et.AddEventListener("ping", func(TargetEvent) { order = append(order, 2) })
	et.AddEventListener("ping", func(TargetEvent) { order = append(order, 3) })

	et.DispatchEvent(TargetEvent{Type: "ping"})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order = %v, want [1 2 3]", order)
	}
}

func TestEventTargetUnregisterStopsFutureDispatches(t *testing.T) {
	et := NewEventTarget()
	var calls []string

	et.AddEventListener("ping", func(TargetEvent) { calls = append(calls, "a") })
	regB := et.AddEventListener("ping", func(TargetEvent) { calls = append(calls, "b") })
	et.AddEventListener("ping", func(TargetEvent) { calls = append(calls, "c") })

	et.DispatchEvent(TargetEvent{Type: "ping"})
	regB.Unregister()
	regB.Unregister() // idempotent
	et.DispatchEvent(TargetEvent{Type: "ping"})

	want := []string{"a", "b", "c", "a", "c"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}

func TestEventTargetIgnoresOtherTypes(t *testing.T) {
	et := NewEventTarget()
	called := false
	et.AddEventListener("a", func(TargetEvent) { called = true })
	et.DispatchEvent(TargetEvent{Type: "b"})
	if called {
		t.Fatal("listener for a different event type should not fire")
	}
}

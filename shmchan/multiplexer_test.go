package shmchan

import (
	"context"
	"testing"
	"time"

	"github.com/joeycumines/corert"
)

func TestMultiplexerRegisterUnregister(t *testing.T) {
	mux := NewMultiplexer(WithPollInterval(time.Millisecond))
	sched := corert.NewScheduler()
	ring := newTestRing(t, 16)
	ch := NewChannel("a", ring, sched, mux)

	mux.register(ch)
	if _, ok := mux.channels[ch]; !ok {
		t.Fatal("register did not add channel")
	}
	mux.unregister(ch)
	if _, ok := mux.channels[ch]; ok {
		t.Fatal("unregister did not remove channel")
	}
}

func TestMultiplexerServesMultipleChannelsIndependently(t *testing.T) {
	sched := corert.NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	mux := NewMultiplexer(WithPollInterval(2 * time.Millisecond))
	mux.Run()
	defer mux.Stop()

	chA := NewChannel("a", newTestRing(t, 4), sched, mux)
	chB := NewChannel("b", newTestRing(t, 4), sched, mux)

	doneA := make(chan error, 1)
	doneB := make(chan error, 1)
	go func() { doneA <- chA.Read(context.Background(), corert.CancellationToken{}, make([]byte, 3)) }()
	go func() { doneB <- chB.Read(context.Background(), corert.CancellationToken{}, make([]byte, 3)) }()

	time.Sleep(10 * time.Millisecond)
	if err := chB.Write(context.Background(), corert.CancellationToken{}, []byte("xyz")); err != nil {
		t.Fatalf("chB.Write: %v", err)
	}

	select {
	case err := <-doneB:
		if err != nil {
			t.Fatalf("chB.Read: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("chB.Read never unblocked")
	}

	select {
	case <-doneA:
		t.Fatal("chA.Read unblocked even though nothing was written to it")
	case <-time.After(20 * time.Millisecond):
	}

	_ = chA.Close()
	select {
	case err := <-doneA:
		if err != ErrClosed {
			t.Fatalf("chA.Read err = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("closing chA never woke its pending Read")
	}
}

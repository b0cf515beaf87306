package shmchan

import (
	"sync"
	"time"
)

const defaultPollInterval = time.Millisecond

// Multiplexer is a single background goroutine (not an OS thread — Go
// already multiplexes goroutines onto threads) that polls every
// registered Channel at a bounded interval and, for any whose pending
// request can now be satisfied, posts the wakeup onto that channel's
// owning scheduler. A production variant would replace polling with a
// platform event primitive (e.g. a named semaphore); this module
// documents that as a known limitation rather than implementing it.
type Multiplexer struct {
	interval time.Duration

	mu       sync.Mutex
	channels map[*Channel]struct{}

	startOnce sync.Once
	stop      chan struct{}
	stopOnce  sync.Once
}

// MultiplexerOption configures a Multiplexer at construction time.
type MultiplexerOption func(*Multiplexer)

// WithPollInterval overrides the default 1ms poll interval.
func WithPollInterval(d time.Duration) MultiplexerOption {
	return func(m *Multiplexer) { m.interval = d }
}

// NewMultiplexer constructs a Multiplexer. Run must be called to start
// its polling goroutine.
func NewMultiplexer(opts ...MultiplexerOption) *Multiplexer {
	m := &Multiplexer{
		interval: defaultPollInterval,
		channels: make(map[*Channel]struct{}),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the polling goroutine. Run may be called only once; later
// calls are no-ops.
func (m *Multiplexer) Run() {
	m.startOnce.Do(func() {
		go m.loop()
	})
}

// Stop halts the polling goroutine. It does not close or unregister any
// channel.
func (m *Multiplexer) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Multiplexer) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.pollAll()
		}
	}
}

func (m *Multiplexer) pollAll() {
	m.mu.Lock()
	snapshot := make([]*Channel, 0, len(m.channels))
	for c := range m.channels {
		snapshot = append(snapshot, c)
	}
	m.mu.Unlock()

	for _, c := range snapshot {
		c.pollOnce()
	}
}

func (m *Multiplexer) register(c *Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[c] = struct{}{}
}

func (m *Multiplexer) unregister(c *Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, c)
}

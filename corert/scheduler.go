package corert

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// IOEvents is a bitmask describing the readiness an FD registration is
// interested in. It exists purely as part of the RegisterFD handshake;
// this package does not itself poll any file descriptor.
type IOEvents uint32

const (
	EventRead IOEvents = 1 << iota
	EventWrite
	EventError
	EventHangup
)

type fdRegistration struct {
	events   IOEvents
	callback func(IOEvents)
}

// Scheduler is a single-goroutine cooperative runtime: one goroutine
// ("the loop goroutine") owns execution order for every task and timer
// posted to it. Code running on other goroutines interacts with it
// exclusively through Post, Wake, ScheduleTimer/CancelTimer,
// RegisterFD/UnregisterFD/Notify, and the cancellation graph
// (CancellationSource/CancellationToken).
type Scheduler struct {
	state *fastState

	mu      sync.Mutex
	tasks   taskQueue
	wakeups taskQueue // separate FIFO for coroutine resumption, never run inline
	timers  timerHeap

	fastWakeupCh chan struct{}
	loopDone     chan struct{}

	loopGoroutineID atomic.Uint64
	stopOnce        sync.Once

	fdMu sync.RWMutex
	fds  map[int]fdRegistration

	logger       *logiface.Logger[*Event]
	pollInterval time.Duration
}

// NewScheduler constructs a Scheduler in the Awake state. It must be
// started with Run from a goroutine other than the one constructing it.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	o := resolveSchedulerOptions(opts)
	return &Scheduler{
		state:        newFastState(),
		fastWakeupCh: make(chan struct{}, 1),
		loopDone:     make(chan struct{}),
		fds:          make(map[int]fdRegistration),
		logger:       o.logger,
		pollInterval: o.pollInterval,
	}
}

// getGoroutineID extracts the calling goroutine's numeric id from the
// debug stack trace header ("goroutine 123 ["). This is the only
// portable way to answer "am I the loop goroutine" without requiring
// callers to pass a context value through every call site.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return 0
	}
	b = b[len(prefix):]
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

func (s *Scheduler) isLoopThread() bool {
	id := s.loopGoroutineID.Load()
	return id != 0 && id == getGoroutineID()
}

// Run executes the scheduler's loop on the calling goroutine until ctx is
// canceled or Shutdown is called. It returns ctx.Err() in the former
// case, nil in the latter.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.state.TryTransition(stateAwake, stateRunning) {
		return ErrInvalidAction
	}
	defer close(s.loopDone)

	s.loopGoroutineID.Store(getGoroutineID())
	defer s.loopGoroutineID.Store(0)

	ctxDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.wake()
		case <-ctxDone:
		}
	}()
	defer close(ctxDone)

	logInfo(s.logger, "scheduler started", nil)

	for {
		select {
		case <-ctx.Done():
			s.drainToTermination()
			return ctx.Err()
		default:
		}

		st := s.state.Load()
		if st == stateTerminating || st == stateTerminated {
			s.drainToTermination()
			return nil
		}

		s.tick()

		if s.hasPendingWork() {
			continue
		}

		timeout := s.calculateTimeout()
		if !s.state.TryTransition(stateRunning, stateSleeping) {
			continue
		}
		if timeout < 0 {
			<-s.fastWakeupCh
		} else {
			select {
			case <-s.fastWakeupCh:
			case <-time.After(timeout):
			}
		}
		s.state.TransitionAny([]schedulerState{stateSleeping}, stateRunning)
	}
}

// Shutdown requests graceful termination: no new work is accepted, but
// everything already queued still runs before the loop goroutine exits.
// It blocks until the loop has stopped or ctx expires. On a Scheduler
// whose Run was never called, Shutdown marks it terminated at once and
// work queued by Post is never run.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		for {
			cur := s.state.Load()
			if cur == stateTerminated || cur == stateTerminating {
				break
			}
			if s.state.TryTransition(cur, stateTerminating) {
				if cur == stateAwake {
					s.state.Store(stateTerminated)
					close(s.loopDone)
					return
				}
				s.wake()
				break
			}
		}
		select {
		case <-s.loopDone:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return err
}

// drainToTermination runs every remaining queued task and fired timer
// before marking the scheduler Terminated. It requires three consecutive
// empty passes, matching the teacher's multi-pass drain discipline, to
// avoid missing work enqueued by a task that is itself completing.
func (s *Scheduler) drainToTermination() {
	emptyPasses := 0
	for emptyPasses < 3 {
		did := s.runDueTimers()
		did = s.runQueue(&s.wakeups) || did
		did = s.runQueue(&s.tasks) || did
		if did {
			emptyPasses = 0
		} else {
			emptyPasses++
		}
	}
	s.state.Store(stateTerminated)
	logInfo(s.logger, "scheduler terminated", nil)
}

func (s *Scheduler) hasPendingWork() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Length() > 0 || s.wakeups.Length() > 0
}

// calculateTimeout returns how long the loop goroutine may sleep before
// it must re-check for timer work: the delay to the next timer deadline,
// capped at 10s, or -1 (sleep indefinitely for a wakeup) if no timer is
// pending. Sub-millisecond deltas round up to 1ms so the select/timer
// channel never fires early.
func (s *Scheduler) calculateTimeout() time.Duration {
	const maxSleep = 10 * time.Second

	s.mu.Lock()
	deadline, ok := s.timers.peekDeadline()
	s.mu.Unlock()
	if !ok {
		return -1
	}

	d := time.Until(deadline)
	if d <= 0 {
		return 0
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	if d > maxSleep {
		d = maxSleep
	}
	return d
}

func (s *Scheduler) tick() {
	s.runDueTimers()
	s.runQueue(&s.wakeups)
	s.runQueue(&s.tasks)
}

func (s *Scheduler) runDueTimers() bool {
	s.mu.Lock()
	ready := s.timers.popReady(time.Now())
	s.mu.Unlock()
	for _, n := range ready {
		s.safeExecute(n.fn)
	}
	return len(ready) > 0
}

func (s *Scheduler) runQueue(q *taskQueue) bool {
	const budget = 1024
	ran := false
	for i := 0; i < budget; i++ {
		s.mu.Lock()
		fn, ok := q.Pop()
		s.mu.Unlock()
		if !ok {
			break
		}
		s.safeExecute(fn)
		ran = true
	}
	return ran
}

func (s *Scheduler) safeExecute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logError(s.logger, "recovered panic in scheduled task", wrapError("panic", asError(r)))
		}
	}()
	fn()
}

func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return wrapError("non-error panic value", ErrInvalidAction)
}

// Post enqueues fn to run on the loop goroutine. It is safe to call from
// any goroutine, including the loop goroutine itself, and never runs fn
// inline: fn always runs on a later tick, which avoids reentrancy bugs
// when Post is called from inside a task.
func (s *Scheduler) Post(fn func()) error {
	if !s.state.CanAcceptWork() {
		return ErrInvalidAction
	}
	s.mu.Lock()
	s.tasks.Push(fn)
	s.mu.Unlock()
	s.wake()
	return nil
}

// postWakeup is used internally by the coroutine primitives to resume a
// suspended waiter. It uses a separate FIFO from Post so that resumption
// order is independent of ordinary posted work, while still guaranteeing
// it is never invoked inline from within the call that triggered it.
func (s *Scheduler) postWakeup(fn func()) error {
	if !s.state.CanAcceptWork() {
		return ErrInvalidAction
	}
	s.mu.Lock()
	s.wakeups.Push(fn)
	s.mu.Unlock()
	s.wake()
	return nil
}

func (s *Scheduler) wake() {
	select {
	case s.fastWakeupCh <- struct{}{}:
	default:
	}
}

// Wake nudges the loop goroutine without enqueuing any work, so that it
// re-checks its queues and timers promptly instead of waiting out its
// sleep timeout.
func (s *Scheduler) Wake() {
	s.wake()
}

// ScheduleTimer arranges for fn to run on the loop goroutine no earlier
// than delay from now. The returned handle may be passed to CancelTimer.
func (s *Scheduler) ScheduleTimer(delay time.Duration, fn func()) *timerNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.timers.insert(time.Now().Add(delay), fn)
	s.wake()
	return n
}

// CancelTimer cancels a pending timer. It is a no-op if the timer has
// already fired or was already canceled.
func (s *Scheduler) CancelTimer(n *timerNode) {
	if n == nil {
		return
	}
	s.mu.Lock()
	s.timers.remove(n)
	s.mu.Unlock()
}

// RegisterFD records a callback to be invoked when an external poller
// (not owned by this package) observes fd become ready for events. This
// is the full extent of the scheduler/I-O handshake this module
// implements; the polling itself belongs to the caller, which reports
// readiness through Notify.
func (s *Scheduler) RegisterFD(fd int, events IOEvents, callback func(IOEvents)) error {
	if callback == nil {
		return &SocketError{Category: SocketErrorUnknown, FD: fd, Cause: ErrInvalidAction}
	}
	s.fdMu.Lock()
	defer s.fdMu.Unlock()
	if _, exists := s.fds[fd]; exists {
		return &SocketError{Category: SocketErrorUnknown, FD: fd, Cause: ErrInvalidAction}
	}
	s.fds[fd] = fdRegistration{events: events, callback: callback}
	return nil
}

// UnregisterFD removes a previously registered FD callback.
func (s *Scheduler) UnregisterFD(fd int) error {
	s.fdMu.Lock()
	defer s.fdMu.Unlock()
	if _, exists := s.fds[fd]; !exists {
		return &SocketError{Category: SocketErrorUnknown, FD: fd, Cause: ErrInvalidAction}
	}
	delete(s.fds, fd)
	return nil
}

// Notify invokes the registered callback for fd (if any) by posting it
// onto the loop goroutine, exactly like any other task. External pollers
// call this when they observe readiness.
func (s *Scheduler) Notify(fd int, events IOEvents) {
	s.fdMu.RLock()
	reg, ok := s.fds[fd]
	s.fdMu.RUnlock()
	if !ok || reg.events&events == 0 {
		return
	}
	_ = s.Post(func() { reg.callback(events) })
}

// PollInterval returns the configured bound on how often background
// pollers associated with this scheduler should re-check their sources.
func (s *Scheduler) PollInterval() time.Duration { return s.pollInterval }

// Logger returns the configured structured logger, or nil.
func (s *Scheduler) Logger() *logiface.Logger[*Event] { return s.logger }

package corert

import "sync/atomic"

// schedulerState is the run state of a Scheduler.
//
// State machine:
//
//	stateAwake (0)       -> stateRunning (3)       [Run]
//	stateRunning (3)     -> stateSleeping (2)       [poll, CAS]
//	stateSleeping (2)    -> stateRunning (3)        [poll wake, CAS]
//	stateRunning (3)     -> stateTerminating (4)    [Shutdown]
//	stateSleeping (2)    -> stateTerminating (4)    [Shutdown]
//	stateTerminating (4) -> stateTerminated (1)     [shutdown complete]
//
// Temporary states (Running, Sleeping) are only ever entered via CAS.
// Terminated is only ever entered via Store, since it is irreversible.
type schedulerState uint64

const (
	stateAwake schedulerState = 0
	// stateTerminated is 1 and stateSleeping is 2 to preserve the
	// non-sequential ordering of the runtime this scheduler is based on.
	stateTerminated  schedulerState = 1
	stateSleeping    schedulerState = 2
	stateRunning     schedulerState = 3
	stateTerminating schedulerState = 4
)

func (s schedulerState) String() string {
	switch s {
	case stateAwake:
		return "awake"
	case stateRunning:
		return "running"
	case stateSleeping:
		return "sleeping"
	case stateTerminating:
		return "terminating"
	case stateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// fastState is a lock-free state machine, cache-line padded to avoid
// false sharing with neighbouring fields in Scheduler.
type fastState struct { //nolint:govet
	_ [64]byte
	v atomic.Uint64
	_ [56]byte
}

func newFastState() *fastState {
	s := &fastState{}
	s.v.Store(uint64(stateAwake))
	return s
}

func (s *fastState) Load() schedulerState {
	return schedulerState(s.v.Load())
}

func (s *fastState) Store(state schedulerState) {
	s.v.Store(uint64(state))
}

func (s *fastState) TryTransition(from, to schedulerState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

func (s *fastState) TransitionAny(validFrom []schedulerState, to schedulerState) bool {
	for _, from := range validFrom {
		if s.v.CompareAndSwap(uint64(from), uint64(to)) {
			return true
		}
	}
	return false
}

func (s *fastState) IsTerminal() bool {
	return s.Load() == stateTerminated
}

func (s *fastState) CanAcceptWork() bool {
	switch s.Load() {
	case stateAwake, stateRunning, stateSleeping:
		return true
	default:
		return false
	}
}

package asynccore

import (
	"sync/atomic"
)

// State represents the lifecycle state of a [Core].
//
// State machine:
//
//	StateIdle → StateStarting       [Start()]
//	StateStarting → StateRunning    [all workers launched]
//	StateStarting → StateIdle       [launch failure rollback]
//	StateRunning → StateStopping    [Stop()]
//	StateStopping → StateIdle       [all workers joined]
//
// Transitions are serialized by the core's stop mutex; reads are lock-free.
type State uint32

const (
	// StateIdle indicates no workers exist; the core may be started.
	StateIdle State = iota
	// StateStarting indicates Start is launching workers.
	StateStarting
	// StateRunning indicates all workers are launched and polling.
	StateRunning
	// StateStopping indicates Stop is tearing workers down.
	StateStopping
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// coreState is a lock-free state cell. Stores use release semantics and loads
// acquire, so a worker observing StateStopping also observes every prior
// memory effect of Stop.
type coreState struct {
	v atomic.Uint32
}

func (s *coreState) Load() State {
	return State(s.v.Load())
}

func (s *coreState) Store(state State) {
	s.v.Store(uint32(state))
}

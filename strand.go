package asynccore

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Strand is a serialization domain over an [Executor]: closures posted to the
// same strand never run concurrently with one another, and run in post order.
//
// Coroutines are bound to a strand; all posted resumes of one coroutine
// execute on its strand in the order they were posted.
type Strand struct {
	_ [0]func() // prevent copying

	executor Executor
	mu       sync.Mutex
	queue    []func()
	active   bool
	// occupant is the id of the goroutine currently executing on the
	// strand (the drain goroutine, or a coroutine resumed from it).
	occupant atomic.Uint64
}

// NewStrand creates a strand over the given executor.
func NewStrand(e Executor) *Strand {
	if e == nil {
		panic(`asynccore: nil executor`)
	}
	return &Strand{executor: e}
}

// Executor returns the underlying executor.
func (s *Strand) Executor() Executor {
	return s.executor
}

// Post enqueues fn to run on the strand. At most one drain task is
// outstanding on the executor at a time, preserving the serialization
// guarantee even when multiple workers service the executor.
func (s *Strand) Post(fn func()) {
	if fn == nil {
		panic(`asynccore: nil task`)
	}
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	schedule := !s.active
	if schedule {
		s.active = true
	}
	s.mu.Unlock()
	if schedule {
		s.executor.Post(s.drain)
	}
}

// drain executes queued closures one at a time until the queue is empty.
func (s *Strand) drain() {
	defer func() {
		if r := recover(); r != nil {
			// keep the strand live past a panicking closure
			s.mu.Lock()
			if len(s.queue) > 0 {
				s.executor.Post(s.drain)
			} else {
				s.active = false
			}
			s.mu.Unlock()
			panic(r)
		}
	}()
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.active = false
			s.mu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.occupant.Store(goroutineID())
		fn()
		s.occupant.Store(0)
	}
}

// runningHere reports whether the calling goroutine is currently executing on
// the strand.
func (s *Strand) runningHere() bool {
	id := s.occupant.Load()
	return id != 0 && id == goroutineID()
}

// goroutineID returns the current goroutine's id, parsed from the runtime
// stack header.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

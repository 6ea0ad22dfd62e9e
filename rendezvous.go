package asynccore

import (
	"sync/atomic"
)

// Rendezvous slot states. A slot mediates a single handover between one
// consumer (the coroutine's Get) and one effective producer (a caller): the
// side arriving second completes the rendezvous.
//
//	empty  → parked  [consumer arrived first; it suspends]
//	empty  → filled  [producer arrived first; it stores the value]
//	parked → done    [producer second; store value, resume consumer]
//	filled → done    [consumer second; read value, no suspend]
//
// Later producer arrivals observe filled/done and have no effect; in
// particular they never re-resume the coroutine.
const (
	slotEmpty uint32 = iota
	slotParked
	slotFilled
	slotDone
)

// slotCell is the lock-free state machine shared by [Slot] and [ErrSlot].
// store is invoked only while it is safe to write the payload (state empty or
// parked, i.e. the consumer is absent or suspended).
type slotCell struct {
	state atomic.Uint32
}

// produce runs the producer side. It reports whether the consumer is parked
// and must be resumed. False means the value was published first, the
// rendezvous was already complete, or a duplicate producer lost the race.
func (s *slotCell) produce(store func()) bool {
	for {
		switch s.state.Load() {
		case slotEmpty:
			store()
			if s.state.CompareAndSwap(slotEmpty, slotFilled) {
				return false
			}
		case slotParked:
			store()
			if s.state.CompareAndSwap(slotParked, slotDone) {
				return true
			}
		default:
			return false
		}
	}
}

// consume runs the consumer side, suspending via yield when the producer has
// not arrived yet. On return the payload is readable.
func (s *slotCell) consume(yield func()) {
	if s.state.CompareAndSwap(slotEmpty, slotParked) {
		yield()
		return
	}
	s.state.CompareAndSwap(slotFilled, slotDone)
}

// Slot is a single-assignment rendezvous cell for one value, tied to a
// coroutine. The coroutine reads it with [Slot.Get]; an external completion
// callback obtained from [Slot.Caller] fills it. Whichever side arrives
// second completes the handover.
//
// Use Slot[struct{}] for a pure continuation signal without a value.
type Slot[T any] struct {
	cell  slotCell
	ctx   *Context
	value T
}

// NewSlot creates a slot against the given coroutine context.
func NewSlot[T any](ctx *Context) *Slot[T] {
	return &Slot[T]{ctx: ctx}
}

// Get returns the slot's value, suspending the coroutine until a caller
// provides it. Must be called from the coroutine the slot's context belongs
// to, at most once per slot.
func (s *Slot[T]) Get() T {
	s.cell.consume(s.ctx.data.yield)
	return s.value
}

// Caller returns the completion callback for this slot. Invoking it stores
// the value and, if the coroutine is suspended in [Slot.Get], resumes it by
// posting onto the coroutine's strand. The caller holds a strong reference to
// the coroutine until invoked or released.
func (s *Slot[T]) Caller() Caller[T] {
	return newCaller(s, false)
}

// InlineCaller is [Slot.Caller] with a direct, in-place resume instead of a
// posted one. Invoking it is only valid on the coroutine's strand; use it to
// skip a queue round-trip when completing from code already serialized with
// the coroutine.
func (s *Slot[T]) InlineCaller() Caller[T] {
	return newCaller(s, true)
}

// set stores the value, reporting whether a resume is required.
func (s *Slot[T]) set(v T) bool {
	return s.cell.produce(func() { s.value = v })
}

// Caller is the completion callback side of a [Slot]. Copies share the same
// underlying reference; it may be invoked from any goroutine (the inline
// variant only from the strand).
type Caller[T any] struct {
	slot     *Slot[T]
	data     *coroData
	released *atomic.Bool
	inline   bool
}

func newCaller[T any](slot *Slot[T], inline bool) Caller[T] {
	d := slot.ctx.data
	if err := d.acquire(); err != nil {
		panic(err)
	}
	return Caller[T]{
		slot:     slot,
		data:     d,
		released: new(atomic.Bool),
		inline:   inline,
	}
}

// Call delivers the value. If the coroutine is suspended on the slot it is
// resumed; calling again on the same slot has no effect and never re-resumes.
// The caller's reference is released; calling a released caller is a no-op.
func (c Caller[T]) Call(v T) {
	if c.released.Load() {
		return
	}
	if c.slot.set(v) {
		c.resume()
	}
	c.Release()
}

// Release drops the caller's strong reference on the coroutine without
// delivering a value. Idempotent; [Caller.Call] releases implicitly. A caller
// that is dropped without Call or Release keeps the coroutine alive
// indefinitely.
func (c Caller[T]) Release() {
	if c.released.CompareAndSwap(false, true) {
		c.data.release()
	}
}

func (c Caller[T]) resume() {
	if c.inline {
		c.data.inlineResume()
	} else {
		c.data.postResume()
	}
}

// ErrSlot is a rendezvous cell whose producer reports an error alongside the
// value, mirroring the (error, results...) completion convention. On
// [ErrSlot.Get], a non-nil error is returned, unless the slot's context
// carries an external error reference ([Context.WithErrorRef]), in which case
// the error is written there and Get returns it as nil.
type ErrSlot[T any] struct {
	cell  slotCell
	ctx   *Context
	value T
	err   error
}

// NewErrSlot creates an error-carrying slot against the given coroutine
// context.
func NewErrSlot[T any](ctx *Context) *ErrSlot[T] {
	return &ErrSlot[T]{ctx: ctx}
}

// Get returns the slot's value and error, suspending the coroutine until a
// caller provides them. See [ErrSlot] for the external error reference
// behavior.
func (s *ErrSlot[T]) Get() (T, error) {
	s.cell.consume(s.ctx.data.yield)
	if s.err != nil && s.ctx.errRef != nil {
		*s.ctx.errRef = s.err
		return s.value, nil
	}
	return s.value, s.err
}

// Caller returns the completion callback for this slot, with a posted resume.
func (s *ErrSlot[T]) Caller() ErrCaller[T] {
	return newErrCaller(s, false)
}

// InlineCaller returns the completion callback with a direct resume; see
// [Slot.InlineCaller].
func (s *ErrSlot[T]) InlineCaller() ErrCaller[T] {
	return newErrCaller(s, true)
}

func (s *ErrSlot[T]) set(err error, v T) bool {
	return s.cell.produce(func() { s.err, s.value = err, v })
}

// ErrCaller is the completion callback side of an [ErrSlot].
type ErrCaller[T any] struct {
	slot     *ErrSlot[T]
	data     *coroData
	released *atomic.Bool
	inline   bool
}

func newErrCaller[T any](slot *ErrSlot[T], inline bool) ErrCaller[T] {
	d := slot.ctx.data
	if err := d.acquire(); err != nil {
		panic(err)
	}
	return ErrCaller[T]{
		slot:     slot,
		data:     d,
		released: new(atomic.Bool),
		inline:   inline,
	}
}

// Call delivers the error and value; see [Caller.Call].
func (c ErrCaller[T]) Call(err error, v T) {
	if c.released.Load() {
		return
	}
	if c.slot.set(err, v) {
		if c.inline {
			c.data.inlineResume()
		} else {
			c.data.postResume()
		}
	}
	c.Release()
}

// Release drops the caller's reference; see [Caller.Release].
func (c ErrCaller[T]) Release() {
	if c.released.CompareAndSwap(false, true) {
		c.data.release()
	}
}

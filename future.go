package asynccore

import (
	"sync"
	"time"
)

// Result carries a settled future's outcome over a channel; see
// [Future.ToChannel].
type Result[T any] struct {
	Value T
	Err   error
}

// futureState is the shared state between a promise and its futures: an
// outcome, a readiness latch, and the pending asynchronous waiters, all bound
// to the executor async-wait handlers are posted to.
type futureState[T any] struct {
	executor Executor
	mu       sync.Mutex
	done     chan struct{}
	handlers []func()
	value    T
	err      error
	ready    bool
}

// satisfy stores the outcome. Satisfaction is at-most-once; pending
// async-wait handlers are posted to the bound executor, never run inline.
func (s *futureState[T]) satisfy(v T, err error) error {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return ErrPromiseSatisfied
	}
	s.value = v
	s.err = err
	s.ready = true
	handlers := s.handlers
	s.handlers = nil
	close(s.done)
	s.mu.Unlock()

	for _, h := range handlers {
		s.executor.Post(h)
	}
	return nil
}

// Promise is the producing side of a coroutine future. Create one with
// [NewPromise]; satisfy it exactly once with SetValue or SetError.
type Promise[T any] struct {
	state *futureState[T]
}

// NewPromise creates a promise whose async-wait completions are posted to the
// given executor.
func NewPromise[T any](e Executor) *Promise[T] {
	if e == nil {
		panic(`asynccore: nil executor`)
	}
	return &Promise[T]{state: &futureState[T]{
		executor: e,
		done:     make(chan struct{}),
	}}
}

// Future returns a future sharing this promise's state.
func (p *Promise[T]) Future() *Future[T] {
	return &Future[T]{state: p.state}
}

// SetValue fulfills the promise. A second satisfaction attempt fails with
// [ErrPromiseSatisfied].
func (p *Promise[T]) SetValue(v T) error {
	return p.state.satisfy(v, nil)
}

// SetError fails the promise; err must be non-nil. A second satisfaction
// attempt fails with [ErrPromiseSatisfied].
func (p *Promise[T]) SetError(err error) error {
	if err == nil {
		panic(`asynccore: nil error`)
	}
	var zero T
	return p.state.satisfy(zero, err)
}

// Executor returns the executor async-wait handlers are posted to.
func (p *Promise[T]) Executor() Executor {
	return p.state.executor
}

// Future is the consuming side of a coroutine future: a thread-safe handle
// offering blocking, timed, and asynchronous waits.
//
// The zero value shares no state with any promise: [Future.Valid] reports
// false, [Future.Get] fails with [ErrNoFutureState], and every other method
// panics with it.
type Future[T any] struct {
	state *futureState[T]
}

// Valid reports whether the future shares state with a promise.
func (f *Future[T]) Valid() bool {
	return f != nil && f.state != nil
}

func (f *Future[T]) mustState() *futureState[T] {
	if !f.Valid() {
		panic(ErrNoFutureState)
	}
	return f.state
}

// Ready reports whether the future has been satisfied.
func (f *Future[T]) Ready() bool {
	s := f.mustState()
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Get blocks until the future is ready, then returns the stored value or
// error. On a zero-value future it returns [ErrNoFutureState].
func (f *Future[T]) Get() (T, error) {
	if !f.Valid() {
		var zero T
		return zero, ErrNoFutureState
	}
	<-f.state.done
	return f.state.value, f.state.err
}

// Wait blocks until the future is ready.
func (f *Future[T]) Wait() {
	<-f.mustState().done
}

// WaitFor blocks until the future is ready or the duration elapses, and
// reports readiness. A timeout does not disturb the computation.
func (f *Future[T]) WaitFor(d time.Duration) bool {
	s := f.mustState()
	select {
	case <-s.done:
		return true
	default:
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.done:
		return true
	case <-t.C:
		return false
	}
}

// WaitUntil blocks until the future is ready or the deadline passes, and
// reports readiness.
func (f *Future[T]) WaitUntil(deadline time.Time) bool {
	return f.WaitFor(time.Until(deadline))
}

// AsyncWait registers a completion handler: once the future is ready, the
// handler is posted to the promise's bound executor. If already ready it is
// posted immediately. Handlers never run inline in SetValue/SetError; they
// run on whichever goroutine drives the bound executor.
func (f *Future[T]) AsyncWait(handler func()) {
	if handler == nil {
		panic(`asynccore: nil handler`)
	}
	s := f.mustState()
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		s.executor.Post(handler)
		return
	}
	s.handlers = append(s.handlers, handler)
	s.mu.Unlock()
}

// ToChannel converts the future to a standard blocking form: a buffered
// channel that receives the outcome once and is then closed. The transfer
// happens via an internal async-wait, so it is driven by the promise's bound
// executor.
func (f *Future[T]) ToChannel() <-chan Result[T] {
	s := f.mustState()
	ch := make(chan Result[T], 1)
	f.AsyncWait(func() {
		ch <- Result[T]{Value: s.value, Err: s.err}
		close(ch)
	})
	return ch
}

// SpawnFuture spawns a coroutine whose outcome satisfies a promise bound to
// the strand's executor, and returns the matching future. An error returned
// by fn, or a panic escaping it, fails the future (panics are normalized via
// [PanicError] when the value is not an error).
func SpawnFuture[T any](s *Strand, fn func(*Context) (T, error)) *Future[T] {
	promise := NewPromise[T](s.Executor())
	Spawn(s, func(ctx *Context) {
		var v T
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = asError(r)
				}
			}()
			v, err = fn(ctx)
		}()
		if err != nil {
			_ = promise.SetError(err)
		} else {
			_ = promise.SetValue(v)
		}
	})
	return promise.Future()
}

// SpawnFutureOn is [SpawnFuture] on a fresh strand over the given executor.
func SpawnFutureOn[T any](e Executor, fn func(*Context) (T, error)) *Future[T] {
	return SpawnFuture(NewStrand(e), fn)
}

// DefaultRunSlice is the per-iteration timeout [RunUntilComplete] uses when
// none is given.
const DefaultRunSlice = time.Second

// RunUntilComplete drives the executor from the calling goroutine until the
// future is ready, then returns the future. Each iteration runs at most one
// task, waiting up to the given slice (default [DefaultRunSlice]).
//
// This is the bridge from blocking synchronous code into a coroutine-driven
// computation. NOTE: a future that is never satisfied makes this loop
// forever, one slice-long block at a time.
func RunUntilComplete[T any](e Executor, f *Future[T], slice ...time.Duration) *Future[T] {
	d := DefaultRunSlice
	if len(slice) > 0 {
		d = slice[0]
	}
	for !f.Ready() {
		e.RunOneFor(d)
	}
	return f
}

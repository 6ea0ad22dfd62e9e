package asynccore

import (
	"sync"
	"sync/atomic"
)

// unwindSentinel is panicked inside an abandoned coroutine to unwind its
// stack; it never escapes the coroutine goroutine.
type unwindSentinel struct{}

// coroData is the shared state of one live coroutine: the suspendable
// execution (a dedicated goroutine exchanging control through channel
// handoff), the strand the coroutine is bound to, and the captured panic used
// to propagate a terminating failure to whichever side resumed it.
//
// Ownership is explicit: posted resume closures and callers hold strong
// references; the coroutine body's own [Context] does not. When the last
// strong reference is released while the coroutine is suspended, its
// goroutine is unwound, and any later resume fails with
// [ErrCoroutineExpired].
type coroData struct {
	strand   *Strand
	resumeCh chan struct{}
	yieldCh  chan struct{}
	killCh   chan struct{}
	dead     chan struct{} // closed when the goroutine exits
	killOnce sync.Once
	refs     atomic.Int64
	done     atomic.Bool
	gid      uint64
	panicVal any
	hasPanic bool
}

// newCoroData prepares the coroutine: its goroutine starts parked, waiting
// for the first resume. The single initial reference is held on behalf of the
// start closure posted by start.
func newCoroData(strand *Strand, fn func(*Context)) *coroData {
	d := &coroData{
		strand:   strand,
		resumeCh: make(chan struct{}),
		yieldCh:  make(chan struct{}),
		killCh:   make(chan struct{}),
		dead:     make(chan struct{}),
	}
	d.refs.Store(1)
	go d.main(fn)
	return d
}

// main is the coroutine goroutine: park until the first resume, run the body,
// then perform the final yield back to the resumer.
func (d *coroData) main(fn func(*Context)) {
	defer close(d.dead)
	d.gid = goroutineID()

	select {
	case <-d.resumeCh:
	case <-d.killCh:
		return
	}
	d.strand.occupant.Store(d.gid)

	unwound := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(unwindSentinel); ok {
					unwound = true
					return
				}
				d.panicVal = r
				d.hasPanic = true
			}
		}()
		fn(&Context{data: d})
	}()
	if unwound {
		// abandoned while suspended: nobody is waiting on the yield
		return
	}

	d.done.Store(true)
	d.yieldCh <- struct{}{}
}

// start posts the first resume to the strand, consuming the initial
// reference.
func (d *coroData) start() {
	d.strand.Post(func() {
		defer d.release()
		d.call()
	})
}

// call resumes the coroutine and blocks until it suspends again or finishes.
// A panic captured from the body is re-raised here, on the side that resumed.
// Must run on the strand.
func (d *coroData) call() {
	if d.done.Load() {
		panic(ErrCoroutineExpired)
	}

	// while the body runs, the strand is logically occupied by the
	// coroutine goroutine; it marks the occupant itself on wake-up, and
	// this side reclaims once the coroutine hands control back
	myGid := goroutineID()

	select {
	case d.resumeCh <- struct{}{}:
	case <-d.dead:
		panic(ErrCoroutineExpired)
	}
	<-d.yieldCh

	d.strand.occupant.Store(myGid)

	if d.hasPanic {
		r := d.panicVal
		d.hasPanic = false
		d.panicVal = nil
		panic(r)
	}
}

// yield suspends the coroutine until the next resume. Must run on the
// coroutine goroutine. Panics with the unwind sentinel if the coroutine was
// abandoned while suspended.
func (d *coroData) yield() {
	d.yieldCh <- struct{}{}
	select {
	case <-d.resumeCh:
		d.strand.occupant.Store(d.gid)
	case <-d.killCh:
		panic(unwindSentinel{})
	}
}

// acquire takes a strong reference, failing once the coroutine has expired.
func (d *coroData) acquire() error {
	for {
		n := d.refs.Load()
		if n <= 0 {
			return ErrCoroutineExpired
		}
		if d.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// release drops a strong reference; the last release of a suspended coroutine
// unwinds it.
func (d *coroData) release() {
	if d.refs.Add(-1) == 0 && !d.done.Load() {
		d.killOnce.Do(func() { close(d.killCh) })
	}
}

// postResume schedules a resume on the strand, holding a strong reference for
// the posted closure.
func (d *coroData) postResume() {
	if err := d.acquire(); err != nil {
		panic(err)
	}
	d.strand.Post(func() {
		defer d.release()
		d.call()
	})
}

// inlineResume resumes the coroutine directly on the calling goroutine. Only
// valid on the coroutine's strand.
func (d *coroData) inlineResume() {
	if !d.strand.runningHere() {
		panic(`asynccore: inline caller invoked off its coroutine's strand`)
	}
	d.call()
}

// Context is the handle a coroutine body receives. It shares the coroutine's
// state without owning it (a weak reference): outstanding callers and posted
// resumes keep the coroutine alive, the Context does not.
type Context struct {
	data   *coroData
	errRef *error
}

// Strand returns the strand the coroutine is bound to.
func (c *Context) Strand() *Strand {
	return c.data.strand
}

// Executor returns the executor underlying the coroutine's strand.
func (c *Context) Executor() Executor {
	return c.data.strand.Executor()
}

// WithErrorRef returns a sibling context sharing this coroutine, whose
// rendezvous error arms are redirected through ec: an error produced by a
// caller is written to *ec instead of being returned by [ErrSlot.Get].
//
// Usage:
//
//	var ec error
//	slot := asynccore.NewErrSlot[int](ctx.WithErrorRef(&ec))
func (c *Context) WithErrorRef(ec *error) *Context {
	cp := *c
	cp.errRef = ec
	return &cp
}

// Spawn starts a sibling coroutine on a fresh strand over this coroutine's
// executor.
func (c *Context) Spawn(fn func(*Context)) {
	SpawnOn(c.Executor(), fn)
}

// Spawn starts a coroutine bound to the given strand. The body runs on its
// own stack; it is first resumed by a closure posted to the strand, and
// thereafter by rendezvous callers. Use closure captures to pass arguments.
//
// A panic escaping fn is captured and re-raised on the side that performed
// the resume during which the coroutine terminated; under a [Core] worker
// that delivers it to the core's panic handler.
func Spawn(s *Strand, fn func(*Context)) {
	newCoroData(s, fn).start()
}

// SpawnOn starts a coroutine on a fresh strand over the given executor.
func SpawnOn(e Executor, fn func(*Context)) {
	Spawn(NewStrand(e), fn)
}

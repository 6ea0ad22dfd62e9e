package asynccore

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// contextNode is one runtime context: an executor, its worker slot
// parameters, and the indices of its direct children. The topology never
// changes after [New] returns.
type contextNode struct {
	executor Executor
	children []int
	params   []WorkerParameters
	guard    *WorkGuard // armed while running; guarded by Core.stopMu
	enabled  bool
}

// Core owns a context forest and its workers.
//
// Construction copies the [Tree] plan into a contiguous node slice addressed
// by context id, allocating one [SerialExecutor] per node. Starting installs a
// work guard on every executor and launches one worker goroutine per
// configured slot, deepest tree ranks first, so parents never poll a
// descendant that is not yet armed. Stopping releases the guards, stops every
// executor, and joins the workers.
//
// Core is safe for concurrent use, shared or not.
type Core struct {
	_ [0]func() // prevent copying

	nodes        []contextNode
	state        coreState
	stopMu       sync.Mutex
	joinMu       sync.Mutex
	joined       atomic.Bool
	workers      sync.WaitGroup
	liveWorkers  atomic.Int64
	panicHandler func(error)
	log          *logiface.Logger[logiface.Event]
	panicLimiter *catrate.Limiter
}

// New constructs a Core from the given plan. Unless [WithAutoStart] disabled
// it, the core is started before New returns; a start failure leaves nothing
// running and is returned as-is.
func New(tree *Tree, options ...Option) (*Core, error) {
	opts := coreOptions{autoStart: true}
	for _, o := range options {
		if err := o.applyCore(&opts); err != nil {
			return nil, err
		}
	}

	c := &Core{
		nodes:        make([]contextNode, len(tree.nodes)),
		panicHandler: opts.panicHandler,
		log:          opts.logger,
		panicLimiter: newPanicLimiter(),
	}

	for id, plan := range tree.nodes {
		hint := 0
		if plan.hasHint {
			hint = plan.concurrencyHint
		}
		node := &c.nodes[id]
		node.executor = NewExecutor(hint)
		node.params = make([]WorkerParameters, len(plan.workerParameters))
		copy(node.params, plan.workerParameters)
		node.enabled = plan.enabled
		if plan.childrenCount > 0 {
			node.children = make([]int, 0, plan.childrenCount)
		}
		if id != 0 {
			parent := &c.nodes[plan.parentID]
			parent.children = append(parent.children, id)
		}
	}

	if opts.autoStart {
		if err := c.Start(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Start launches the workers and transitions the core to [StateRunning].
// Starting an already-started core is a no-op. If a launch step fails, the
// state rolls back to [StateIdle] and the error is returned.
func (c *Core) Start() error {
	if len(c.nodes) == 0 {
		return nil
	}

	c.stopMu.Lock()
	defer c.stopMu.Unlock()

	// barrier: wait out any in-flight join of the previous session
	c.joinMu.Lock()
	c.joinMu.Unlock() //nolint:staticcheck

	if c.state.Load() != StateIdle {
		return nil
	}

	c.state.Store(StateStarting)
	c.logState(StateStarting)
	if err := c.startWorkers(); err != nil {
		c.state.Store(StateIdle)
		c.logState(StateIdle)
		return err
	}
	c.state.Store(StateRunning)
	c.logState(StateRunning)
	return nil
}

// startWorkers launches workers in reverse breadth-first order from the root:
// a node's guard is armed, and its workers spawned, before any ancestor
// worker can start polling it, so tasks posted to descendants are never
// dropped during startup. Caller must hold stopMu.
func (c *Core) startWorkers() error {
	order := c.orderNodes()
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		node := &c.nodes[id]
		// a previous session leaves the executor stopped
		node.executor.Restart()
		if node.guard == nil {
			node.guard = node.executor.Guard()
		}
		for slot := range node.params {
			c.launchWorker(id, slot, node.params[slot])
		}
	}
	return nil
}

// launchWorker spawns one worker goroutine, pinned to an OS thread for the
// duration of its loop.
func (c *Core) launchWorker(contextID, workerSlot int, params WorkerParameters) {
	c.workers.Add(1)
	c.liveWorkers.Add(1)
	go func() {
		defer c.workers.Done()
		defer c.liveWorkers.Add(-1)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		c.workerRun(contextID, workerSlot, params)
	}()
}

// orderNodes returns the breadth-first order of context ids from the root.
func (c *Core) orderNodes() []int {
	order := make([]int, 0, len(c.nodes))
	order = append(order, 0)
	for i := 0; i < len(order); i++ {
		order = append(order, c.nodes[order[i]].children...)
	}
	return order
}

// Stop transitions the core to [StateStopping], releases every work guard,
// stops every executor, and joins the workers, ending in [StateIdle]. Safe to
// call repeatedly and concurrently with Start; a no-op beyond the first call
// of a session. If another goroutine is blocked in [Core.Join], Stop returns
// once teardown is initiated and that joiner completes the join.
func (c *Core) Stop() {
	if len(c.nodes) == 0 {
		return
	}

	c.stopMu.Lock()
	defer c.stopMu.Unlock()

	c.state.Store(StateStopping)
	c.logState(StateStopping)
	c.stopWorkers()
	c.joinWorkers()
}

// stopWorkers releases guards first, then stops the executors: blocked run
// calls observe the stop promptly, and the guard release ensures no executor
// keeps a worker alive on an empty queue. Caller must hold stopMu.
func (c *Core) stopWorkers() {
	for i := range c.nodes {
		c.nodes[i].guard.Release()
		c.nodes[i].guard = nil
	}
	for i := range c.nodes {
		c.nodes[i].executor.Stop()
	}
}

// joinWorkers waits for all workers of the current session to exit. Only one
// caller wins the join; the others return false without waiting.
func (c *Core) joinWorkers() bool {
	if c.joined.Swap(true) {
		return false
	}
	c.joinMu.Lock()
	defer c.joinMu.Unlock()
	c.workers.Wait()
	c.joined.Store(false)
	c.state.Store(StateIdle)
	c.logState(StateIdle)
	return true
}

// Join blocks until the core leaves [StateRunning] via another goroutine's
// [Core.Stop]. Only one join is accepted per running session; redundant joins
// fail with [ErrNotJoinable], as does joining a core that is not running.
func (c *Core) Join() error {
	if c.state.Load() != StateRunning || !c.joinWorkers() {
		return ErrNotJoinable
	}
	return nil
}

// Joinable reports whether [Core.Join] would currently be accepted.
func (c *Core) Joinable() bool {
	return c.state.Load() == StateRunning && !c.joined.Load()
}

// State returns the current lifecycle state.
func (c *Core) State() State {
	return c.state.Load()
}

// Workers returns the number of live worker goroutines. Zero whenever the
// core is idle.
func (c *Core) Workers() int {
	return int(c.liveWorkers.Load())
}

// Len returns the number of contexts.
func (c *Core) Len() int {
	return len(c.nodes)
}

// Executor returns the executor owned by the given context. Tasks may be
// posted to it at any time; they execute only while the core is running and
// the context is reachable by some worker.
func (c *Core) Executor(contextID int) (Executor, error) {
	if contextID < 0 || contextID >= len(c.nodes) {
		return nil, fmt.Errorf("%w: context id %d", ErrOutOfRange, contextID)
	}
	return c.nodes[contextID].executor, nil
}

// Close stops the core. It implements [io.Closer] and never returns an error.
func (c *Core) Close() error {
	c.Stop()
	return nil
}

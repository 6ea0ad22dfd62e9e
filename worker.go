package asynccore

import (
	"runtime"
	"time"
)

// workerRun is the body of one worker goroutine. It computes the worker's
// target set once, then enters either the single-target fast path or the
// multi-target polling loop. A worker with no targets at all exits
// immediately.
func (c *Core) workerRun(contextID, workerSlot int, params WorkerParameters) {
	node := &c.nodes[contextID]

	var self Executor
	if params.SelfPollPolicy != PollDisabled && node.enabled {
		self = node.executor
	}

	children := c.childTargets(contextID, params)

	switch {
	case self != nil && len(children) == 0:
		c.workerRunSingle(contextID, workerSlot, params, self)
	case self == nil && len(children) == 1:
		c.workerRunSingle(contextID, workerSlot, params, children[0])
	case self != nil || len(children) > 1:
		c.workerRunMultiple(contextID, workerSlot, params, self, children)
	}
}

// childTargets flattens the executors of all enabled descendants of the given
// context, in breadth-first enumeration order. Disabled descendants are
// skipped, but their subtrees are still traversed. Empty when the children
// poll policy is disabled.
func (c *Core) childTargets(contextID int, params WorkerParameters) []Executor {
	if params.ChildrenPollPolicy == PollDisabled {
		return nil
	}

	var targets []Executor
	queue := append([]int(nil), c.nodes[contextID].children...)
	for i := 0; i < len(queue); i++ {
		node := &c.nodes[queue[i]]
		if node.enabled {
			targets = append(targets, node.executor)
		}
		queue = append(queue, node.children...)
	}
	return targets
}

// pollMethod maps a policy to the executor entry point it implies.
func pollMethod(policy PollPolicy) func(Executor) int {
	switch policy {
	case PollOne:
		return Executor.PollOne
	case PollAll:
		return Executor.PollAll
	case PollRunOne:
		// blocks until one task completes; see PollRunOne for the caveat
		return Executor.RunOne
	default:
		return nil
	}
}

// workerRunSingle is the single-target fast path: with nothing to multiplex,
// the worker parks inside the executor's blocking run instead of spinning
// over poll calls, ignoring the poll_one/poll_all/run_one distinction.
//
// DelayRounds counts executor-stop events here, not empty polls: run only
// returns early once the executor is stopped, so the delay fires between a
// stop and the next run attempt.
func (c *Core) workerRunSingle(contextID, workerSlot int, params WorkerParameters, target Executor) {
	waitRounds := 0
	for c.state.Load() != StateStopping {
		if waitRounds >= params.DelayRounds {
			waitRounds = 0
			workerDelay(params)
		}

		c.pollTarget(contextID, workerSlot, target, Executor.Run)
		if target.Stopped() {
			waitRounds++
		}
	}
}

// workerRunMultiple multiplexes the worker over its own executor and/or the
// flattened descendant executors. Within a pass, self is serviced before
// children; children are serviced in breadth-first enumeration order.
func (c *Core) workerRunMultiple(contextID, workerSlot int, params WorkerParameters, self Executor, children []Executor) {
	var selfPoll func(Executor) int
	if self != nil {
		selfPoll = pollMethod(params.SelfPollPolicy)
	}
	childPoll := pollMethod(params.ChildrenPollPolicy)

	waitRounds := 0
	for c.state.Load() != StateStopping {
		if waitRounds >= params.DelayRounds {
			waitRounds = 0
			workerDelay(params)
		}

		executed := 0
		if selfPoll != nil {
			executed += c.pollTarget(contextID, workerSlot, self, selfPoll)
		}
		if childPoll != nil {
			for _, target := range children {
				executed += c.pollTarget(contextID, workerSlot, target, childPoll)
			}
		}

		if executed == 0 {
			waitRounds++
		}
	}
}

// pollTarget invokes one poll entry point with panic recovery. A recovered
// panic is delivered to the core's panic handler on this worker goroutine and
// counts as zero executed tasks; the worker never exits because of a task.
func (c *Core) pollTarget(contextID, workerSlot int, target Executor, poll func(Executor) int) (executed int) {
	defer func() {
		if r := recover(); r != nil {
			executed = 0
			err := asError(r)
			c.logWorkerPanic(contextID, workerSlot, err)
			if c.panicHandler != nil {
				c.panicHandler(err)
			}
		}
	}()
	return poll(target)
}

// workerDelay applies the configured delay policy.
func workerDelay(params WorkerParameters) {
	switch params.DelayPolicy {
	case DelayYield:
		runtime.Gosched()
	case DelaySleep:
		time.Sleep(params.DelayValue)
	}
}

package asynccore

import (
	"time"
)

// PollPolicy selects the executor entry point a worker uses for a target.
//
// NOTE: a "run all" policy is deliberately absent: it would park the worker on
// one executor and starve every other target. A worker whose effective target
// set collapses to a single executor uses [Executor.Run] anyway, ignoring the
// poll_one/poll_all distinction (see the worker fast path).
type PollPolicy uint8

const (
	// PollDisabled makes the worker ignore the target entirely.
	PollDisabled PollPolicy = iota

	// PollOne runs at most one ready task per pass: guaranteed fast
	// round-robin across targets.
	PollOne

	// PollAll runs every currently-ready task on the target before moving
	// on. May slow a pass down on all targets, but speeds up the busy one.
	PollAll

	// PollRunOne blocks until one task completes. Use this only if you know
	// why a blocking wait on one target can freeze your worker.
	PollRunOne
)

// String returns a human-readable representation of the policy.
func (p PollPolicy) String() string {
	switch p {
	case PollDisabled:
		return "disabled"
	case PollOne:
		return "poll_one"
	case PollAll:
		return "poll_all"
	case PollRunOne:
		return "run_one"
	default:
		return "unknown"
	}
}

// DelayPolicy selects what a worker does after DelayRounds consecutive passes
// executed nothing. Use these to save CPU when contexts are not heavily
// loaded.
type DelayPolicy uint8

const (
	// DelayNone continues immediately. Fastest, but eats CPU; for heavily
	// loaded contexts.
	DelayNone DelayPolicy = iota

	// DelayYield yields the processor ([runtime.Gosched]).
	DelayYield

	// DelaySleep sleeps for DelayValue.
	DelaySleep
)

// String returns a human-readable representation of the policy.
func (p DelayPolicy) String() string {
	switch p {
	case DelayNone:
		return "no_delay"
	case DelayYield:
		return "yield"
	case DelaySleep:
		return "sleep"
	default:
		return "unknown"
	}
}

// DefaultDelayValue is the sleep duration applied by [DelaySleep] when
// [WorkerParameters.DelayValue] is left at its default.
const DefaultDelayValue = 500 * time.Millisecond

// WorkerParameters is the policy for one worker slot.
//
// The zero value is NOT the default configuration; use
// [DefaultWorkerParameters], or pass nil to [Tree.AddWorker].
type WorkerParameters struct {
	// SelfPollPolicy controls polling of the worker's own context.
	SelfPollPolicy PollPolicy

	// ChildrenPollPolicy controls polling of all enabled descendant
	// contexts, flattened in breadth-first order.
	ChildrenPollPolicy PollPolicy

	// DelayRounds is the number of consecutive passes without executed
	// tasks before DelayPolicy applies. Also meaningful for single-target
	// workers: there it counts executor-stop events, since the fast path
	// blocks inside run rather than polling.
	DelayRounds int

	// DelayPolicy is applied once DelayRounds is reached.
	DelayPolicy DelayPolicy

	// DelayValue is the sleep duration for DelaySleep.
	DelayValue time.Duration
}

// DefaultWorkerParameters returns the default worker slot configuration:
// execute all self tasks, round-robin on descendants, yield after one empty
// pass.
func DefaultWorkerParameters() WorkerParameters {
	return WorkerParameters{
		SelfPollPolicy:     PollAll,
		ChildrenPollPolicy: PollOne,
		DelayRounds:        1,
		DelayPolicy:        DelayYield,
		DelayValue:         DefaultDelayValue,
	}
}

// fixedWorkerParameters normalizes parameters at commit time: any enum outside
// its domain is silently replaced with the default, and DelayRounds below 1
// becomes the default. All other fields pass through.
func fixedWorkerParameters(p WorkerParameters) WorkerParameters {
	d := DefaultWorkerParameters()

	switch p.SelfPollPolicy {
	case PollDisabled, PollOne, PollAll, PollRunOne:
	default:
		p.SelfPollPolicy = d.SelfPollPolicy
	}

	switch p.ChildrenPollPolicy {
	case PollDisabled, PollOne, PollAll, PollRunOne:
	default:
		p.ChildrenPollPolicy = d.ChildrenPollPolicy
	}

	if p.DelayRounds < 1 {
		p.DelayRounds = d.DelayRounds
	}

	switch p.DelayPolicy {
	case DelayNone, DelayYield, DelaySleep:
	default:
		p.DelayPolicy = d.DelayPolicy
	}

	return p
}

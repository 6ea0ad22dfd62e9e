package asynccore

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// panicLogRates bounds per-context panic logging, so a hot failing task
// cannot flood the log. Categories are context ids.
var panicLogRates = map[time.Duration]int{
	time.Second: 5,
}

// logState records a lifecycle transition. Nil loggers disable all of this;
// logiface builders are nil-receiver safe.
func (c *Core) logState(state State) {
	c.log.Debug().
		Stringer(`state`, state).
		Log(`core state changed`)
}

// logWorkerPanic records a panic recovered by a worker's poll call,
// rate-limited per context.
func (c *Core) logWorkerPanic(contextID, workerSlot int, err error) {
	if c.log == nil {
		return
	}
	if _, ok := c.panicLimiter.Allow(contextID); !ok {
		return
	}
	c.log.Err().
		Err(err).
		Int(`context`, contextID).
		Int(`worker`, workerSlot).
		Log(`task panicked`)
}

func newPanicLimiter() *catrate.Limiter {
	return catrate.NewLimiter(panicLogRates)
}

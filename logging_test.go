package asynccore

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

// captureLogger returns a debug-level logger writing JSON lines to the
// returned accessor.
func captureLogger() (*logiface.Logger[logiface.Event], func() []string) {
	var mu sync.Mutex
	var lines []string
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithTimeField(``)),
		stumpy.L.WithWriter(logiface.WriterFunc[*stumpy.Event](func(e *stumpy.Event) error {
			mu.Lock()
			defer mu.Unlock()
			// Event.Bytes omits the terminating brace; see its docs
			lines = append(lines, string(e.Bytes())+`}`)
			return nil
		})),
		stumpy.L.WithLevel(logiface.LevelDebug),
	).Logger()
	return logger, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), lines...)
	}
}

func TestCore_logsLifecycleAndPanics(t *testing.T) {
	logger, logLines := captureLogger()

	tree := NewTree()
	_, err := tree.AddContext(0, 1, true)
	require.NoError(t, err)

	var handled atomic.Bool
	core, err := New(tree,
		WithLogger(logger),
		WithPanicHandler(func(error) { handled.Store(true) }),
	)
	require.NoError(t, err)

	exec, err := core.Executor(0)
	require.NoError(t, err)
	exec.Post(func() { panic(errors.New("task failure")) })
	waitFor(t, 2*time.Second, handled.Load, "panic not handled")

	core.Stop()

	all := strings.Join(logLines(), "\n")
	require.Contains(t, all, `core state changed`)
	require.Contains(t, all, `"state":"running"`)
	require.Contains(t, all, `"state":"idle"`)
	require.Contains(t, all, `task panicked`)
	require.Contains(t, all, `task failure`)
	require.Contains(t, all, `"context":"0"`)
}

func TestCore_panicLogRateLimited(t *testing.T) {
	logger, logLines := captureLogger()

	tree := NewTree()
	_, err := tree.AddContext(0, 1, true)
	require.NoError(t, err)

	var handled atomic.Int64
	core, err := New(tree,
		WithLogger(logger),
		WithPanicHandler(func(error) { handled.Add(1) }),
	)
	require.NoError(t, err)
	defer core.Stop()

	exec, err := core.Executor(0)
	require.NoError(t, err)

	const bursts = 50
	for i := 0; i < bursts; i++ {
		exec.Post(func() { panic("hot failure") })
	}
	waitFor(t, 5*time.Second, func() bool { return handled.Load() == bursts }, "panics not handled")

	var logged int
	for _, line := range logLines() {
		if strings.Contains(line, `task panicked`) {
			logged++
		}
	}
	// the handler sees every panic; the log does not
	require.Greater(t, logged, 0)
	require.Less(t, logged, bursts)
}

func TestCore_noLoggerIsFine(t *testing.T) {
	tree := NewTree()
	_, err := tree.AddContext(0, 1, true)
	require.NoError(t, err)

	core, err := New(tree)
	require.NoError(t, err)
	defer core.Stop()

	exec, err := core.Executor(0)
	require.NoError(t, err)

	// panics without a handler or logger are swallowed
	var ran atomic.Bool
	exec.Post(func() { panic("ignored") })
	exec.Post(func() { ran.Store(true) })
	waitFor(t, 2*time.Second, ran.Load, "worker did not survive the panic")
}

package asynccore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroup_roundRobinOrder(t *testing.T) {
	a, b, c := NewExecutor(0), NewExecutor(0), NewExecutor(0)
	group := NewGroup(a, b, c)

	want := []Executor{a, b, c, a, b, c}
	for i, w := range want {
		e, err := group.Next()
		require.NoError(t, err)
		require.Same(t, w, e, "call %d", i)
	}
}

func TestGroup_evenDistribution(t *testing.T) {
	executors := []Executor{NewExecutor(0), NewExecutor(0), NewExecutor(0), NewExecutor(0)}
	group := NewGroup(executors...)

	const k = 25
	counts := make(map[Executor]int)
	for i := 0; i < len(executors)*k; i++ {
		e, err := group.Next()
		require.NoError(t, err)
		counts[e]++
	}
	for i, e := range executors {
		require.Equal(t, k, counts[e], "executor %d", i)
	}
}

func TestGroup_concurrentEvenDistribution(t *testing.T) {
	executors := []Executor{NewExecutor(0), NewExecutor(0), NewExecutor(0)}
	group := NewGroup(executors...)

	const perWorker = 300
	const workers = 3
	var wg sync.WaitGroup
	var mu sync.Mutex
	counts := make(map[Executor]int)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				e, err := group.Next()
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				counts[e]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for i, e := range executors {
		require.Equal(t, perWorker*workers/len(executors), counts[e], "executor %d", i)
	}
}

func TestGroup_empty(t *testing.T) {
	group := NewGroup()
	require.True(t, group.Empty())
	require.Equal(t, 0, group.Size())
	_, err := group.Next()
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestGroup_deduplicates(t *testing.T) {
	a, b := NewExecutor(0), NewExecutor(0)
	group := NewGroup(a, b, a, b, a, nil)
	require.Equal(t, 2, group.Size())

	first, err := group.Next()
	require.NoError(t, err)
	require.Same(t, a, first)
	second, err := group.Next()
	require.NoError(t, err)
	require.Same(t, b, second)
}

package asynccore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPromise_setValueOnce(t *testing.T) {
	e := NewExecutor(0)
	p := NewPromise[int](e)
	f := p.Future()

	require.False(t, f.Ready())
	require.NoError(t, p.SetValue(3))
	require.True(t, f.Ready())

	require.ErrorIs(t, p.SetValue(4), ErrPromiseSatisfied)
	require.ErrorIs(t, p.SetError(errors.New("late")), ErrPromiseSatisfied)

	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, 3, v)
}

func TestPromise_setErrorOnce(t *testing.T) {
	e := NewExecutor(0)
	p := NewPromise[int](e)
	boom := errors.New("boom")

	require.NoError(t, p.SetError(boom))
	require.ErrorIs(t, p.SetValue(1), ErrPromiseSatisfied)

	_, err := p.Future().Get()
	require.ErrorIs(t, err, boom)
}

func TestFuture_waitFor(t *testing.T) {
	e := NewExecutor(0)
	p := NewPromise[string](e)
	f := p.Future()

	start := time.Now()
	require.False(t, f.WaitFor(30*time.Millisecond))
	require.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = p.SetValue("done")
	}()
	require.True(t, f.WaitFor(5*time.Second))
	require.True(t, f.WaitUntil(time.Now()))

	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, "done", v)
}

func TestFuture_asyncWaitPostedToExecutor(t *testing.T) {
	e := NewExecutor(0)
	p := NewPromise[int](e)
	f := p.Future()

	ran := false
	f.AsyncWait(func() { ran = true })

	// satisfaction must never run the handler inline; it is posted to the
	// bound executor instead
	require.NoError(t, p.SetValue(1))
	require.False(t, ran)

	require.Equal(t, 1, e.PollAll())
	require.True(t, ran)
}

func TestFuture_asyncWaitAfterReady(t *testing.T) {
	e := NewExecutor(0)
	p := NewPromise[int](e)
	require.NoError(t, p.SetValue(1))

	ran := false
	p.Future().AsyncWait(func() { ran = true })
	require.False(t, ran)
	e.PollAll()
	require.True(t, ran)
}

func TestFuture_toChannel(t *testing.T) {
	e := NewExecutor(0)
	p := NewPromise[int](e)
	ch := p.Future().ToChannel()

	require.NoError(t, p.SetValue(9))
	e.PollAll()

	select {
	case r := <-ch:
		require.NoError(t, r.Err)
		require.Equal(t, 9, r.Value)
	default:
		t.Fatal("channel did not receive the result")
	}
	// the channel is closed after delivering
	_, open := <-ch
	require.False(t, open)
}

func TestFuture_zeroValue(t *testing.T) {
	var f Future[int]
	require.False(t, f.Valid())

	_, err := f.Get()
	require.ErrorIs(t, err, ErrNoFutureState)

	func() {
		defer func() {
			r := recover()
			err, ok := r.(error)
			require.True(t, ok, "recover() = %v", r)
			require.ErrorIs(t, err, ErrNoFutureState)
		}()
		f.Ready()
		t.Fatal("Ready on a stateless future must panic")
	}()
}

func TestSpawnFuture_value(t *testing.T) {
	e := NewExecutor(0)
	startDriven(t, e)

	f := SpawnFutureOn(e, func(ctx *Context) (int, error) {
		return 1 + 2 + 3, nil
	})
	require.True(t, f.WaitFor(5*time.Second))
	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, 6, v)
}

func TestSpawnFuture_error(t *testing.T) {
	e := NewExecutor(0)
	startDriven(t, e)

	boom := errors.New("boom")
	f := SpawnFutureOn(e, func(ctx *Context) (int, error) {
		return 0, boom
	})
	require.True(t, f.WaitFor(5*time.Second))
	_, err := f.Get()
	require.ErrorIs(t, err, boom)
}

func TestSpawnFuture_bodyPanicBecomesError(t *testing.T) {
	e := NewExecutor(0)
	startDriven(t, e)

	boom := errors.New("boom")
	f := SpawnFutureOn(e, func(ctx *Context) (int, error) {
		panic(boom)
	})
	require.True(t, f.WaitFor(5*time.Second))
	_, err := f.Get()
	require.ErrorIs(t, err, boom)

	// non-error panic values surface as PanicError
	f2 := SpawnFutureOn(e, func(ctx *Context) (int, error) {
		panic("string panic")
	})
	require.True(t, f2.WaitFor(5*time.Second))
	_, err = f2.Get()
	var pe PanicError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "string panic", pe.Value)
}

func TestRunUntilComplete_coroutineSum(t *testing.T) {
	// a coroutine awaits an external timer, then computes its result; the
	// test goroutine drives the executor until the future is ready
	e := NewExecutor(0)

	f := SpawnFutureOn(e, func(ctx *Context) (int, error) {
		slot := NewSlot[struct{}](ctx)
		c := slot.Caller()
		time.AfterFunc(50*time.Millisecond, func() { c.Call(struct{}{}) })
		slot.Get()
		return 1 + 2 + 3, nil
	})

	start := time.Now()
	RunUntilComplete(e, f, 100*time.Millisecond)
	require.Less(t, time.Since(start), 2*time.Second)

	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, 6, v)
}

func TestRunUntilComplete_defaultSlice(t *testing.T) {
	e := NewExecutor(0)
	p := NewPromise[int](e)
	require.NoError(t, p.SetValue(5))

	f := RunUntilComplete(e, p.Future())
	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, 5, v)
}

func TestRunUntilComplete_exception(t *testing.T) {
	e := NewExecutor(0)

	boom := errors.New("boom")
	f := SpawnFutureOn(e, func(ctx *Context) (int, error) {
		return 0, boom
	})
	RunUntilComplete(e, f, 100*time.Millisecond)
	_, err := f.Get()
	require.ErrorIs(t, err, boom)
}

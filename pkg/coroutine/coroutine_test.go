package coroutine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_StepsUntilDone(t *testing.T) {
	var steps []int
	var co *Coroutine
	co = New("steps", func() {
		for i := 0; i < 3; i++ {
			steps = append(steps, i)
			co.Yield()
		}
	})

	assert.True(t, co.Run())
	assert.Equal(t, []int{0}, steps)
	assert.True(t, co.Run())
	assert.True(t, co.Run())
	assert.Equal(t, []int{0, 1, 2}, steps)

	// Fourth step returns from fn
	assert.False(t, co.Run())
	assert.True(t, co.Done())
	assert.False(t, co.Run(), "Run after done should be a no-op")
}

func TestRun_InterleavesWithCaller(t *testing.T) {
	var trace []string
	var co *Coroutine
	co = New("trace", func() {
		trace = append(trace, "script:1")
		co.Yield()
		trace = append(trace, "script:2")
	})

	for frame := 0; co.Run(); frame++ {
		trace = append(trace, "frame")
	}
	assert.Equal(t, []string{"script:1", "frame", "script:2"}, trace)
}

func TestYield_OutsidePanics(t *testing.T) {
	co := New("outside", func() {})
	assert.Panics(t, func() { co.Yield() })
}

func TestRunning_OnlyInside(t *testing.T) {
	var inside bool
	var co *Coroutine
	co = New("running", func() {
		inside = co.Running()
	})
	assert.False(t, co.Running())
	co.Run()
	assert.True(t, inside)
	assert.False(t, co.Running())
}

func TestStop_RunsDefers(t *testing.T) {
	var deferred, reached bool
	var co *Coroutine
	co = New("stop", func() {
		defer func() { deferred = true }()
		co.Yield()
		reached = true
	})

	require.True(t, co.Run())
	co.Stop()
	assert.True(t, co.Done())
	assert.True(t, deferred)
	assert.False(t, reached)
}

func TestStop_NeverStarted(t *testing.T) {
	called := false
	co := New("idle", func() { called = true })
	co.Stop()
	assert.True(t, co.Done())
	assert.False(t, co.Run())
	assert.False(t, called)
}

func TestRun_PropagatesPanic(t *testing.T) {
	co := New("panic", func() { panic("boom") })

	defer func() {
		r := recover()
		require.NotNil(t, r)
		perr, ok := r.(*PanicError)
		require.True(t, ok, "expected *PanicError, got %T", r)
		assert.Equal(t, "boom", perr.Value)
		assert.NotEmpty(t, perr.Stack)
		assert.Contains(t, perr.Error(), `coroutine "panic" panicked`)
	}()
	co.Run()
}

func TestRun_StallCallback(t *testing.T) {
	var stalls atomic.Int32
	var co *Coroutine
	co = New("stall", func() {
		time.Sleep(60 * time.Millisecond)
		co.Yield()
	})
	co.StallTimeout = 10 * time.Millisecond
	co.OnStall = func(name string, waited time.Duration) {
		assert.Equal(t, "stall", name)
		stalls.Add(1)
	}

	assert.True(t, co.Run())
	assert.GreaterOrEqual(t, stalls.Load(), int32(1))
}

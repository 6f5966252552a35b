// Package coroutine implements the cooperative hand-off between the frame
// driver and a single script call stack. The script runs on its own
// goroutine but never concurrently with the caller: control is passed back
// and forth through unbuffered channels, so at any instant exactly one side
// is executing.
package coroutine

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// StallFunc is called from Run when the coroutine has not yielded within
// StallTimeout. Run keeps waiting after it returns.
type StallFunc func(name string, waited time.Duration)

// PanicError wraps a panic that escaped the coroutine function. Run
// re-panics with it on the caller's goroutine.
type PanicError struct {
	Name  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("coroutine %q panicked: %v", e.Name, e.Value)
}

// Coroutine runs fn step by step. Each call to Run executes fn until it
// calls Yield or returns.
type Coroutine struct {
	name string
	fn   func()

	resume chan struct{}
	yield  chan struct{}

	started  bool
	running  bool
	done     bool
	stopping bool
	panicErr *PanicError

	// StallTimeout bounds the wall-clock time a single step may take before
	// OnStall fires. Zero disables stall detection.
	StallTimeout time.Duration
	OnStall      StallFunc
}

// New creates a coroutine. fn does not start until the first Run.
func New(name string, fn func()) *Coroutine {
	return &Coroutine{
		name:   name,
		fn:     fn,
		resume: make(chan struct{}),
		yield:  make(chan struct{}),
	}
}

// Name returns the name given to New.
func (c *Coroutine) Name() string { return c.name }

// Done reports whether fn has returned.
func (c *Coroutine) Done() bool { return c.done }

// Running reports whether the caller is currently inside the coroutine.
// It is only true while fn executes, which is never observable from the
// frame driver side.
func (c *Coroutine) Running() bool { return c.running }

// Run transfers control to the coroutine until it yields or returns.
// It returns false once fn has returned.
func (c *Coroutine) Run() bool {
	if c.done {
		return false
	}
	if c.running {
		panic("coroutine: Run called from inside " + c.name)
	}
	c.running = true
	if !c.started {
		c.started = true
		go c.main()
	} else {
		c.resume <- struct{}{}
	}
	c.wait()
	c.running = false

	if c.panicErr != nil {
		err := c.panicErr
		c.panicErr = nil
		panic(err)
	}
	return !c.done
}

// Yield suspends fn and returns control to the goroutine blocked in Run.
// It must only be called from fn's call stack.
func (c *Coroutine) Yield() {
	if !c.running {
		panic("coroutine: Yield called outside of " + c.name)
	}
	if c.stopping {
		runtime.Goexit()
	}
	c.yield <- struct{}{}
	<-c.resume
	if c.stopping {
		runtime.Goexit()
	}
}

// Stop terminates a suspended coroutine. Deferred calls in fn run before
// Stop returns.
func (c *Coroutine) Stop() {
	if c.done {
		return
	}
	if !c.started {
		c.done = true
		return
	}
	c.stopping = true
	c.running = true
	c.resume <- struct{}{}
	c.wait()
	c.running = false
	c.panicErr = nil
}

func (c *Coroutine) main() {
	defer func() {
		if r := recover(); r != nil {
			c.panicErr = &PanicError{Name: c.name, Value: r, Stack: debug.Stack()}
		}
		c.done = true
		c.yield <- struct{}{}
	}()
	c.fn()
}

func (c *Coroutine) wait() {
	if c.StallTimeout <= 0 {
		<-c.yield
		return
	}

	start := time.Now()
	timer := time.NewTimer(c.StallTimeout)
	defer timer.Stop()
	for {
		select {
		case <-c.yield:
			return
		case <-timer.C:
			if c.OnStall != nil {
				c.OnStall(c.name, time.Since(start))
			}
			timer.Reset(c.StallTimeout)
		}
	}
}

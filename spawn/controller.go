package spawn

import (
	"context"
	"sync"
	"time"
)

// ControlState is the handshake state shared by the caller and the
// simulation goroutine.
type ControlState int

const (
	// StateNone means the simulation is parked and the caller computes.
	StateNone ControlState = iota
	// StateAdvance asks the simulation to run to the requested time.
	StateAdvance
	// StateTerminate asks the simulation to unwind.
	StateTerminate
)

func (s ControlState) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateAdvance:
		return "ADVANCE"
	case StateTerminate:
		return "TERMINATE"
	}
	return "UNKNOWN"
}

// controller is a condition variable over the control state. The signal
// channel is closed and replaced on every change so that waits can also
// select on a timer and a context.
type controller struct {
	mu        sync.Mutex
	state     ControlState
	requested float64
	clock     float64 // simulation time of the last pause
	dt        float64 // zone timestep length
	exited    bool
	runErr    error
	signal    chan struct{}
	timeout   time.Duration
}

func newController(timeout time.Duration) *controller {
	return &controller{signal: make(chan struct{}), timeout: timeout}
}

// broadcastLocked wakes every waiter. Callers hold mu.
func (c *controller) broadcastLocked() {
	close(c.signal)
	c.signal = make(chan struct{})
}

func (c *controller) setState(s ControlState) {
	c.mu.Lock()
	c.state = s
	c.broadcastLocked()
	c.mu.Unlock()
}

// exitErrLocked maps the end of the simulation goroutine to the error seen
// by a waiting caller.
func (c *controller) exitErrLocked() error {
	if c.runErr != nil {
		return &FatalEngineError{Time: c.clock, Err: c.runErr}
	}
	return ErrSimulationFinished
}

// waitCaller blocks the caller until the simulation parks (state None) or
// exits, honouring the configured timeout and ctx.
func (c *controller) waitCaller(ctx context.Context, op string) error {
	var timer <-chan time.Time
	if c.timeout > 0 {
		t := time.NewTimer(c.timeout)
		defer t.Stop()
		timer = t.C
	}
	for {
		c.mu.Lock()
		if c.state == StateNone {
			c.mu.Unlock()
			return nil
		}
		if c.exited {
			err := c.exitErrLocked()
			c.mu.Unlock()
			return err
		}
		ch := c.signal
		c.mu.Unlock()

		select {
		case <-ch:
		case <-timer:
			return &TimeoutError{Op: op, After: c.timeout}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// parkLocked is called by the simulation goroutine with mu held. It records
// the pause, hands control to the caller and waits for Advance or
// Terminate. It returns with mu held.
func (c *controller) parkLocked(ctx context.Context, clock, dt float64) {
	c.clock = clock
	c.dt = dt
	if c.state != StateTerminate {
		c.state = StateNone
	}
	c.broadcastLocked()
	for c.state != StateAdvance && c.state != StateTerminate {
		ch := c.signal
		c.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			c.mu.Lock()
			return
		}
		c.mu.Lock()
	}
}

// markExited records the end of the simulation goroutine and wakes waiters.
func (c *controller) markExited(err error) {
	c.mu.Lock()
	c.exited = true
	c.runErr = err
	c.broadcastLocked()
	c.mu.Unlock()
}

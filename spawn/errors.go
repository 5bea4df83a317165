package spawn

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotRunning is returned by operations that need a started simulation.
	ErrNotRunning = errors.New("simulation is not running")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("simulation already started")
	// ErrSimulationFinished is returned when the run period ended before the
	// requested time was reached.
	ErrSimulationFinished = errors.New("simulation finished")
	// ErrTimeout is matched by every TimeoutError.
	ErrTimeout = errors.New("timed out waiting for simulation")
)

// TimeoutError reports a rendezvous that did not complete in time.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %v waiting for simulation", e.Op, e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// FatalEngineError reports that the simulation goroutine exited with an error.
type FatalEngineError struct {
	Time float64 // simulation time of the last pause
	Err  error
}

func (e *FatalEngineError) Error() string {
	return fmt.Sprintf("simulation failed at t=%gs: %v", e.Time, e.Err)
}

func (e *FatalEngineError) Unwrap() error {
	return e.Err
}

// ResolutionError reports a variable whose zone, sensor or actuator could not
// be found in the engine. Exchanges skip such variables.
type ResolutionError struct {
	Variable string
	What     string // zone, sensor or actuator
	Name     string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("variable %s: %s %q not found in engine", e.Variable, e.What, e.Name)
}

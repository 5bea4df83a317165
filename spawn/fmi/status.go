// Package fmi exposes a spawn component through the FMI 2.0 model-exchange
// call surface: instances, status codes, the master's logger callback and a
// handle table for the C ABI in cmd/epfmi.
package fmi

import (
	"errors"

	"github.com/NREL/Spawn-sub001/spawn"
)

const (
	// Version is the FMI version returned by fmi2GetVersion.
	Version = "2.0"
	// TypesPlatform is returned by fmi2GetTypesPlatform.
	TypesPlatform = "default"
)

// Status is an fmi2Status.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusDiscard
	StatusError
	StatusFatal
	StatusPending
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "Warning"
	case StatusDiscard:
		return "Discard"
	case StatusError:
		return "Error"
	case StatusFatal:
		return "Fatal"
	case StatusPending:
		return "Pending"
	}
	return "Unknown"
}

// StatusOf maps an error from the component to the status returned to the
// master. A simulation that failed or stopped answering cannot be continued.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var fatal *spawn.FatalEngineError
	if errors.Is(err, spawn.ErrTimeout) || errors.As(err, &fatal) {
		return StatusFatal
	}
	return StatusError
}

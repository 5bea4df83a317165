package variables

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is wrapped by a ParseError when a required field is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrUnknownZone is wrapped when a zone of interest is not in the building model.
	ErrUnknownZone = errors.New("zone not found in building model")
	// ErrUnknownSchedule is wrapped when a schedule is not in the building model.
	ErrUnknownSchedule = errors.New("schedule not found in building model")
	// ErrDuplicateName is wrapped when two variables share an FMI name.
	ErrDuplicateName = errors.New("duplicate FMI variable name")
	// ErrUnknownUnit is wrapped when an actuator declares an unknown unit.
	ErrUnknownUnit = errors.New("unknown unit")

	// ErrUnknownRef is returned for a value reference outside the registry.
	ErrUnknownRef = errors.New("unknown value reference")
	// ErrNoValue is returned when reading a variable that has no value yet.
	ErrNoValue = errors.New("variable has no value")
)

// ParseError reports a malformed variable definition in the spawn input.
type ParseError struct {
	Entry string // e.g. model.emsActuators[1]
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Entry, e.Err)
	}
	return fmt.Sprintf("%s.%s: %v", e.Entry, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Package variables holds the FMI variable registry of a spawn component: the
// ordered set of inputs and outputs exposed by the FMU, each bound to a zone,
// output variable or actuator of the building engine.
//
// Values are stored in Modelica (FMI) units and converted to engine units at
// the exchange boundary.
package variables

import (
	"github.com/NREL/Spawn-sub001/spawn/units"
)

// Kind is the binding of a variable into the engine. It never changes after
// registration.
type Kind int

const (
	// ZoneTemperature overrides a zone's mean air temperature.
	ZoneTemperature Kind = iota
	// ZoneSensibleHeatFlow reads the convective sensible heat gain into a zone.
	ZoneSensibleHeatFlow
	// ZoneFloorArea reads a zone's floor area.
	ZoneFloorArea
	// ZoneVolume reads a zone's air volume.
	ZoneVolume
	// ZoneSensibleCapacityFactor reads the zone air capacitance multiplier.
	ZoneSensibleCapacityFactor
	// OutputVariable reads an engine output variable by name and key.
	OutputVariable
	// EMSActuator drives an engine actuator.
	EMSActuator
	// Schedule drives the "Schedule Value" actuator of a model schedule.
	Schedule
	// ZoneRadiantGain drives the radiant-only equipment actuator of a zone.
	ZoneRadiantGain
	// ZoneLatentGain reads the latent internal gain of a zone.
	ZoneLatentGain
	// ZonePeopleGain reads the heat gain of a zone's occupants.
	ZonePeopleGain
	// ZoneRadiantTemperature reads the mean radiant temperature of a zone.
	ZoneRadiantTemperature
	// ZoneInletTemperature, ZoneHumidityRatio and ZoneInletMassFlow are
	// accepted from the caller and stored. The engine has no binding for them.
	ZoneInletTemperature
	ZoneHumidityRatio
	ZoneInletMassFlow
)

var kindNames = map[Kind]string{
	ZoneTemperature:            "ZoneTemperature",
	ZoneSensibleHeatFlow:       "ZoneSensibleHeatFlow",
	ZoneFloorArea:              "ZoneFloorArea",
	ZoneVolume:                 "ZoneVolume",
	ZoneSensibleCapacityFactor: "ZoneSensibleCapacityFactor",
	OutputVariable:             "OutputVariable",
	EMSActuator:                "EMSActuator",
	Schedule:                   "Schedule",
	ZoneRadiantGain:            "ZoneRadiantGain",
	ZoneLatentGain:             "ZoneLatentGain",
	ZonePeopleGain:             "ZonePeopleGain",
	ZoneRadiantTemperature:     "ZoneRadiantTemperature",
	ZoneInletTemperature:       "ZoneInletTemperature",
	ZoneHumidityRatio:          "ZoneHumidityRatio",
	ZoneInletMassFlow:          "ZoneInletMassFlow",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// IsInput reports whether the caller writes variables of this kind.
func (k Kind) IsInput() bool {
	switch k {
	case ZoneTemperature, EMSActuator, Schedule, ZoneRadiantGain,
		ZoneInletTemperature, ZoneHumidityRatio, ZoneInletMassFlow:
		return true
	}
	return false
}

// IsActuator reports whether the variable is written through an engine
// actuator.
func (k Kind) IsActuator() bool {
	return k == EMSActuator || k == Schedule || k == ZoneRadiantGain
}

// IsSensor reports whether the variable is read through an engine output
// variable.
func (k Kind) IsSensor() bool {
	switch k {
	case OutputVariable, ZoneLatentGain, ZonePeopleGain, ZoneRadiantTemperature:
		return true
	}
	return false
}

// IsZone reports whether the variable is bound to a zone by name.
func (k Kind) IsZone() bool {
	switch k {
	case ZoneTemperature, ZoneSensibleHeatFlow, ZoneFloorArea, ZoneVolume, ZoneSensibleCapacityFactor,
		ZoneRadiantGain, ZoneLatentGain, ZonePeopleGain, ZoneRadiantTemperature,
		ZoneInletTemperature, ZoneHumidityRatio, ZoneInletMassFlow:
		return true
	}
	return false
}

// Attributes are the FMI model description attributes of a variable.
type Attributes struct {
	Description      string
	Causality        string // input, output, local
	Variability      string // continuous, constant, discrete
	Initial          string // exact, calculated, or empty
	Quantity         string
	RelativeQuantity bool
	Min              *float64
	Start            *float64
}

// Variable is one FMI scalar bound into the engine.
type Variable struct {
	ValueRef uint32
	Name     string
	Kind     Kind

	// Zone is the upper-cased zone name for zone kinds.
	Zone string

	// OutputName and OutputKey identify the output variable of a sensor
	// kind, upper-cased.
	OutputName string
	OutputKey  string

	// Actuator identification for EMSActuator, Schedule and ZoneRadiantGain.
	ActuatorKey     string
	ActuatorType    string
	ActuatorControl string

	FMIUnit    units.Unit
	EngineUnit units.Unit
	Attrs      Attributes

	value   float64 // FMI units
	valid   bool
	pending bool
}

// Set stores a value given in FMI units and marks it as set for this step.
func (v *Variable) Set(value float64) {
	v.value = value
	v.valid = true
	v.pending = true
}

// SetEngine stores a value read from the engine, converting into FMI units.
func (v *Variable) SetEngine(value float64) {
	v.value, _ = units.Convert(value, v.EngineUnit, v.FMIUnit)
	v.valid = true
}

// Value returns the value in FMI units. ok is false if no value was ever stored.
func (v *Variable) Value() (float64, bool) {
	return v.value, v.valid
}

// EngineValue returns the value converted to engine units.
func (v *Variable) EngineValue() (float64, bool) {
	if !v.valid {
		return 0, false
	}
	ev, _ := units.Convert(v.value, v.FMIUnit, v.EngineUnit)
	return ev, true
}

// Pending reports whether the caller set this input since the last step.
func (v *Variable) Pending() bool {
	return v.pending
}

// ClearPending forgets that the input was set. The last value stays readable.
func (v *Variable) ClearPending() {
	v.pending = false
}

// Reset drops the stored value.
func (v *Variable) Reset() {
	v.value = 0
	v.valid = false
	v.pending = false
}

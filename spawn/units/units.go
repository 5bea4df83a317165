// Package units converts values between the unit systems on either side of the
// bridge: Modelica (SI, temperatures in K) and the building engine (degC, %, ...).
package units

import "fmt"

// Unit identifies a physical unit by its Modelica/EnergyPlus unit string.
type Unit string

const (
	C                  Unit = "degC"
	K                  Unit = "K"
	One                Unit = "1"
	KgWaterPerKgDryAir Unit = "kgWater/kgDryAir"
	Percent            Unit = "%"
	Pa                 Unit = "Pa"
	MPerS              Unit = "m/s"
	Deg                Unit = "deg"
	Rad                Unit = "rad"
	W                  Unit = "W"
	WPerM2             Unit = "W/m2"
	WPerM2K            Unit = "W/m2.K"
	J                  Unit = "J"
	JPerKg             Unit = "J/kg"
	M                  Unit = "m"
	M2                 Unit = "m2"
	M3                 Unit = "m3"
	L                  Unit = "L"
	M3PerS             Unit = "m3/s"
	S                  Unit = "s"
	Hr                 Unit = "hr"
	Kg                 Unit = "kg"
	KgPerM3            Unit = "kg/m3"
	KgPerS             Unit = "kg/s"
	CdSr               Unit = "cd.sr"
	Lm                 Unit = "lm"
	LmPerM2            Unit = "lm/m2"
	Lux                Unit = "lux"
	LmPerW             Unit = "lm/W"
)

// known lists every unit string accepted by Parse.
var known = map[Unit]bool{
	C: true, K: true, One: true, KgWaterPerKgDryAir: true, Percent: true, Pa: true,
	MPerS: true, Deg: true, Rad: true, W: true, WPerM2: true, WPerM2K: true, J: true,
	JPerKg: true, M: true, M2: true, M3: true, L: true, M3PerS: true, S: true, Hr: true,
	Kg: true, KgPerM3: true, KgPerS: true, CdSr: true, Lm: true, LmPerM2: true, Lux: true,
	LmPerW: true,
}

// Parse returns the Unit for a unit string. Unknown strings are an error;
// the empty string maps to One.
func Parse(s string) (Unit, error) {
	if s == "" {
		return One, nil
	}
	u := Unit(s)
	if !known[u] {
		return "", fmt.Errorf("unknown unit %q", s)
	}
	return u, nil
}

// IsValid reports whether the unit is in the table.
func (u Unit) IsValid() bool {
	return known[u]
}

func (u Unit) String() string { return string(u) }

type pair struct{ from, to Unit }

// conversion maps a value as to = from*factor + offset.
type conversion struct {
	factor float64
	offset float64
}

var conversions = map[pair]conversion{
	{K, C}:                    {1.0, -273.15},
	{One, Percent}:            {100.0, 0.0},
	{One, KgWaterPerKgDryAir}: {1.0, 0.0},
	{Rad, Deg}:                {57.295779513, 0.0},
	{M3, L}:                   {1000.0, 0.0},
	{S, Hr}:                   {3600, 0.0},
	{CdSr, Lm}:                {1.0, 0.0},
	{LmPerM2, Lux}:            {1.0, 0.0},
}

// Convert converts v from one unit to another. Reverse conversions are derived
// from the forward table. The bool is false when no conversion is known, in
// which case v is returned unchanged.
func Convert(v float64, from, to Unit) (float64, bool) {
	if from == to {
		return v, true
	}
	if c, ok := conversions[pair{from, to}]; ok {
		return v*c.factor + c.offset, true
	}
	if c, ok := conversions[pair{to, from}]; ok {
		return (v - c.offset) / c.factor, true
	}
	return v, false
}

// Convertible reports whether Convert knows a path between the two units.
func Convertible(from, to Unit) bool {
	_, ok := Convert(0, from, to)
	return ok
}

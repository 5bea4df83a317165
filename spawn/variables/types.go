package variables

import (
	"strings"

	"github.com/NREL/Spawn-sub001/spawn/units"
)

// unitPair is the engine unit and the matching Modelica unit of a quantity.
type unitPair struct {
	engine units.Unit
	fmi    units.Unit
}

// outputTypes lists output variables with known units, keyed upper-case.
// Variables not listed are treated as dimensionless.
var outputTypes = map[string]unitPair{
	"ZONE MEAN AIR TEMPERATURE":                                {units.C, units.K},
	"ZONE AIR TEMPERATURE":                                     {units.C, units.K},
	"ZONE MEAN RADIANT TEMPERATURE":                            {units.C, units.K},
	"ZONE OPERATIVE TEMPERATURE":                               {units.C, units.K},
	"SITE OUTDOOR AIR DRYBULB TEMPERATURE":                     {units.C, units.K},
	"SITE OUTDOOR AIR DEWPOINT TEMPERATURE":                    {units.C, units.K},
	"SITE OUTDOOR AIR RELATIVE HUMIDITY":                       {units.Percent, units.One},
	"ZONE AIR RELATIVE HUMIDITY":                               {units.Percent, units.One},
	"SITE WIND SPEED":                                          {units.MPerS, units.MPerS},
	"SITE WIND DIRECTION":                                      {units.Deg, units.Rad},
	"SITE SOLAR AZIMUTH ANGLE":                                 {units.Deg, units.Rad},
	"SITE SOLAR ALTITUDE ANGLE":                                {units.Deg, units.Rad},
	"ZONE LIGHTS ELECTRICITY RATE":                             {units.W, units.W},
	"ZONE ELECTRIC EQUIPMENT ELECTRICITY RATE":                 {units.W, units.W},
	"ZONE PEOPLE OCCUPANT COUNT":                               {units.One, units.One},
	"ZONE PEOPLE TOTAL HEATING RATE":                           {units.W, units.W},
	"ZONE TOTAL INTERNAL LATENT GAIN RATE":                     {units.W, units.W},
	"ZONE TOTAL INTERNAL CONVECTIVE HEATING RATE":              {units.W, units.W},
	"ZONE AIR HEAT BALANCE INTERNAL CONVECTIVE HEAT GAIN RATE": {units.W, units.W},
	"ZONE AIR HEAT BALANCE OUTDOOR AIR TRANSFER RATE":          {units.W, units.W},
	"SCHEDULE VALUE":                                           {units.One, units.One},
}

// actuatorTypes lists actuators with known units, keyed by upper-case
// component type and control type.
var actuatorTypes = map[[2]string]unitPair{
	{"WEATHER DATA", "OUTDOOR DRY BULB"}:             {units.C, units.K},
	{"WEATHER DATA", "OUTDOOR DEW POINT"}:            {units.C, units.K},
	{"WEATHER DATA", "OUTDOOR RELATIVE HUMIDITY"}:    {units.Percent, units.One},
	{"WEATHER DATA", "WIND SPEED"}:                   {units.MPerS, units.MPerS},
	{"WEATHER DATA", "WIND DIRECTION"}:               {units.Deg, units.Rad},
	{"PEOPLE", "NUMBER OF PEOPLE"}:                   {units.One, units.One},
	{"LIGHTS", "ELECTRICITY RATE"}:                   {units.W, units.W},
	{"ELECTRICEQUIPMENT", "ELECTRICITY RATE"}:        {units.W, units.W},
	{"ZONE TEMPERATURE CONTROL", "HEATING SETPOINT"}: {units.C, units.K},
	{"ZONE TEMPERATURE CONTROL", "COOLING SETPOINT"}: {units.C, units.K},
}

func outputUnits(name string) unitPair {
	if p, ok := outputTypes[strings.ToUpper(name)]; ok {
		return p
	}
	return unitPair{units.One, units.One}
}

func actuatorUnits(componentType, controlType string) unitPair {
	key := [2]string{strings.ToUpper(componentType), strings.ToUpper(controlType)}
	if p, ok := actuatorTypes[key]; ok {
		return p
	}
	return unitPair{units.One, units.One}
}

// siCounterpart maps a declared engine unit to the unit exposed over FMI.
func siCounterpart(u units.Unit) units.Unit {
	switch u {
	case units.C:
		return units.K
	case units.Percent:
		return units.One
	case units.Deg:
		return units.Rad
	case units.L:
		return units.M3
	case units.Hr:
		return units.S
	case units.Lux:
		return units.LmPerM2
	case units.Lm:
		return units.CdSr
	}
	return u
}

// quantityOf returns the FMI quantity name for a Modelica unit.
func quantityOf(u units.Unit) string {
	switch u {
	case units.K:
		return "ThermodynamicTemperature"
	case units.W:
		return "Power"
	case units.M2:
		return "Area"
	case units.M3:
		return "Volume"
	case units.Rad:
		return "Angle"
	case units.MPerS:
		return "Velocity"
	case units.KgPerS:
		return "MassFlowRate"
	}
	return ""
}

package spawn

import (
	"maps"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/NREL/Spawn-sub001/spawn/engine"
	"github.com/NREL/Spawn-sub001/spawn/variables"
)

// exchanger moves values between the variable registry and the engine state.
// It is used by whichever goroutine currently computes, never by both.
type exchanger struct {
	reg *variables.Registry
	log *logrus.Entry

	handles    map[uint32]int // cached sensor and actuator handles
	unresolved map[string]int // variable name -> exchanges skipped
	warned     map[string]bool
	skipped    int // variables skipped in the last exchange
}

func newExchanger(reg *variables.Registry, log *logrus.Entry) *exchanger {
	return &exchanger{
		reg:        reg,
		log:        log,
		handles:    make(map[uint32]int),
		unresolved: make(map[string]int),
		warned:     make(map[string]bool),
	}
}

// zoneNum returns the 1-based index of the zone, or 0 when it is not found.
func zoneNum(st engine.State, name string) int {
	upper := strings.ToUpper(name)
	for i := 1; i <= st.NumZones(); i++ {
		if st.ZoneName(i) == upper {
			return i
		}
	}
	return 0
}

// exchange writes inputs, asks the engine to recompute dependent quantities
// and reads outputs, in that order.
func (x *exchanger) exchange(st engine.State) {
	x.skipped = 0
	vars := x.reg.All()

	for _, v := range vars {
		switch v.Kind {
		case variables.ZoneTemperature:
			z := x.zone(st, v)
			if z == 0 {
				continue
			}
			if v.Pending() {
				t, _ := v.EngineValue()
				st.SetZoneTemperature(z, t)
			} else {
				st.ReleaseZoneTemperature(z)
			}
		case variables.EMSActuator, variables.Schedule, variables.ZoneRadiantGain:
			h := x.actuator(st, v)
			if h < 0 {
				continue
			}
			if v.Pending() {
				val, _ := v.EngineValue()
				st.SetActuatorValue(h, val)
			} else {
				st.ResetActuator(h)
			}
		}
	}

	st.ReportZoneMeanAirTemp()
	st.InitInternalHeatGains()

	for _, v := range vars {
		switch v.Kind {
		case variables.ZoneVolume:
			if z := x.zone(st, v); z != 0 {
				v.SetEngine(st.ZoneVolume(z))
			}
		case variables.ZoneFloorArea:
			if z := x.zone(st, v); z != 0 {
				v.SetEngine(st.ZoneFloorArea(z))
			}
		case variables.ZoneSensibleCapacityFactor:
			if z := x.zone(st, v); z != 0 {
				v.SetEngine(st.ZoneVolCapMultpSens(z))
			}
		case variables.ZoneSensibleHeatFlow:
			if z := x.zone(st, v); z != 0 {
				sums := st.ZoneSums(z)
				v.SetEngine(sums.TempIndCoef() - sums.TempDepCoef()*st.ZoneTemperature(z))
			}
		case variables.OutputVariable, variables.ZoneLatentGain, variables.ZonePeopleGain, variables.ZoneRadiantTemperature:
			if h := x.sensor(st, v); h >= 0 {
				v.SetEngine(st.VariableValue(h))
			}
		}
	}
}

// zone resolves the zone of v for this exchange; indices are not cached.
func (x *exchanger) zone(st engine.State, v *variables.Variable) int {
	z := zoneNum(st, v.Zone)
	if z == 0 {
		x.miss(v, &ResolutionError{Variable: v.Name, What: "zone", Name: v.Zone})
	}
	return z
}

func (x *exchanger) sensor(st engine.State, v *variables.Variable) int {
	if h, ok := x.handles[v.ValueRef]; ok {
		return h
	}
	h := st.VariableHandle(v.OutputName, v.OutputKey)
	if h < 0 {
		x.miss(v, &ResolutionError{Variable: v.Name, What: "sensor", Name: v.OutputName + " / " + v.OutputKey})
		return h
	}
	x.handles[v.ValueRef] = h
	return h
}

func (x *exchanger) actuator(st engine.State, v *variables.Variable) int {
	if h, ok := x.handles[v.ValueRef]; ok {
		return h
	}
	h := st.ActuatorHandle(v.ActuatorType, v.ActuatorControl, v.ActuatorKey)
	if h < 0 {
		x.miss(v, &ResolutionError{
			Variable: v.Name,
			What:     "actuator",
			Name:     v.ActuatorType + " / " + v.ActuatorControl + " / " + v.ActuatorKey,
		})
		return h
	}
	x.handles[v.ValueRef] = h
	return h
}

func (x *exchanger) miss(v *variables.Variable, err *ResolutionError) {
	x.skipped++
	x.unresolved[v.Name]++
	if !x.warned[v.Name] {
		x.warned[v.Name] = true
		x.log.Warnf("skipping variable in exchange: %v", err)
	}
}

// unresolvedCounts returns a copy of the per-variable skip counts.
func (x *exchanger) unresolvedCounts() map[string]int {
	return maps.Clone(x.unresolved)
}

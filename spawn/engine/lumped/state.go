package lumped

import (
	"math"
	"strings"

	"github.com/NREL/Spawn-sub001/spawn/engine"
	"github.com/NREL/Spawn-sub001/spawn/input"
)

const (
	airDensity      = 1.2    // kg/m3
	airSpecificHeat = 1006.0 // J/kg.K
	gainPerPerson   = 120.0  // W, sensible
	maxExponent     = 700.0
)

type zone struct {
	name       string // upper-case
	volume     float64
	floorArea  float64
	multiplier float64
	capMult    float64 // ZoneVolCapMultpSens

	temp     float64 // degC
	reported float64 // last reported mean air temperature
	held     bool

	lights    float64 // W, current
	equipment float64
	occupants float64
	radiant   float64 // W, absorbed by the zone surfaces

	radiantAct int // handle of the zone's radiant gain actuator
}

// load is an internal gain object of the model.
type load struct {
	objType  string // Lights, ElectricEquipment, People
	name     string // upper-case
	zone     int    // index into state.zones
	level    float64
	schedule string // upper-case, may be empty
	actuator int    // handle of the load's own actuator
}

type output struct {
	name, key string // upper-case
	value     func() float64
}

type actuator struct {
	componentType, controlType, key string // upper-case
	value                           float64
	set                             bool
}

// state is the kernel data exposed to hooks through engine.State.
type state struct {
	kickoff, sizing, warmup, beginEnv bool
	time                              float64 // start of the current zone timestep
	dt                                float64
	yearOffset                        float64 // seconds from Jan 1 to the start of the run period

	zones         []*zone
	loads         []*load
	schedules     map[string]float64 // upper-case name -> constant value
	scheduleNames []string
	outputs       []output
	actuators     []*actuator

	conductance float64 // W/m2.K of floor area to outdoors
	outdoorAct  int
	weather     *weather
	messages    engine.MessageFunc
	warned      map[string]bool
}

var _ engine.State = (*state)(nil)

func newState(m *input.Model, w *weather, conductance, initialTemp float64, messages engine.MessageFunc) (*state, error) {
	s := &state{
		schedules:   make(map[string]float64),
		conductance: conductance,
		weather:     w,
		messages:    messages,
		warned:      make(map[string]bool),
	}

	for _, name := range m.Names("Zone") {
		_, f, _ := m.Object("Zone", name)
		z := &zone{
			name:       strings.ToUpper(name),
			floorArea:  f.Number("floor_area", 0),
			multiplier: f.Number("multiplier", 1),
			capMult:    f.Number("zone_volume_capacitance_multiplier", 1),
			temp:       initialTemp,
			reported:   initialTemp,
		}
		z.volume = f.Number("volume", z.floorArea*f.Number("ceiling_height", 3))
		if z.volume <= 0 {
			return nil, &engine.FatalError{Msg: "zone " + name + " has no volume"}
		}
		s.zones = append(s.zones, z)
	}
	for _, z := range s.zones {
		z.radiantAct = s.addActuator("OtherEquipment", "Power Level", "SPAWN-ZONE-"+z.name+"-RADIANTGAINS")
	}

	for _, t := range input.ScheduleTypes {
		for _, name := range m.Names(t) {
			_, f, _ := m.Object(t, name)
			upper := strings.ToUpper(name)
			s.schedules[upper] = f.Number("hourly_value", 1)
			s.scheduleNames = append(s.scheduleNames, upper)
			s.addActuator(t, "Schedule Value", upper)
		}
	}
	s.outdoorAct = s.addActuator("Weather Data", "Outdoor Dry Bulb", "ENVIRONMENT")

	s.addLoads(m, "Lights", "Electricity Rate", func(f input.Fields, area float64) float64 {
		if strings.EqualFold(f.String("design_level_calculation_method"), "Watts/Area") {
			return f.Number("watts_per_zone_floor_area", 0) * area
		}
		return f.Number("lighting_level", 0)
	})
	s.addLoads(m, "ElectricEquipment", "Electricity Rate", func(f input.Fields, area float64) float64 {
		if strings.EqualFold(f.String("design_level_calculation_method"), "Watts/Area") {
			return f.Number("watts_per_zone_floor_area", 0) * area
		}
		return f.Number("design_level", 0)
	})
	s.addLoads(m, "People", "Number of People", func(f input.Fields, area float64) float64 {
		if strings.EqualFold(f.String("number_of_people_calculation_method"), "People/Area") {
			return f.Number("people_per_floor_area", 0) * area
		}
		return f.Number("number_of_people", 0)
	})

	s.addOutputs()
	return s, nil
}

func (s *state) addLoads(m *input.Model, objType, control string, level func(input.Fields, float64) float64) {
	for _, name := range m.Names(objType) {
		_, f, _ := m.Object(objType, name)
		zoneName := f.String("zone_or_zonelist_or_space_or_spacelist_name")
		if zoneName == "" {
			zoneName = f.String("zone_or_zonelist_name")
		}
		zi := s.zoneIndex(zoneName)
		if zi < 0 {
			s.warnOnce(objType+" "+name, objType+" \""+name+"\" references unknown zone \""+zoneName+"\"; ignored")
			continue
		}
		upper := strings.ToUpper(name)
		schedule := f.String("schedule_name")
		if schedule == "" {
			schedule = f.String("number_of_people_schedule_name")
		}
		s.loads = append(s.loads, &load{
			objType:  objType,
			name:     upper,
			zone:     zi,
			level:    level(f, s.zones[zi].floorArea),
			schedule: strings.ToUpper(schedule),
			actuator: s.addActuator(objType, control, upper),
		})
	}
}

func (s *state) addOutputs() {
	s.outputs = append(s.outputs,
		output{"SITE OUTDOOR AIR DRYBULB TEMPERATURE", "ENVIRONMENT", s.outdoor},
	)
	for _, z := range s.zones {
		s.outputs = append(s.outputs,
			output{"ZONE MEAN AIR TEMPERATURE", z.name, func() float64 { return z.reported }},
			output{"ZONE AIR TEMPERATURE", z.name, func() float64 { return z.reported }},
			output{"ZONE LIGHTS ELECTRICITY RATE", z.name, func() float64 { return z.lights }},
			output{"ZONE ELECTRIC EQUIPMENT ELECTRICITY RATE", z.name, func() float64 { return z.equipment }},
			output{"ZONE PEOPLE OCCUPANT COUNT", z.name, func() float64 { return z.occupants }},
			output{"ZONE PEOPLE TOTAL HEATING RATE", z.name, func() float64 { return z.occupants * gainPerPerson }},
			// No moisture balance: people and equipment are fully sensible.
			output{"ZONE TOTAL INTERNAL LATENT GAIN RATE", z.name, func() float64 { return 0 }},
			output{"ZONE MEAN RADIANT TEMPERATURE", z.name, func() float64 { return s.surfaceTemp(z) }},
			output{"ZONE TOTAL INTERNAL CONVECTIVE HEATING RATE", z.name, func() float64 { return s.internalGain(z) }},
		)
	}
	for _, name := range s.scheduleNames {
		s.outputs = append(s.outputs, output{"SCHEDULE VALUE", name, func() float64 { return s.scheduleValue(name) }})
	}
}

func (s *state) addActuator(componentType, controlType, key string) int {
	s.actuators = append(s.actuators, &actuator{
		componentType: strings.ToUpper(componentType),
		controlType:   strings.ToUpper(controlType),
		key:           strings.ToUpper(key),
	})
	return len(s.actuators) - 1
}

func (s *state) warnOnce(key, msg string) {
	if s.warned[key] {
		return
	}
	s.warned[key] = true
	if s.messages != nil {
		s.messages(engine.SeverityWarning, msg)
	}
}

func (s *state) zoneIndex(name string) int {
	upper := strings.ToUpper(name)
	for i, z := range s.zones {
		if z.name == upper {
			return i
		}
	}
	return -1
}

// zone maps a 1-based zone number to the zone, or nil.
func (s *state) zone(i int) *zone {
	if i < 1 || i > len(s.zones) {
		return nil
	}
	return s.zones[i-1]
}

func (s *state) outdoor() float64 {
	if a := s.actuators[s.outdoorAct]; a.set {
		return a.value
	}
	return s.weather.dryBulb(s.yearOffset + s.time)
}

func (s *state) scheduleValue(name string) float64 {
	for _, a := range s.actuators {
		if a.set && a.key == name && a.controlType == "SCHEDULE VALUE" {
			return a.value
		}
	}
	if v, ok := s.schedules[name]; ok {
		return v
	}
	return 1
}

func (s *state) internalGain(z *zone) float64 {
	return z.lights + z.equipment + z.occupants*gainPerPerson
}

// sums lumps the envelope into one surface at outdoor temperature that also
// absorbs the zone's radiant gains.
func (s *state) sums(z *zone) engine.ZoneSums {
	ua := s.conductance * z.floorArea
	return engine.ZoneSums{
		SumIntGain: s.internalGain(z),
		SumHA:      ua,
		SumHATsurf: ua*s.outdoor() + z.radiant,
	}
}

// surfaceTemp is the area-weighted surface temperature of the zone, in degC.
func (s *state) surfaceTemp(z *zone) float64 {
	sums := s.sums(z)
	if sums.SumHA == 0 {
		return z.temp
	}
	return sums.SumHATsurf / sums.SumHA
}

// integrate advances every zone that is not held by dt seconds with the
// analytic solution of the zone air heat balance.
func (s *state) integrate(dt float64) {
	for _, z := range s.zones {
		if !z.held {
			sums := s.sums(z)
			capacity := z.volume * z.multiplier * z.capMult * airDensity * airSpecificHeat
			dep, ind := sums.TempDepCoef(), sums.TempIndCoef()
			if dep == 0 {
				z.temp += ind / capacity * dt
			} else {
				z.temp = (z.temp-ind/dep)*math.Exp(math.Min(maxExponent, -dep/capacity*dt)) + ind/dep
			}
		}
		z.reported = z.temp
	}
}

func (s *state) KickOffSimulation() bool { return s.kickoff }
func (s *state) DoingSizing() bool       { return s.sizing }
func (s *state) Warmup() bool            { return s.warmup }
func (s *state) BeginEnvironment() bool  { return s.beginEnv }
func (s *state) CurrentTime() float64    { return s.time }
func (s *state) TimeStepZone() float64   { return s.dt }
func (s *state) NumZones() int           { return len(s.zones) }

func (s *state) ZoneName(i int) string {
	if z := s.zone(i); z != nil {
		return z.name
	}
	return ""
}

func (s *state) ZoneVolume(i int) float64 {
	if z := s.zone(i); z != nil {
		return z.volume
	}
	return 0
}

func (s *state) ZoneFloorArea(i int) float64 {
	if z := s.zone(i); z != nil {
		return z.floorArea
	}
	return 0
}

func (s *state) ZoneVolCapMultpSens(i int) float64 {
	if z := s.zone(i); z != nil {
		return z.capMult
	}
	return 0
}

func (s *state) ZoneTemperature(i int) float64 {
	if z := s.zone(i); z != nil {
		return z.temp
	}
	return 0
}

func (s *state) SetZoneTemperature(i int, degC float64) {
	if z := s.zone(i); z != nil {
		z.temp = degC
		z.held = true
	}
}

func (s *state) ReleaseZoneTemperature(i int) {
	if z := s.zone(i); z != nil {
		z.held = false
	}
}

func (s *state) ZoneSums(i int) engine.ZoneSums {
	if z := s.zone(i); z != nil {
		return s.sums(z)
	}
	return engine.ZoneSums{}
}

func (s *state) ReportZoneMeanAirTemp() {
	for _, z := range s.zones {
		z.reported = z.temp
	}
}

func (s *state) InitInternalHeatGains() {
	for _, z := range s.zones {
		z.lights, z.equipment, z.occupants, z.radiant = 0, 0, 0, 0
		if a := s.actuators[z.radiantAct]; a.set {
			z.radiant = a.value
		}
	}
	for _, l := range s.loads {
		var v float64
		if a := s.actuators[l.actuator]; a.set {
			v = a.value
		} else {
			frac := 1.0
			if l.schedule != "" {
				frac = s.scheduleValue(l.schedule)
			}
			v = l.level * frac
		}
		z := s.zones[l.zone]
		switch l.objType {
		case "Lights":
			z.lights += v
		case "ElectricEquipment":
			z.equipment += v
		case "People":
			z.occupants += v
		}
	}
}

func (s *state) VariableHandle(name, key string) int {
	name, key = strings.ToUpper(name), strings.ToUpper(key)
	for i, o := range s.outputs {
		if o.name == name && o.key == key {
			return i
		}
	}
	return -1
}

func (s *state) VariableValue(handle int) float64 {
	if handle < 0 || handle >= len(s.outputs) {
		return 0
	}
	return s.outputs[handle].value()
}

func (s *state) ActuatorHandle(componentType, controlType, key string) int {
	componentType, controlType, key = strings.ToUpper(componentType), strings.ToUpper(controlType), strings.ToUpper(key)
	for i, a := range s.actuators {
		if a.componentType == componentType && a.controlType == controlType && a.key == key {
			return i
		}
	}
	return -1
}

func (s *state) SetActuatorValue(handle int, value float64) {
	if handle < 0 || handle >= len(s.actuators) {
		return
	}
	s.actuators[handle].value = value
	s.actuators[handle].set = true
}

func (s *state) ResetActuator(handle int) {
	if handle < 0 || handle >= len(s.actuators) {
		return
	}
	s.actuators[handle].set = false
}

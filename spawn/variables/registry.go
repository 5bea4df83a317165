package variables

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NREL/Spawn-sub001/spawn/input"
	"github.com/NREL/Spawn-sub001/spawn/units"
)

// Registry is the ordered, immutable set of variables of one FMU. Value
// references are dense, starting at zero.
type Registry struct {
	vars   []*Variable
	byName map[string]*Variable
	zones  []string
}

func startAt(v float64) *float64 { return &v }

// Build derives the registry from a spawn input and its building model.
// Registration order is schedules, output variables, EMS actuators, then the
// per-zone variables of every zone of interest in name order. Build fails as a
// whole: on error no registry is returned.
func Build(in *input.Input) (*Registry, error) {
	model, err := in.BuildingModel()
	if err != nil {
		return nil, err
	}
	b := &builder{model: model, reg: &Registry{byName: make(map[string]*Variable)}}

	for i, s := range in.Model.Schedules {
		if err := b.schedule(fmt.Sprintf("model.schedules[%d]", i), s); err != nil {
			return nil, err
		}
	}
	for i, o := range in.Model.OutputVariables {
		if err := b.outputVariable(fmt.Sprintf("model.outputVariables[%d]", i), o); err != nil {
			return nil, err
		}
	}
	for i, a := range in.Model.EMSActuators {
		if err := b.actuator(fmt.Sprintf("model.emsActuators[%d]", i), a); err != nil {
			return nil, err
		}
	}

	zones := make([]string, 0, len(in.Model.Zones))
	for i, z := range in.Model.Zones {
		entry := fmt.Sprintf("model.zones[%d]", i)
		if z.Name == "" {
			return nil, &ParseError{Entry: entry, Field: "name", Err: ErrMissingField}
		}
		name, _, ok := model.Object("Zone", z.Name)
		if !ok {
			return nil, &ParseError{Entry: entry, Field: "name", Err: fmt.Errorf("%w: %q", ErrUnknownZone, z.Name)}
		}
		zones = append(zones, name)
	}
	sort.Strings(zones)
	for i, zone := range zones {
		if err := b.zone(fmt.Sprintf("model.zones[%d]", i), zone); err != nil {
			return nil, err
		}
	}

	return b.reg, nil
}

type builder struct {
	model *input.Model
	reg   *Registry
}

func (b *builder) add(entry string, v *Variable) error {
	if _, dup := b.reg.byName[v.Name]; dup {
		return &ParseError{Entry: entry, Field: "fmiName", Err: fmt.Errorf("%w: %q", ErrDuplicateName, v.Name)}
	}
	v.ValueRef = uint32(len(b.reg.vars))
	b.reg.vars = append(b.reg.vars, v)
	b.reg.byName[v.Name] = v
	return nil
}

func required(entry string, fields ...[2]string) error {
	for _, f := range fields {
		if f[1] == "" {
			return &ParseError{Entry: entry, Field: f[0], Err: ErrMissingField}
		}
	}
	return nil
}

func (b *builder) schedule(entry string, s input.ScheduleSpec) error {
	if err := required(entry, [2]string{"name", s.Name}, [2]string{"fmiName", s.FMIName}); err != nil {
		return err
	}
	schedType := b.model.ScheduleType(s.Name)
	if schedType == "" {
		return &ParseError{Entry: entry, Field: "name", Err: fmt.Errorf("%w: %q", ErrUnknownSchedule, s.Name)}
	}
	return b.add(entry, &Variable{
		Name:            s.FMIName,
		Kind:            Schedule,
		ActuatorKey:     strings.ToUpper(s.Name),
		ActuatorType:    schedType,
		ActuatorControl: "Schedule Value",
		FMIUnit:         units.One,
		EngineUnit:      units.One,
		Attrs: Attributes{
			Description: "Schedule",
			Causality:   "input",
			Variability: "continuous",
			Start:       startAt(0),
		},
	})
}

func (b *builder) outputVariable(entry string, o input.OutputVariableSpec) error {
	if err := required(entry, [2]string{"name", o.Name}, [2]string{"key", o.Key}, [2]string{"fmiName", o.FMIName}); err != nil {
		return err
	}
	u := outputUnits(o.Name)
	return b.add(entry, &Variable{
		Name:       o.FMIName,
		Kind:       OutputVariable,
		OutputName: strings.ToUpper(o.Name),
		OutputKey:  strings.ToUpper(o.Key),
		FMIUnit:    u.fmi,
		EngineUnit: u.engine,
		Attrs: Attributes{
			Description: "Custom Sensor",
			Causality:   "output",
			Variability: "continuous",
			Initial:     "calculated",
			Quantity:    quantityOf(u.fmi),
		},
	})
}

func (b *builder) actuator(entry string, a input.EMSActuatorSpec) error {
	if err := required(entry,
		[2]string{"variableName", a.VariableName},
		[2]string{"componentType", a.ComponentType},
		[2]string{"controlType", a.ControlType},
		[2]string{"fmiName", a.FMIName},
	); err != nil {
		return err
	}
	u := actuatorUnits(a.ComponentType, a.ControlType)
	if a.Unit != "" {
		declared, err := units.Parse(a.Unit)
		if err != nil {
			return &ParseError{Entry: entry, Field: "unit", Err: fmt.Errorf("%w: %q", ErrUnknownUnit, a.Unit)}
		}
		u = unitPair{engine: declared, fmi: siCounterpart(declared)}
	}
	return b.add(entry, &Variable{
		Name:            a.FMIName,
		Kind:            EMSActuator,
		ActuatorKey:     strings.ToUpper(a.VariableName),
		ActuatorType:    a.ComponentType,
		ActuatorControl: a.ControlType,
		FMIUnit:         u.fmi,
		EngineUnit:      u.engine,
		Attrs: Attributes{
			Description: "Custom Actuator",
			Causality:   "input",
			Variability: "continuous",
			Quantity:    quantityOf(u.fmi),
			Start:       startAt(0),
		},
	})
}

const (
	radiantGainType    = "OtherEquipment"
	radiantGainControl = "Power Level"
)

// RadiantGainKey is the name of the radiant-only OtherEquipment object that
// carries a zone's QGaiRad_flow input, upper-cased.
func RadiantGainKey(zone string) string {
	return "SPAWN-ZONE-" + strings.ToUpper(zone) + "-RADIANTGAINS"
}

func (b *builder) zone(entry, zone string) error {
	upper := strings.ToUpper(zone)
	defs := []*Variable{
		{
			Name: zone + "_T", Kind: ZoneTemperature,
			FMIUnit: units.K, EngineUnit: units.C,
			Attrs: Attributes{
				Description: "Temperature of the zone air",
				Causality:   "input", Variability: "continuous",
				Quantity: "ThermodynamicTemperature", Start: startAt(0),
			},
		},
		{
			Name: zone + "_QConSen_flow", Kind: ZoneSensibleHeatFlow,
			FMIUnit: units.W, EngineUnit: units.W,
			Attrs: Attributes{
				Description: "Convective sensible heat added to the zone",
				Causality:   "output", Variability: "continuous", Initial: "calculated",
				Quantity: "Power",
			},
		},
		{
			Name: zone + "_AFlo", Kind: ZoneFloorArea,
			FMIUnit: units.M2, EngineUnit: units.M2,
			Attrs: Attributes{
				Description: "Floor area",
				Causality:   "local", Variability: "constant", Initial: "exact",
				Quantity: "Area", Start: startAt(12.0),
			},
		},
		{
			Name: zone + "_V", Kind: ZoneVolume,
			FMIUnit: units.M3, EngineUnit: units.M3,
			Attrs: Attributes{
				Description: "Volume",
				Causality:   "local", Variability: "constant", Initial: "exact",
				Quantity: "Volume", Start: startAt(36.0),
			},
		},
		{
			Name: zone + "_mSenFac", Kind: ZoneSensibleCapacityFactor,
			FMIUnit: units.One, EngineUnit: units.One,
			Attrs: Attributes{
				Description: "Factor for scaling sensible thermal mass of volume",
				Causality:   "local", Variability: "constant", Initial: "exact",
				Start: startAt(1.0),
			},
		},
		{
			Name: zone + "_QGaiRad_flow", Kind: ZoneRadiantGain,
			ActuatorType: radiantGainType, ActuatorControl: radiantGainControl, ActuatorKey: RadiantGainKey(zone),
			FMIUnit: units.W, EngineUnit: units.W,
			Attrs: Attributes{
				Description: "Radiative sensible heat gain added to the zone",
				Causality:   "input", Variability: "continuous",
				Quantity: "Power", Start: startAt(0),
			},
		},
		{
			Name: zone + "_QLat_flow", Kind: ZoneLatentGain,
			OutputName: "ZONE TOTAL INTERNAL LATENT GAIN RATE", OutputKey: upper,
			FMIUnit: units.W, EngineUnit: units.W,
			Attrs: Attributes{
				Description: "Latent heat gain added to the zone",
				Causality:   "output", Variability: "continuous", Initial: "calculated",
				Quantity: "Power",
			},
		},
		{
			Name: zone + "_QPeo_flow", Kind: ZonePeopleGain,
			OutputName: "ZONE PEOPLE TOTAL HEATING RATE", OutputKey: upper,
			FMIUnit: units.W, EngineUnit: units.W,
			Attrs: Attributes{
				Description: "Heat gain due to people",
				Causality:   "output", Variability: "continuous", Initial: "calculated",
				Quantity: "Power",
			},
		},
		{
			Name: zone + "_TAveInlet", Kind: ZoneInletTemperature,
			FMIUnit: units.K, EngineUnit: units.C,
			Attrs: Attributes{
				Description: "Average of inlets medium temperatures carried by the mass flow rates",
				Causality:   "input", Variability: "continuous",
				Quantity: "ThermodynamicTemperature", Start: startAt(294.15),
			},
		},
		{
			Name: zone + "_TRad", Kind: ZoneRadiantTemperature,
			OutputName: "ZONE MEAN RADIANT TEMPERATURE", OutputKey: upper,
			FMIUnit: units.K, EngineUnit: units.C,
			Attrs: Attributes{
				Description: "Average radiative temperature in the room",
				Causality:   "output", Variability: "discrete", Initial: "calculated",
				Quantity: "ThermodynamicTemperature",
			},
		},
		{
			Name: zone + "_X", Kind: ZoneHumidityRatio,
			FMIUnit: units.One, EngineUnit: units.One,
			Attrs: Attributes{
				Description: "Water vapor mass fraction in kg water/kg dry air",
				Causality:   "input", Variability: "continuous",
				Min: startAt(0), Start: startAt(0),
			},
		},
		{
			Name: zone + "_mInlets_flow", Kind: ZoneInletMassFlow,
			FMIUnit: units.KgPerS, EngineUnit: units.KgPerS,
			Attrs: Attributes{
				Description: "Sum of positive mass flow rates into the zone for all air inlets (including infiltration)",
				Causality:   "input", Variability: "continuous",
				Quantity: "MassFlowRate", Start: startAt(0),
			},
		},
	}
	for _, v := range defs {
		v.Zone = upper
		if err := b.add(entry, v); err != nil {
			return err
		}
	}
	b.reg.zones = append(b.reg.zones, zone)
	return nil
}

// Len returns the number of variables.
func (r *Registry) Len() int {
	return len(r.vars)
}

// All returns the variables in value-reference order.
func (r *Registry) All() []*Variable {
	return r.vars
}

// Zones returns the zones of interest, in registration order.
func (r *Registry) Zones() []string {
	return r.zones
}

// Get returns the variable with the given value reference.
func (r *Registry) Get(ref uint32) (*Variable, bool) {
	if int(ref) >= len(r.vars) {
		return nil, false
	}
	return r.vars[ref], true
}

// ByName returns the variable with the given FMI name.
func (r *Registry) ByName(name string) (*Variable, bool) {
	v, ok := r.byName[name]
	return v, ok
}

// SetValue sets the variable at ref to v, given in FMI units.
func (r *Registry) SetValue(ref uint32, v float64) error {
	variable, ok := r.Get(ref)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRef, ref)
	}
	variable.Set(v)
	return nil
}

// GetValue returns the value at ref in FMI units.
func (r *Registry) GetValue(ref uint32) (float64, error) {
	variable, ok := r.Get(ref)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownRef, ref)
	}
	v, ok := variable.Value()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoValue, variable.Name)
	}
	return v, nil
}

// ClearPending forgets which inputs were set during the last step.
func (r *Registry) ClearPending() {
	for _, v := range r.vars {
		v.ClearPending()
	}
}

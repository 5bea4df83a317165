package variables

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NREL/Spawn-sub001/internal/testutil"
	"github.com/NREL/Spawn-sub001/spawn/input"
	"github.com/NREL/Spawn-sub001/spawn/units"
)

func loadRefBuilding(t *testing.T, doc string) *input.Input {
	t.Helper()
	in, err := input.Load(testutil.WriteRefBuildingWithInput(t, doc))
	require.NoError(t, err)
	return in
}

func TestBuild_RefBuilding_RegistersInDocumentedOrder(t *testing.T) {
	// GIVEN the reference input: 1 schedule, 2 sensors, 1 actuator, 1 zone
	in := loadRefBuilding(t, testutil.RefBuildingInput)

	// WHEN building the registry
	reg, err := Build(in)
	require.NoError(t, err)

	// THEN value references follow schedules, outputs, actuators, zone variables
	want := []struct {
		name string
		kind Kind
	}{
		{"LightsSched", Schedule},
		{"Core_ZN_MAT", OutputVariable},
		{"TOut", OutputVariable},
		{"Core_ZN_Lights", EMSActuator},
		{"Core_ZN_T", ZoneTemperature},
		{"Core_ZN_QConSen_flow", ZoneSensibleHeatFlow},
		{"Core_ZN_AFlo", ZoneFloorArea},
		{"Core_ZN_V", ZoneVolume},
		{"Core_ZN_mSenFac", ZoneSensibleCapacityFactor},
		{"Core_ZN_QGaiRad_flow", ZoneRadiantGain},
		{"Core_ZN_QLat_flow", ZoneLatentGain},
		{"Core_ZN_QPeo_flow", ZonePeopleGain},
		{"Core_ZN_TAveInlet", ZoneInletTemperature},
		{"Core_ZN_TRad", ZoneRadiantTemperature},
		{"Core_ZN_X", ZoneHumidityRatio},
		{"Core_ZN_mInlets_flow", ZoneInletMassFlow},
	}
	require.Equal(t, len(want), reg.Len())
	for i, w := range want {
		v, ok := reg.Get(uint32(i))
		require.True(t, ok)
		assert.Equal(t, w.name, v.Name, "ref %d", i)
		assert.Equal(t, w.kind, v.Kind, "ref %d", i)
		assert.Equal(t, uint32(i), v.ValueRef)
	}
	assert.Equal(t, []string{"Core_ZN"}, reg.Zones())
}

func TestBuild_UpperCasesEngineIdentifiers(t *testing.T) {
	reg, err := Build(loadRefBuilding(t, testutil.RefBuildingInput))
	require.NoError(t, err)

	temp, ok := reg.ByName("Core_ZN_T")
	require.True(t, ok)
	assert.Equal(t, "CORE_ZN", temp.Zone)
	assert.Equal(t, units.K, temp.FMIUnit)
	assert.Equal(t, units.C, temp.EngineUnit)

	mat, _ := reg.ByName("Core_ZN_MAT")
	assert.Equal(t, "ZONE MEAN AIR TEMPERATURE", mat.OutputName)
	assert.Equal(t, "CORE_ZN", mat.OutputKey)
	assert.Equal(t, units.K, mat.FMIUnit)

	sched, _ := reg.ByName("LightsSched")
	assert.Equal(t, "Schedule:Constant", sched.ActuatorType)
	assert.Equal(t, "Schedule Value", sched.ActuatorControl)
	assert.Equal(t, "LIGHTS SCHED", sched.ActuatorKey)
}

func TestBuild_ZoneBindings(t *testing.T) {
	reg, err := Build(loadRefBuilding(t, testutil.RefBuildingInput))
	require.NoError(t, err)

	// Radiant gains go through the zone's radiant-only equipment actuator
	rad, _ := reg.ByName("Core_ZN_QGaiRad_flow")
	assert.True(t, rad.Kind.IsInput())
	assert.True(t, rad.Kind.IsActuator())
	assert.Equal(t, "OtherEquipment", rad.ActuatorType)
	assert.Equal(t, "Power Level", rad.ActuatorControl)
	assert.Equal(t, "SPAWN-ZONE-CORE_ZN-RADIANTGAINS", rad.ActuatorKey)

	// People, latent and radiant temperature outputs are read as sensors
	sensors := map[string]string{
		"Core_ZN_QPeo_flow": "ZONE PEOPLE TOTAL HEATING RATE",
		"Core_ZN_QLat_flow": "ZONE TOTAL INTERNAL LATENT GAIN RATE",
		"Core_ZN_TRad":      "ZONE MEAN RADIANT TEMPERATURE",
	}
	for name, output := range sensors {
		v, ok := reg.ByName(name)
		require.True(t, ok, name)
		assert.True(t, v.Kind.IsSensor(), name)
		assert.False(t, v.Kind.IsInput(), name)
		assert.Equal(t, output, v.OutputName, name)
		assert.Equal(t, "CORE_ZN", v.OutputKey, name)
		assert.Equal(t, "output", v.Attrs.Causality, name)
	}
	trad, _ := reg.ByName("Core_ZN_TRad")
	assert.Equal(t, units.K, trad.FMIUnit)
	assert.Equal(t, units.C, trad.EngineUnit)

	// Boundary conditions from the air loop are stored inputs
	inlet, _ := reg.ByName("Core_ZN_TAveInlet")
	assert.Equal(t, 294.15, *inlet.Attrs.Start)
	x, _ := reg.ByName("Core_ZN_X")
	assert.Equal(t, 0.0, *x.Attrs.Min)
	flow, _ := reg.ByName("Core_ZN_mInlets_flow")
	assert.Equal(t, units.KgPerS, flow.FMIUnit)
	assert.Equal(t, "MassFlowRate", flow.Attrs.Quantity)
	for _, v := range []*Variable{inlet, x, flow} {
		assert.True(t, v.Kind.IsInput(), v.Name)
		assert.False(t, v.Kind.IsActuator(), v.Name)
		assert.True(t, v.Kind.IsZone(), v.Name)
	}
}

func TestBuild_TruncatedDefinition_FailsAsAWhole(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
		err   error
	}{
		{
			name:  "actuator without controlType",
			doc:   `{"EnergyPlus": {"idf": "RefBldgSmallOffice.epJSON"}, "model": {"emsActuators": [{"variableName": "Core_ZN Lights", "componentType": "Lights", "fmiName": "L"}]}}`,
			field: "controlType",
			err:   ErrMissingField,
		},
		{
			name:  "output without key",
			doc:   `{"EnergyPlus": {"idf": "RefBldgSmallOffice.epJSON"}, "model": {"outputVariables": [{"name": "Zone Mean Air Temperature", "fmiName": "MAT"}]}}`,
			field: "key",
			err:   ErrMissingField,
		},
		{
			name:  "unknown zone",
			doc:   `{"EnergyPlus": {"idf": "RefBldgSmallOffice.epJSON"}, "model": {"zones": [{"name": "Attic"}]}}`,
			field: "name",
			err:   ErrUnknownZone,
		},
		{
			name:  "unknown schedule",
			doc:   `{"EnergyPlus": {"idf": "RefBldgSmallOffice.epJSON"}, "model": {"schedules": [{"name": "Nope", "fmiName": "S"}]}}`,
			field: "name",
			err:   ErrUnknownSchedule,
		},
		{
			name:  "duplicate fmi name",
			doc:   `{"EnergyPlus": {"idf": "RefBldgSmallOffice.epJSON"}, "model": {"schedules": [{"name": "Lights Sched", "fmiName": "Core_ZN_T"}], "zones": [{"name": "Core_ZN"}]}}`,
			field: "fmiName",
			err:   ErrDuplicateName,
		},
		{
			name:  "unknown actuator unit",
			doc:   `{"EnergyPlus": {"idf": "RefBldgSmallOffice.epJSON"}, "model": {"emsActuators": [{"variableName": "x", "componentType": "Lights", "controlType": "Electricity Rate", "fmiName": "L", "unit": "BTU"}]}}`,
			field: "unit",
			err:   ErrUnknownUnit,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reg, err := Build(loadRefBuilding(t, tc.doc))

			assert.Nil(t, reg, "no partial registry may be returned")
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Equal(t, tc.field, pe.Field)
			assert.True(t, errors.Is(err, tc.err), "got %v", err)
		})
	}
}

func TestBuild_MissingModelFile_ReturnsError(t *testing.T) {
	in, err := input.Parse([]byte(`{"EnergyPlus": {"idf": "absent.epJSON"}}`), t.TempDir())
	require.NoError(t, err)

	_, err = Build(in)
	assert.Error(t, err)
}

func TestBuild_DeclaredActuatorUnit_ExposesSICounterpart(t *testing.T) {
	doc := `{"EnergyPlus": {"idf": "RefBldgSmallOffice.epJSON"}, "model": {"emsActuators": [
	  {"variableName": "Environment", "componentType": "Weather Data", "controlType": "Outdoor Dry Bulb", "fmiName": "TDry"},
	  {"variableName": "Core_ZN", "componentType": "Custom", "controlType": "Setpoint", "fmiName": "TSet", "unit": "degC"}]}}`
	reg, err := Build(loadRefBuilding(t, doc))
	require.NoError(t, err)

	dry, _ := reg.ByName("TDry")
	assert.Equal(t, units.K, dry.FMIUnit)
	assert.Equal(t, units.C, dry.EngineUnit)
	set, _ := reg.ByName("TSet")
	assert.Equal(t, units.K, set.FMIUnit)
	assert.Equal(t, units.C, set.EngineUnit)
}

func TestRegistry_GetBeforeSet_ReportsNoValue(t *testing.T) {
	reg, err := Build(loadRefBuilding(t, testutil.RefBuildingInput))
	require.NoError(t, err)

	for _, v := range reg.All() {
		_, ok := v.Value()
		assert.False(t, ok, "%s has a value before any exchange", v.Name)
		_, err := reg.GetValue(v.ValueRef)
		assert.ErrorIs(t, err, ErrNoValue)
	}
}

func TestRegistry_UnknownRef_ReturnsError(t *testing.T) {
	reg, err := Build(loadRefBuilding(t, testutil.RefBuildingInput))
	require.NoError(t, err)

	assert.ErrorIs(t, reg.SetValue(999, 1), ErrUnknownRef)
	_, err = reg.GetValue(999)
	assert.ErrorIs(t, err, ErrUnknownRef)
}

func TestVariable_SetThenClearPending_KeepsValue(t *testing.T) {
	// GIVEN a zone temperature input set to 22 degC in Kelvin
	v := &Variable{Name: "Z_T", Kind: ZoneTemperature, FMIUnit: units.K, EngineUnit: units.C}
	v.Set(295.15)

	// THEN the engine sees Celsius and the input is pending
	ev, ok := v.EngineValue()
	require.True(t, ok)
	assert.InDelta(t, 22.0, ev, 1e-9)
	assert.True(t, v.Pending())

	// WHEN the step completes
	v.ClearPending()

	// THEN the value stays readable but is no longer applied
	got, ok := v.Value()
	assert.True(t, ok)
	assert.InDelta(t, 295.15, got, 1e-9)
	assert.False(t, v.Pending())
}

func TestVariable_SetEngine_ConvertsToFMIUnits(t *testing.T) {
	v := &Variable{Kind: OutputVariable, FMIUnit: units.One, EngineUnit: units.Percent}
	v.SetEngine(45)
	got, ok := v.Value()
	require.True(t, ok)
	assert.InDelta(t, 0.45, got, 1e-12)
	assert.False(t, v.Pending(), "engine reads never mark a variable pending")
}

func TestKind_Classification(t *testing.T) {
	assert.True(t, ZoneTemperature.IsInput())
	assert.True(t, Schedule.IsInput())
	assert.False(t, ZoneVolume.IsInput())
	assert.True(t, ZoneVolume.IsZone())
	assert.False(t, OutputVariable.IsZone())
	assert.Equal(t, "EMSActuator", EMSActuator.String())
}

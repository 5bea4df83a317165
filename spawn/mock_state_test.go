package spawn

import (
	"github.com/stretchr/testify/mock"

	"github.com/NREL/Spawn-sub001/spawn/engine"
)

// mockState is a testify mock of engine.State that also records the order of
// calls so tests can check the phases of an exchange.
type mockState struct {
	mock.Mock
	calls []string
}

var _ engine.State = (*mockState)(nil)

func (m *mockState) called(name string, args ...any) mock.Arguments {
	m.calls = append(m.calls, name)
	return m.MethodCalled(name, args...)
}

// indexOf returns the position of the first call to name, or -1.
func (m *mockState) indexOf(name string) int {
	for i, c := range m.calls {
		if c == name {
			return i
		}
	}
	return -1
}

func (m *mockState) KickOffSimulation() bool { return m.called("KickOffSimulation").Bool(0) }
func (m *mockState) DoingSizing() bool       { return m.called("DoingSizing").Bool(0) }
func (m *mockState) Warmup() bool            { return m.called("Warmup").Bool(0) }
func (m *mockState) BeginEnvironment() bool  { return m.called("BeginEnvironment").Bool(0) }

func (m *mockState) CurrentTime() float64 {
	return m.called("CurrentTime").Get(0).(float64)
}

func (m *mockState) TimeStepZone() float64 {
	return m.called("TimeStepZone").Get(0).(float64)
}

func (m *mockState) NumZones() int { return m.called("NumZones").Int(0) }

func (m *mockState) ZoneName(i int) string { return m.called("ZoneName", i).String(0) }

func (m *mockState) ZoneVolume(i int) float64 {
	return m.called("ZoneVolume", i).Get(0).(float64)
}

func (m *mockState) ZoneFloorArea(i int) float64 {
	return m.called("ZoneFloorArea", i).Get(0).(float64)
}

func (m *mockState) ZoneVolCapMultpSens(i int) float64 {
	return m.called("ZoneVolCapMultpSens", i).Get(0).(float64)
}

func (m *mockState) ZoneTemperature(i int) float64 {
	return m.called("ZoneTemperature", i).Get(0).(float64)
}

func (m *mockState) SetZoneTemperature(i int, degC float64) {
	m.called("SetZoneTemperature", i, degC)
}

func (m *mockState) ReleaseZoneTemperature(i int) {
	m.called("ReleaseZoneTemperature", i)
}

func (m *mockState) ZoneSums(i int) engine.ZoneSums {
	return m.called("ZoneSums", i).Get(0).(engine.ZoneSums)
}

func (m *mockState) ReportZoneMeanAirTemp() { m.called("ReportZoneMeanAirTemp") }
func (m *mockState) InitInternalHeatGains() { m.called("InitInternalHeatGains") }

func (m *mockState) VariableHandle(name, key string) int {
	return m.called("VariableHandle", name, key).Int(0)
}

func (m *mockState) VariableValue(handle int) float64 {
	return m.called("VariableValue", handle).Get(0).(float64)
}

func (m *mockState) ActuatorHandle(componentType, controlType, key string) int {
	return m.called("ActuatorHandle", componentType, controlType, key).Int(0)
}

func (m *mockState) SetActuatorValue(handle int, value float64) {
	m.called("SetActuatorValue", handle, value)
}

func (m *mockState) ResetActuator(handle int) {
	m.called("ResetActuator", handle)
}

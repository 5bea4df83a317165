package fmi

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/NREL/Spawn-sub001/internal/testutil"
	"github.com/NREL/Spawn-sub001/spawn"
	"github.com/NREL/Spawn-sub001/spawn/engine"
	"github.com/NREL/Spawn-sub001/spawn/engine/lumped"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	goleak.VerifyTestMain(m)
}

func quickKernel() engine.Kernel {
	return lumped.New(lumped.WithWarmupDays(0))
}

type logRecord struct {
	status   Status
	category string
	message  string
}

type logCollector struct {
	mu      sync.Mutex
	records []logRecord
}

func (c *logCollector) log(_ string, status Status, category, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, logRecord{status, category, message})
}

func (c *logCollector) all() []logRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]logRecord(nil), c.records...)
}

// instantiate writes the reference building as FMU resources and
// instantiates it from a file:// resource location.
func instantiate(t *testing.T, opts ...Option) *Instance {
	t.Helper()
	resources := filepath.Dir(testutil.WriteRefBuilding(t))
	opts = append([]Option{WithKernelFactory(quickKernel), WithTimeout(5 * time.Second)}, opts...)
	inst, err := Instantiate("office", "{guid}", "file://"+filepath.ToSlash(resources), opts...)
	require.NoError(t, err)
	t.Cleanup(inst.Free)
	return inst
}

func ref(t *testing.T, inst *Instance, name string) uint32 {
	t.Helper()
	r, ok := inst.Component().ValueRef(name)
	require.True(t, ok, "variable %s", name)
	return r
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusOK},
		{"timeout", &spawn.TimeoutError{Op: "set time", After: time.Second}, StatusFatal},
		{"fatal engine", &spawn.FatalEngineError{Err: errors.New("boom")}, StatusFatal},
		{"finished", spawn.ErrSimulationFinished, StatusError},
		{"other", errors.New("bad input"), StatusError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusOf(tc.err))
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "OK", StatusOK.String())
	assert.Equal(t, "Fatal", StatusFatal.String())
	assert.Equal(t, "Unknown", Status(42).String())
}

func TestResourcePath(t *testing.T) {
	got, err := ResourcePath("file:///tmp/office/resources")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/tmp/office/resources"), got)

	got, err = ResourcePath("file:///tmp/my%20office/resources")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/tmp/my office/resources"), got)

	got, err = ResourcePath("/plain/resources")
	require.NoError(t, err)
	assert.Equal(t, "/plain/resources", got)
}

func TestInstantiate_MissingInput_ReturnsError(t *testing.T) {
	_, err := Instantiate("office", "", "file://"+filepath.ToSlash(t.TempDir()))
	assert.Error(t, err)
}

func TestInstance_ModelExchangeSequence(t *testing.T) {
	// GIVEN an instantiated FMU
	inst := instantiate(t)
	tRef := ref(t, inst, "Core_ZN_T")
	qRef := ref(t, inst, "Core_ZN_QConSen_flow")
	areaRef := ref(t, inst, "Core_ZN_AFlo")

	// WHEN the master initializes it
	require.Equal(t, StatusOK, inst.SetupExperiment(false, 0, 0, false, 0))
	require.Equal(t, StatusOK, inst.EnterInitializationMode())
	require.Equal(t, StatusOK, inst.ExitInitializationMode())

	// THEN parameters are readable and the next event is one zone timestep away
	values := make([]float64, 1)
	require.Equal(t, StatusOK, inst.GetReal([]uint32{areaRef}, values))
	assert.Equal(t, 149.66, values[0])
	info, st := inst.NewDiscreteStates()
	require.Equal(t, StatusOK, st)
	assert.True(t, info.NextEventTimeDefined)
	assert.Equal(t, 600.0, info.NextEventTime)

	// WHEN the master sets the zone temperature and advances to the event
	require.Equal(t, StatusOK, inst.SetReal([]uint32{tRef}, []float64{295.15}))
	require.Equal(t, StatusOK, inst.SetTime(600))

	// THEN the heat flow is computed at that temperature
	require.Equal(t, StatusOK, inst.GetReal([]uint32{qRef}, values))
	want := 10.76*149.66 + 2.0*149.66*10.0 - 2.0*149.66*22.0
	assert.InDelta(t, want, values[0], 1e-6)

	enter, terminate, st := inst.CompletedIntegratorStep(true)
	assert.False(t, enter)
	assert.False(t, terminate)
	assert.Equal(t, StatusOK, st)
	assert.Equal(t, StatusOK, inst.Terminate())
}

func TestInstance_GetReal_UnknownRef_IsError(t *testing.T) {
	inst := instantiate(t)
	require.Equal(t, StatusOK, inst.ExitInitializationMode())
	areaRef := ref(t, inst, "Core_ZN_AFlo")

	values := make([]float64, 2)
	st := inst.GetReal([]uint32{9999, areaRef}, values)

	assert.Equal(t, StatusError, st)
	assert.Equal(t, 149.66, values[1], "known references are still read")
}

func TestInstance_GetReal_BeforeStart_IsError(t *testing.T) {
	inst := instantiate(t)
	values := make([]float64, 1)
	assert.Equal(t, StatusError, inst.GetReal([]uint32{ref(t, inst, "Core_ZN_QConSen_flow")}, values))
}

func TestInstance_SetReal_LengthMismatch_IsError(t *testing.T) {
	inst := instantiate(t)
	assert.Equal(t, StatusError, inst.SetReal([]uint32{0, 1}, []float64{1}))
}

func TestInstance_ContinuousStates(t *testing.T) {
	inst := instantiate(t)

	assert.Equal(t, StatusOK, inst.SetContinuousStates(nil))
	assert.Equal(t, StatusOK, inst.GetContinuousStates(nil))
	assert.Equal(t, StatusOK, inst.GetDerivatives(nil))
	assert.Equal(t, StatusOK, inst.GetEventIndicators(nil))
	assert.Equal(t, StatusOK, inst.GetNominalsOfContinuousStates(nil))
	assert.Equal(t, StatusError, inst.GetDerivatives(make([]float64, 1)))
	assert.Equal(t, StatusOK, inst.EnterEventMode())
	assert.Equal(t, StatusOK, inst.EnterContinuousTimeMode())
}

func TestInstance_NotImplemented_LogsToMaster(t *testing.T) {
	// GIVEN an instance with logging on
	logs := &logCollector{}
	inst := instantiate(t, WithLogFunc(logs.log, true))

	// WHEN an unsupported call is made
	st := inst.GetInteger([]uint32{0}, make([]int32, 1))

	// THEN it fails and the master receives an error-category message
	assert.Equal(t, StatusError, st)
	records := logs.all()
	require.NotEmpty(t, records)
	last := records[len(records)-1]
	assert.Equal(t, CategoryError, last.category)
	assert.Equal(t, StatusError, last.status)
	assert.Contains(t, last.message, "fmi2GetInteger is not implemented")

	for _, call := range []func() Status{
		func() Status { return inst.SetInteger(nil, nil) },
		func() Status { return inst.GetBoolean(nil, nil) },
		func() Status { return inst.SetBoolean(nil, nil) },
		func() Status { return inst.GetString(nil, nil) },
		func() Status { return inst.SetString(nil, nil) },
		inst.GetFMUState,
		inst.SetFMUState,
		inst.FreeFMUState,
		inst.GetDirectionalDerivative,
	} {
		assert.Equal(t, StatusError, call())
	}
}

func TestInstance_SetDebugLogging_FiltersCategories(t *testing.T) {
	logs := &logCollector{}
	inst := instantiate(t, WithLogFunc(logs.log, true))

	inst.SetDebugLogging(true, []string{CategoryWarning})
	inst.GetInteger(nil, nil)
	assert.Empty(t, logs.all(), "error category is filtered out")

	inst.SetDebugLogging(false, nil)
	inst.GetInteger(nil, nil)
	assert.Empty(t, logs.all(), "logging is off")

	inst.SetDebugLogging(true, nil)
	inst.GetInteger(nil, nil)
	assert.Len(t, logs.all(), 1)
}

func TestInstance_KernelMessages_ReachMasterAsInfo(t *testing.T) {
	logs := &logCollector{}
	inst := instantiate(t, WithLogFunc(logs.log, true))

	require.Equal(t, StatusOK, inst.ExitInitializationMode())

	found := false
	for _, r := range logs.all() {
		if r.message == "Initializing Simulation" {
			found = true
			assert.Equal(t, CategoryInfo, r.category)
			assert.Equal(t, StatusOK, r.status)
		}
	}
	assert.True(t, found, "kernel start message forwarded")
}

func TestInstance_Reset_AllowsNewExperiment(t *testing.T) {
	inst := instantiate(t)
	require.Equal(t, StatusOK, inst.ExitInitializationMode())
	require.Equal(t, StatusOK, inst.SetTime(1200))

	require.Equal(t, StatusOK, inst.Reset())
	require.Equal(t, StatusOK, inst.SetupExperiment(false, 0, 600, false, 0))
	require.Equal(t, StatusOK, inst.ExitInitializationMode())

	assert.Equal(t, 600.0, inst.Component().CurrentTime())
}

func TestTable_AddGetRemove(t *testing.T) {
	table := NewTable()
	inst := &Instance{name: "a"}

	h := table.Add(inst)
	assert.NotZero(t, h)
	got, ok := table.Get(h)
	require.True(t, ok)
	assert.Same(t, inst, got)
	assert.Equal(t, 1, table.Len())

	removed, ok := table.Remove(h)
	assert.True(t, ok)
	assert.Same(t, inst, removed)
	_, ok = table.Get(h)
	assert.False(t, ok)
	assert.NotEqual(t, h, table.Add(inst), "handles are not reused")
}

package fmi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulate_EveryZoneTimestep(t *testing.T) {
	// GIVEN the core zone held at 22 degC
	inst := instantiate(t)
	cfg := SimulateConfig{
		StopTime: 1800,
		Inputs:   map[string]float64{"Core_ZN_T": 295.15},
		Outputs:  []string{"Core_ZN_QConSen_flow", "Core_ZN_MAT"},
	}

	// WHEN simulating without a step size
	samples, err := Simulate(context.Background(), inst, cfg)

	// THEN there is one sample per zone timestep, start included
	require.NoError(t, err)
	require.Len(t, samples, 4)
	want := 10.76*149.66 + 2.0*149.66*10.0 - 2.0*149.66*22.0
	for k, s := range samples {
		assert.Equal(t, float64(k)*600, s.Time)
		assert.InDelta(t, want, s.Values["Core_ZN_QConSen_flow"], 1e-6, "t=%g", s.Time)
		assert.InDelta(t, 295.15, s.Values["Core_ZN_MAT"], 1e-9, "t=%g", s.Time)
	}
}

func TestSimulate_StepSize_DefaultOutputs(t *testing.T) {
	inst := instantiate(t)

	samples, err := Simulate(context.Background(), inst, SimulateConfig{StopTime: 3600, StepSize: 1200})

	require.NoError(t, err)
	require.Len(t, samples, 4)
	assert.Equal(t, 3600.0, samples[3].Time)
	assert.Contains(t, samples[0].Values, "Core_ZN_QConSen_flow")
	assert.Contains(t, samples[0].Values, "TOut")
	assert.NotContains(t, samples[0].Values, "Core_ZN_AFlo", "locals are not outputs")
}

func TestSimulate_UnknownVariable_ReturnsError(t *testing.T) {
	inst := instantiate(t)

	_, err := Simulate(context.Background(), inst, SimulateConfig{StopTime: 600, Inputs: map[string]float64{"Nope": 1}})
	assert.ErrorContains(t, err, `unknown input "Nope"`)

	_, err = Simulate(context.Background(), inst, SimulateConfig{StopTime: 600, Outputs: []string{"Nope"}})
	assert.ErrorContains(t, err, `unknown output "Nope"`)
}

func TestSimulate_StopBeforeStart_ReturnsError(t *testing.T) {
	inst := instantiate(t)
	_, err := Simulate(context.Background(), inst, SimulateConfig{StartTime: 600, StopTime: 0})
	assert.Error(t, err)
}

func TestSimulate_CancelledContext_StopsEarly(t *testing.T) {
	inst := instantiate(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	samples, err := Simulate(ctx, inst, SimulateConfig{StopTime: 3600})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, samples, 1, "the start sample is taken before the loop")
}

func TestSimulate_PastRunPeriod_ReturnsCallError(t *testing.T) {
	// GIVEN a single step ending after the seven-day run period
	inst := instantiate(t)

	// WHEN simulating
	_, err := Simulate(context.Background(), inst, SimulateConfig{StopTime: 8 * 86400, StepSize: 8 * 86400})

	// THEN the failing call is named with its time and status
	var ce *CallError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, "fmi2SetTime", ce.Op)
	assert.Equal(t, 8.0*86400, ce.Time)
	assert.Equal(t, StatusError, ce.Status)
	assert.Contains(t, err.Error(), "returned Error")
}

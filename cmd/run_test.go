package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/NREL/Spawn-sub001/internal/testutil"
	"github.com/NREL/Spawn-sub001/spawn/trace"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	goleak.VerifyTestMain(m)
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]float64
		wantErr bool
	}{
		{"empty", nil, map[string]float64{}, false},
		{"two", []string{"Core_ZN_T=295.15", " LightsSched = 0.5 "}, map[string]float64{"Core_ZN_T": 295.15, "LightsSched": 0.5}, false},
		{"missing equals", []string{"Core_ZN_T"}, nil, true},
		{"missing name", []string{"=1"}, nil, true},
		{"not a number", []string{"Core_ZN_T=warm"}, nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseAssignments(tc.pairs)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTracePathFor(t *testing.T) {
	assert.Equal(t, "", tracePathFor("", "office", 2))
	assert.Equal(t, "run.cbor", tracePathFor("run.cbor", "office", 1))
	assert.Equal(t, "run.office-2.cbor", tracePathFor("run.cbor", "office-2", 2))
}

func TestRunSimulations_TwoInputs_ConcurrentAndOrdered(t *testing.T) {
	// GIVEN two copies of the reference building with the same FMU name
	first := testutil.WriteRefBuilding(t)
	second := testutil.WriteRefBuilding(t)
	tracePath := filepath.Join(t.TempDir(), "run.cbor")

	// WHEN both run for two zone timesteps with the zone held at 22 degC
	results, err := runSimulations(context.Background(), runOptions{
		Inputs:    []string{first, second},
		Sets:      map[string]float64{"Core_ZN_T": 295.15},
		Outputs:   []string{"Core_ZN_QConSen_flow"},
		Stop:      1200,
		Step:      600,
		TracePath: tracePath,
		Parallel:  2,
	})
	require.NoError(t, err)

	// THEN results come back in input order with unique instance names
	require.Len(t, results, 2)
	assert.Equal(t, first, results[0].Input)
	assert.Equal(t, "RefBldgSmallOffice", results[0].Instance)
	assert.Equal(t, "RefBldgSmallOffice-2", results[1].Instance)
	want := 10.76*149.66 + 2.0*149.66*10.0 - 2.0*149.66*22.0
	for _, r := range results {
		require.Len(t, r.Samples, 3)
		assert.InDelta(t, want, r.Samples[2].Values["Core_ZN_QConSen_flow"], 1e-6)
		require.NotNil(t, r.Trace)
		assert.Equal(t, 1200.0, r.Trace.FinalClock)
	}

	// AND each instance wrote its own trace file
	f, err := os.Open(filepath.Join(filepath.Dir(tracePath), "run.RefBldgSmallOffice-2.cbor"))
	require.NoError(t, err)
	defer f.Close()
	records, err := trace.ReadCBOR(f)
	require.NoError(t, err)
	assert.Len(t, records, 3, "start plus one record per step")
	assert.Equal(t, "RefBldgSmallOffice-2", records[0].Instance)
}

func TestRunSimulations_BadInput_ReturnsError(t *testing.T) {
	good := testutil.WriteRefBuilding(t)

	_, err := runSimulations(context.Background(), runOptions{Inputs: []string{good, filepath.Join(t.TempDir(), "missing.spawn")}, Stop: 600})
	assert.Error(t, err)

	_, err = runSimulations(context.Background(), runOptions{
		Inputs: []string{good},
		Sets:   map[string]float64{"NoSuchVariable": 1},
		Stop:   600,
	})
	assert.ErrorContains(t, err, "NoSuchVariable")
}

func TestWriteResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, []runResult{{Input: "a.spawn", Instance: "a"}}))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "a", decoded[0]["instance"])
	assert.NotContains(t, decoded[0], "trace", "trace summary omitted when not traced")
}

func TestWriteResultsFile_ClosedAndReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")

	require.NoError(t, writeResultsFile(path, []runResult{{Input: "a.spawn", Instance: "a"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []runResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "a", decoded[0].Instance)
}

func TestWriteResultsFile_MissingDirectory_ReturnsError(t *testing.T) {
	err := writeResultsFile(filepath.Join(t.TempDir(), "missing", "results.json"), nil)

	assert.ErrorContains(t, err, "creating results file")
}

// Package testutil provides shared test infrastructure for the spawn packages:
// a small reference building model, a matching spawn input document and a
// synthetic weather file, written into a test's temporary directory.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ModelFile is the file name of the reference building model.
const ModelFile = "RefBldgSmallOffice.epJSON"

// WeatherFile is the file name of the synthetic weather file.
const WeatherFile = "weather.epw"

// InputFile is the file name of the spawn input document.
const InputFile = "model.spawn"

// RefBuildingModel is a two-zone office with one lighting load on the core
// zone driven by a constant schedule.
const RefBuildingModel = `{
  "Version": {"Version 1": {"version_identifier": "9.6"}},
  "Timestep": {"Timestep 1": {"number_of_timesteps_per_hour": 6}},
  "RunPeriod": {
    "Run Period 1": {"begin_month": 1, "begin_day_of_month": 1, "end_month": 1, "end_day_of_month": 7}
  },
  "Zone": {
    "Core_ZN": {"volume": 456.46, "floor_area": 149.66, "multiplier": 1},
    "Perimeter_ZN_1": {"volume": 346.02, "floor_area": 113.45, "multiplier": 1}
  },
  "Schedule:Constant": {
    "Lights Sched": {"hourly_value": 1.0}
  },
  "Lights": {
    "Core_ZN Lights": {
      "zone_or_zonelist_or_space_or_spacelist_name": "Core_ZN",
      "schedule_name": "Lights Sched",
      "design_level_calculation_method": "Watts/Area",
      "watts_per_zone_floor_area": 10.76
    }
  },
  "Output:Variable": {
    "Output:Variable 1": {"key_value": "*", "variable_name": "Zone Mean Air Temperature", "reporting_frequency": "Timestep"}
  }
}
`

// RefBuildingInput exposes the core zone, one sensor, one actuator and one schedule.
const RefBuildingInput = `{
  "fmu": {"name": "RefBldgSmallOffice.fmu"},
  "EnergyPlus": {"idf": "RefBldgSmallOffice.epJSON", "weather": "weather.epw"},
  "model": {
    "zones": [{"name": "Core_ZN"}],
    "outputVariables": [
      {"name": "Zone Mean Air Temperature", "key": "Core_ZN", "fmiName": "Core_ZN_MAT"},
      {"name": "Site Outdoor Air Drybulb Temperature", "key": "Environment", "fmiName": "TOut"}
    ],
    "emsActuators": [
      {"variableName": "Core_ZN Lights", "componentType": "Lights", "controlType": "Electricity Rate", "fmiName": "Core_ZN_Lights"}
    ],
    "schedules": [{"name": "Lights Sched", "fmiName": "LightsSched"}]
  }
}
`

// Weather renders an EPW file with hours of constant dry-bulb temperature.
func Weather(hours int, dryBulb float64) string {
	var b strings.Builder
	b.WriteString("LOCATION,Chicago Ohare Intl Ap,IL,USA,TMY3,725300,41.98,-87.92,-6.0,201.0\n")
	b.WriteString("DESIGN CONDITIONS,0\n")
	b.WriteString("TYPICAL/EXTREME PERIODS,0\n")
	b.WriteString("GROUND TEMPERATURES,0\n")
	b.WriteString("HOLIDAYS/DAYLIGHT SAVINGS,No,0,0,0\n")
	b.WriteString("COMMENTS 1,synthetic\n")
	b.WriteString("COMMENTS 2,synthetic\n")
	b.WriteString("DATA PERIODS,1,1,Data,Sunday, 1/ 1,12/31\n")
	for h := 0; h < hours; h++ {
		day := h/24 + 1
		hour := h%24 + 1
		fmt.Fprintf(&b, "1991,1,%d,%d,0,?9?9?9?9E0?9?9?9?9?9?9?9?9?9?9?9?9?9?9?9*9*9?9?9?9,%.1f,-3.0,80,98900,0,0,280,0,0,0,0,0,0,0,270,4.1,10,10,16.1,1372,9,999999999,0,0.0,0,88,0.0,0.0,0.0\n",
			day, hour, dryBulb)
	}
	return b.String()
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// WriteRefBuilding writes the reference model, weather and input into a fresh
// temporary directory and returns the input path.
func WriteRefBuilding(t testing.TB) string {
	t.Helper()
	return WriteRefBuildingWithInput(t, RefBuildingInput)
}

// WriteRefBuildingWithInput is WriteRefBuilding with a custom input document.
func WriteRefBuildingWithInput(t testing.TB, spawnInput string) string {
	t.Helper()
	dir := t.TempDir()
	WriteFile(t, dir, ModelFile, RefBuildingModel)
	WriteFile(t, dir, WeatherFile, Weather(48, 10.0))
	return WriteFile(t, dir, InputFile, spawnInput)
}

// Package input loads the spawn input document that describes an FMU: which
// building model and weather file to run, and which zones, output variables,
// EMS actuators and schedules are exposed as FMI variables.
//
// The document is JSON (conventionally named model.spawn inside an FMU) but any
// YAML superset of it is accepted. Relative paths resolve against the
// directory of the document.
package input

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFMUName is used when the document does not name the FMU.
const DefaultFMUName = "spawn.fmu"

// DefaultEngine is the simulation kernel used when none is configured.
const DefaultEngine = "lumped"

// FMUSection names the generated FMU.
type FMUSection struct {
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// EnergyPlusSection locates the building model and weather file.
type EnergyPlusSection struct {
	IDF     string `yaml:"idf" json:"idf"`
	Weather string `yaml:"weather,omitempty" json:"weather,omitempty"`
	Engine  string `yaml:"engine,omitempty" json:"engine,omitempty"` // kernel registry name; default "lumped"
}

// ZoneSpec selects a model zone whose variables are exposed.
type ZoneSpec struct {
	Name string `yaml:"name" json:"name"`
}

// OutputVariableSpec exposes an engine output variable as an FMI output.
type OutputVariableSpec struct {
	Name    string `yaml:"name" json:"name"`
	Key     string `yaml:"key" json:"key"`
	FMIName string `yaml:"fmiName" json:"fmiName"`
}

// EMSActuatorSpec exposes an engine actuator as an FMI input.
type EMSActuatorSpec struct {
	VariableName  string `yaml:"variableName" json:"variableName"`
	ComponentType string `yaml:"componentType" json:"componentType"`
	ControlType   string `yaml:"controlType" json:"controlType"`
	FMIName       string `yaml:"fmiName" json:"fmiName"`
	Unit          string `yaml:"unit,omitempty" json:"unit,omitempty"`
}

// ScheduleSpec exposes a model schedule as an FMI input.
type ScheduleSpec struct {
	Name    string `yaml:"name" json:"name"`
	FMIName string `yaml:"fmiName" json:"fmiName"`
}

// ModelSection lists the variables of interest.
type ModelSection struct {
	Zones           []ZoneSpec           `yaml:"zones,omitempty" json:"zones,omitempty"`
	OutputVariables []OutputVariableSpec `yaml:"outputVariables,omitempty" json:"outputVariables,omitempty"`
	EMSActuators    []EMSActuatorSpec    `yaml:"emsActuators,omitempty" json:"emsActuators,omitempty"`
	Schedules       []ScheduleSpec       `yaml:"schedules,omitempty" json:"schedules,omitempty"`
}

// Input is a parsed spawn input document.
type Input struct {
	FMU        FMUSection        `yaml:"fmu" json:"fmu"`
	EnergyPlus EnergyPlusSection `yaml:"EnergyPlus" json:"EnergyPlus"`
	Model      ModelSection      `yaml:"model" json:"model"`
	StartTime  float64           `yaml:"startTime,omitempty" json:"startTime,omitempty"`

	basePath string
	model    *Model
}

// Load reads a spawn input document from disk.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func Load(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spawn input: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving spawn input path: %w", err)
	}
	return Parse(data, filepath.Dir(abs))
}

// Parse decodes a spawn input document. basePath anchors relative paths.
func Parse(data []byte, basePath string) (*Input, error) {
	var in Input
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&in); err != nil {
		return nil, fmt.Errorf("parsing spawn input: %w", err)
	}
	in.basePath = basePath
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &in, nil
}

// Validate checks the fields every input must carry. Per-entry checks on the
// model section happen when the variable registry is built.
func (in *Input) Validate() error {
	if in.EnergyPlus.IDF == "" {
		return fmt.Errorf("EnergyPlus.idf is required")
	}
	if strings.EqualFold(filepath.Ext(in.EnergyPlus.IDF), ".idf") {
		return fmt.Errorf("EnergyPlus.idf %q: text IDF models are not supported, convert to epJSON", in.EnergyPlus.IDF)
	}
	return nil
}

// BasePath is the directory relative paths are resolved against.
func (in *Input) BasePath() string {
	return in.basePath
}

// FMUName returns the configured FMU file name or DefaultFMUName.
func (in *Input) FMUName() string {
	if in.FMU.Name == "" {
		return DefaultFMUName
	}
	return in.FMU.Name
}

// FMUBaseName is the FMU name without directory and extension.
func (in *Input) FMUBaseName() string {
	base := filepath.Base(in.FMUName())
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// EngineName returns the configured kernel name or DefaultEngine.
func (in *Input) EngineName() string {
	if in.EnergyPlus.Engine == "" {
		return DefaultEngine
	}
	return in.EnergyPlus.Engine
}

func (in *Input) toPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(in.basePath, p)
}

// ModelPath is the absolute path of the building model (epJSON).
func (in *Input) ModelPath() string {
	return in.toPath(in.EnergyPlus.IDF)
}

// WeatherPath is the absolute path of the weather file, or "" when none is set.
func (in *Input) WeatherPath() string {
	return in.toPath(in.EnergyPlus.Weather)
}

// SetModelPath replaces the building model path, as done when staging an FMU.
func (in *Input) SetModelPath(p string) {
	in.EnergyPlus.IDF = p
	in.model = nil
}

// SetWeatherPath replaces the weather file path.
func (in *Input) SetWeatherPath(p string) {
	in.EnergyPlus.Weather = p
}

// BuildingModel loads the building model on first use and caches it.
func (in *Input) BuildingModel() (*Model, error) {
	if in.model != nil {
		return in.model, nil
	}
	m, err := LoadModel(in.ModelPath())
	if err != nil {
		return nil, err
	}
	in.model = m
	return m, nil
}

// SetBuildingModel installs an already-parsed building model.
func (in *Input) SetBuildingModel(m *Model) {
	in.model = m
}

// Save writes the document as indented JSON.
func (in *Input) Save(path string) error {
	data, err := json.MarshalIndent(in, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding spawn input: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing spawn input: %w", err)
	}
	return nil
}

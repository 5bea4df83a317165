// Package fmu describes a spawn input as an FMI 2.0 model-exchange FMU and
// packages it: model description, resources and the shared library.
package fmu

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/NREL/Spawn-sub001/spawn/fmi"
	"github.com/NREL/Spawn-sub001/spawn/input"
	"github.com/NREL/Spawn-sub001/spawn/units"
	"github.com/NREL/Spawn-sub001/spawn/variables"
)

// ModelIdentifier is the model identifier and the base name of the shared
// library inside the FMU.
const ModelIdentifier = "epfmi"

// ModelDescription is modelDescription.xml.
type ModelDescription struct {
	XMLName         xml.Name         `xml:"fmiModelDescription"`
	FMIVersion      string           `xml:"fmiVersion,attr"`
	ModelName       string           `xml:"modelName,attr"`
	GUID            string           `xml:"guid,attr"`
	GenerationTool  string           `xml:"generationTool,attr,omitempty"`
	ModelExchange   ModelExchange    `xml:"ModelExchange"`
	UnitDefinitions []UnitDefinition `xml:"UnitDefinitions>Unit"`
	LogCategories   []Category       `xml:"LogCategories>Category"`
	ModelVariables  []ScalarVariable `xml:"ModelVariables>ScalarVariable"`
	ModelStructure  ModelStructure   `xml:"ModelStructure"`
}

type ModelExchange struct {
	ModelIdentifier                     string `xml:"modelIdentifier,attr"`
	NeedsExecutionTool                  bool   `xml:"needsExecutionTool,attr"`
	CompletedIntegratorStepNotNeeded    bool   `xml:"completedIntegratorStepNotNeeded,attr"`
	CanBeInstantiatedOnlyOncePerProcess bool   `xml:"canBeInstantiatedOnlyOncePerProcess,attr"`
	CanNotUseMemoryManagementFunctions  bool   `xml:"canNotUseMemoryManagementFunctions,attr"`
	CanGetAndSetFMUstate                bool   `xml:"canGetAndSetFMUstate,attr"`
	CanSerializeFMUstate                bool   `xml:"canSerializeFMUstate,attr"`
	ProvidesDirectionalDerivative       bool   `xml:"providesDirectionalDerivative,attr"`
}

type UnitDefinition struct {
	Name         string        `xml:"name,attr"`
	BaseUnit     *BaseUnit     `xml:"BaseUnit"`
	DisplayUnits []DisplayUnit `xml:"DisplayUnit"`
}

// BaseUnit holds the SI exponents of a unit.
type BaseUnit struct {
	Kg  int `xml:"kg,attr,omitempty"`
	M   int `xml:"m,attr,omitempty"`
	S   int `xml:"s,attr,omitempty"`
	K   int `xml:"K,attr,omitempty"`
	Cd  int `xml:"cd,attr,omitempty"`
	Rad int `xml:"rad,attr,omitempty"`
}

type DisplayUnit struct {
	Name   string  `xml:"name,attr"`
	Factor float64 `xml:"factor,attr,omitempty"`
	Offset float64 `xml:"offset,attr,omitempty"`
}

type Category struct {
	Name        string `xml:"name,attr"`
	Description string `xml:"description,attr"`
}

type ScalarVariable struct {
	Name           string `xml:"name,attr"`
	ValueReference uint32 `xml:"valueReference,attr"`
	Description    string `xml:"description,attr,omitempty"`
	Causality      string `xml:"causality,attr"`
	Variability    string `xml:"variability,attr"`
	Initial        string `xml:"initial,attr,omitempty"`
	Real           Real   `xml:"Real"`
}

type Real struct {
	Quantity         string   `xml:"quantity,attr,omitempty"`
	RelativeQuantity bool     `xml:"relativeQuantity,attr"`
	Unit             string   `xml:"unit,attr,omitempty"`
	Min              *float64 `xml:"min,attr,omitempty"`
	Start            *float64 `xml:"start,attr,omitempty"`
}

type ModelStructure struct {
	Outputs []Unknown `xml:"Outputs>Unknown"`
}

// Unknown refers to a ScalarVariable by its 1-based position.
type Unknown struct {
	Index int `xml:"index,attr"`
}

// unitTable is the fixed list of unit definitions, in declaration order.
var unitTable = []UnitDefinition{
	{Name: string(units.One)},
	{Name: string(units.Rad), BaseUnit: &BaseUnit{}, DisplayUnits: []DisplayUnit{
		{Name: string(units.Rad)},
		{Name: string(units.Deg), Factor: 57.29577951308232},
	}},
	{Name: string(units.J), BaseUnit: &BaseUnit{Kg: 1, M: 2, S: -2}},
	{Name: string(units.LmPerM2), BaseUnit: &BaseUnit{Cd: 1, M: -2}, DisplayUnits: []DisplayUnit{
		{Name: string(units.LmPerM2)},
		{Name: string(units.Lux)},
	}},
	{Name: string(units.CdSr), BaseUnit: &BaseUnit{Cd: 1}, DisplayUnits: []DisplayUnit{
		{Name: string(units.CdSr)},
		{Name: string(units.Lm)},
	}},
	{Name: string(units.KgPerS), BaseUnit: &BaseUnit{Kg: 1, S: -1}},
	{Name: string(units.W), BaseUnit: &BaseUnit{Kg: 1, M: 2, S: -3}},
	{Name: string(units.WPerM2), BaseUnit: &BaseUnit{Kg: 1, S: -3}},
	{Name: string(units.Pa), BaseUnit: &BaseUnit{Kg: 1, M: -1, S: -2}},
	{Name: string(units.K), BaseUnit: &BaseUnit{K: 1}, DisplayUnits: []DisplayUnit{
		{Name: string(units.K)},
		{Name: string(units.C), Offset: -273.15},
	}},
	{Name: string(units.S), BaseUnit: &BaseUnit{S: 1}},
	{Name: string(units.M3PerS), BaseUnit: &BaseUnit{M: 3, S: -1}},
	{Name: string(units.M2), BaseUnit: &BaseUnit{M: 2}},
	{Name: string(units.M3), BaseUnit: &BaseUnit{M: 3}},
}

// unitDefinitions returns the fixed table followed by any other unit used by
// a variable.
func unitDefinitions(reg *variables.Registry) []UnitDefinition {
	defs := append([]UnitDefinition(nil), unitTable...)
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		seen[d.Name] = true
	}
	for _, v := range reg.All() {
		if name := string(v.FMIUnit); !seen[name] {
			seen[name] = true
			defs = append(defs, UnitDefinition{Name: name})
		}
	}
	return defs
}

// Describe builds the model description of the variables in reg.
func Describe(modelName, guid string, reg *variables.Registry) *ModelDescription {
	md := &ModelDescription{
		FMIVersion:     fmi.Version,
		ModelName:      modelName,
		GUID:           guid,
		GenerationTool: "spawn",
		ModelExchange: ModelExchange{
			ModelIdentifier:                     ModelIdentifier,
			CanBeInstantiatedOnlyOncePerProcess: true,
		},
		UnitDefinitions: unitDefinitions(reg),
	}
	for _, name := range fmi.Categories {
		md.LogCategories = append(md.LogCategories, Category{Name: name, Description: fmi.CategoryDescriptions[name]})
	}
	for k, v := range reg.All() {
		sv := ScalarVariable{
			Name:           v.Name,
			ValueReference: v.ValueRef,
			Description:    v.Attrs.Description,
			Causality:      v.Attrs.Causality,
			Variability:    v.Attrs.Variability,
			Initial:        v.Attrs.Initial,
			Real: Real{
				Quantity:         v.Attrs.Quantity,
				RelativeQuantity: v.Attrs.RelativeQuantity,
				Unit:             string(v.FMIUnit),
			},
		}
		if v.Attrs.Min != nil {
			minimum := *v.Attrs.Min
			sv.Real.Min = &minimum
		}
		if v.Attrs.Causality != "output" && v.Attrs.Start != nil {
			start := *v.Attrs.Start
			sv.Real.Start = &start
		}
		md.ModelVariables = append(md.ModelVariables, sv)
		if v.Attrs.Causality == "output" {
			md.ModelStructure.Outputs = append(md.ModelStructure.Outputs, Unknown{Index: k + 1})
		}
	}
	return md
}

// GUID derives a stable GUID from the input document and the building model
// it names, so rebuilding an unchanged FMU keeps its GUID.
func GUID(in *input.Input) (string, error) {
	doc, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encoding spawn input: %w", err)
	}
	model, err := os.ReadFile(in.ModelPath())
	if err != nil {
		return "", fmt.Errorf("reading building model: %w", err)
	}
	data := append(doc, model...)
	return "{" + uuid.NewSHA1(uuid.NameSpaceOID, data).String() + "}", nil
}

// ForInput builds the registry of in and describes it.
func ForInput(in *input.Input) (*ModelDescription, error) {
	reg, err := variables.Build(in)
	if err != nil {
		return nil, err
	}
	guid, err := GUID(in)
	if err != nil {
		return nil, err
	}
	return Describe(in.FMUBaseName(), guid, reg), nil
}

// Write encodes md as indented XML with a header.
func (md *ModelDescription) Write(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(md); err != nil {
		return fmt.Errorf("encoding model description: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// ReadModelDescription decodes modelDescription.xml.
func ReadModelDescription(r io.Reader) (*ModelDescription, error) {
	var md ModelDescription
	if err := xml.NewDecoder(r).Decode(&md); err != nil {
		return nil, fmt.Errorf("decoding model description: %w", err)
	}
	return &md, nil
}

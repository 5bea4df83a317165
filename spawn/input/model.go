package input

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fields holds the attributes of one model object.
type Fields map[string]any

// Model is a building model in epJSON layout: object type -> object name -> fields.
type Model struct {
	objects map[string]map[string]Fields
}

// ScheduleTypes lists the schedule object types a schedule variable may refer to.
var ScheduleTypes = []string{
	"Schedule:Year",
	"Schedule:Compact",
	"Schedule:File",
	"Schedule:Constant",
}

// LoadModel reads an epJSON building model.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading building model: %w", err)
	}
	return ParseModel(data)
}

// ParseModel decodes epJSON data.
func ParseModel(data []byte) (*Model, error) {
	var objects map[string]map[string]Fields
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&objects); err != nil {
		return nil, fmt.Errorf("parsing building model: %w", err)
	}
	if objects == nil {
		objects = make(map[string]map[string]Fields)
	}
	return &Model{objects: objects}, nil
}

// NewModel builds an in-memory model, mostly for tests and tools.
func NewModel() *Model {
	return &Model{objects: make(map[string]map[string]Fields)}
}

// Add inserts or replaces an object.
func (m *Model) Add(objType, name string, fields Fields) {
	byName, ok := m.objects[objType]
	if !ok {
		byName = make(map[string]Fields)
		m.objects[objType] = byName
	}
	if fields == nil {
		fields = Fields{}
	}
	byName[name] = fields
}

// Names returns the object names of a type, sorted.
func (m *Model) Names(objType string) []string {
	byName := m.objects[objType]
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Object returns an object by exact type and case-insensitive name.
// The canonical name as stored in the model is returned with it.
func (m *Model) Object(objType, name string) (string, Fields, bool) {
	byName := m.objects[objType]
	if f, ok := byName[name]; ok {
		return name, f, true
	}
	for n, f := range byName {
		if strings.EqualFold(n, name) {
			return n, f, true
		}
	}
	return "", nil, false
}

// ScheduleType returns the object type of the named schedule, or "" if no
// supported schedule of that name exists.
func (m *Model) ScheduleType(name string) string {
	for _, t := range ScheduleTypes {
		if _, _, ok := m.Object(t, name); ok {
			return t
		}
	}
	return ""
}

// Number returns a numeric field, or def when absent or not numeric
// ("autocalculate" and friends).
func (f Fields) Number(field string, def float64) float64 {
	v, ok := f[field]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

// String returns a string field, or "" when absent.
func (f Fields) String(field string) string {
	if s, ok := f[field].(string); ok {
		return s
	}
	return ""
}

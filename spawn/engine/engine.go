// Package engine defines the contract between the spawn runtime bridge and a
// building simulation kernel.
//
// A Kernel runs a whole simulation on the calling goroutine and invokes the
// hooks registered for a CallPoint at fixed points of its time loop. During a
// hook the bridge reads and writes kernel state through State; outside a hook
// the kernel owns its state exclusively.
//
// Kernels register themselves by name through init() functions, the way
// sim/latency registers its latency models:
//
//	func init() { engine.Register("lumped", New) }
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/NREL/Spawn-sub001/spawn/input"
)

// CallPoint names a point in the kernel's time loop where hooks run.
type CallPoint int

const (
	// CallExternalHVACManager runs once per zone timestep, at the start of the
	// step, after the kernel has advanced its clock.
	CallExternalHVACManager CallPoint = iota
)

func (p CallPoint) String() string {
	switch p {
	case CallExternalHVACManager:
		return "ExternalHVACManager"
	}
	return fmt.Sprintf("CallPoint(%d)", int(p))
}

// Hook is invoked by the kernel at a CallPoint.
type Hook func(State)

// ZoneSums are the heat balance sums of one zone, in W and W/K.
type ZoneSums struct {
	SumIntGain float64 // convective internal gains
	SumHA      float64 // sum of Hc*Area over zone surfaces
	SumHATsurf float64 // sum of Hc*Area*Tsurf over zone surfaces
}

// TempDepCoef is the coefficient of the zone air temperature in the zone heat balance.
func (s ZoneSums) TempDepCoef() float64 { return s.SumHA }

// TempIndCoef is the part of the zone heat balance independent of the zone air temperature.
func (s ZoneSums) TempIndCoef() float64 { return s.SumIntGain + s.SumHATsurf }

// State is the kernel data visible to a hook. Zone indices are 1-based and
// 0 means "not found", matching the kernel's own conventions. Handles are
// -1 when not found.
type State interface {
	// Phase flags.
	KickOffSimulation() bool
	DoingSizing() bool
	Warmup() bool
	BeginEnvironment() bool

	// CurrentTime is the start of the current zone timestep, in seconds.
	CurrentTime() float64
	// TimeStepZone is the zone timestep length, in seconds.
	TimeStepZone() float64

	NumZones() int
	ZoneName(i int) string // upper-case
	ZoneVolume(i int) float64
	ZoneFloorArea(i int) float64
	ZoneVolCapMultpSens(i int) float64
	ZoneTemperature(i int) float64 // mean air temperature, degC
	SetZoneTemperature(i int, degC float64)
	ReleaseZoneTemperature(i int)
	ZoneSums(i int) ZoneSums

	// Recompute derived quantities after inputs were written.
	ReportZoneMeanAirTemp()
	InitInternalHeatGains()

	VariableHandle(name, key string) int
	VariableValue(handle int) float64

	ActuatorHandle(componentType, controlType, key string) int
	SetActuatorValue(handle int, value float64)
	ResetActuator(handle int)
}

// Severity classifies kernel messages.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeveritySevere
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeveritySevere:
		return "severe"
	case SeverityFatal:
		return "fatal"
	}
	return "unknown"
}

// MessageFunc receives kernel messages on the simulation goroutine.
type MessageFunc func(Severity, string)

// RunConfig is what a kernel needs to run a simulation.
type RunConfig struct {
	Model       *input.Model
	WeatherPath string // may be empty
	OutputDir   string
	Messages    MessageFunc // may be nil
}

// Kernel is a building simulation engine.
type Kernel interface {
	// RegisterHook adds a hook; it must be called before Run.
	RegisterHook(point CallPoint, hook Hook) error
	// Run blocks until the simulation finishes, Stop is called, ctx is
	// cancelled, or a fatal error occurs.
	Run(ctx context.Context, cfg RunConfig) error
	// Stop asks a running simulation to unwind at the next opportunity.
	// It is safe to call from any goroutine.
	Stop()
}

// ErrFatal is matched by errors.Is for every fatal kernel error.
var ErrFatal = errors.New("fatal engine error")

// FatalError is a kernel failure that ends the simulation.
type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string {
	return "fatal engine error: " + e.Msg
}

func (e *FatalError) Is(target error) bool {
	return target == ErrFatal
}

// ErrUnknownKernel is returned by New for an unregistered name.
var ErrUnknownKernel = errors.New("unknown engine kernel")

// Factory creates a fresh kernel.
type Factory func() Kernel

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a kernel available by name. It panics on duplicates, since
// registration happens in init().
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("engine: kernel %q registered twice", name))
	}
	registry[name] = f
}

// New creates a kernel by registered name.
func New(name string) (Kernel, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q; registered: %v", ErrUnknownKernel, name, Names())
	}
	return f(), nil
}

// Names lists registered kernels, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

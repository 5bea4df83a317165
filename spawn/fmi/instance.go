package fmi

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NREL/Spawn-sub001/spawn"
	"github.com/NREL/Spawn-sub001/spawn/engine"
	"github.com/NREL/Spawn-sub001/spawn/input"
	"github.com/NREL/Spawn-sub001/spawn/trace"
)

// InputFile is the name of the spawn input inside the FMU resources.
const InputFile = "model.spawn"

// WorkingDir is the name of the kernel output directory, next to resources.
const WorkingDir = "eplusout"

type config struct {
	logFn     LogFunc
	loggingOn bool
	kernel    engine.Factory
	timeout   time.Duration
	trace     *trace.ExchangeTrace
}

// Option configures an Instance.
type Option func(*config)

// WithLogFunc sets the master's logger callback. Logging starts enabled when
// on is true and can be changed with SetDebugLogging.
func WithLogFunc(fn LogFunc, on bool) Option {
	return func(c *config) {
		c.logFn = fn
		c.loggingOn = on
	}
}

// WithKernelFactory creates kernels with f instead of by the engine name of
// the input. A new kernel is created on Reset.
func WithKernelFactory(f engine.Factory) Option {
	return func(c *config) { c.kernel = f }
}

// WithTimeout bounds every wait for the simulation.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithTrace records the exchanges of the instance.
func WithTrace(tr *trace.ExchangeTrace) Option {
	return func(c *config) { c.trace = tr }
}

// EventInfo is the fmi2EventInfo filled by NewDiscreteStates.
type EventInfo struct {
	NewDiscreteStatesNeeded           bool
	TerminateSimulation               bool
	NominalsOfContinuousStatesChanged bool
	ValuesOfContinuousStatesChanged   bool
	NextEventTimeDefined              bool
	NextEventTime                     float64
}

// Instance is one fmi2Component.
type Instance struct {
	name       string
	guid       string
	in         *input.Input
	workingDir string
	cfg        config

	log  *logrus.Entry
	hook *loggerHook

	comp      *spawn.Spawn
	startTime *float64
	freed     bool
}

// ResourcePath turns the resource location passed to fmi2Instantiate into a
// directory. Plain paths are returned unchanged.
func ResourcePath(location string) (string, error) {
	if !strings.HasPrefix(location, "file:") {
		return location, nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parsing resource location: %w", err)
	}
	p := u.Path
	// file:///C:/fmu/resources
	if runtime.GOOS == "windows" && len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p), nil
}

// Instantiate implements fmi2Instantiate: it loads resources/model.spawn and
// prepares a component whose kernel writes to <fmu>/eplusout.
func Instantiate(name, guid, resourceLocation string, opts ...Option) (*Instance, error) {
	resources, err := ResourcePath(resourceLocation)
	if err != nil {
		return nil, err
	}
	in, err := input.Load(filepath.Join(resources, InputFile))
	if err != nil {
		return nil, err
	}
	return NewInstance(name, guid, in, filepath.Join(filepath.Dir(resources), WorkingDir), opts...)
}

// NewInstance creates an instance for an input that is already loaded.
func NewInstance(name, guid string, in *input.Input, workingDir string, opts ...Option) (*Instance, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	if name == "" {
		name = in.FMUBaseName()
	}
	i := &Instance{
		name:       name,
		guid:       guid,
		in:         in,
		workingDir: workingDir,
		cfg:        cfg,
	}
	logger, hook := newInstanceLogger(name, cfg.logFn, cfg.loggingOn)
	i.log = logger.WithField("instance", name)
	i.hook = hook
	if err := i.newComponent(); err != nil {
		return nil, err
	}
	i.log.Debugf("instantiated %s (guid %s) with %d variables", name, guid, i.comp.Registry().Len())
	return i, nil
}

func (i *Instance) newComponent() error {
	opts := []spawn.Option{
		spawn.WithName(i.name),
		spawn.WithLogger(i.log),
		spawn.WithWorkingDir(i.workingDir),
		spawn.WithTimeout(i.cfg.timeout),
	}
	if i.cfg.kernel != nil {
		opts = append(opts, spawn.WithKernel(i.cfg.kernel()))
	}
	if i.cfg.trace != nil {
		opts = append(opts, spawn.WithTrace(i.cfg.trace))
	}
	if i.startTime != nil {
		opts = append(opts, spawn.WithStartTime(*i.startTime))
	}
	comp, err := spawn.New(i.in, opts...)
	if err != nil {
		return err
	}
	i.comp = comp
	return nil
}

// Name returns the instance name.
func (i *Instance) Name() string { return i.name }

// GUID returns the GUID the instance was created with.
func (i *Instance) GUID() string { return i.guid }

// Component returns the underlying component.
func (i *Instance) Component() *spawn.Spawn { return i.comp }

func (i *Instance) fail(op string, err error) Status {
	st := StatusOf(err)
	i.log.WithField("status", st.String()).Errorf("%s: %v", op, err)
	return st
}

func (i *Instance) notImplemented(op string) Status {
	i.log.Errorf("%s is not implemented", op)
	return StatusError
}

// SetDebugLogging implements fmi2SetDebugLogging.
func (i *Instance) SetDebugLogging(on bool, categories []string) Status {
	if i.hook != nil {
		i.hook.configure(on, categories)
	}
	return StatusOK
}

// SetupExperiment implements fmi2SetupExperiment; only the start time is used.
func (i *Instance) SetupExperiment(toleranceDefined bool, tolerance, startTime float64, stopTimeDefined bool, stopTime float64) Status {
	i.startTime = &startTime
	if err := i.comp.SetStartTime(startTime); err != nil {
		return i.fail("fmi2SetupExperiment", err)
	}
	return StatusOK
}

// EnterInitializationMode implements fmi2EnterInitializationMode.
func (i *Instance) EnterInitializationMode() Status { return StatusOK }

// ExitInitializationMode starts the simulation and runs it to the start time.
func (i *Instance) ExitInitializationMode() Status {
	if err := i.comp.Start(context.Background()); err != nil {
		return i.fail("fmi2ExitInitializationMode", err)
	}
	return StatusOK
}

// SetTime implements fmi2SetTime.
func (i *Instance) SetTime(t float64) Status {
	if err := i.comp.SetTime(context.Background(), t); err != nil {
		return i.fail("fmi2SetTime", err)
	}
	return StatusOK
}

// SetReal implements fmi2SetReal. Values reach the engine at the next
// SetTime.
func (i *Instance) SetReal(refs []uint32, values []float64) Status {
	if len(refs) != len(values) {
		return i.fail("fmi2SetReal", fmt.Errorf("%d value references for %d values", len(refs), len(values)))
	}
	status := StatusOK
	for k, ref := range refs {
		if err := i.comp.SetValue(ref, values[k]); err != nil {
			status = i.fail("fmi2SetReal", err)
		}
	}
	return status
}

// GetReal implements fmi2GetReal. A reference that is unknown or has no
// value yet makes the call fail; the other values are still filled in.
func (i *Instance) GetReal(refs []uint32, values []float64) Status {
	if len(refs) != len(values) {
		return i.fail("fmi2GetReal", fmt.Errorf("%d value references for %d values", len(refs), len(values)))
	}
	status := StatusOK
	for k, ref := range refs {
		v, ok := i.comp.GetValue(ref)
		if !ok {
			i.log.Errorf("fmi2GetReal: no value for value reference %d", ref)
			status = StatusError
			continue
		}
		values[k] = v
	}
	return status
}

// NewDiscreteStates reports the next zone timestep boundary as the next
// time event.
func (i *Instance) NewDiscreteStates() (EventInfo, Status) {
	return EventInfo{
		NextEventTimeDefined: true,
		NextEventTime:        i.comp.NextEventTime(),
	}, StatusOK
}

// CompletedIntegratorStep never requests an event or termination.
func (i *Instance) CompletedIntegratorStep(noSetFMUStatePriorToCurrentPoint bool) (enterEventMode, terminate bool, status Status) {
	return false, false, StatusOK
}

// EnterEventMode implements fmi2EnterEventMode.
func (i *Instance) EnterEventMode() Status { return StatusOK }

// EnterContinuousTimeMode implements fmi2EnterContinuousTimeMode.
func (i *Instance) EnterContinuousTimeMode() Status { return StatusOK }

// Terminate stops the simulation.
func (i *Instance) Terminate() Status {
	if err := i.comp.Stop(context.Background()); err != nil {
		return i.fail("fmi2Terminate", err)
	}
	return StatusOK
}

// Reset stops the simulation and creates a fresh component from the same
// input, ready for a new experiment.
func (i *Instance) Reset() Status {
	if err := i.comp.Stop(context.Background()); err != nil {
		i.log.Warnf("fmi2Reset: stopping previous simulation: %v", err)
	}
	if err := i.newComponent(); err != nil {
		return i.fail("fmi2Reset", err)
	}
	return StatusOK
}

// Free implements fmi2FreeInstance. A running simulation is stopped.
func (i *Instance) Free() {
	if i.freed {
		return
	}
	i.freed = true
	if err := i.comp.Stop(context.Background()); err != nil {
		i.log.Warnf("fmi2FreeInstance: %v", err)
	}
}

// The model has no continuous states and no event indicators: the
// continuous-state calls succeed only for empty arrays.
func (i *Instance) noStates(op string, n int) Status {
	if n == 0 {
		return StatusOK
	}
	i.log.Errorf("%s: the model has no continuous states", op)
	return StatusError
}

func (i *Instance) SetContinuousStates(x []float64) Status {
	return i.noStates("fmi2SetContinuousStates", len(x))
}

func (i *Instance) GetContinuousStates(x []float64) Status {
	return i.noStates("fmi2GetContinuousStates", len(x))
}

func (i *Instance) GetDerivatives(dx []float64) Status {
	return i.noStates("fmi2GetDerivatives", len(dx))
}

func (i *Instance) GetEventIndicators(z []float64) Status {
	return i.noStates("fmi2GetEventIndicators", len(z))
}

func (i *Instance) GetNominalsOfContinuousStates(x []float64) Status {
	return i.noStates("fmi2GetNominalsOfContinuousStates", len(x))
}

func (i *Instance) GetInteger([]uint32, []int32) Status { return i.notImplemented("fmi2GetInteger") }
func (i *Instance) SetInteger([]uint32, []int32) Status { return i.notImplemented("fmi2SetInteger") }
func (i *Instance) GetBoolean([]uint32, []bool) Status  { return i.notImplemented("fmi2GetBoolean") }
func (i *Instance) SetBoolean([]uint32, []bool) Status  { return i.notImplemented("fmi2SetBoolean") }
func (i *Instance) GetString([]uint32, []string) Status { return i.notImplemented("fmi2GetString") }
func (i *Instance) SetString([]uint32, []string) Status { return i.notImplemented("fmi2SetString") }

func (i *Instance) GetFMUState() Status  { return i.notImplemented("fmi2GetFMUstate") }
func (i *Instance) SetFMUState() Status  { return i.notImplemented("fmi2SetFMUstate") }
func (i *Instance) FreeFMUState() Status { return i.notImplemented("fmi2FreeFMUstate") }

func (i *Instance) GetDirectionalDerivative() Status {
	return i.notImplemented("fmi2GetDirectionalDerivative")
}

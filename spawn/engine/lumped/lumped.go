// Package lumped is a reference building kernel: every zone is a single air
// node coupled to the outdoors through a conductance and heated by scheduled
// internal gains. It follows the same time loop as a full engine (kickoff,
// warmup days, run period) so the runtime bridge can be exercised end to end.
package lumped

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NREL/Spawn-sub001/spawn/engine"
	"github.com/NREL/Spawn-sub001/spawn/input"
)

// Name is the registry name of this kernel.
const Name = "lumped"

const (
	defaultStepsPerHour = 6
	defaultWarmupDays   = 2
	defaultRunDays      = 365
	defaultOutdoorTemp  = 20.0 // degC, used without a weather file
	defaultInitialTemp  = 20.0
	defaultConductance  = 2.0 // W/m2.K
)

func init() {
	engine.Register(Name, func() engine.Kernel { return New() })
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithWarmupDays sets the number of warmup days run before the run period.
func WithWarmupDays(n int) Option {
	return func(k *Kernel) { k.warmupDays = n }
}

// WithOutdoorTemperature sets the outdoor temperature used when no weather file is given.
func WithOutdoorTemperature(degC float64) Option {
	return func(k *Kernel) { k.outdoorTemp = degC }
}

// WithInitialTemperature sets the zone air temperature at kickoff.
func WithInitialTemperature(degC float64) Option {
	return func(k *Kernel) { k.initialTemp = degC }
}

// WithConductance sets the envelope conductance per unit floor area.
func WithConductance(wPerM2K float64) Option {
	return func(k *Kernel) { k.conductance = wPerM2K }
}

// Kernel implements engine.Kernel. A stopped kernel cannot be run again.
type Kernel struct {
	warmupDays  int
	outdoorTemp float64
	initialTemp float64
	conductance float64

	hooks    []engine.Hook
	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

var _ engine.Kernel = (*Kernel)(nil)

// New creates a kernel with default settings.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		warmupDays:  defaultWarmupDays,
		outdoorTemp: defaultOutdoorTemp,
		initialTemp: defaultInitialTemp,
		conductance: defaultConductance,
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// RegisterHook adds a hook at the given call point.
func (k *Kernel) RegisterHook(point engine.CallPoint, hook engine.Hook) error {
	if point != engine.CallExternalHVACManager {
		return fmt.Errorf("lumped kernel does not support call point %v", point)
	}
	if k.running.Load() {
		return fmt.Errorf("cannot register hooks while running")
	}
	k.hooks = append(k.hooks, hook)
	return nil
}

// Stop makes Run return after the current hook returns.
func (k *Kernel) Stop() {
	k.stopOnce.Do(func() { close(k.stop) })
}

// Run simulates the warmup days and the run period of cfg.Model.
func (k *Kernel) Run(ctx context.Context, cfg engine.RunConfig) error {
	if !k.running.CompareAndSwap(false, true) {
		return fmt.Errorf("lumped kernel is already running")
	}
	defer k.running.Store(false)

	emit := func(sev engine.Severity, format string, args ...any) {
		if cfg.Messages != nil {
			cfg.Messages(sev, fmt.Sprintf(format, args...))
		}
	}

	if cfg.Model == nil {
		return &engine.FatalError{Msg: "no building model"}
	}
	w := &weather{constant: k.outdoorTemp}
	if cfg.WeatherPath != "" {
		loaded, err := loadEPW(cfg.WeatherPath)
		if err != nil {
			return &engine.FatalError{Msg: err.Error()}
		}
		w = loaded
	}
	st, err := newState(cfg.Model, w, k.conductance, k.initialTemp, cfg.Messages)
	if err != nil {
		return err
	}
	stepsPerHour := timestepsPerHour(cfg.Model)
	st.dt = 3600.0 / float64(stepsPerHour)
	days, startDay := runPeriod(cfg.Model)
	st.yearOffset = float64(startDay) * 86400

	emit(engine.SeverityInfo, "Initializing Simulation")
	st.kickoff = true
	k.callHooks(st)
	st.kickoff = false
	if done, err := k.stopped(ctx); done {
		return err
	}

	stepsPerDay := 24 * stepsPerHour
	for d := 0; d < k.warmupDays; d++ {
		emit(engine.SeverityInfo, "Warming up {%d}", d+1)
		st.warmup = true
		for i := 0; i < stepsPerDay; i++ {
			st.beginEnv = d == 0 && i == 0
			if done, err := k.step(ctx, st, float64(i)*st.dt); done {
				return err
			}
		}
	}
	st.warmup = false
	st.beginEnv = k.warmupDays == 0

	begin := startDate(startDay)
	emit(engine.SeverityInfo, "Starting Simulation at %02d/%02d for %d days", int(begin.Month()), begin.Day(), days)
	total := days * stepsPerDay
	for i := 0; i < total; i++ {
		if done, err := k.step(ctx, st, float64(i)*st.dt); done {
			return err
		}
		st.beginEnv = false
	}
	emit(engine.SeverityInfo, "Simulation Complete")
	return nil
}

// step runs one zone timestep starting at t: gains, hooks, then integration.
func (k *Kernel) step(ctx context.Context, st *state, t float64) (bool, error) {
	st.time = t
	st.InitInternalHeatGains()
	k.callHooks(st)
	if done, err := k.stopped(ctx); done {
		return true, err
	}
	st.integrate(st.dt)
	return false, nil
}

func (k *Kernel) callHooks(st *state) {
	for _, h := range k.hooks {
		h(st)
	}
}

func (k *Kernel) stopped(ctx context.Context) (bool, error) {
	select {
	case <-k.stop:
		return true, nil
	case <-ctx.Done():
		return true, ctx.Err()
	default:
		return false, nil
	}
}

func timestepsPerHour(m *input.Model) int {
	for _, name := range m.Names("Timestep") {
		_, f, _ := m.Object("Timestep", name)
		if n := int(f.Number("number_of_timesteps_per_hour", defaultStepsPerHour)); n > 0 && 60%n == 0 {
			return n
		}
	}
	return defaultStepsPerHour
}

// runPeriod returns the length of the first run period in days and its first
// day as a zero-based day of the year.
func runPeriod(m *input.Model) (days, startDay int) {
	names := m.Names("RunPeriod")
	if len(names) == 0 {
		return defaultRunDays, 0
	}
	_, f, _ := m.Object("RunPeriod", names[0])
	begin := time.Date(2001, time.Month(int(f.Number("begin_month", 1))), int(f.Number("begin_day_of_month", 1)), 0, 0, 0, 0, time.UTC)
	end := time.Date(2001, time.Month(int(f.Number("end_month", 12))), int(f.Number("end_day_of_month", 31)), 0, 0, 0, 0, time.UTC)
	if end.Before(begin) {
		end = end.AddDate(1, 0, 0)
	}
	return int(end.Sub(begin).Hours()/24) + 1, begin.YearDay() - 1
}

func startDate(startDay int) time.Time {
	return time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, startDay)
}

package spawn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NREL/Spawn-sub001/spawn/engine"
	"github.com/NREL/Spawn-sub001/spawn/input"
	"github.com/NREL/Spawn-sub001/spawn/trace"
	"github.com/NREL/Spawn-sub001/spawn/variables"
)

// Spawn couples a building simulation kernel running on its own goroutine to
// a caller that advances it in time and exchanges variable values at zone
// timestep boundaries. Only one of the two goroutines computes at any time.
//
// A Spawn is not safe for concurrent use by multiple callers.
type Spawn struct {
	in     *input.Input
	reg    *variables.Registry
	kernel engine.Kernel
	opts   options
	log    *logrus.Entry

	ctrl *controller
	xch  *exchanger
	msgs messageQueue

	st      engine.State // state seen at the last pause
	started bool
	stopped bool
	failed  error // a wait that did not complete; the simulation may still be computing
	runCtx  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds the variable registry for in and prepares the kernel. The
// simulation does not run until Start.
func New(in *input.Input, opts ...Option) (*Spawn, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = in.FMUBaseName()
	}
	log := o.logger
	if log == nil {
		log = logrus.WithField("instance", o.name)
	}

	reg, err := variables.Build(in)
	if err != nil {
		return nil, err
	}
	kernel := o.kernel
	if kernel == nil {
		kernel, err = engine.New(in.EngineName())
		if err != nil {
			return nil, err
		}
	}

	return &Spawn{
		in:     in,
		reg:    reg,
		kernel: kernel,
		opts:   o,
		log:    log,
		ctrl:   newController(o.timeout),
		xch:    newExchanger(reg, log),
		done:   make(chan struct{}),
	}, nil
}

// Name returns the instance name.
func (s *Spawn) Name() string { return s.opts.name }

// Registry returns the variables of the component.
func (s *Spawn) Registry() *variables.Registry { return s.reg }

// StartTime returns the simulation time Start advances to.
func (s *Spawn) StartTime() float64 {
	if s.opts.startTime != nil {
		return *s.opts.startTime
	}
	return s.in.StartTime
}

// SetStartTime replaces the start time before Start.
func (s *Spawn) SetStartTime(t float64) error {
	if s.started {
		return ErrAlreadyStarted
	}
	s.opts.startTime = &t
	return nil
}

// Start launches the simulation goroutine and blocks until the simulation
// reaches the start time with its outputs read.
func (s *Spawn) Start(ctx context.Context) error {
	if s.started {
		return ErrAlreadyStarted
	}
	model, err := s.in.BuildingModel()
	if err != nil {
		return err
	}
	if s.opts.workingDir != "" {
		if err := os.MkdirAll(s.opts.workingDir, 0o755); err != nil {
			return fmt.Errorf("creating working directory: %w", err)
		}
	}
	if err := s.kernel.RegisterHook(engine.CallExternalHVACManager, s.hook); err != nil {
		return err
	}

	start := s.StartTime()
	s.ctrl.mu.Lock()
	s.ctrl.requested = start
	s.ctrl.state = StateAdvance
	s.ctrl.mu.Unlock()

	s.started = true
	s.runCtx, s.cancel = context.WithCancel(context.Background())
	cfg := engine.RunConfig{
		Model:       model,
		WeatherPath: s.in.WeatherPath(),
		OutputDir:   s.opts.workingDir,
		Messages:    s.msgs.push,
	}
	s.log.Debugf("starting %s kernel at t=%gs", s.in.EngineName(), start)
	go s.run(cfg)

	err = s.ctrl.waitCaller(ctx, "start")
	s.flushMessages()
	if err != nil {
		s.failed = err
		return err
	}
	return s.SetTime(ctx, start)
}

// run is the body of the simulation goroutine.
func (s *Spawn) run(cfg engine.RunConfig) {
	defer close(s.done)
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in simulation: %v", r)
		}
		s.ctrl.markExited(err)
	}()
	err = s.kernel.Run(s.runCtx, cfg)
}

// hook is registered with the kernel and runs on the simulation goroutine
// once per zone timestep.
func (s *Spawn) hook(st engine.State) {
	if st.KickOffSimulation() {
		return
	}
	s.ctrl.mu.Lock()
	terminating := s.ctrl.state == StateTerminate
	s.ctrl.mu.Unlock()
	if terminating {
		return
	}

	s.xch.exchange(st)
	if st.DoingSizing() || st.Warmup() {
		return
	}

	s.ctrl.mu.Lock()
	defer s.ctrl.mu.Unlock()
	if st.CurrentTime() < s.ctrl.requested {
		return
	}
	s.st = st
	s.reg.ClearPending()
	s.ctrl.parkLocked(s.runCtx, st.CurrentTime(), st.TimeStepZone())
}

// SetTime requests simulation time t. Inputs set since the last exchange are
// written and outputs read again. If t reaches the next zone timestep
// boundary the simulation advances and parks at the first boundary at or
// after t; otherwise the clock stays.
func (s *Spawn) SetTime(ctx context.Context, t float64) error {
	if !s.started || s.stopped {
		return ErrNotRunning
	}
	if err := s.failedErr(); err != nil {
		return err
	}
	s.ctrl.mu.Lock()
	if s.ctrl.exited {
		err := s.ctrl.exitErrLocked()
		s.ctrl.mu.Unlock()
		return err
	}
	s.ctrl.requested = t
	next := s.ctrl.clock + s.ctrl.dt
	s.ctrl.mu.Unlock()
	if s.st == nil {
		return ErrNotRunning
	}

	s.xch.exchange(s.st)

	advanced := false
	if t >= next {
		s.ctrl.setState(StateAdvance)
		err := s.ctrl.waitCaller(ctx, "set time")
		s.flushMessages()
		if err != nil {
			s.failed = err
			return err
		}
		advanced = true
	}
	s.record(t, advanced)
	return nil
}

// Stop asks the simulation to unwind and waits for its goroutine to exit.
// Stopping a component that never started, or stopping twice, is a no-op.
func (s *Spawn) Stop(ctx context.Context) error {
	if !s.started || s.stopped {
		return nil
	}
	s.stopped = true

	s.ctrl.mu.Lock()
	s.ctrl.state = StateTerminate
	s.ctrl.mu.Unlock()
	s.kernel.Stop()
	s.ctrl.setState(StateTerminate)

	err := s.join(ctx)
	s.cancel()
	s.flushMessages()
	return err
}

// failedErr returns the error of an earlier wait that did not complete. Until
// Stop, nothing may touch the registry or the engine state.
func (s *Spawn) failedErr() error {
	if s.failed == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrNotRunning, s.failed)
}

func (s *Spawn) join(ctx context.Context) error {
	var timer <-chan time.Time
	if s.opts.timeout > 0 {
		t := time.NewTimer(s.opts.timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-s.done:
	case <-timer:
		s.cancel()
		return &TimeoutError{Op: "stop", After: s.opts.timeout}
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}

	s.ctrl.mu.Lock()
	defer s.ctrl.mu.Unlock()
	if s.ctrl.runErr != nil && !errors.Is(s.ctrl.runErr, context.Canceled) {
		return &FatalEngineError{Time: s.ctrl.clock, Err: s.ctrl.runErr}
	}
	return nil
}

// SetValue stores an input value in FMI units. It reaches the engine at the
// next exchange.
func (s *Spawn) SetValue(ref uint32, v float64) error {
	if err := s.failedErr(); err != nil {
		return err
	}
	return s.reg.SetValue(ref, v)
}

// GetValue returns the value of ref in FMI units, or false when the
// reference is unknown or no value has been set or read yet.
func (s *Spawn) GetValue(ref uint32) (float64, bool) {
	if s.failed != nil {
		return 0, false
	}
	v, err := s.reg.GetValue(ref)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ValueRef returns the value reference of the named variable.
func (s *Spawn) ValueRef(name string) (uint32, bool) {
	v, ok := s.reg.ByName(name)
	if !ok {
		return 0, false
	}
	return v.ValueRef, true
}

// CurrentTime returns the simulation time of the last pause.
func (s *Spawn) CurrentTime() float64 {
	s.ctrl.mu.Lock()
	defer s.ctrl.mu.Unlock()
	return s.ctrl.clock
}

// NextEventTime returns the time of the next zone timestep boundary.
func (s *Spawn) NextEventTime() float64 {
	s.ctrl.mu.Lock()
	defer s.ctrl.mu.Unlock()
	return s.ctrl.clock + s.ctrl.dt
}

// Unresolved returns, per variable name, how many exchanges skipped it
// because its zone, sensor or actuator was not found.
func (s *Spawn) Unresolved() map[string]int {
	return s.xch.unresolvedCounts()
}

func (s *Spawn) record(requested float64, advanced bool) {
	if s.opts.trace == nil || !s.opts.trace.Config.Enabled() {
		return
	}
	rec := trace.ExchangeRecord{
		Instance:   s.opts.name,
		Requested:  requested,
		Clock:      s.CurrentTime(),
		Advanced:   advanced,
		Inputs:     make(map[string]float64),
		Outputs:    make(map[string]float64),
		Unresolved: s.xch.skipped,
	}
	for _, v := range s.reg.All() {
		val, ok := v.Value()
		if !ok {
			continue
		}
		if v.Kind.IsInput() {
			rec.Inputs[v.Name] = val
		} else {
			rec.Outputs[v.Name] = val
		}
	}
	s.opts.trace.RecordExchange(rec)
}

func (s *Spawn) flushMessages() {
	for _, m := range s.msgs.drain() {
		switch m.severity {
		case engine.SeverityInfo:
			s.log.Info(m.text)
		case engine.SeverityWarning:
			s.log.Warn(m.text)
		default:
			s.log.WithField("severity", m.severity.String()).Error(m.text)
		}
	}
}

type message struct {
	severity engine.Severity
	text     string
}

// messageQueue collects kernel messages on the simulation goroutine until the
// caller logs them.
type messageQueue struct {
	mu   sync.Mutex
	msgs []message
}

func (q *messageQueue) push(sev engine.Severity, text string) {
	q.mu.Lock()
	q.msgs = append(q.msgs, message{severity: sev, text: text})
	q.mu.Unlock()
}

func (q *messageQueue) drain() []message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.msgs
	q.msgs = nil
	return out
}

package fmi

import (
	"context"
	"fmt"
	"sort"
)

// SimulateConfig describes one run of an instance, driven the way a
// model-exchange master drives an FMU.
type SimulateConfig struct {
	StartTime float64
	StopTime  float64
	// StepSize is the communication interval. Zero steps from one zone
	// timestep boundary to the next, as reported by NewDiscreteStates.
	StepSize float64
	// Inputs are set before every step.
	Inputs map[string]float64
	// Outputs names the variables to sample. Empty means every variable with
	// output causality.
	Outputs []string
}

// Sample holds the outputs read at one communication point.
type Sample struct {
	Time   float64            `json:"time"`
	Values map[string]float64 `json:"values"`
}

// CallError is returned by Simulate when a call does not return StatusOK.
type CallError struct {
	Op     string
	Time   float64
	Status Status
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s at t=%gs returned %v", e.Op, e.Time, e.Status)
}

// Simulate runs inst from cfg.StartTime to cfg.StopTime and returns the
// outputs at every communication point, the start time included. The
// instance is terminated before Simulate returns.
func Simulate(ctx context.Context, inst *Instance, cfg SimulateConfig) (samples []Sample, err error) {
	if cfg.StopTime < cfg.StartTime {
		return nil, fmt.Errorf("stop time %g is before start time %g", cfg.StopTime, cfg.StartTime)
	}
	inRefs, inValues, err := inst.inputRefs(cfg.Inputs)
	if err != nil {
		return nil, err
	}
	outNames, outRefs, err := inst.outputRefs(cfg.Outputs)
	if err != nil {
		return nil, err
	}

	t := cfg.StartTime
	check := func(op string, st Status) error {
		if st != StatusOK {
			return &CallError{Op: op, Time: t, Status: st}
		}
		return nil
	}
	sample := func() error {
		values := make([]float64, len(outRefs))
		if err := check("fmi2GetReal", inst.GetReal(outRefs, values)); err != nil {
			return err
		}
		s := Sample{Time: t, Values: make(map[string]float64, len(outNames))}
		for k, name := range outNames {
			s.Values[name] = values[k]
		}
		samples = append(samples, s)
		return nil
	}

	if err := check("fmi2SetupExperiment", inst.SetupExperiment(false, 0, cfg.StartTime, true, cfg.StopTime)); err != nil {
		return nil, err
	}
	if err := check("fmi2SetReal", inst.SetReal(inRefs, inValues)); err != nil {
		return nil, err
	}
	if err := check("fmi2EnterInitializationMode", inst.EnterInitializationMode()); err != nil {
		return nil, err
	}
	if err := check("fmi2ExitInitializationMode", inst.ExitInitializationMode()); err != nil {
		inst.Terminate()
		return nil, err
	}
	defer func() {
		if st := inst.Terminate(); st != StatusOK && err == nil {
			err = &CallError{Op: "fmi2Terminate", Time: t, Status: st}
		}
	}()

	if err := sample(); err != nil {
		return nil, err
	}
	for t < cfg.StopTime {
		if err := ctx.Err(); err != nil {
			return samples, err
		}
		next := t + cfg.StepSize
		if cfg.StepSize <= 0 {
			info, st := inst.NewDiscreteStates()
			if err := check("fmi2NewDiscreteStates", st); err != nil {
				return samples, err
			}
			next = info.NextEventTime
		}
		if next > cfg.StopTime {
			next = cfg.StopTime
		}
		if err := check("fmi2SetReal", inst.SetReal(inRefs, inValues)); err != nil {
			return samples, err
		}
		t = next
		if err := check("fmi2SetTime", inst.SetTime(t)); err != nil {
			return samples, err
		}
		if err := sample(); err != nil {
			return samples, err
		}
	}
	return samples, nil
}

func (i *Instance) inputRefs(inputs map[string]float64) ([]uint32, []float64, error) {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	refs := make([]uint32, len(names))
	values := make([]float64, len(names))
	for k, name := range names {
		ref, ok := i.comp.ValueRef(name)
		if !ok {
			return nil, nil, fmt.Errorf("unknown input %q", name)
		}
		refs[k], values[k] = ref, inputs[name]
	}
	return refs, values, nil
}

func (i *Instance) outputRefs(names []string) ([]string, []uint32, error) {
	if len(names) == 0 {
		for _, v := range i.comp.Registry().All() {
			if v.Attrs.Causality == "output" {
				names = append(names, v.Name)
			}
		}
	}
	refs := make([]uint32, len(names))
	for k, name := range names {
		ref, ok := i.comp.ValueRef(name)
		if !ok {
			return nil, nil, fmt.Errorf("unknown output %q", name)
		}
		refs[k] = ref
	}
	return names, refs, nil
}

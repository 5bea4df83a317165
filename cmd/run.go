package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/NREL/Spawn-sub001/spawn/fmi"
	"github.com/NREL/Spawn-sub001/spawn/fmu"
	"github.com/NREL/Spawn-sub001/spawn/input"
	"github.com/NREL/Spawn-sub001/spawn/trace"
)

var (
	// CLI flags for spawn run
	runInputs     []string      // Spawn input documents, one instance each
	runSets       []string      // name=value input assignments held for the whole run
	runOutputs    []string      // Variables to sample; empty samples every output
	runStart      float64       // Start time (s)
	runStop       float64       // Stop time (s)
	runStep       float64       // Communication step (s); 0 steps zone timestep by zone timestep
	runTimeout    time.Duration // Per-call simulation timeout; 0 waits forever
	runTracePath  string        // CBOR exchange trace output
	runOutputPath string        // JSON results file; stdout when empty
	runWorkDir    string        // Kernel working directory root
	runParallel   int           // Maximum instances simulated at once
)

// runOptions is the resolved form of the run flags.
type runOptions struct {
	Inputs    []string
	Sets      map[string]float64
	Outputs   []string
	Start     float64
	Stop      float64
	Step      float64
	Timeout   time.Duration
	TracePath string
	WorkDir   string
	Parallel  int
}

// runResult is the JSON result of one instance.
type runResult struct {
	Input    string              `json:"input"`
	Instance string              `json:"instance"`
	Samples  []fmi.Sample        `json:"samples"`
	Trace    *trace.TraceSummary `json:"trace,omitempty"`
}

// runCmd drives spawn inputs through the FMI adapter, the way an FMI master would
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate one or more spawn inputs and print sampled outputs as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		sets, err := parseAssignments(runSets)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		opts := runOptions{
			Inputs:    append(runInputs, args...),
			Sets:      sets,
			Outputs:   runOutputs,
			Start:     runStart,
			Stop:      runStop,
			Step:      runStep,
			Timeout:   runTimeout,
			TracePath: runTracePath,
			WorkDir:   runWorkDir,
			Parallel:  runParallel,
		}
		if len(opts.Inputs) == 0 {
			logrus.Fatalf("No spawn input provided. Use --input or pass input files as arguments.")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		startTime := time.Now()
		results, err := runSimulations(ctx, opts)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		if runOutputPath != "" {
			err = writeResultsFile(runOutputPath, results)
		} else {
			err = writeResults(cmd.OutOrStdout(), results)
		}
		if err != nil {
			logrus.Fatalf("Cannot write results: %v", err)
		}
		logrus.Infof("Simulated %d instance(s) in %v", len(results), time.Since(startTime).Round(time.Millisecond))
	},
}

// parseAssignments parses name=value pairs.
func parseAssignments(pairs []string) (map[string]float64, error) {
	sets := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected name=value", p)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value in assignment %q: %w", p, err)
		}
		sets[name] = v
	}
	return sets, nil
}

// instanceNames derives one unique instance name per input from its FMU name.
func instanceNames(ins []*input.Input) []string {
	names := make([]string, len(ins))
	seen := make(map[string]int, len(ins))
	for k, in := range ins {
		base := in.FMUBaseName()
		seen[base]++
		names[k] = base
		if n := seen[base]; n > 1 {
			names[k] = fmt.Sprintf("%s-%d", base, n)
		}
	}
	return names
}

// tracePathFor returns the trace file of one instance. With several instances
// the instance name goes before the extension.
func tracePathFor(path, name string, n int) string {
	if path == "" || n == 1 {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + name + ext
}

// runSimulations simulates every input concurrently and returns the results in
// input order. The first failure cancels the remaining instances.
func runSimulations(ctx context.Context, opts runOptions) ([]runResult, error) {
	ins := make([]*input.Input, len(opts.Inputs))
	for k, path := range opts.Inputs {
		in, err := input.Load(path)
		if err != nil {
			return nil, err
		}
		ins[k] = in
	}
	names := instanceNames(ins)
	results := make([]runResult, len(ins))

	g, ctx := errgroup.WithContext(ctx)
	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}
	g.SetLimit(parallel)
	for k := range ins {
		g.Go(func() error {
			res, err := simulateInput(ctx, ins[k], names[k], opts, tracePathFor(opts.TracePath, names[k], len(ins)))
			if err != nil {
				return fmt.Errorf("%s: %w", opts.Inputs[k], err)
			}
			res.Input = opts.Inputs[k]
			results[k] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func simulateInput(ctx context.Context, in *input.Input, name string, opts runOptions, tracePath string) (runResult, error) {
	guid, err := fmu.GUID(in)
	if err != nil {
		return runResult{}, err
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = filepath.Join(in.BasePath(), fmi.WorkingDir)
	}

	instOpts := []fmi.Option{fmi.WithTimeout(opts.Timeout)}
	var tr *trace.ExchangeTrace
	if tracePath != "" {
		tr = trace.NewExchangeTrace(trace.TraceConfig{Level: trace.TraceLevelExchanges, Instance: name})
		instOpts = append(instOpts, fmi.WithTrace(tr))
	}
	inst, err := fmi.NewInstance(name, guid, in, filepath.Join(workDir, name), instOpts...)
	if err != nil {
		return runResult{}, err
	}
	defer inst.Free()

	logrus.Infof("Simulating %s from %gs to %gs", name, opts.Start, opts.Stop)
	samples, err := fmi.Simulate(ctx, inst, fmi.SimulateConfig{
		StartTime: opts.Start,
		StopTime:  opts.Stop,
		StepSize:  opts.Step,
		Inputs:    opts.Sets,
		Outputs:   opts.Outputs,
	})
	if err != nil {
		return runResult{}, err
	}

	res := runResult{Instance: name, Samples: samples}
	if tr != nil {
		if err := tr.WriteFile(tracePath); err != nil {
			return runResult{}, err
		}
		res.Trace = trace.Summarize(tr)
		logrus.Debugf("%s: wrote %d exchange records to %s", name, len(tr.Exchanges), tracePath)
	}
	return res, nil
}

func writeResults(w io.Writer, results []runResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// writeResultsFile writes the results to path. The file is closed before
// returning.
func writeResultsFile(path string, results []runResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating results file: %w", err)
	}
	if err := writeResults(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	runCmd.Flags().StringSliceVarP(&runInputs, "input", "i", nil, "Spawn input document (repeatable)")
	runCmd.Flags().StringArrayVar(&runSets, "set", nil, "Input assignment name=value, held for the whole run (repeatable)")
	runCmd.Flags().StringSliceVar(&runOutputs, "output", nil, "Variables to sample (default: every output)")
	runCmd.Flags().Float64Var(&runStart, "start", 0, "Start time in seconds")
	runCmd.Flags().Float64Var(&runStop, "stop", 86400, "Stop time in seconds")
	runCmd.Flags().Float64Var(&runStep, "step", 0, "Communication step in seconds (0 = every zone timestep)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Timeout for each simulation step (0 = none)")
	runCmd.Flags().StringVar(&runTracePath, "trace", "", "Write a CBOR exchange trace to this file")
	runCmd.Flags().StringVarP(&runOutputPath, "results", "o", "", "Write JSON results to this file instead of stdout")
	runCmd.Flags().StringVar(&runWorkDir, "working-dir", "", "Kernel working directory (default: eplusout next to each input)")
	runCmd.Flags().IntVar(&runParallel, "parallel", 0, "Maximum instances simulated at once (0 = number of CPUs)")
}

package spawn

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NREL/Spawn-sub001/spawn/engine"
	"github.com/NREL/Spawn-sub001/spawn/trace"
)

type options struct {
	name       string
	timeout    time.Duration
	kernel     engine.Kernel
	workingDir string
	startTime  *float64
	trace      *trace.ExchangeTrace
	logger     *logrus.Entry
}

// Option configures a Spawn component.
type Option func(*options)

// WithName names the instance in logs and traces.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithTimeout bounds every wait for the simulation goroutine. Zero waits forever.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithKernel supplies the simulation kernel instead of looking it up by the
// engine name of the input.
func WithKernel(k engine.Kernel) Option {
	return func(o *options) { o.kernel = k }
}

// WithWorkingDir sets the directory the kernel writes its outputs to.
func WithWorkingDir(dir string) Option {
	return func(o *options) { o.workingDir = dir }
}

// WithStartTime overrides the start time of the input document.
func WithStartTime(t float64) Option {
	return func(o *options) { o.startTime = &t }
}

// WithTrace records one exchange record per SetTime call.
func WithTrace(tr *trace.ExchangeTrace) Option {
	return func(o *options) { o.trace = tr }
}

// WithLogger sets the log entry used by the component. Kernel messages are
// forwarded to it as well.
func WithLogger(l *logrus.Entry) Option {
	return func(o *options) { o.logger = l }
}

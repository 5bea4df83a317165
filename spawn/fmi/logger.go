package fmi

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Log categories declared in the model description.
const (
	CategoryInfo    = "logLevel1"
	CategoryWarning = "logLevel2"
	CategoryError   = "logLevel3"
	CategoryFatal   = "logLevel4"
)

// Categories lists the log categories in declaration order.
var Categories = []string{CategoryInfo, CategoryWarning, CategoryError, CategoryFatal}

// CategoryDescriptions are the descriptions written to the model description.
var CategoryDescriptions = map[string]string{
	CategoryInfo:    "logLevel1 - EnergyPlus Info",
	CategoryWarning: "logLevel2 - EnergyPlus Warning",
	CategoryError:   "logLevel3 - EnergyPlus Error",
	CategoryFatal:   "logLevel4 - EnergyPlus Fatal",
}

// LogFunc is the logger callback of an FMI master.
type LogFunc func(instance string, status Status, category, message string)

func categoryOf(level logrus.Level) (string, Status) {
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return CategoryFatal, StatusFatal
	case logrus.ErrorLevel:
		return CategoryError, StatusError
	case logrus.WarnLevel:
		return CategoryWarning, StatusWarning
	}
	return CategoryInfo, StatusOK
}

// loggerHook forwards the entries of one instance's logger to the master.
type loggerHook struct {
	instance string
	fn       LogFunc

	mu      sync.Mutex
	on      bool
	enabled map[string]bool // empty means every category
}

func newLoggerHook(instance string, fn LogFunc, on bool) *loggerHook {
	return &loggerHook{instance: instance, fn: fn, on: on}
}

func (h *loggerHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
	}
}

func (h *loggerHook) Fire(e *logrus.Entry) error {
	category, status := categoryOf(e.Level)
	h.mu.Lock()
	forward := h.on && (len(h.enabled) == 0 || h.enabled[category])
	h.mu.Unlock()
	if forward {
		h.fn(h.instance, status, category, e.Message)
	}
	return nil
}

// configure implements fmi2SetDebugLogging. An empty category list enables
// every category.
func (h *loggerHook) configure(on bool, categories []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.on = on
	h.enabled = make(map[string]bool, len(categories))
	for _, c := range categories {
		h.enabled[c] = true
	}
}

// newInstanceLogger returns a logger for one instance. Without a master
// callback it writes where the standard logger writes; with one, every entry
// at info level and above goes to the master only.
func newInstanceLogger(instance string, fn LogFunc, on bool) (*logrus.Logger, *loggerHook) {
	std := logrus.StandardLogger()
	l := logrus.New()
	l.SetFormatter(std.Formatter)
	if fn == nil {
		l.SetOutput(std.Out)
		l.SetLevel(std.GetLevel())
		return l, nil
	}
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.InfoLevel)
	h := newLoggerHook(instance, fn, on)
	l.AddHook(h)
	return l, h
}

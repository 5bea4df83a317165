package trace

// TraceLevel controls the verbosity of exchange tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelExchanges captures one record per SetTime call.
	TraceLevelExchanges TraceLevel = "exchanges"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelExchanges: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level    TraceLevel
	Instance string // instance name stamped on every record
}

// Enabled reports whether records should be collected.
func (c TraceConfig) Enabled() bool {
	return c.Level != TraceLevelNone && c.Level != ""
}

// ExchangeTrace collects exchange records during a co-simulation.
type ExchangeTrace struct {
	Config    TraceConfig
	Exchanges []ExchangeRecord
}

// NewExchangeTrace creates an ExchangeTrace ready for recording.
func NewExchangeTrace(config TraceConfig) *ExchangeTrace {
	return &ExchangeTrace{
		Config:    config,
		Exchanges: make([]ExchangeRecord, 0),
	}
}

// RecordExchange appends an exchange record. A nil or disabled trace ignores it.
func (et *ExchangeTrace) RecordExchange(record ExchangeRecord) {
	if et == nil || !et.Config.Enabled() {
		return
	}
	if record.Instance == "" {
		record.Instance = et.Config.Instance
	}
	et.Exchanges = append(et.Exchanges, record)
}

package trace

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestExchangeTrace_RecordExchange_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for exchanges
	et := NewExchangeTrace(TraceConfig{Level: TraceLevelExchanges, Instance: "office"})

	// WHEN an exchange record is recorded
	et.RecordExchange(ExchangeRecord{
		Requested: 600,
		Clock:     600,
		Advanced:  true,
		Outputs:   map[string]float64{"Core_ZN_QConSen_flow": -120.5},
	})

	// THEN the trace contains one record stamped with the instance name
	if len(et.Exchanges) != 1 {
		t.Fatalf("expected 1 exchange, got %d", len(et.Exchanges))
	}
	if et.Exchanges[0].Instance != "office" {
		t.Errorf("expected instance office, got %q", et.Exchanges[0].Instance)
	}
	if !et.Exchanges[0].Advanced {
		t.Error("expected advanced=true")
	}
}

func TestExchangeTrace_LevelNone_DropsRecords(t *testing.T) {
	et := NewExchangeTrace(TraceConfig{Level: TraceLevelNone})
	et.RecordExchange(ExchangeRecord{Requested: 1})
	if len(et.Exchanges) != 0 {
		t.Errorf("expected no records at level none, got %d", len(et.Exchanges))
	}

	var nilTrace *ExchangeTrace
	nilTrace.RecordExchange(ExchangeRecord{Requested: 1}) // must not panic
}

func TestIsValidTraceLevel(t *testing.T) {
	for _, level := range []string{"", "none", "exchanges"} {
		if !IsValidTraceLevel(level) {
			t.Errorf("expected %q to be valid", level)
		}
	}
	if IsValidTraceLevel("decisions") {
		t.Error("expected decisions to be invalid")
	}
}

func TestExchangeTrace_CBOR_PreservesRecordsInOrder(t *testing.T) {
	// GIVEN a trace with two exchanges
	et := NewExchangeTrace(TraceConfig{Level: TraceLevelExchanges})
	et.RecordExchange(ExchangeRecord{Requested: 0, Clock: 0, Inputs: map[string]float64{"Core_ZN_T": 295.15}})
	et.RecordExchange(ExchangeRecord{Requested: 600, Clock: 600, Advanced: true, Unresolved: 1})

	// WHEN written to a file and read back
	path := filepath.Join(t.TempDir(), "trace.cbor")
	if err := et.WriteFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ReadCBOR(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	// THEN the records come back in order
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Inputs["Core_ZN_T"] != 295.15 {
		t.Errorf("expected input 295.15, got %v", got[0].Inputs["Core_ZN_T"])
	}
	if !got[1].Advanced || got[1].Clock != 600 || got[1].Unresolved != 1 {
		t.Errorf("second record mismatch: %+v", got[1])
	}
}

func TestExchangeTrace_WriteCBOR_IsDeterministic(t *testing.T) {
	et := NewExchangeTrace(TraceConfig{Level: TraceLevelExchanges})
	et.RecordExchange(ExchangeRecord{Outputs: map[string]float64{"b": 2, "a": 1, "c": 3}})

	var first, second bytes.Buffer
	if err := et.WriteCBOR(&first); err != nil {
		t.Fatal(err)
	}
	if err := et.WriteCBOR(&second); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("expected identical encodings for identical traces")
	}
}

func TestReadCBOR_Truncated_ReturnsError(t *testing.T) {
	et := NewExchangeTrace(TraceConfig{Level: TraceLevelExchanges})
	et.RecordExchange(ExchangeRecord{Requested: 600, Outputs: map[string]float64{"x": 1}})
	var buf bytes.Buffer
	if err := et.WriteCBOR(&buf); err != nil {
		t.Fatal(err)
	}

	_, err := ReadCBOR(bytes.NewReader(buf.Bytes()[:buf.Len()-3]))
	if err == nil {
		t.Error("expected an error for a truncated stream")
	}
}

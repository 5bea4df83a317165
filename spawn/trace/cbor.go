package trace

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// traceEncMode is the CBOR encoder mode for exchange records.
// Deterministic encoding keeps trace files byte-comparable across runs.
var traceEncMode cbor.EncMode

// traceDecMode is the CBOR decoder mode for exchange records.
var traceDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	traceEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create trace CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	traceDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create trace CBOR decoder mode: %v", err))
	}
}

// WriteCBOR writes every record as a sequence of CBOR items.
func (et *ExchangeTrace) WriteCBOR(w io.Writer) error {
	if et == nil {
		return nil
	}
	enc := traceEncMode.NewEncoder(w)
	for i, r := range et.Exchanges {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding exchange record %d: %w", i, err)
		}
	}
	return nil
}

// WriteFile writes the trace to path as a CBOR sequence.
func (et *ExchangeTrace) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	if err := et.WriteCBOR(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCBOR decodes a CBOR sequence of exchange records.
func ReadCBOR(r io.Reader) ([]ExchangeRecord, error) {
	dec := traceDecMode.NewDecoder(r)
	var records []ExchangeRecord
	for {
		var rec ExchangeRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("decoding exchange record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
}

// Package trace provides exchange-trace recording for co-simulation analysis.
// It has no dependencies on spawn/ and stores pure data types.
package trace

// ExchangeRecord captures the outcome of a single SetTime call.
type ExchangeRecord struct {
	Instance   string             `cbor:"1,keyasint,omitempty"`
	Requested  float64            `cbor:"2,keyasint"`
	Clock      float64            `cbor:"3,keyasint"` // simulation time after the call
	Advanced   bool               `cbor:"4,keyasint"` // the simulation stepped
	Inputs     map[string]float64 `cbor:"5,keyasint,omitempty"`
	Outputs    map[string]float64 `cbor:"6,keyasint,omitempty"`
	Unresolved int                `cbor:"7,keyasint,omitempty"` // variables skipped in this exchange
}

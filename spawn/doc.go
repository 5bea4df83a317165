// Package spawn couples a building energy simulation to an external caller
// that drives it in time, the way an FMI 2.0 model-exchange master drives an
// FMU.
//
// # Reading Guide
//
// Start with these three files to understand the coupling:
//   - controller.go: the NONE / ADVANCE / TERMINATE handshake between the
//     caller and the simulation goroutine
//   - exchange.go: one exchange (write inputs, recompute, read outputs)
//   - spawn.go: Start, SetTime and Stop, and the kernel hook that parks the
//     simulation at zone timestep boundaries
//
// # Architecture
//
// The spawn package owns the rendezvous; everything else lives in
// sub-packages:
//   - spawn/input/: the spawn input document and the building model it names
//   - spawn/variables/: the variable registry and value references
//   - spawn/units/: unit names and conversions between FMI and engine units
//   - spawn/engine/: the kernel interface and the engine state seen by hooks
//   - spawn/engine/lumped/: the reference lumped-capacitance kernel
//   - spawn/trace/: exchange trace recording
//   - spawn/fmi/: FMI 2.0 status codes, instances and logging
//   - spawn/fmu/: model description and FMU packaging
//
// Kernels register themselves via init() functions that call engine.Register,
// so a binary selects kernels with blank imports.
//
// Values held by the registry are in FMI units (K, m2, W). The exchange
// converts to engine units (degC) on write and back on read.
package spawn

//go:build cgo

// Command epfmi is the shared library placed in an FMU's binaries/ directory.
// It exports the fmi2 model-exchange function table over the C ABI and
// forwards every call to a spawn/fmi Instance.
//
//	go build -buildmode=c-shared -o epfmi.so ./cmd/epfmi
package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef void*        fmi2Component;
typedef void*        fmi2ComponentEnvironment;
typedef void*        fmi2FMUstate;
typedef unsigned int fmi2ValueReference;
typedef double       fmi2Real;
typedef int          fmi2Integer;
typedef int          fmi2Boolean;
typedef char         fmi2Char;
typedef const char*  fmi2String;
typedef char         fmi2Byte;
typedef int          fmi2Status;
typedef int          fmi2Type;

typedef void (*fmi2CallbackLogger)(fmi2ComponentEnvironment, fmi2String, fmi2Status, fmi2String, fmi2String, ...);

typedef struct {
	fmi2CallbackLogger       logger;
	void*                    allocateMemory;
	void*                    freeMemory;
	void*                    stepFinished;
	fmi2ComponentEnvironment componentEnvironment;
} fmi2CallbackFunctions;

typedef struct {
	fmi2Boolean newDiscreteStatesNeeded;
	fmi2Boolean terminateSimulation;
	fmi2Boolean nominalsOfContinuousStatesChanged;
	fmi2Boolean valuesOfContinuousStatesChanged;
	fmi2Boolean nextEventTimeDefined;
	fmi2Real    nextEventTime;
} fmi2EventInfo;

static void spawn_log(fmi2CallbackFunctions* cb, fmi2String instance, fmi2Status status, fmi2String category, fmi2String message) {
	if (cb != NULL && cb->logger != NULL) {
		cb->logger(cb->componentEnvironment, instance, status, category, "%s", message);
	}
}
*/
import "C"

import (
	"unsafe"

	"github.com/sirupsen/logrus"

	// Registers the reference kernel under its engine name.
	_ "github.com/NREL/Spawn-sub001/spawn/engine/lumped"
	"github.com/NREL/Spawn-sub001/spawn/fmi"
)

const (
	fmi2True          = 1
	fmi2ModelExchange = 0
)

var (
	instances     = fmi.NewTable()
	typesPlatform = C.CString(fmi.TypesPlatform)
	version       = C.CString(fmi.Version)
)

func main() {}

// callbacks is a copy of the master's callback table, kept in C memory so
// the logger can be reached from any goroutine after fmi2Instantiate returns.
func callbacks(functions *C.fmi2CallbackFunctions) *C.fmi2CallbackFunctions {
	if functions == nil {
		return nil
	}
	cb := (*C.fmi2CallbackFunctions)(C.malloc(C.size_t(unsafe.Sizeof(*functions))))
	*cb = *functions
	return cb
}

func logFunc(cb *C.fmi2CallbackFunctions) fmi.LogFunc {
	if cb == nil || cb.logger == nil {
		return nil
	}
	return func(instance string, status fmi.Status, category, message string) {
		cInstance, cCategory, cMessage := C.CString(instance), C.CString(category), C.CString(message)
		defer C.free(unsafe.Pointer(cInstance))
		defer C.free(unsafe.Pointer(cCategory))
		defer C.free(unsafe.Pointer(cMessage))
		C.spawn_log(cb, C.fmi2String(cInstance), C.fmi2Status(status), C.fmi2String(cCategory), C.fmi2String(cMessage))
	}
}

// component holds the handle of an instance in C memory. fmi2Component is
// a pointer to it.
type component struct {
	handle C.uintptr_t
	cb     *C.fmi2CallbackFunctions
}

func lookup(c C.fmi2Component) *fmi.Instance {
	if c == nil {
		return nil
	}
	inst, ok := instances.Get(fmi.Handle((*component)(c).handle))
	if !ok {
		return nil
	}
	return inst
}

func status(st fmi.Status) C.fmi2Status { return C.fmi2Status(st) }

func bad(c C.fmi2Component, op string) C.fmi2Status {
	logrus.Errorf("%s: invalid fmi2Component %p", op, c)
	return status(fmi.StatusError)
}

func refs(vr *C.fmi2ValueReference, n C.size_t) []uint32 {
	if n == 0 || vr == nil {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(vr)), int(n))
}

func reals(v *C.fmi2Real, n C.size_t) []float64 {
	if n == 0 || v == nil {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(v)), int(n))
}

//export fmi2GetTypesPlatform
func fmi2GetTypesPlatform() *C.char { return typesPlatform }

//export fmi2GetVersion
func fmi2GetVersion() *C.char { return version }

//export fmi2Instantiate
func fmi2Instantiate(instanceName C.fmi2String, fmuType C.fmi2Type, guid C.fmi2String, resourceLocation C.fmi2String,
	functions *C.fmi2CallbackFunctions, visible C.fmi2Boolean, loggingOn C.fmi2Boolean) C.fmi2Component {
	name := C.GoString((*C.char)(instanceName))
	cb := callbacks(functions)
	log := logFunc(cb)
	if fmuType != fmi2ModelExchange {
		if log != nil {
			log(name, fmi.StatusError, fmi.CategoryError, "only model exchange is supported")
		}
		C.free(unsafe.Pointer(cb))
		return nil
	}
	inst, err := fmi.Instantiate(name, C.GoString((*C.char)(guid)), C.GoString((*C.char)(resourceLocation)), fmi.WithLogFunc(log, loggingOn == fmi2True))
	if err != nil {
		if log != nil {
			log(name, fmi.StatusError, fmi.CategoryError, err.Error())
		}
		logrus.Errorf("fmi2Instantiate %s: %v", name, err)
		C.free(unsafe.Pointer(cb))
		return nil
	}
	comp := (*component)(C.malloc(C.size_t(unsafe.Sizeof(component{}))))
	comp.handle = C.uintptr_t(instances.Add(inst))
	comp.cb = cb
	return C.fmi2Component(unsafe.Pointer(comp))
}

//export fmi2FreeInstance
func fmi2FreeInstance(c C.fmi2Component) {
	if c == nil {
		return
	}
	comp := (*component)(c)
	if inst, ok := instances.Remove(fmi.Handle(comp.handle)); ok {
		inst.Free()
	}
	C.free(unsafe.Pointer(comp.cb))
	C.free(unsafe.Pointer(comp))
}

//export fmi2SetDebugLogging
func fmi2SetDebugLogging(c C.fmi2Component, loggingOn C.fmi2Boolean, nCategories C.size_t, categories *C.fmi2String) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2SetDebugLogging")
	}
	var names []string
	if nCategories > 0 && categories != nil {
		for _, s := range unsafe.Slice(categories, int(nCategories)) {
			names = append(names, C.GoString((*C.char)(s)))
		}
	}
	return status(inst.SetDebugLogging(loggingOn == fmi2True, names))
}

//export fmi2SetupExperiment
func fmi2SetupExperiment(c C.fmi2Component, toleranceDefined C.fmi2Boolean, tolerance C.fmi2Real,
	startTime C.fmi2Real, stopTimeDefined C.fmi2Boolean, stopTime C.fmi2Real) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2SetupExperiment")
	}
	return status(inst.SetupExperiment(toleranceDefined == fmi2True, float64(tolerance),
		float64(startTime), stopTimeDefined == fmi2True, float64(stopTime)))
}

//export fmi2EnterInitializationMode
func fmi2EnterInitializationMode(c C.fmi2Component) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2EnterInitializationMode")
	}
	return status(inst.EnterInitializationMode())
}

//export fmi2ExitInitializationMode
func fmi2ExitInitializationMode(c C.fmi2Component) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2ExitInitializationMode")
	}
	return status(inst.ExitInitializationMode())
}

//export fmi2Terminate
func fmi2Terminate(c C.fmi2Component) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2Terminate")
	}
	return status(inst.Terminate())
}

//export fmi2Reset
func fmi2Reset(c C.fmi2Component) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2Reset")
	}
	return status(inst.Reset())
}

//export fmi2GetReal
func fmi2GetReal(c C.fmi2Component, vr *C.fmi2ValueReference, nvr C.size_t, value *C.fmi2Real) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2GetReal")
	}
	return status(inst.GetReal(refs(vr, nvr), reals(value, nvr)))
}

//export fmi2SetReal
func fmi2SetReal(c C.fmi2Component, vr *C.fmi2ValueReference, nvr C.size_t, value *C.fmi2Real) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2SetReal")
	}
	return status(inst.SetReal(refs(vr, nvr), reals(value, nvr)))
}

//export fmi2GetInteger
func fmi2GetInteger(c C.fmi2Component, vr *C.fmi2ValueReference, nvr C.size_t, value *C.fmi2Integer) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2GetInteger")
	}
	return status(inst.GetInteger(refs(vr, nvr), nil))
}

//export fmi2SetInteger
func fmi2SetInteger(c C.fmi2Component, vr *C.fmi2ValueReference, nvr C.size_t, value *C.fmi2Integer) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2SetInteger")
	}
	return status(inst.SetInteger(refs(vr, nvr), nil))
}

//export fmi2GetBoolean
func fmi2GetBoolean(c C.fmi2Component, vr *C.fmi2ValueReference, nvr C.size_t, value *C.fmi2Boolean) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2GetBoolean")
	}
	return status(inst.GetBoolean(refs(vr, nvr), nil))
}

//export fmi2SetBoolean
func fmi2SetBoolean(c C.fmi2Component, vr *C.fmi2ValueReference, nvr C.size_t, value *C.fmi2Boolean) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2SetBoolean")
	}
	return status(inst.SetBoolean(refs(vr, nvr), nil))
}

//export fmi2GetString
func fmi2GetString(c C.fmi2Component, vr *C.fmi2ValueReference, nvr C.size_t, value *C.fmi2String) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2GetString")
	}
	return status(inst.GetString(refs(vr, nvr), nil))
}

//export fmi2SetString
func fmi2SetString(c C.fmi2Component, vr *C.fmi2ValueReference, nvr C.size_t, value *C.fmi2String) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2SetString")
	}
	return status(inst.SetString(refs(vr, nvr), nil))
}

//export fmi2GetFMUstate
func fmi2GetFMUstate(c C.fmi2Component, state *C.fmi2FMUstate) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2GetFMUstate")
	}
	return status(inst.GetFMUState())
}

//export fmi2SetFMUstate
func fmi2SetFMUstate(c C.fmi2Component, state C.fmi2FMUstate) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2SetFMUstate")
	}
	return status(inst.SetFMUState())
}

//export fmi2FreeFMUstate
func fmi2FreeFMUstate(c C.fmi2Component, state *C.fmi2FMUstate) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2FreeFMUstate")
	}
	return status(inst.FreeFMUState())
}

//export fmi2SerializedFMUstateSize
func fmi2SerializedFMUstateSize(c C.fmi2Component, state C.fmi2FMUstate, size *C.size_t) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2SerializedFMUstateSize")
	}
	return status(inst.GetFMUState())
}

//export fmi2SerializeFMUstate
func fmi2SerializeFMUstate(c C.fmi2Component, state C.fmi2FMUstate, serialized *C.fmi2Byte, size C.size_t) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2SerializeFMUstate")
	}
	return status(inst.GetFMUState())
}

//export fmi2DeSerializeFMUstate
func fmi2DeSerializeFMUstate(c C.fmi2Component, serialized *C.fmi2Byte, size C.size_t, state *C.fmi2FMUstate) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2DeSerializeFMUstate")
	}
	return status(inst.SetFMUState())
}

//export fmi2GetDirectionalDerivative
func fmi2GetDirectionalDerivative(c C.fmi2Component, vUnknown *C.fmi2ValueReference, nUnknown C.size_t,
	vKnown *C.fmi2ValueReference, nKnown C.size_t, dvKnown *C.fmi2Real, dvUnknown *C.fmi2Real) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2GetDirectionalDerivative")
	}
	return status(inst.GetDirectionalDerivative())
}

//export fmi2EnterEventMode
func fmi2EnterEventMode(c C.fmi2Component) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2EnterEventMode")
	}
	return status(inst.EnterEventMode())
}

//export fmi2NewDiscreteStates
func fmi2NewDiscreteStates(c C.fmi2Component, info *C.fmi2EventInfo) C.fmi2Status {
	inst := lookup(c)
	if inst == nil || info == nil {
		return bad(c, "fmi2NewDiscreteStates")
	}
	ev, st := inst.NewDiscreteStates()
	info.newDiscreteStatesNeeded = boolean(ev.NewDiscreteStatesNeeded)
	info.terminateSimulation = boolean(ev.TerminateSimulation)
	info.nominalsOfContinuousStatesChanged = boolean(ev.NominalsOfContinuousStatesChanged)
	info.valuesOfContinuousStatesChanged = boolean(ev.ValuesOfContinuousStatesChanged)
	info.nextEventTimeDefined = boolean(ev.NextEventTimeDefined)
	info.nextEventTime = C.fmi2Real(ev.NextEventTime)
	return status(st)
}

//export fmi2EnterContinuousTimeMode
func fmi2EnterContinuousTimeMode(c C.fmi2Component) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2EnterContinuousTimeMode")
	}
	return status(inst.EnterContinuousTimeMode())
}

//export fmi2CompletedIntegratorStep
func fmi2CompletedIntegratorStep(c C.fmi2Component, noSetFMUStatePriorToCurrentPoint C.fmi2Boolean,
	enterEventMode *C.fmi2Boolean, terminateSimulation *C.fmi2Boolean) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2CompletedIntegratorStep")
	}
	enter, terminate, st := inst.CompletedIntegratorStep(noSetFMUStatePriorToCurrentPoint == fmi2True)
	if enterEventMode != nil {
		*enterEventMode = boolean(enter)
	}
	if terminateSimulation != nil {
		*terminateSimulation = boolean(terminate)
	}
	return status(st)
}

//export fmi2SetTime
func fmi2SetTime(c C.fmi2Component, t C.fmi2Real) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2SetTime")
	}
	return status(inst.SetTime(float64(t)))
}

//export fmi2SetContinuousStates
func fmi2SetContinuousStates(c C.fmi2Component, x *C.fmi2Real, nx C.size_t) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2SetContinuousStates")
	}
	return status(inst.SetContinuousStates(reals(x, nx)))
}

//export fmi2GetDerivatives
func fmi2GetDerivatives(c C.fmi2Component, dx *C.fmi2Real, nx C.size_t) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2GetDerivatives")
	}
	return status(inst.GetDerivatives(reals(dx, nx)))
}

//export fmi2GetEventIndicators
func fmi2GetEventIndicators(c C.fmi2Component, z *C.fmi2Real, nz C.size_t) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2GetEventIndicators")
	}
	return status(inst.GetEventIndicators(reals(z, nz)))
}

//export fmi2GetContinuousStates
func fmi2GetContinuousStates(c C.fmi2Component, x *C.fmi2Real, nx C.size_t) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2GetContinuousStates")
	}
	return status(inst.GetContinuousStates(reals(x, nx)))
}

//export fmi2GetNominalsOfContinuousStates
func fmi2GetNominalsOfContinuousStates(c C.fmi2Component, x *C.fmi2Real, nx C.size_t) C.fmi2Status {
	inst := lookup(c)
	if inst == nil {
		return bad(c, "fmi2GetNominalsOfContinuousStates")
	}
	return status(inst.GetNominalsOfContinuousStates(reals(x, nx)))
}

func boolean(b bool) C.fmi2Boolean {
	if b {
		return fmi2True
	}
	return 0
}

// Package vehicle holds the live VehicleState data model and the
// single-writer/many-reader hub that every other component reads from or
// writes to (spec §3, §4.B).
package vehicle

// Unit is the physical unit of a sensor reading.
type Unit int

const (
	UnitUnknown Unit = iota
	UnitPsi
	UnitAmps
	UnitVolts
	UnitKelvin
)

var unitNames = map[Unit]string{
	UnitUnknown: "unknown",
	UnitPsi:     "psi",
	UnitAmps:    "amps",
	UnitVolts:   "volts",
	UnitKelvin:  "kelvin",
}

func (u Unit) String() string {
	if s, ok := unitNames[u]; ok {
		return s
	}
	return "unknown"
}

func (u Unit) MarshalJSON() ([]byte, error) {
	return []byte(`"` + u.String() + `"`), nil
}

// ValveState is a tagged value in the composite valve enum (spec §3).
type ValveState int

const (
	ValveUndetermined ValveState = iota
	ValveDisconnected
	ValveOpen
	ValveClosed
	ValveCommandedOpen
	ValveCommandedClosed
	ValveFault
)

var valveStateNames = map[ValveState]string{
	ValveUndetermined:    "Undetermined",
	ValveDisconnected:    "Disconnected",
	ValveOpen:            "Open",
	ValveClosed:          "Closed",
	ValveCommandedOpen:   "CommandedOpen",
	ValveCommandedClosed: "CommandedClosed",
	ValveFault:           "Fault",
}

func (v ValveState) String() string {
	if s, ok := valveStateNames[v]; ok {
		return s
	}
	return "Undetermined"
}

func (v ValveState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

// AllValveStates enumerates every valve-state value, in stable id order —
// used by the HDF5 exporter to populate /metadata/valve_state_ids.
func AllValveStates() []ValveState {
	return []ValveState{
		ValveUndetermined, ValveDisconnected, ValveOpen, ValveClosed,
		ValveCommandedOpen, ValveCommandedClosed, ValveFault,
	}
}

// Measurement is one sensor reading.
type Measurement struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// CompositeValveState is one valve's commanded/actual pair.
type CompositeValveState struct {
	Commanded ValveState `json:"commanded"`
	Actual    ValveState `json:"actual"`
}

// State is the authoritative live snapshot (spec §3 "VehicleState").
type State struct {
	SensorReadings map[string]Measurement         `json:"sensor_readings"`
	ValveStates    map[string]CompositeValveState `json:"valve_states"`
	UpdateTimes    map[string]float64             `json:"update_times"`
}

// NewState returns an empty, non-nil State — the value the hub is seeded
// with at startup (spec §3 "created empty at startup").
func NewState() *State {
	return &State{
		SensorReadings: make(map[string]Measurement),
		ValveStates:    make(map[string]CompositeValveState),
		UpdateTimes:    make(map[string]float64),
	}
}

// Clone performs the "copy-out" every reader is required to do before doing
// further work (spec §4.B, §5): readers must never hold a reference into the
// hub's live maps.
func (s *State) Clone() *State {
	out := NewState()
	for k, v := range s.SensorReadings {
		out.SensorReadings[k] = v
	}
	for k, v := range s.ValveStates {
		out.ValveStates[k] = v
	}
	for k, v := range s.UpdateTimes {
		out.UpdateTimes[k] = v
	}
	return out
}

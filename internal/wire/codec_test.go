package wire

import (
	"testing"

	"github.com/groundstation/servo/internal/channelmap"
	"github.com/groundstation/servo/internal/vehicle"
)

func TestEncodeDecodeStateRoundTrip(t *testing.T) {
	s := vehicle.NewState()
	s.SensorReadings["KBPT"] = vehicle.Measurement{Value: 120.5, Unit: vehicle.UnitPsi}
	s.SensorReadings["WTPT"] = vehicle.Measurement{Value: -1000, Unit: vehicle.UnitKelvin}
	s.ValveStates["BBV"] = vehicle.CompositeValveState{Commanded: vehicle.ValveClosed, Actual: vehicle.ValveClosed}
	s.ValveStates["SWV"] = vehicle.CompositeValveState{Commanded: vehicle.ValveCommandedOpen, Actual: vehicle.ValveFault}
	s.UpdateTimes["KBPT"] = 1234.5

	decoded, err := DecodeState(EncodeState(s))
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}

	if len(decoded.SensorReadings) != 2 {
		t.Fatalf("got %d sensor readings, want 2", len(decoded.SensorReadings))
	}
	if got := decoded.SensorReadings["KBPT"]; got.Value != 120.5 || got.Unit != vehicle.UnitPsi {
		t.Errorf("KBPT reading = %+v, want {120.5 psi}", got)
	}
	if got := decoded.ValveStates["SWV"]; got.Commanded != vehicle.ValveCommandedOpen || got.Actual != vehicle.ValveFault {
		t.Errorf("SWV valve state = %+v, want {CommandedOpen Fault}", got)
	}
	if decoded.UpdateTimes["KBPT"] != 1234.5 {
		t.Errorf("KBPT update time = %v, want 1234.5", decoded.UpdateTimes["KBPT"])
	}
}

func TestDecodeStateEmpty(t *testing.T) {
	decoded, err := DecodeState(nil)
	if err != nil {
		t.Fatalf("DecodeState(nil): %v", err)
	}
	if len(decoded.SensorReadings) != 0 || len(decoded.ValveStates) != 0 || len(decoded.UpdateTimes) != 0 {
		t.Errorf("expected an empty state, got %+v", decoded)
	}
}

func TestDecodeStateMalformed(t *testing.T) {
	if _, err := DecodeState([]byte{0xff}); err == nil {
		t.Error("expected an error decoding a truncated varint tag, got nil")
	}
}

func TestEncodeDecodeControlMessageMappings(t *testing.T) {
	max := 500.0
	normallyClosed := true

	mappings := []channelmap.NodeMapping{
		{
			TextID:         "BBV",
			BoardID:        3,
			ChannelType:    channelmap.ChannelValve,
			Channel:        7,
			Computer:       channelmap.ComputerFlight,
			Max:            &max,
			NormallyClosed: &normallyClosed,
		},
	}

	msg, err := DecodeControlMessage(EncodeMappings(mappings))
	if err != nil {
		t.Fatalf("DecodeControlMessage: %v", err)
	}
	if len(msg.Mappings) != 1 {
		t.Fatalf("got %d mappings, want 1", len(msg.Mappings))
	}

	got := msg.Mappings[0]
	if got.TextID != "BBV" || got.BoardID != 3 || got.ChannelType != channelmap.ChannelValve || got.Channel != 7 {
		t.Errorf("decoded mapping = %+v, want TextID=BBV BoardID=3 ChannelType=valve Channel=7", got)
	}
	if got.Max == nil || *got.Max != 500.0 {
		t.Errorf("decoded Max = %v, want 500.0", got.Max)
	}
	if got.NormallyClosed == nil || !*got.NormallyClosed {
		t.Errorf("decoded NormallyClosed = %v, want true", got.NormallyClosed)
	}
	if msg.Sequence != nil {
		t.Errorf("expected no sequence variant, got %+v", msg.Sequence)
	}
}

func TestEncodeDecodeControlMessageSequence(t *testing.T) {
	msg, err := DecodeControlMessage(EncodeSequence("click_valve", "BBV.open()"))
	if err != nil {
		t.Fatalf("DecodeControlMessage: %v", err)
	}
	if msg.Sequence == nil {
		t.Fatal("expected a sequence variant, got nil")
	}
	if msg.Sequence.Name != "click_valve" || msg.Sequence.Script != "BBV.open()" {
		t.Errorf("decoded sequence = %+v, want {click_valve BBV.open()}", msg.Sequence)
	}
	if len(msg.Mappings) != 0 {
		t.Errorf("expected no mappings, got %d", len(msg.Mappings))
	}
}

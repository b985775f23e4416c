// Package wire is the compact binary codec for everything that crosses the
// flight link: VehicleState telemetry (UDP, spec §4.C) and
// FlightControlMessage command frames (TCP, spec §4.C/§6).
//
// original_source/src/flight.rs builds these same messages with
// quick_protobuf/fs_protobuf_rust — a real protobuf codec. We ground this
// package in the same wire format using google.golang.org/protobuf's
// low-level encoding/protowire primitives directly (the primitive
// protoc-generated code itself is built on), which keeps the format
// schema-agnostic to the consumer and length-delimited per spec §3,
// without requiring a .proto codegen step.
package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/groundstation/servo/internal/channelmap"
	"github.com/groundstation/servo/internal/vehicle"
)

// Field numbers for the VehicleState message.
const (
	fieldSensorReadings protowire.Number = 1
	fieldValveStates    protowire.Number = 2
	fieldUpdateTimes    protowire.Number = 3
)

// Field numbers within a SensorReading submessage.
const (
	fieldReadingTextID protowire.Number = 1
	fieldReadingValue  protowire.Number = 2
	fieldReadingUnit   protowire.Number = 3
)

// Field numbers within a ValveEntry submessage.
const (
	fieldValveTextID    protowire.Number = 1
	fieldValveCommanded protowire.Number = 2
	fieldValveActual    protowire.Number = 3
)

// Field numbers within an UpdateEntry submessage.
const (
	fieldUpdateTextID  protowire.Number = 1
	fieldUpdateSeconds protowire.Number = 2
)

// EncodeState serializes a VehicleState for the telemetry wire.
func EncodeState(s *vehicle.State) []byte {
	var b []byte
	for textID, m := range s.SensorReadings {
		sub := appendTagString(nil, fieldReadingTextID, textID)
		sub = appendTagFixed64(sub, fieldReadingValue, math.Float64bits(m.Value))
		sub = protowire.AppendTag(sub, fieldReadingUnit, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(m.Unit))
		b = appendTagBytes(b, fieldSensorReadings, sub)
	}
	for textID, v := range s.ValveStates {
		sub := appendTagString(nil, fieldValveTextID, textID)
		sub = protowire.AppendTag(sub, fieldValveCommanded, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(v.Commanded))
		sub = protowire.AppendTag(sub, fieldValveActual, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(v.Actual))
		b = appendTagBytes(b, fieldValveStates, sub)
	}
	for textID, secs := range s.UpdateTimes {
		sub := appendTagString(nil, fieldUpdateTextID, textID)
		sub = appendTagFixed64(sub, fieldUpdateSeconds, math.Float64bits(secs))
		b = appendTagBytes(b, fieldUpdateTimes, sub)
	}
	return b
}

// DecodeState deserializes a telemetry datagram into a VehicleState. On
// malformed input it returns an error; the flight-link receiver logs and
// continues per spec §4.C rather than terminating the session.
func DecodeState(b []byte) (*vehicle.State, error) {
	s := vehicle.NewState()
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: consuming top-level tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldSensorReadings:
			sub, rest, err := consumeBytesField(b, typ)
			if err != nil {
				return nil, err
			}
			b = rest
			textID, val, unit, err := decodeReading(sub)
			if err != nil {
				return nil, err
			}
			s.SensorReadings[textID] = vehicle.Measurement{Value: val, Unit: vehicle.Unit(unit)}
		case fieldValveStates:
			sub, rest, err := consumeBytesField(b, typ)
			if err != nil {
				return nil, err
			}
			b = rest
			textID, commanded, actual, err := decodeValveEntry(sub)
			if err != nil {
				return nil, err
			}
			s.ValveStates[textID] = vehicle.CompositeValveState{
				Commanded: vehicle.ValveState(commanded),
				Actual:    vehicle.ValveState(actual),
			}
		case fieldUpdateTimes:
			sub, rest, err := consumeBytesField(b, typ)
			if err != nil {
				return nil, err
			}
			b = rest
			textID, secs, err := decodeUpdateEntry(sub)
			if err != nil {
				return nil, err
			}
			s.UpdateTimes[textID] = secs
		default:
			rest, err := skipField(b, typ)
			if err != nil {
				return nil, err
			}
			b = rest
		}
	}
	return s, nil
}

func decodeReading(b []byte) (textID string, value float64, unit uint64, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", 0, 0, fmt.Errorf("wire: reading tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldReadingTextID:
			v, rest, err := consumeString(b, typ)
			if err != nil {
				return "", 0, 0, err
			}
			textID, b = v, rest
		case fieldReadingValue:
			v, rest, err := consumeFixed64(b, typ)
			if err != nil {
				return "", 0, 0, err
			}
			value, b = math.Float64frombits(v), rest
		case fieldReadingUnit:
			v, rest, err := consumeVarint(b, typ)
			if err != nil {
				return "", 0, 0, err
			}
			unit, b = v, rest
		default:
			rest, err := skipField(b, typ)
			if err != nil {
				return "", 0, 0, err
			}
			b = rest
		}
	}
	return textID, value, unit, nil
}

func decodeValveEntry(b []byte) (textID string, commanded, actual uint64, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", 0, 0, fmt.Errorf("wire: valve entry tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldValveTextID:
			v, rest, err := consumeString(b, typ)
			if err != nil {
				return "", 0, 0, err
			}
			textID, b = v, rest
		case fieldValveCommanded:
			v, rest, err := consumeVarint(b, typ)
			if err != nil {
				return "", 0, 0, err
			}
			commanded, b = v, rest
		case fieldValveActual:
			v, rest, err := consumeVarint(b, typ)
			if err != nil {
				return "", 0, 0, err
			}
			actual, b = v, rest
		default:
			rest, err := skipField(b, typ)
			if err != nil {
				return "", 0, 0, err
			}
			b = rest
		}
	}
	return textID, commanded, actual, nil
}

func decodeUpdateEntry(b []byte) (textID string, secs float64, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", 0, fmt.Errorf("wire: update entry tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldUpdateTextID:
			v, rest, err := consumeString(b, typ)
			if err != nil {
				return "", 0, err
			}
			textID, b = v, rest
		case fieldUpdateSeconds:
			v, rest, err := consumeFixed64(b, typ)
			if err != nil {
				return "", 0, err
			}
			secs, b = math.Float64frombits(v), rest
		default:
			rest, err := skipField(b, typ)
			if err != nil {
				return "", 0, err
			}
			b = rest
		}
	}
	return textID, secs, nil
}

// --- NodeMapping ---

const (
	fieldMapTextID             protowire.Number = 1
	fieldMapBoardID            protowire.Number = 2
	fieldMapChannelType        protowire.Number = 3
	fieldMapChannel            protowire.Number = 4
	fieldMapComputer           protowire.Number = 5
	fieldMapMax                protowire.Number = 6
	fieldMapMin                protowire.Number = 7
	fieldMapCalibratedOffset   protowire.Number = 8
	fieldMapConnectedThreshold protowire.Number = 9
	fieldMapPoweredThreshold   protowire.Number = 10
	fieldMapNormallyClosed     protowire.Number = 11
)

func encodeNodeMapping(m channelmap.NodeMapping) []byte {
	var b []byte
	b = appendTagString(b, fieldMapTextID, m.TextID)
	b = protowire.AppendTag(b, fieldMapBoardID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.BoardID))
	b = protowire.AppendTag(b, fieldMapChannelType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ChannelType))
	b = protowire.AppendTag(b, fieldMapChannel, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Channel))
	b = protowire.AppendTag(b, fieldMapComputer, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Computer))
	if m.Max != nil {
		b = appendTagFixed64(b, fieldMapMax, math.Float64bits(*m.Max))
	}
	if m.Min != nil {
		b = appendTagFixed64(b, fieldMapMin, math.Float64bits(*m.Min))
	}
	if m.CalibratedOffset != nil {
		b = appendTagFixed64(b, fieldMapCalibratedOffset, math.Float64bits(*m.CalibratedOffset))
	}
	if m.ConnectedThreshold != nil {
		b = appendTagFixed64(b, fieldMapConnectedThreshold, math.Float64bits(*m.ConnectedThreshold))
	}
	if m.PoweredThreshold != nil {
		b = appendTagFixed64(b, fieldMapPoweredThreshold, math.Float64bits(*m.PoweredThreshold))
	}
	if m.NormallyClosed != nil {
		b = protowire.AppendTag(b, fieldMapNormallyClosed, protowire.VarintType)
		v := uint64(0)
		if *m.NormallyClosed {
			v = 1
		}
		b = protowire.AppendVarint(b, v)
	}
	return b
}

func decodeNodeMapping(b []byte) (channelmap.NodeMapping, error) {
	var m channelmap.NodeMapping
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return m, fmt.Errorf("wire: node mapping tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldMapTextID:
			v, rest, err := consumeString(b, typ)
			if err != nil {
				return m, err
			}
			m.TextID, b = v, rest
		case fieldMapBoardID:
			v, rest, err := consumeVarint(b, typ)
			if err != nil {
				return m, err
			}
			m.BoardID, b = uint32(v), rest
		case fieldMapChannelType:
			v, rest, err := consumeVarint(b, typ)
			if err != nil {
				return m, err
			}
			m.ChannelType, b = channelmap.ChannelType(v), rest
		case fieldMapChannel:
			v, rest, err := consumeVarint(b, typ)
			if err != nil {
				return m, err
			}
			m.Channel, b = uint32(v), rest
		case fieldMapComputer:
			v, rest, err := consumeVarint(b, typ)
			if err != nil {
				return m, err
			}
			m.Computer, b = channelmap.Computer(v), rest
		case fieldMapMax:
			v, rest, err := consumeFixed64(b, typ)
			if err != nil {
				return m, err
			}
			f := math.Float64frombits(v)
			m.Max, b = &f, rest
		case fieldMapMin:
			v, rest, err := consumeFixed64(b, typ)
			if err != nil {
				return m, err
			}
			f := math.Float64frombits(v)
			m.Min, b = &f, rest
		case fieldMapCalibratedOffset:
			v, rest, err := consumeFixed64(b, typ)
			if err != nil {
				return m, err
			}
			f := math.Float64frombits(v)
			m.CalibratedOffset, b = &f, rest
		case fieldMapConnectedThreshold:
			v, rest, err := consumeFixed64(b, typ)
			if err != nil {
				return m, err
			}
			f := math.Float64frombits(v)
			m.ConnectedThreshold, b = &f, rest
		case fieldMapPoweredThreshold:
			v, rest, err := consumeFixed64(b, typ)
			if err != nil {
				return m, err
			}
			f := math.Float64frombits(v)
			m.PoweredThreshold, b = &f, rest
		case fieldMapNormallyClosed:
			v, rest, err := consumeVarint(b, typ)
			if err != nil {
				return m, err
			}
			nc := v != 0
			m.NormallyClosed, b = &nc, rest
		default:
			rest, err := skipField(b, typ)
			if err != nil {
				return m, err
			}
			b = rest
		}
	}
	return m, nil
}

// --- FlightControlMessage ---

const (
	fieldCtrlMappings protowire.Number = 1
	fieldCtrlSequence protowire.Number = 2

	fieldSeqName   protowire.Number = 1
	fieldSeqScript protowire.Number = 2
)

// ControlMessage mirrors FlightControlMessage's two variants (spec §4.C/§6):
// exactly one of Mappings or Sequence is set.
type ControlMessage struct {
	Mappings []channelmap.NodeMapping
	Sequence *SequenceMessage
}

// SequenceMessage is the {name, script} pair relayed verbatim to flight.
type SequenceMessage struct {
	Name   string
	Script string
}

// EncodeMappings frames a Mappings(Vec<NodeMapping>) control message.
func EncodeMappings(mappings []channelmap.NodeMapping) []byte {
	var b []byte
	for _, m := range mappings {
		b = appendTagBytes(b, fieldCtrlMappings, encodeNodeMapping(m))
	}
	return b
}

// EncodeSequence frames a Sequence{name,script} control message.
func EncodeSequence(name, script string) []byte {
	sub := appendTagString(nil, fieldSeqName, name)
	sub = appendTagString(sub, fieldSeqScript, script)
	return appendTagBytes(nil, fieldCtrlSequence, sub)
}

// DecodeControlMessage parses a FlightControlMessage frame. The server
// itself only encodes these frames; this decoder is exercised by the codec
// tests.
func DecodeControlMessage(b []byte) (*ControlMessage, error) {
	msg := &ControlMessage{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: control message tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldCtrlMappings:
			sub, rest, err := consumeBytesField(b, typ)
			if err != nil {
				return nil, err
			}
			b = rest
			m, err := decodeNodeMapping(sub)
			if err != nil {
				return nil, err
			}
			msg.Mappings = append(msg.Mappings, m)
		case fieldCtrlSequence:
			sub, rest, err := consumeBytesField(b, typ)
			if err != nil {
				return nil, err
			}
			b = rest
			seq, err := decodeSequenceMessage(sub)
			if err != nil {
				return nil, err
			}
			msg.Sequence = seq
		default:
			rest, err := skipField(b, typ)
			if err != nil {
				return nil, err
			}
			b = rest
		}
	}
	return msg, nil
}

func decodeSequenceMessage(b []byte) (*SequenceMessage, error) {
	seq := &SequenceMessage{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: sequence message tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldSeqName:
			v, rest, err := consumeString(b, typ)
			if err != nil {
				return nil, err
			}
			seq.Name, b = v, rest
		case fieldSeqScript:
			v, rest, err := consumeString(b, typ)
			if err != nil {
				return nil, err
			}
			seq.Script, b = v, rest
		default:
			rest, err := skipField(b, typ)
			if err != nil {
				return nil, err
			}
			b = rest
		}
	}
	return seq, nil
}

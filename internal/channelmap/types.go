// Package channelmap holds the NodeMapping wire/domain type shared by the
// flight-link codec and the configuration authority (spec §3) — split out
// from internal/mapping so internal/flightlink can depend on the type
// without depending on the service package that itself depends on
// internal/flightlink to push changes.
package channelmap

// ChannelType enumerates the physical channel kinds a NodeMapping can
// declare (spec §3).
type ChannelType int

const (
	ChannelUnknown ChannelType = iota
	ChannelGPIO
	ChannelLED
	ChannelRail3V3
	ChannelRail5V
	ChannelRail5V5
	ChannelRail24V
	ChannelCurrentLoop
	ChannelDifferentialSignal
	ChannelTC
	ChannelValveCurrent
	ChannelValveVoltage
	ChannelRTD
	ChannelValve
)

var channelTypeNames = map[ChannelType]string{
	ChannelGPIO:               "gpio",
	ChannelLED:                "led",
	ChannelRail3V3:            "rail_3v3",
	ChannelRail5V:             "rail_5v",
	ChannelRail5V5:            "rail_5v5",
	ChannelRail24V:            "rail_24v",
	ChannelCurrentLoop:        "current_loop",
	ChannelDifferentialSignal: "differential_signal",
	ChannelTC:                 "tc",
	ChannelValveCurrent:       "valve_current",
	ChannelValveVoltage:       "valve_voltage",
	ChannelRTD:                "rtd",
	ChannelValve:              "valve",
}

var channelTypeByName = func() map[string]ChannelType {
	m := make(map[string]ChannelType, len(channelTypeNames))
	for k, v := range channelTypeNames {
		m[v] = k
	}
	return m
}()

func (c ChannelType) String() string {
	if s, ok := channelTypeNames[c]; ok {
		return s
	}
	return "unknown"
}

func (c ChannelType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c *ChannelType) UnmarshalJSON(b []byte) error {
	name := trimQuotes(string(b))
	v, ok := channelTypeByName[name]
	if !ok {
		return &unknownEnumError{kind: "channel_type", value: name}
	}
	*c = v
	return nil
}

// Computer identifies which onboard computer owns a channel.
type Computer int

const (
	ComputerUnknown Computer = iota
	ComputerFlight
	ComputerGround
)

var computerNames = map[Computer]string{
	ComputerFlight: "flight",
	ComputerGround: "ground",
}

var computerByName = func() map[string]Computer {
	m := make(map[string]Computer, len(computerNames))
	for k, v := range computerNames {
		m[v] = k
	}
	return m
}()

func (c Computer) String() string {
	if s, ok := computerNames[c]; ok {
		return s
	}
	return "unknown"
}

func (c Computer) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c *Computer) UnmarshalJSON(b []byte) error {
	name := trimQuotes(string(b))
	v, ok := computerByName[name]
	if !ok {
		return &unknownEnumError{kind: "computer", value: name}
	}
	*c = v
	return nil
}

type unknownEnumError struct {
	kind, value string
}

func (e *unknownEnumError) Error() string {
	return "unknown " + e.kind + ": " + e.value
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// NodeMapping declares one physical channel (spec §3).
type NodeMapping struct {
	ConfigurationID string      `json:"configuration_id"`
	TextID          string      `json:"text_id"`
	BoardID         uint32      `json:"board_id"`
	ChannelType     ChannelType `json:"channel_type"`
	Channel         uint32      `json:"channel"`
	Computer        Computer    `json:"computer"`

	Max                 *float64 `json:"max,omitempty"`
	Min                 *float64 `json:"min,omitempty"`
	CalibratedOffset    *float64 `json:"calibrated_offset,omitempty"`
	ConnectedThreshold  *float64 `json:"connected_threshold,omitempty"`
	PoweredThreshold    *float64 `json:"powered_threshold,omitempty"`
	NormallyClosed      *bool    `json:"normally_closed,omitempty"`
	Active              bool     `json:"active"`
}

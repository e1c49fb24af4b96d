package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Decoding errors.
var (
	ErrMalformed     = errors.New("malformed message")
	ErrMissingAction = errors.New("missing action")
	ErrMissingValue  = errors.New("missing value")
	ErrUnknownKind   = errors.New("unknown telemetry kind")
)

// DefaultValue is the command value used when a command carries none.
const DefaultValue = 100.0

// NoReading is the sentinel distance meaning the last measurement failed.
const NoReading = -1.0

// KindDistance is the only telemetry kind.
const KindDistance = "distance"

// Action is a closed set of command actions.
type Action int

const (
	ActionUnknown Action = iota
	ActionForward
	ActionBackward
	ActionLeft
	ActionRight
	ActionStop
	ActionCamLeft
	ActionCamRight
	ActionCamUp
	ActionCamDown
	ActionZoom
)

var actionNames = map[Action]string{
	ActionForward:  "forward",
	ActionBackward: "backward",
	ActionLeft:     "left",
	ActionRight:    "right",
	ActionStop:     "stop",
	ActionCamLeft:  "cam_left",
	ActionCamRight: "cam_right",
	ActionCamUp:    "cam_up",
	ActionCamDown:  "cam_down",
	ActionZoom:     "zoom",
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, len(actionNames))
	for a, name := range actionNames {
		m[name] = a
	}
	return m
}()

// ParseAction maps a wire action to an Action. Unrecognized names yield ActionUnknown.
func ParseAction(name string) Action {
	if a, ok := actionsByName[name]; ok {
		return a
	}
	return ActionUnknown
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// IsDrive reports whether the action is handled by the motor interlock.
func (a Action) IsDrive() bool {
	switch a {
	case ActionForward, ActionBackward, ActionLeft, ActionRight, ActionStop:
		return true
	}
	return false
}

// IsCamera reports whether the action is handled by the camera dispatcher.
func (a Action) IsCamera() bool {
	switch a {
	case ActionCamLeft, ActionCamRight, ActionCamUp, ActionCamDown, ActionZoom:
		return true
	}
	return false
}

// ControlCommand is one drive or camera command.
type ControlCommand struct {
	Action Action
	Name   string // action as received
	Value  float64
}

type wireCommand struct {
	Action *string  `json:"action"`
	Value  *float64 `json:"value"`
}

// DecodeCommand parses a control command. A missing value defaults to DefaultValue.
// Unrecognized action names decode successfully as ActionUnknown.
func DecodeCommand(data []byte) (ControlCommand, error) {
	var w wireCommand
	if err := json.Unmarshal(data, &w); err != nil {
		return ControlCommand{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if w.Action == nil || *w.Action == "" {
		return ControlCommand{}, ErrMissingAction
	}

	cmd := ControlCommand{
		Action: ParseAction(*w.Action),
		Name:   *w.Action,
		Value:  DefaultValue,
	}
	if w.Value != nil {
		cmd.Value = *w.Value
	}
	return cmd, nil
}

// Encode returns the wire form of the command.
func (c ControlCommand) Encode() ([]byte, error) {
	name := c.Name
	if name == "" {
		name = c.Action.String()
	}
	return json.Marshal(struct {
		Action string  `json:"action"`
		Value  float64 `json:"value"`
	}{name, c.Value})
}

// TelemetrySample is one distance reading.
type TelemetrySample struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
}

// Valid reports whether the sample holds a real reading.
func (s TelemetrySample) Valid() bool {
	return !IsNoReading(s.Value)
}

// IsNoReading reports whether v is the no-reading sentinel.
func IsNoReading(v float64) bool {
	return v == NoReading || math.IsNaN(v)
}

// Distance builds a distance sample.
func Distance(v float64) TelemetrySample {
	return TelemetrySample{Kind: KindDistance, Value: v}
}

type wireSample struct {
	Kind  *string  `json:"kind"`
	Type  *string  `json:"type"` // older agents
	Value *float64 `json:"value"`
}

// DecodeSample parses a telemetry sample. Both "kind" and the older "type"
// field name the sample kind; an absent kind is taken as distance.
func DecodeSample(data []byte) (TelemetrySample, error) {
	var w wireSample
	if err := json.Unmarshal(data, &w); err != nil {
		return TelemetrySample{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	kind := KindDistance
	switch {
	case w.Kind != nil:
		kind = *w.Kind
	case w.Type != nil:
		kind = *w.Type
	}
	if kind != KindDistance {
		return TelemetrySample{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if w.Value == nil {
		return TelemetrySample{}, ErrMissingValue
	}

	return TelemetrySample{Kind: kind, Value: *w.Value}, nil
}

// Encode returns the wire form of the sample.
func (s TelemetrySample) Encode() ([]byte, error) {
	if s.Kind == "" {
		s.Kind = KindDistance
	}
	return json.Marshal(s)
}

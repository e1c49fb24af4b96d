package adapter

import (
	"context"
	"time"
)

// Channel identifies one of the four motor driver duty-cycle outputs.
type Channel int

// Duty-cycle channels. The names follow the driver board pin labels, not the
// direction the wheels turn when the channel is energized.
const (
	LeftReverse Channel = iota
	RightReverse
	LeftForward
	RightForward
)

// AllChannels returns every duty-cycle channel in pin order.
func AllChannels() []Channel {
	return []Channel{LeftReverse, RightReverse, LeftForward, RightForward}
}

// String returns the channel name used in logs.
func (c Channel) String() string {
	switch c {
	case LeftReverse:
		return "leftReverse"
	case RightReverse:
		return "rightReverse"
	case LeftForward:
		return "leftForward"
	case RightForward:
		return "rightForward"
	default:
		return "unknown"
	}
}

// MaxDutyCycle is the upper bound of a duty-cycle percentage.
const MaxDutyCycle = 100.0

// MotorDriver sets PWM duty cycles on the motor driver board.
type MotorDriver interface {
	// SetDutyCycle sets the duty cycle of a channel.
	// Params: percent (0-100)
	SetDutyCycle(ctx context.Context, ch Channel, percent float64) error
}

// Level is a logic level on the echo pin.
type Level int

const (
	Low Level = iota
	High
)

// RangeSensor is an ultrasonic ranging sensor with a trigger and an echo pin.
type RangeSensor interface {
	// TriggerPulse emits the ranging pulse on the trigger pin.
	TriggerPulse() error

	// WaitForEdge blocks until the echo pin reaches level or timeout elapses.
	// Returns false on timeout. Implementations may busy-wait.
	WaitForEdge(level Level, timeout time.Duration) bool
}

// Velocity is a continuous-move velocity vector, each axis in [-1, 1].
type Velocity struct {
	Pan  float64 `json:"pan"`
	Tilt float64 `json:"tilt"`
	Zoom float64 `json:"zoom"`
}

// PTZDriver moves a pan/tilt/zoom camera mount using a velocity/stop protocol.
type PTZDriver interface {
	// ContinuousMove starts moving at velocity. The device stops on its own after timeout.
	ContinuousMove(ctx context.Context, profileToken string, velocity Velocity, timeout time.Duration) error

	// Stop halts any movement for the profile.
	Stop(ctx context.Context, profileToken string) error
}

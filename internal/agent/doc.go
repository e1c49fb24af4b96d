// Package agent runs the on-robot side of the control plane.
//
// The agent keeps two websocket channels open to the relay: the command
// channel receives browser commands and hands them to the command dispatcher,
// the telemetry channel pushes the latest distance sample on a fixed interval.
// Each channel is owned by its own reconnect supervisor, so losing one never
// disturbs the other.
//
// Shutdown releases resources in a fixed order: the sampler stops, every motor
// channel is zeroed, the camera worker drains, and only then are the channels
// closed.
package agent

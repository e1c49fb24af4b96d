// Package adapter defines the actuator and sensor capability ports of the device agent.
//
// The agent never drives pins or speaks a camera protocol directly. Motors, the ultrasonic
// ranging sensor and the PTZ mount are reached through the small interfaces in this package,
// so hardware backends can be swapped without touching the interlock, sampler or dispatcher.
//
// Driver failures are normalized to the sentinel errors in errors.go.
package adapter

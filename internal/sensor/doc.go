// Package sensor implements the ultrasonic distance sampler.
//
// The sampler runs on its own OS thread because the echo waits are blocking
// busy-waits. It publishes into a single-slot Slot that the motor interlock and
// the telemetry sender read without blocking it.
package sensor

// Package relay implements the control-plane relay between browsers and the
// device agent.
//
// Connections are classified by endpoint at accept time:
//   - /control: browser control, any number, commands forwarded to the device
//   - /distance: browser telemetry, any number, receives distance samples
//   - /pi_control: device control, single slot, receives forwarded commands
//   - /pi_distance: device telemetry, single slot, sends distance samples
//
// Commands are forwarded at most once and dropped when no device is connected.
// The relay never stores or queues messages.
package relay

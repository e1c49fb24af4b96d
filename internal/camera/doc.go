// Package camera turns discrete camera commands into timed PTZ pulses.
//
// A pulse is a continuous move followed by a short dwell and an explicit stop,
// which nudges the mount by a small step. Pulses are queued to a single worker
// so the dwell never delays drive commands.
package camera

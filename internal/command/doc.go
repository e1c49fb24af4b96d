// Package command implements the device-side command dispatcher.
//
// The dispatcher decodes control commands received from the relay, routes
// drive actions to the motor interlock and camera actions to the camera
// worker, and writes an audit record for each command.
package command

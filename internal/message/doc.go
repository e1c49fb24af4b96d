// Package message defines the JSON messages exchanged between browsers, the
// relay and the device agent.
//
// Control commands flow browser -> relay -> device and are forwarded verbatim.
// Telemetry samples flow device -> relay -> browsers. A sample value of -1 means
// "no valid reading" and never reaches a browser.
package message

// Package telemetry implements the browser telemetry hub of the relay.
//
// The hub fans distance samples out to every subscribed browser. Each
// broadcast works on a snapshot of the subscribers and sends to all of them
// concurrently; a failed send is logged and never retried, and does not affect
// the other recipients. Nothing is buffered.
package telemetry

// Package audit implements the command audit trail.
//
// Every command the relay forwards or drops, and every command the agent
// dispatches, is appended as one JSON line with subject, action, value,
// outcome, code and latency. Files are rotated by size with lumberjack.
package audit

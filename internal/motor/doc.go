// Package motor implements the drive safety interlock.
//
// Every drive command first zeroes all four duty-cycle channels. A forward
// command is then suppressed while auto-brake is on and the latest valid
// distance reading is below the safety threshold.
package motor

// Package auth implements bearer-token checks for the relay endpoints.
//
// Tokens are HS256 JWTs carrying a subject and a list of scopes:
//   - control: may open /control
//   - telemetry: may open /distance
//   - device: may open /pi_control and /pi_distance
//
// Browsers cannot set headers on websocket upgrades, so the token may also be
// passed as the "token" query parameter.
package auth

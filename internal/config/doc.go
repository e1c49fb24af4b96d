// Package config implements configuration loading for the relay and the agent.
//
// Settings start from built-in defaults, are merged with an optional YAML file
// (explicit path or ROVER_CONFIG) and then overridden by ROVER_* environment
// variables. The result is validated before use.
package config

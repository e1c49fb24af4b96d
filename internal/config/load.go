//
//
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Load merges Default() + optional YAML file + ROVER_* env overrides, then validates.
// The file is path when set, otherwise $ROVER_CONFIG when set.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("ROVER_CONFIG")
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides applies ROVER_* environment variables to the config.
func applyEnvOverrides(cfg *Config) error {
	// Relay
	setString(&cfg.Relay.Addr, "ROVER_RELAY_ADDR")
	setString(&cfg.Relay.StaticDir, "ROVER_STATIC_DIR")
	if err := setDuration(&cfg.Relay.PingInterval, "ROVER_PING_INTERVAL"); err != nil {
		return err
	}

	// Agent
	setString(&cfg.Agent.BrokerURL, "ROVER_BROKER_URL")
	setString(&cfg.Agent.Token, "ROVER_AGENT_TOKEN")
	if err := setDuration(&cfg.Agent.ReconnectDelay, "ROVER_RECONNECT_DELAY"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Agent.TelemetryInterval, "ROVER_TELEMETRY_INTERVAL"); err != nil {
		return err
	}
	if err := setBool(&cfg.Agent.Simulate, "ROVER_SIMULATE"); err != nil {
		return err
	}

	// Safety
	if err := setBool(&cfg.Safety.AutoBrake, "ROVER_AUTO_BRAKE"); err != nil {
		return err
	}
	if err := setFloat(&cfg.Safety.Threshold, "ROVER_SAFETY_THRESHOLD"); err != nil {
		return err
	}

	// Camera
	if err := setBool(&cfg.Camera.Enabled, "ROVER_CAMERA_ENABLED"); err != nil {
		return err
	}
	setString(&cfg.Camera.ProfileToken, "ROVER_CAMERA_PROFILE")

	// Audit, auth, logging
	setString(&cfg.Audit.Dir, "ROVER_AUDIT_DIR")
	setString(&cfg.Auth.Secret, "ROVER_AUTH_SECRET")
	setString(&cfg.Auth.Issuer, "ROVER_AUTH_ISSUER")
	setString(&cfg.Log.Level, "ROVER_LOG_LEVEL")
	setString(&cfg.Log.File, "ROVER_LOG_FILE")

	return nil
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setDuration(dst *time.Duration, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setFloat(dst *float64, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

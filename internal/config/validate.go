//
//
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks a configuration for values the binaries cannot run with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateRelay(&cfg.Relay); err != nil {
		return fmt.Errorf("relay validation failed: %w", err)
	}
	if err := validateAgent(&cfg.Agent); err != nil {
		return fmt.Errorf("agent validation failed: %w", err)
	}
	if err := validateSensor(&cfg.Sensor); err != nil {
		return fmt.Errorf("sensor validation failed: %w", err)
	}
	if err := validateSafety(&cfg.Safety, &cfg.Sensor); err != nil {
		return fmt.Errorf("safety validation failed: %w", err)
	}
	if err := validateCamera(&cfg.Camera); err != nil {
		return fmt.Errorf("camera validation failed: %w", err)
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log validation failed: %w", err)
	}

	return nil
}

func validateRelay(c *RelayConfig) error {
	if c.Addr == "" {
		return fmt.Errorf("addr must be set")
	}
	if c.PingInterval <= 0 {
		return fmt.Errorf("ping interval must be positive, got %v", c.PingInterval)
	}
	// Pongs must be able to arrive before the read deadline expires.
	if c.PongTimeout <= c.PingInterval {
		return fmt.Errorf("pong timeout %v must be > ping interval %v", c.PongTimeout, c.PingInterval)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %v", c.WriteTimeout)
	}
	if c.ReadLimit <= 0 {
		return fmt.Errorf("read limit must be positive, got %d", c.ReadLimit)
	}
	for _, origin := range c.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("allowed origin %q must be * or an http(s) origin", origin)
		}
	}
	return nil
}

func validateAgent(c *AgentConfig) error {
	u, err := url.Parse(c.BrokerURL)
	if err != nil {
		return fmt.Errorf("invalid broker url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("broker url scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("broker url has no host")
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect delay must be positive, got %v", c.ReconnectDelay)
	}
	if c.TelemetryInterval <= 0 {
		return fmt.Errorf("telemetry interval must be positive, got %v", c.TelemetryInterval)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("dial timeout must be positive, got %v", c.DialTimeout)
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command timeout must be positive, got %v", c.CommandTimeout)
	}
	return nil
}

func validateSensor(c *SensorConfig) error {
	if c.Period <= 0 {
		return fmt.Errorf("period must be positive, got %v", c.Period)
	}
	if c.EdgeTimeout <= 0 {
		return fmt.Errorf("edge timeout must be positive, got %v", c.EdgeTimeout)
	}
	// Two edge waits must fit inside one period.
	if 2*c.EdgeTimeout >= c.Period {
		return fmt.Errorf("edge timeout %v too long for period %v", c.EdgeTimeout, c.Period)
	}
	if c.MinDistance < 0 || c.MaxDistance <= c.MinDistance {
		return fmt.Errorf("invalid distance range [%v, %v]", c.MinDistance, c.MaxDistance)
	}
	if c.Factor <= 0 {
		return fmt.Errorf("factor must be positive, got %v", c.Factor)
	}
	return nil
}

func validateSafety(c *SafetyConfig, s *SensorConfig) error {
	if c.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %v", c.Threshold)
	}
	if c.Threshold > s.MaxDistance {
		return fmt.Errorf("threshold %v beyond sensor range %v", c.Threshold, s.MaxDistance)
	}
	return nil
}

func validateCamera(c *CameraConfig) error {
	if !c.Enabled {
		return nil
	}
	if c.ProfileToken == "" {
		return fmt.Errorf("profile token must be set")
	}
	if c.MoveTimeout <= 0 || c.Dwell <= 0 {
		return fmt.Errorf("move timeout and dwell must be positive")
	}
	if c.Dwell > c.MoveTimeout {
		return fmt.Errorf("dwell %v exceeds move timeout %v", c.Dwell, c.MoveTimeout)
	}
	if c.Nudge <= 0 || c.Nudge > 1 {
		return fmt.Errorf("nudge must be in (0, 1], got %v", c.Nudge)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", c.QueueSize)
	}
	return nil
}

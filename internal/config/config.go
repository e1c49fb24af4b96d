//
//
package config

import "time"

// Config is the complete configuration of both binaries.
type Config struct {
	Relay  RelayConfig  `yaml:"relay"`
	Agent  AgentConfig  `yaml:"agent"`
	Sensor SensorConfig `yaml:"sensor"`
	Safety SafetyConfig `yaml:"safety"`
	Camera CameraConfig `yaml:"camera"`
	Audit  AuditConfig  `yaml:"audit"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
}

// RelayConfig holds broker listener settings
type RelayConfig struct {
	Addr           string        `yaml:"addr"`
	StaticDir      string        `yaml:"staticDir"` // browser UI, empty disables
	AllowedOrigins []string      `yaml:"allowedOrigins"`
	PingInterval   time.Duration `yaml:"pingInterval"`
	PongTimeout    time.Duration `yaml:"pongTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	ReadLimit      int64         `yaml:"readLimit"` // bytes per message
	ShutdownGrace  time.Duration `yaml:"shutdownGrace"`
}

// AgentConfig holds device agent connection settings
type AgentConfig struct {
	BrokerURL         string        `yaml:"brokerUrl"`
	Token             string        `yaml:"token"`
	ReconnectDelay    time.Duration `yaml:"reconnectDelay"`
	TelemetryInterval time.Duration `yaml:"telemetryInterval"`
	DialTimeout       time.Duration `yaml:"dialTimeout"`
	CommandTimeout    time.Duration `yaml:"commandTimeout"`
	Simulate          bool          `yaml:"simulate"`
	SimDistance       float64       `yaml:"simDistance"` // cm reported by the simulated sensor
}

// SensorConfig holds ultrasonic sampling settings
type SensorConfig struct {
	Period      time.Duration `yaml:"period"`
	EdgeTimeout time.Duration `yaml:"edgeTimeout"`
	MinDistance float64       `yaml:"minDistance"`
	MaxDistance float64       `yaml:"maxDistance"`
	Factor      float64       `yaml:"factor"`
}

// SafetyConfig holds interlock settings
type SafetyConfig struct {
	Threshold float64 `yaml:"threshold"`
	AutoBrake bool    `yaml:"autoBrake"`
}

// CameraConfig holds PTZ pulse settings
type CameraConfig struct {
	Enabled      bool          `yaml:"enabled"`
	ProfileToken string        `yaml:"profileToken"`
	MoveTimeout  time.Duration `yaml:"moveTimeout"`
	Dwell        time.Duration `yaml:"dwell"`
	Nudge        float64       `yaml:"nudge"`
	QueueSize    int           `yaml:"queueSize"`
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	Dir        string `yaml:"dir"` // empty disables auditing
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// AuthConfig holds endpoint token settings
type AuthConfig struct {
	Secret string `yaml:"secret"` // empty disables auth
	Issuer string `yaml:"issuer"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Relay: RelayConfig{
			Addr:          ":9000",
			PingInterval:  20 * time.Second,
			PongTimeout:   60 * time.Second,
			WriteTimeout:  5 * time.Second,
			ReadLimit:     4096,
			ShutdownGrace: 5 * time.Second,
		},
		Agent: AgentConfig{
			BrokerURL:         "ws://localhost:9000",
			ReconnectDelay:    5 * time.Second,
			TelemetryInterval: 500 * time.Millisecond,
			DialTimeout:       10 * time.Second,
			CommandTimeout:    2 * time.Second,
			SimDistance:       120,
		},
		Sensor: SensorConfig{
			Period:      500 * time.Millisecond,
			EdgeTimeout: 50 * time.Millisecond,
			MinDistance: 2,
			MaxDistance: 300,
			Factor:      17150,
		},
		Safety: SafetyConfig{
			Threshold: 25,
			AutoBrake: true,
		},
		Camera: CameraConfig{
			Enabled:      true,
			ProfileToken: "Profile_1",
			MoveTimeout:  time.Second,
			Dwell:        500 * time.Millisecond,
			Nudge:        0.5,
			QueueSize:    8,
		},
		Audit: AuditConfig{
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

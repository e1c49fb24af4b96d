// Package main implements the rover device agent entry point.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/adapter"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/adapter/fake"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/agent"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/audit"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/camera"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/command"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/config"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/motor"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/sensor"
)

const Version = "1.0.0"

// drivers bundles the southbound capabilities.
type drivers struct {
	motors adapter.MotorDriver
	sensor adapter.RangeSensor
	ptz    adapter.PTZDriver
}

// simulatedDrivers returns in-memory drivers for bench runs without hardware.
func simulatedDrivers(cfg *config.Config) drivers {
	d := drivers{
		motors: fake.NewMotorDriver(),
		sensor: fake.NewRangeSensor(nil, cfg.Agent.SimDistance),
	}
	if cfg.Camera.Enabled {
		d.ptz = fake.NewPTZDriver()
	}
	return d
}

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults to $ROVER_CONFIG)")
	simulate := flag.Bool("simulate", false, "use simulated motors, sensor and camera")
	flag.Parse()

	log.Printf("Starting rover agent v%s", Version)

	// Step 1: Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *simulate {
		cfg.Agent.Simulate = true
	}
	log.Println("Configuration loaded successfully")

	// Step 2: Initialize logging
	loggerFactory, logCloser, err := config.NewLoggerFactory(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logCloser.Close()

	// Step 3: Initialize drivers
	if !cfg.Agent.Simulate {
		log.Fatal("No hardware drivers are linked into this build; run with -simulate or agent.simulate: true")
	}
	hw := simulatedDrivers(cfg)
	log.Printf("Simulated drivers initialized (distance %.1f cm, camera %v)", cfg.Agent.SimDistance, hw.ptz != nil)

	// Step 4: Initialize audit logger
	var auditLogger *audit.Logger
	if cfg.Audit.Dir != "" {
		auditLogger, err = audit.NewLogger(audit.Config{
			Dir:        cfg.Audit.Dir,
			MaxSizeMB:  cfg.Audit.MaxSizeMB,
			MaxBackups: cfg.Audit.MaxBackups,
			MaxAgeDays: cfg.Audit.MaxAgeDays,
			Compress:   cfg.Audit.Compress,
		})
		if err != nil {
			log.Fatalf("Failed to initialize audit logger: %v", err)
		}
		defer auditLogger.Close()
		log.Printf("Audit logger writing to %s", auditLogger.FilePath())
	}

	// Step 5: Create sampler, interlock and camera
	slot := sensor.NewSlot()
	sampler := sensor.NewSampler(hw.sensor, slot, sensor.Config{
		Period:        cfg.Sensor.Period,
		EdgeTimeout:   cfg.Sensor.EdgeTimeout,
		MinDistance:   cfg.Sensor.MinDistance,
		MaxDistance:   cfg.Sensor.MaxDistance,
		Factor:        cfg.Sensor.Factor,
		LoggerFactory: loggerFactory,
	})

	interlock := motor.New(hw.motors, slot, motor.Config{
		Threshold:     cfg.Safety.Threshold,
		AutoBrake:     cfg.Safety.AutoBrake,
		LoggerFactory: loggerFactory,
	})

	cam := camera.NewDispatcher(hw.ptz, camera.Config{
		ProfileToken:  cfg.Camera.ProfileToken,
		MoveTimeout:   cfg.Camera.MoveTimeout,
		Dwell:         cfg.Camera.Dwell,
		Nudge:         cfg.Camera.Nudge,
		QueueSize:     cfg.Camera.QueueSize,
		LoggerFactory: loggerFactory,
	})

	// Step 6: Create command dispatcher
	commands := command.NewDispatcher(interlock, cam, command.Config{
		CommandTimeout: cfg.Agent.CommandTimeout,
		LoggerFactory:  loggerFactory,
	})
	if auditLogger != nil {
		commands.SetAuditLogger(auditLogger)
	}

	// Step 7: Create agent
	a, err := agent.New(agent.Config{
		BrokerURL:         cfg.Agent.BrokerURL,
		Token:             cfg.Agent.Token,
		ReconnectDelay:    cfg.Agent.ReconnectDelay,
		TelemetryInterval: cfg.Agent.TelemetryInterval,
		DialTimeout:       cfg.Agent.DialTimeout,
		WriteTimeout:      cfg.Relay.WriteTimeout,
		LoggerFactory:     loggerFactory,
	}, agent.Deps{
		Sampler:  sampler,
		Samples:  slot,
		Commands: commands,
		Motors:   interlock,
		Camera:   cam,
	})
	if err != nil {
		log.Fatalf("Failed to create agent: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Step 8: Run until signaled
	log.Printf("Agent connecting to %s", cfg.Agent.BrokerURL)
	if err := a.Run(ctx); err != nil {
		log.Printf("Agent error: %v", err)
	}

	log.Println("Agent shutdown complete")
}

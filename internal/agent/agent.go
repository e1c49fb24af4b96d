package agent

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/logging"
)

// Config holds agent settings.
type Config struct {
	BrokerURL         string
	Token             string
	ReconnectDelay    time.Duration
	TelemetryInterval time.Duration
	DialTimeout       time.Duration
	WriteTimeout      time.Duration

	// StopTimeout bounds the motor zeroing step of shutdown.
	StopTimeout time.Duration

	// LoggerFactory for creating loggers. If nil, uses DefaultLoggerFactory.
	LoggerFactory logging.LoggerFactory
}

// Deps are the components the agent drives. Camera and Sampler may be nil.
type Deps struct {
	Sampler  Sampler
	Samples  SampleSource
	Commands CommandHandler
	Motors   MotorStopper
	Camera   CameraWorker
}

// Status reports which channels are currently open.
type Status struct {
	Command   bool `json:"command"`
	Telemetry bool `json:"telemetry"`
}

// Agent owns the two relay channels and the shutdown sequence.
type Agent struct {
	cfg      Config
	sampler  Sampler
	samples  SampleSource
	commands CommandHandler
	motors   MotorStopper
	camera   CameraWorker
	log      logging.LeveledLogger

	commandUp   atomic.Bool
	telemetryUp atomic.Bool
	halted      atomic.Bool // commands are dropped once set
}

// New creates an agent. Zero durations in cfg take their defaults.
func New(cfg Config, deps Deps) (*Agent, error) {
	if err := validateBrokerURL(cfg.BrokerURL); err != nil {
		return nil, err
	}
	if deps.Samples == nil || deps.Commands == nil || deps.Motors == nil {
		return nil, errors.New("agent requires samples, commands and motors")
	}

	cfg.BrokerURL = strings.TrimRight(cfg.BrokerURL, "/")
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.TelemetryInterval <= 0 {
		cfg.TelemetryInterval = 500 * time.Millisecond
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 2 * time.Second
	}

	loggerFactory := cfg.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	return &Agent{
		cfg:      cfg,
		sampler:  deps.Sampler,
		samples:  deps.Samples,
		commands: deps.Commands,
		motors:   deps.Motors,
		camera:   deps.Camera,
		log:      loggerFactory.NewLogger("agent"),
	}, nil
}

func validateBrokerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid broker url %q: %w", raw, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid broker url %q: scheme must be ws or wss", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid broker url %q: missing host", raw)
	}
	return nil
}

// Status returns the current channel state.
func (a *Agent) Status() Status {
	return Status{
		Command:   a.commandUp.Load(),
		Telemetry: a.telemetryUp.Load(),
	}
}

// Run starts the sampler, the camera worker and both supervised channels, and
// blocks until ctx is done. On return the sampler has stopped, dispatch has
// stopped and every motor channel is zero, and both channels are closed, in
// that order.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Infof("agent starting, relay %s", a.cfg.BrokerURL)
	a.halted.Store(false)

	// Released resources must outlive ctx so they can be shut down in order.
	base := context.WithoutCancel(ctx)

	channelCtx, closeChannels := context.WithCancel(base)
	var channels sync.WaitGroup
	defer func() {
		closeChannels()
		channels.Wait()
		a.log.Infof("channels closed")
	}()

	if a.camera != nil {
		a.camera.Start()
		defer a.camera.Close()
	}

	defer a.stopMotors(base)

	samplerCtx, stopSampler := context.WithCancel(base)
	var sampler sync.WaitGroup
	if a.sampler != nil {
		sampler.Add(1)
		go func() {
			defer sampler.Done()
			a.sampler.Run(samplerCtx)
		}()
	}
	defer func() {
		stopSampler()
		sampler.Wait()
	}()

	channels.Add(2)
	go func() {
		defer channels.Done()
		Supervise(channelCtx, "command", a.cfg.ReconnectDelay, a.log, a.commandSession)
	}()
	go func() {
		defer channels.Done()
		Supervise(channelCtx, "telemetry", a.cfg.ReconnectDelay, a.log, a.telemetrySession)
	}()

	<-ctx.Done()
	a.log.Infof("agent shutting down")
	return nil
}

// stopMotors stops command dispatch, then zeroes every channel on a context
// that shutdown cannot cancel. The channels stay open until the last step.
func (a *Agent) stopMotors(base context.Context) {
	a.halted.Store(true)

	ctx, cancel := context.WithTimeout(base, a.cfg.StopTimeout)
	defer cancel()

	if err := a.motors.StopAll(ctx); err != nil {
		a.log.Errorf("failed to stop motors: %v", err)
		return
	}
	a.log.Infof("motors stopped")
}

package sensor

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/pion/logging"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/adapter"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/message"
)

// Config holds the sampling parameters.
type Config struct {
	Period      time.Duration // time between measurements
	EdgeTimeout time.Duration // bound on each echo edge wait
	MinDistance float64       // cm
	MaxDistance float64       // cm
	Factor      float64       // cm per echo second (half the speed of sound)

	// LoggerFactory for creating loggers. If nil, uses DefaultLoggerFactory.
	LoggerFactory logging.LoggerFactory

	// Now overrides the clock used to time the echo.
	Now func() time.Time
}

// DefaultConfig returns the sampler defaults for an HC-SR04 class sensor.
func DefaultConfig() Config {
	return Config{
		Period:      500 * time.Millisecond,
		EdgeTimeout: 50 * time.Millisecond,
		MinDistance: 2,
		MaxDistance: 300,
		Factor:      17150,
	}
}

// Sampler periodically measures distance and publishes it into a Slot.
type Sampler struct {
	sensor adapter.RangeSensor
	slot   *Slot
	cfg    Config
	now    func() time.Time
	log    logging.LeveledLogger
}

// NewSampler creates a sampler. Zero fields in cfg take their defaults.
func NewSampler(sensor adapter.RangeSensor, slot *Slot, cfg Config) *Sampler {
	def := DefaultConfig()
	if cfg.Period <= 0 {
		cfg.Period = def.Period
	}
	if cfg.EdgeTimeout <= 0 {
		cfg.EdgeTimeout = def.EdgeTimeout
	}
	if cfg.Factor <= 0 {
		cfg.Factor = def.Factor
	}
	if cfg.MinDistance == 0 && cfg.MaxDistance == 0 {
		cfg.MinDistance, cfg.MaxDistance = def.MinDistance, def.MaxDistance
	}

	loggerFactory := cfg.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Sampler{
		sensor: sensor,
		slot:   slot,
		cfg:    cfg,
		now:    now,
		log:    loggerFactory.NewLogger("sensor"),
	}
}

// Convert turns an echo width into a distance rounded to 2 decimals. Results
// outside [min, max] yield the no-reading sentinel.
func Convert(echo time.Duration, factor, min, max float64) float64 {
	d := math.Round(echo.Seconds()*factor*100) / 100
	if d < min || d > max {
		return message.NoReading
	}
	return d
}

// Measure takes one reading. Edge timeouts and trigger failures yield -1.
func (s *Sampler) Measure() float64 {
	if err := s.sensor.TriggerPulse(); err != nil {
		s.log.Warnf("trigger failed: %v", err)
		return message.NoReading
	}

	if !s.sensor.WaitForEdge(adapter.High, s.cfg.EdgeTimeout) {
		s.log.Tracef("echo rising edge timed out")
		return message.NoReading
	}
	start := s.now()

	if !s.sensor.WaitForEdge(adapter.Low, s.cfg.EdgeTimeout) {
		s.log.Tracef("echo falling edge timed out")
		return message.NoReading
	}

	return Convert(s.now().Sub(start), s.cfg.Factor, s.cfg.MinDistance, s.cfg.MaxDistance)
}

// Run measures every Period until ctx is done. It locks the calling goroutine
// to its OS thread for the lifetime of the loop.
func (s *Sampler) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.log.Infof("sampler started (period %v)", s.cfg.Period)
	defer s.log.Infof("sampler stopped")

	ticker := time.NewTicker(s.cfg.Period)
	defer ticker.Stop()

	for {
		d := s.Measure()
		s.slot.Store(d)
		s.log.Debugf("distance %.2f", d)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

package motor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/logging"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/adapter"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/message"
)

// ErrNotDrive is returned when Drive receives a non-drive action.
var ErrNotDrive = errors.New("not a drive action")

// DefaultThreshold is the braking distance in cm.
const DefaultThreshold = 25.0

// Outcome is the effect of a drive command.
type Outcome int

const (
	OutcomeDriven Outcome = iota
	OutcomeBraked
	OutcomeStopped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDriven:
		return "driven"
	case OutcomeBraked:
		return "braked"
	case OutcomeStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DistanceReader returns the latest distance sample (-1 when there is none).
type DistanceReader interface {
	Load() float64
}

// driveChannels is the wiring table of the driver board. The channel names are
// pin labels; forward motion energizes rightReverse.
var driveChannels = map[message.Action]adapter.Channel{
	message.ActionForward:  adapter.RightReverse,
	message.ActionBackward: adapter.LeftReverse,
	message.ActionLeft:     adapter.RightForward,
	message.ActionRight:    adapter.LeftForward,
}

// Config holds interlock settings.
type Config struct {
	Threshold float64
	AutoBrake bool

	// LoggerFactory for creating loggers. If nil, uses DefaultLoggerFactory.
	LoggerFactory logging.LoggerFactory
}

// Interlock gates drive commands on the latest distance reading.
type Interlock struct {
	driver    adapter.MotorDriver
	distance  DistanceReader
	threshold float64
	autoBrake atomic.Bool

	mu     sync.Mutex // serializes channel updates
	halted bool       // set by StopAll, guarded by mu
	log    logging.LeveledLogger
}

// New creates an interlock. A non-positive threshold uses DefaultThreshold.
func New(driver adapter.MotorDriver, distance DistanceReader, cfg Config) *Interlock {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}

	loggerFactory := cfg.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	i := &Interlock{
		driver:    driver,
		distance:  distance,
		threshold: cfg.Threshold,
		log:       loggerFactory.NewLogger("motor"),
	}
	i.autoBrake.Store(cfg.AutoBrake)
	return i
}

// SetAutoBrake enables or disables forward braking.
func (i *Interlock) SetAutoBrake(enabled bool) {
	i.autoBrake.Store(enabled)
	i.log.Infof("auto-brake enabled=%v", enabled)
}

// AutoBrake reports whether forward braking is enabled.
func (i *Interlock) AutoBrake() bool {
	return i.autoBrake.Load()
}

// Drive applies a drive action at value percent.
func (i *Interlock) Drive(ctx context.Context, action message.Action, value float64) (Outcome, error) {
	if !action.IsDrive() {
		return OutcomeStopped, fmt.Errorf("%w: %s", ErrNotDrive, action)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.halted {
		i.log.Warnf("motors halted, refusing %s", action)
		return OutcomeStopped, fmt.Errorf("%s: motors halted: %w", action, adapter.ErrUnavailable)
	}

	if err := i.zero(ctx); err != nil {
		return OutcomeStopped, err
	}

	if action == message.ActionStop {
		i.log.Debugf("stop")
		return OutcomeStopped, nil
	}

	if action == message.ActionForward && i.autoBrake.Load() {
		if last := i.distance.Load(); !message.IsNoReading(last) && last < i.threshold {
			i.log.Warnf("emergency brake: obstacle at %.2f cm (threshold %.0f cm)", last, i.threshold)
			return OutcomeBraked, nil
		}
	}

	if value < 0 || value > adapter.MaxDutyCycle {
		return OutcomeStopped, fmt.Errorf("%s value %.1f: %w", action, value, adapter.ErrInvalidRange)
	}

	ch := driveChannels[action]
	if err := i.driver.SetDutyCycle(ctx, ch, value); err != nil {
		return OutcomeStopped, adapter.Normalize("setDutyCycle", err)
	}

	i.log.Debugf("%s: %s=%.1f", action, ch, value)
	return OutcomeDriven, nil
}

// StopAll zeroes every channel and halts the interlock. Every later Drive is
// refused with adapter.ErrUnavailable and leaves the channels untouched.
func (i *Interlock) StopAll(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.halted = true
	return i.zero(ctx)
}

// Halted reports whether StopAll has run.
func (i *Interlock) Halted() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.halted
}

// zero sets every channel to 0, continuing past individual failures.
func (i *Interlock) zero(ctx context.Context) error {
	var errs []error
	for _, ch := range adapter.AllChannels() {
		if err := i.driver.SetDutyCycle(ctx, ch, 0); err != nil {
			errs = append(errs, adapter.Normalize("setDutyCycle", err))
		}
	}
	if len(errs) > 0 {
		i.log.Errorf("failed to zero motor channels: %v", errs[0])
	}
	return errors.Join(errs...)
}

package camera

import (
	"context"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/adapter"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/message"
)

// Config holds pulse timing and queueing settings.
type Config struct {
	ProfileToken string
	MoveTimeout  time.Duration // protocol timeout of the continuous move
	Dwell        time.Duration // time between move and stop
	Nudge        float64       // pan/tilt speed of a directional pulse
	QueueSize    int

	// LoggerFactory for creating loggers. If nil, uses DefaultLoggerFactory.
	LoggerFactory logging.LoggerFactory
}

// DefaultConfig returns the pulse defaults.
func DefaultConfig() Config {
	return Config{
		ProfileToken: "Profile_1",
		MoveTimeout:  time.Second,
		Dwell:        500 * time.Millisecond,
		Nudge:        0.5,
		QueueSize:    8,
	}
}

// VelocityFor maps a camera action to a pulse velocity. Zoom speed is value/100
// clamped to [-1, 1]. The second result is false for non-camera actions.
func VelocityFor(action message.Action, value, nudge float64) (adapter.Velocity, bool) {
	switch action {
	case message.ActionCamLeft:
		return adapter.Velocity{Pan: -nudge}, true
	case message.ActionCamRight:
		return adapter.Velocity{Pan: nudge}, true
	case message.ActionCamUp:
		return adapter.Velocity{Tilt: nudge}, true
	case message.ActionCamDown:
		return adapter.Velocity{Tilt: -nudge}, true
	case message.ActionZoom:
		z := value / 100
		if z > 1 {
			z = 1
		} else if z < -1 {
			z = -1
		}
		return adapter.Velocity{Zoom: z}, true
	default:
		return adapter.Velocity{}, false
	}
}

// Dispatcher issues PTZ pulses. The PTZ driver may be nil, in which case every
// pulse is logged and skipped.
type Dispatcher struct {
	ptz adapter.PTZDriver
	cfg Config
	log logging.LeveledLogger

	queue  chan adapter.Velocity
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewDispatcher creates a dispatcher. Call Start before Enqueue.
func NewDispatcher(ptz adapter.PTZDriver, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.ProfileToken == "" {
		cfg.ProfileToken = def.ProfileToken
	}
	if cfg.MoveTimeout <= 0 {
		cfg.MoveTimeout = def.MoveTimeout
	}
	if cfg.Dwell <= 0 {
		cfg.Dwell = def.Dwell
	}
	if cfg.Nudge <= 0 {
		cfg.Nudge = def.Nudge
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}

	loggerFactory := cfg.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		ptz:    ptz,
		cfg:    cfg,
		log:    loggerFactory.NewLogger("camera"),
		queue:  make(chan adapter.Velocity, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Nudge returns the configured pan/tilt pulse speed.
func (d *Dispatcher) Nudge() float64 {
	return d.cfg.Nudge
}

// Pulse moves at velocity for the dwell time and then stops. If ctx is done
// during the dwell the stop is still sent.
func (d *Dispatcher) Pulse(ctx context.Context, velocity adapter.Velocity) error {
	if d.ptz == nil {
		d.log.Warnf("PTZ not configured, ignoring pulse %+v", velocity)
		return adapter.ErrUnavailable
	}

	token := d.cfg.ProfileToken

	moveCtx, cancel := context.WithTimeout(ctx, d.cfg.MoveTimeout)
	err := d.ptz.ContinuousMove(moveCtx, token, velocity, d.cfg.MoveTimeout)
	cancel()
	if err != nil {
		err = adapter.Normalize("continuousMove", err)
		d.log.Errorf("PTZ move failed: %v", err)
		return err
	}

	timer := time.NewTimer(d.cfg.Dwell)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.MoveTimeout)
	defer cancel()
	if err := d.ptz.Stop(stopCtx, token); err != nil {
		err = adapter.Normalize("stop", err)
		d.log.Errorf("PTZ stop failed: %v", err)
		return err
	}

	d.log.Debugf("pulse pan=%.2f tilt=%.2f zoom=%.2f", velocity.Pan, velocity.Tilt, velocity.Zoom)
	return nil
}

// Start launches the pulse worker.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.worker()
}

// worker runs queued pulses in FIFO order
func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case v := <-d.queue:
			d.safePulse(v)
		case <-d.ctx.Done():
			return
		}
	}
}

// safePulse runs one queued pulse. A driver panic is logged and the worker
// keeps going; Stop is attempted so the mount is not left moving.
func (d *Dispatcher) safePulse(v adapter.Velocity) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("camera pulse panic: %v", r)
			d.stopAfterPanic()
		}
	}()
	_ = d.Pulse(d.ctx, v)
}

func (d *Dispatcher) stopAfterPanic() {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("camera stop panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(d.ctx), d.cfg.MoveTimeout)
	defer cancel()
	if err := d.ptz.Stop(ctx, d.cfg.ProfileToken); err != nil {
		d.log.Warnf("camera stop after panic failed: %v", err)
	}
}

// Enqueue schedules a pulse without waiting for it. A full queue drops the
// pulse and returns ErrBusy.
func (d *Dispatcher) Enqueue(velocity adapter.Velocity) error {
	if d.ctx.Err() != nil {
		return adapter.ErrUnavailable
	}

	select {
	case d.queue <- velocity:
		return nil
	default:
		d.log.Warnf("camera queue full, dropping pulse %+v", velocity)
		return adapter.ErrBusy
	}
}

// Close stops the worker. A pulse in its dwell is cut short but still stopped.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.cancel()
		d.wg.Wait()
	})
}

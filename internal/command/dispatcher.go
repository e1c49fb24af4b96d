package command

import (
	"context"
	"errors"
	"time"

	"github.com/pion/logging"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/camera"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/message"
)

// Outcomes recorded for dispatched commands.
const (
	OutcomeQueued   = "queued"
	OutcomeDropped  = "dropped"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// ErrUnknownAction is returned for actions outside the command set.
var ErrUnknownAction = errors.New("unknown action")

// Config holds dispatcher settings.
type Config struct {
	// CommandTimeout bounds one drive command.
	CommandTimeout time.Duration

	// LoggerFactory for creating loggers. If nil, uses DefaultLoggerFactory.
	LoggerFactory logging.LoggerFactory
}

// Dispatcher routes control commands to the interlock and the camera.
type Dispatcher struct {
	drive   DrivePort
	camera  CameraPort
	audit   AuditLogger
	timeout time.Duration
	log     logging.LeveledLogger
}

// NewDispatcher creates a dispatcher. camera may be nil, in which case camera
// commands are logged and ignored.
func NewDispatcher(drive DrivePort, camera CameraPort, cfg Config) *Dispatcher {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 2 * time.Second
	}

	loggerFactory := cfg.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	return &Dispatcher{
		drive:   drive,
		camera:  camera,
		timeout: cfg.CommandTimeout,
		log:     loggerFactory.NewLogger("command"),
	}
}

// SetAuditLogger sets the audit logger. nil disables auditing.
func (d *Dispatcher) SetAuditLogger(logger AuditLogger) {
	d.audit = logger
}

// Handle decodes and dispatches one inbound payload. Decode errors are logged
// and returned; the caller keeps the connection open.
func (d *Dispatcher) Handle(ctx context.Context, payload []byte) error {
	cmd, err := message.DecodeCommand(payload)
	if err != nil {
		d.log.Errorf("discarding command %q: %v", truncate(payload), err)
		return err
	}

	_, err = d.Dispatch(ctx, cmd)
	return err
}

// Dispatch runs one decoded command and returns its outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd message.ControlCommand) (string, error) {
	start := time.Now()

	outcome, err := d.dispatch(ctx, cmd)
	d.logAudit(ctx, cmd, outcome, err, time.Since(start))

	return outcome, err
}

func (d *Dispatcher) dispatch(ctx context.Context, cmd message.ControlCommand) (string, error) {
	switch {
	case cmd.Action.IsDrive():
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		result, err := d.drive.Drive(ctx, cmd.Action, cmd.Value)
		if err != nil {
			d.log.Errorf("%s %.1f failed: %v", cmd.Action, cmd.Value, err)
			return OutcomeFailed, err
		}
		return result.String(), nil

	case cmd.Action.IsCamera():
		if d.camera == nil {
			d.log.Warnf("camera not configured, ignoring %s", cmd.Action)
			return OutcomeIgnored, nil
		}

		velocity, _ := camera.VelocityFor(cmd.Action, cmd.Value, d.camera.Nudge())
		if err := d.camera.Enqueue(velocity); err != nil {
			return OutcomeDropped, err
		}
		return OutcomeQueued, nil

	default:
		d.log.Warnf("ignoring unknown action %q", cmd.Name)
		return OutcomeIgnored, ErrUnknownAction
	}
}

// logAudit logs an audit entry if an audit logger is configured.
func (d *Dispatcher) logAudit(ctx context.Context, cmd message.ControlCommand, outcome string, err error, latency time.Duration) {
	if d.audit != nil {
		d.audit.LogCommand(ctx, "agent", cmd, outcome, err, latency)
	}
}

// truncate bounds payloads echoed into logs.
func truncate(p []byte) string {
	const limit = 128
	if len(p) > limit {
		return string(p[:limit]) + "..."
	}
	return string(p)
}

// Package command defines ports (interfaces) for dispatcher dependencies.
package command

import (
	"context"
	"time"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/adapter"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/audit"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/camera"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/message"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/motor"
)

// DrivePort is what the dispatcher needs from the motor interlock.
type DrivePort interface {
	Drive(ctx context.Context, action message.Action, value float64) (motor.Outcome, error)
}

// CameraPort is what the dispatcher needs from the camera worker.
type CameraPort interface {
	Enqueue(velocity adapter.Velocity) error
	Nudge() float64
}

// AuditLogger interface for writing audit records.
type AuditLogger interface {
	LogCommand(ctx context.Context, component string, cmd message.ControlCommand, outcome string, err error, latency time.Duration)
}

// Compile-time assertions
var (
	_ DrivePort   = (*motor.Interlock)(nil)
	_ CameraPort  = (*camera.Dispatcher)(nil)
	_ AuditLogger = (*audit.Logger)(nil)
)

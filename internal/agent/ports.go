package agent

import (
	"context"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/camera"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/command"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/motor"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/sensor"
)

// SampleSource yields the latest distance reading.
type SampleSource interface {
	Valid() (float64, bool)
}

// CommandHandler consumes one raw command payload.
type CommandHandler interface {
	Handle(ctx context.Context, payload []byte) error
}

// Sampler is the background measurement loop.
type Sampler interface {
	Run(ctx context.Context)
}

// MotorStopper zeroes every motor channel.
type MotorStopper interface {
	StopAll(ctx context.Context) error
}

// CameraWorker is the camera pulse worker.
type CameraWorker interface {
	Start()
	Close()
}

// Compile-time assertions that the concrete components satisfy the ports.
var (
	_ SampleSource   = (*sensor.Slot)(nil)
	_ Sampler        = (*sensor.Sampler)(nil)
	_ CommandHandler = (*command.Dispatcher)(nil)
	_ MotorStopper   = (*motor.Interlock)(nil)
	_ CameraWorker   = (*camera.Dispatcher)(nil)
)

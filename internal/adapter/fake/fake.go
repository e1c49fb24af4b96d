// Package fake provides in-memory actuator and sensor backends.
//
// The fakes back the agent's simulate mode and every test that needs a motor
// board, a ranging sensor or a PTZ mount.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/adapter"
)

// SpeedOfSoundFactor converts echo seconds to centimetres (half of 343 m/s).
const SpeedOfSoundFactor = 17150.0

// Clock is a manually advanced clock shared between a fake sensor and a sampler.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock starting at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// MotorDriver records duty cycles per channel.
type MotorDriver struct {
	mu    sync.Mutex
	duty  map[adapter.Channel]float64
	calls int

	// Error simulation
	simulateErrors bool
	errorType      string
}

// NewMotorDriver creates a motor driver with every channel at 0.
func NewMotorDriver() *MotorDriver {
	m := &MotorDriver{duty: make(map[adapter.Channel]float64)}
	for _, ch := range adapter.AllChannels() {
		m.duty[ch] = 0
	}
	return m
}

// SetDutyCycle sets the duty cycle of a channel.
func (m *MotorDriver) SetDutyCycle(ctx context.Context, ch adapter.Channel, percent float64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++

	if m.simulateErrors {
		return simulatedError(m.errorType)
	}

	if percent < 0 || percent > adapter.MaxDutyCycle {
		return fmt.Errorf("INVALID_RANGE: duty cycle %.1f outside [0, 100]", percent)
	}

	m.duty[ch] = percent
	return nil
}

// Duty returns the current duty cycle of a channel.
func (m *MotorDriver) Duty(ch adapter.Channel) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duty[ch]
}

// Snapshot returns a copy of all duty cycles.
func (m *MotorDriver) Snapshot() map[adapter.Channel]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[adapter.Channel]float64, len(m.duty))
	for ch, v := range m.duty {
		out[ch] = v
	}
	return out
}

// Calls returns the number of SetDutyCycle calls.
func (m *MotorDriver) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Set forces a channel value without going through SetDutyCycle (for testing).
func (m *MotorDriver) Set(ch adapter.Channel, percent float64) {
	m.mu.Lock()
	m.duty[ch] = percent
	m.mu.Unlock()
}

// SetErrorSimulation enables error simulation for testing.
func (m *MotorDriver) SetErrorSimulation(errorType string) {
	m.mu.Lock()
	m.simulateErrors = true
	m.errorType = errorType
	m.mu.Unlock()
}

// DisableErrorSimulation disables error simulation.
func (m *MotorDriver) DisableErrorSimulation() {
	m.mu.Lock()
	m.simulateErrors = false
	m.errorType = ""
	m.mu.Unlock()
}

// RangeSensor simulates an ultrasonic echo.
//
// With a Clock the waits advance the fake clock and return immediately; without
// one they sleep for real, which is what simulate mode uses.
type RangeSensor struct {
	mu        sync.Mutex
	clock     *Clock
	riseDelay time.Duration
	echoWidth time.Duration
	noEcho    bool
	triggers  int
}

// NewRangeSensor creates a sensor that reports an obstacle at distanceCm.
func NewRangeSensor(clock *Clock, distanceCm float64) *RangeSensor {
	s := &RangeSensor{
		clock:     clock,
		riseDelay: 100 * time.Microsecond,
	}
	s.SetDistance(distanceCm)
	return s
}

// SetDistance changes the simulated obstacle distance.
func (s *RangeSensor) SetDistance(distanceCm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noEcho = false
	s.echoWidth = time.Duration(distanceCm / SpeedOfSoundFactor * float64(time.Second))
}

// SetEchoWidth sets the raw echo pulse width.
func (s *RangeSensor) SetEchoWidth(width time.Duration) {
	s.mu.Lock()
	s.noEcho = false
	s.echoWidth = width
	s.mu.Unlock()
}

// SetNoEcho makes the echo pin never rise.
func (s *RangeSensor) SetNoEcho() {
	s.mu.Lock()
	s.noEcho = true
	s.mu.Unlock()
}

// Triggers returns how many pulses were emitted.
func (s *RangeSensor) Triggers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggers
}

// TriggerPulse emits the ranging pulse.
func (s *RangeSensor) TriggerPulse() error {
	s.mu.Lock()
	s.triggers++
	s.mu.Unlock()
	return nil
}

// WaitForEdge waits for the echo pin to reach level.
func (s *RangeSensor) WaitForEdge(level adapter.Level, timeout time.Duration) bool {
	s.mu.Lock()
	noEcho, rise, width := s.noEcho, s.riseDelay, s.echoWidth
	s.mu.Unlock()

	var wait time.Duration
	ok := true

	switch level {
	case adapter.High:
		wait = rise
		if noEcho {
			wait, ok = timeout, false
		}
	default:
		wait = width
		if width > timeout {
			wait, ok = timeout, false
		}
	}

	if s.clock != nil {
		s.clock.Advance(wait)
	} else {
		time.Sleep(wait)
	}
	return ok
}

// PTZCall records one call made to the fake PTZ driver.
type PTZCall struct {
	Op       string // "move" or "stop"
	Token    string
	Velocity adapter.Velocity
	Timeout  time.Duration
	At       time.Time
}

// PTZDriver records continuous-move and stop requests.
type PTZDriver struct {
	mu    sync.Mutex
	calls []PTZCall

	failMove bool
	failStop bool
}

// NewPTZDriver creates a PTZ driver that accepts every request.
func NewPTZDriver() *PTZDriver {
	return &PTZDriver{}
}

// ContinuousMove records a move request.
func (p *PTZDriver) ContinuousMove(ctx context.Context, profileToken string, velocity adapter.Velocity, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, PTZCall{Op: "move", Token: profileToken, Velocity: velocity, Timeout: timeout, At: time.Now()})
	if p.failMove {
		return fmt.Errorf("ContinuousMove: connection refused")
	}
	return nil
}

// Stop records a stop request.
func (p *PTZDriver) Stop(ctx context.Context, profileToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, PTZCall{Op: "stop", Token: profileToken, At: time.Now()})
	if p.failStop {
		return fmt.Errorf("Stop: connection refused")
	}
	return nil
}

// Calls returns a copy of the recorded calls.
func (p *PTZDriver) Calls() []PTZCall {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]PTZCall, len(p.calls))
	copy(out, p.calls)
	return out
}

// FailMoves makes ContinuousMove return an error.
func (p *PTZDriver) FailMoves(fail bool) {
	p.mu.Lock()
	p.failMove = fail
	p.mu.Unlock()
}

// FailStops makes Stop return an error.
func (p *PTZDriver) FailStops(fail bool) {
	p.mu.Lock()
	p.failStop = fail
	p.mu.Unlock()
}

// simulatedError returns a simulated error based on the configured error type.
func simulatedError(errorType string) error {
	switch errorType {
	case "INVALID_RANGE":
		return fmt.Errorf("INVALID_RANGE: simulated range error")
	case "BUSY":
		return fmt.Errorf("BUSY: simulated busy error")
	case "UNAVAILABLE":
		return fmt.Errorf("UNAVAILABLE: simulated unavailable error")
	default:
		return fmt.Errorf("INTERNAL: simulated internal error")
	}
}

// Compile-time assertions
var (
	_ adapter.MotorDriver = (*MotorDriver)(nil)
	_ adapter.RangeSensor = (*RangeSensor)(nil)
	_ adapter.PTZDriver   = (*PTZDriver)(nil)
)

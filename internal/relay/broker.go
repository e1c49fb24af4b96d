package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/message"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/telemetry"
)

// ErrNoDevice is returned when a command arrives while no device is connected.
var ErrNoDevice = errors.New("no device connected")

// Audit outcomes for browser commands.
const (
	OutcomeForwarded = "forwarded"
	OutcomeDropped   = "dropped"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// AuditLogger interface for writing audit records.
type AuditLogger interface {
	LogCommand(ctx context.Context, component string, cmd message.ControlCommand, outcome string, err error, latency time.Duration)
}

// Stats is a point-in-time view of the registries.
type Stats struct {
	BrowserControl   int  `json:"browserControl"`
	BrowserTelemetry int  `json:"browserTelemetry"`
	DeviceControl    bool `json:"deviceControl"`
	DeviceTelemetry  bool `json:"deviceTelemetry"`
}

// Broker holds the four connection registries and routes messages between them.
type Broker struct {
	mu              sync.RWMutex
	browserControl  map[string]Peer
	deviceControl   Peer
	deviceTelemetry Peer

	// browser telemetry set
	hub *telemetry.Hub

	audit AuditLogger
	log   logging.LeveledLogger
}

// NewBroker creates a broker with empty registries. A nil factory uses
// DefaultLoggerFactory.
func NewBroker(loggerFactory logging.LoggerFactory) *Broker {
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}
	return &Broker{
		browserControl: make(map[string]Peer),
		hub:            telemetry.NewHub(loggerFactory),
		log:            loggerFactory.NewLogger("relay"),
	}
}

// SetAuditLogger sets the audit logger. nil disables auditing.
func (b *Broker) SetAuditLogger(logger AuditLogger) {
	b.audit = logger
}

// Register adds a peer to the registry of its role. A device peer replaces the
// current occupant of its slot; the displaced peer is closed.
func (b *Broker) Register(p Peer) {
	var displaced Peer

	b.mu.Lock()
	switch p.Role() {
	case RoleBrowserControl:
		b.browserControl[p.ID()] = p
	case RoleBrowserTelemetry:
		b.hub.Subscribe(p)
	case RoleDeviceControl:
		displaced, b.deviceControl = b.deviceControl, p
	case RoleDeviceTelemetry:
		displaced, b.deviceTelemetry = b.deviceTelemetry, p
	}
	b.mu.Unlock()

	b.log.Infof("%s connected: %s", p.Role(), p.ID())

	if displaced != nil && displaced.ID() != p.ID() {
		b.log.Warnf("%s %s replaced by %s, closing old connection", p.Role(), displaced.ID(), p.ID())
		_ = displaced.Close()
	}
}

// Unregister removes a peer. A device slot is cleared only if it still holds p.
func (b *Broker) Unregister(p Peer) {
	b.mu.Lock()
	switch p.Role() {
	case RoleBrowserControl:
		delete(b.browserControl, p.ID())
	case RoleBrowserTelemetry:
		b.hub.Unsubscribe(p.ID())
	case RoleDeviceControl:
		if b.deviceControl != nil && b.deviceControl.ID() == p.ID() {
			b.deviceControl = nil
		}
	case RoleDeviceTelemetry:
		if b.deviceTelemetry != nil && b.deviceTelemetry.ID() == p.ID() {
			b.deviceTelemetry = nil
		}
	}
	b.mu.Unlock()

	b.log.Infof("%s disconnected: %s", p.Role(), p.ID())
}

// HandleMessage processes one inbound text message from p.
func (b *Broker) HandleMessage(ctx context.Context, p Peer, data []byte) {
	switch p.Role() {
	case RoleBrowserControl:
		_ = b.handleControl(ctx, data)
	case RoleDeviceTelemetry:
		b.handleTelemetry(p, data)
	default:
		b.log.Infof("unexpected message on %s from %s: %s", p.Role(), p.ID(), truncate(data))
	}
}

// handleControl validates a browser command and forwards it verbatim.
func (b *Broker) handleControl(ctx context.Context, data []byte) error {
	start := time.Now()

	cmd, err := message.DecodeCommand(data)
	if err != nil {
		b.log.Errorf("discarding control message %q: %v", truncate(data), err)
		b.logAudit(ctx, cmd, OutcomeRejected, err, time.Since(start))
		return err
	}

	err = b.Forward(data)
	switch {
	case errors.Is(err, ErrNoDevice):
		b.logAudit(ctx, cmd, OutcomeDropped, err, time.Since(start))
	case err != nil:
		b.logAudit(ctx, cmd, OutcomeFailed, err, time.Since(start))
	default:
		b.log.Debugf("forwarded %s %.1f", cmd.Name, cmd.Value)
		b.logAudit(ctx, cmd, OutcomeForwarded, nil, time.Since(start))
	}
	return err
}

// Forward sends payload unchanged to the device control peer, once.
func (b *Broker) Forward(payload []byte) error {
	b.mu.RLock()
	device := b.deviceControl
	b.mu.RUnlock()

	if device == nil {
		b.log.Warnf("no device connected, dropping command %s", truncate(payload))
		return ErrNoDevice
	}

	if err := device.Send(payload); err != nil {
		if errors.Is(err, ErrPeerClosed) {
			// Closed but its read loop has not unregistered it yet.
			b.log.Warnf("no device connected (%s closing), dropping command %s", device.ID(), truncate(payload))
			return ErrNoDevice
		}
		b.log.Errorf("forward to device %s failed: %v", device.ID(), err)
		return fmt.Errorf("forward to device: %w", err)
	}
	return nil
}

// handleTelemetry validates a device sample and broadcasts it to browsers.
func (b *Broker) handleTelemetry(p Peer, data []byte) {
	sample, err := message.DecodeSample(data)
	if err != nil {
		b.log.Errorf("discarding telemetry from %s %q: %v", p.ID(), truncate(data), err)
		return
	}

	res, err := b.hub.Publish(sample)
	if errors.Is(err, telemetry.ErrNoReading) {
		b.log.Debugf("discarding no-reading sample from %s", p.ID())
		return
	}
	if err != nil {
		b.log.Errorf("telemetry broadcast failed: %v", err)
		return
	}
	b.log.Tracef("distance %.2f sent to %d/%d browsers", sample.Value, res.Sent, res.Recipients)
}

// Stats returns the current registry sizes.
func (b *Broker) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Stats{
		BrowserControl:   len(b.browserControl),
		BrowserTelemetry: b.hub.Count(),
		DeviceControl:    b.deviceControl != nil,
		DeviceTelemetry:  b.deviceTelemetry != nil,
	}
}

// CloseAll closes every registered peer. Their read loops unregister them.
func (b *Broker) CloseAll() {
	b.mu.RLock()
	peers := make([]Peer, 0, len(b.browserControl)+2)
	for _, p := range b.browserControl {
		peers = append(peers, p)
	}
	if b.deviceControl != nil {
		peers = append(peers, b.deviceControl)
	}
	if b.deviceTelemetry != nil {
		peers = append(peers, b.deviceTelemetry)
	}
	b.mu.RUnlock()

	for _, p := range peers {
		_ = p.Close()
	}
	b.hub.CloseAll()
}

// logAudit logs an audit entry if an audit logger is configured.
func (b *Broker) logAudit(ctx context.Context, cmd message.ControlCommand, outcome string, err error, latency time.Duration) {
	if b.audit != nil {
		b.audit.LogCommand(ctx, "relay", cmd, outcome, err, latency)
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

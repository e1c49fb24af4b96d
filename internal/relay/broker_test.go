package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pion/logging"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/message"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakePeer is an in-memory Peer.
type fakePeer struct {
	id   string
	role Role
	fail bool

	mu     sync.Mutex
	msgs   []string
	closed bool
}

func newFakePeer(id string, role Role) *fakePeer {
	return &fakePeer{id: id, role: role}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Role() Role { return p.role }

func (p *fakePeer) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPeerClosed
	}
	if p.fail {
		return errors.New("broken pipe")
	}
	p.msgs = append(p.msgs, string(data))
	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.msgs...)
}

func (p *fakePeer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// MockAuditLogger records outcomes.
type MockAuditLogger struct {
	mu       sync.Mutex
	Outcomes []string
}

func (m *MockAuditLogger) LogCommand(ctx context.Context, component string, cmd message.ControlCommand, outcome string, err error, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, cmd.Name+":"+outcome)
}

func newTestBroker() (*Broker, *syncBuffer) {
	logs := &syncBuffer{}
	factory := logging.NewDefaultLoggerFactory()
	factory.Writer = logs
	factory.DefaultLogLevel = logging.LogLevelDebug
	return NewBroker(factory), logs
}

func TestForwardIffDeviceConnected(t *testing.T) {
	b, logs := newTestBroker()
	ctx := context.Background()
	browser := newFakePeer("browser", RoleBrowserControl)
	b.Register(browser)

	payload := []byte(`{"action":"forward","value":80}`)
	b.HandleMessage(ctx, browser, payload)
	if !strings.Contains(logs.String(), "no device connected") {
		t.Errorf("missing drop warning, logs: %q", logs.String())
	}

	device := newFakePeer("device", RoleDeviceControl)
	b.Register(device)
	b.HandleMessage(ctx, browser, payload)

	msgs := device.Messages()
	if len(msgs) != 1 || msgs[0] != string(payload) {
		t.Fatalf("device received %v, want exactly the verbatim payload", msgs)
	}

	b.Unregister(device)
	b.HandleMessage(ctx, browser, payload)
	if len(device.Messages()) != 1 {
		t.Error("command forwarded after the device left")
	}
}

func TestForwardKeepsPayloadVerbatim(t *testing.T) {
	b, _ := newTestBroker()
	device := newFakePeer("device", RoleDeviceControl)
	b.Register(device)

	payload := []byte(`{ "value": 20, "action": "cam_up", "extra": true }`)
	b.HandleMessage(context.Background(), newFakePeer("browser", RoleBrowserControl), payload)

	if msgs := device.Messages(); len(msgs) != 1 || msgs[0] != string(payload) {
		t.Errorf("device received %v", msgs)
	}
}

func TestControlRejectsInvalid(t *testing.T) {
	b, logs := newTestBroker()
	device := newFakePeer("device", RoleDeviceControl)
	b.Register(device)
	browser := newFakePeer("browser", RoleBrowserControl)

	for _, p := range []string{`{"value":10}`, `not json`, `{"action":""}`} {
		b.HandleMessage(context.Background(), browser, []byte(p))
	}

	if len(device.Messages()) != 0 {
		t.Errorf("invalid commands forwarded: %v", device.Messages())
	}
	if !strings.Contains(logs.String(), "discarding control message") {
		t.Errorf("missing discard log: %q", logs.String())
	}
}

func TestForwardFailureNotRetried(t *testing.T) {
	b, _ := newTestBroker()
	device := newFakePeer("device", RoleDeviceControl)
	device.fail = true
	b.Register(device)

	err := b.Forward([]byte(`{"action":"stop"}`))
	if err == nil || errors.Is(err, ErrNoDevice) {
		t.Fatalf("Forward() error = %v, want send failure", err)
	}

	device.mu.Lock()
	device.fail = false
	device.mu.Unlock()
	if len(device.Messages()) != 0 {
		t.Error("failed command was retried")
	}
}

func TestForwardToClosingDeviceIsDrop(t *testing.T) {
	b, logs := newTestBroker()
	auditLogger := &MockAuditLogger{}
	b.SetAuditLogger(auditLogger)

	device := newFakePeer("device", RoleDeviceControl)
	b.Register(device)
	_ = device.Close()

	browser := newFakePeer("browser", RoleBrowserControl)
	b.Register(browser)
	b.HandleMessage(context.Background(), browser, []byte(`{"action":"left"}`))

	if err := b.Forward([]byte(`{"action":"stop"}`)); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Forward() error = %v, want ErrNoDevice", err)
	}
	if strings.Contains(logs.String(), "forward to device") {
		t.Errorf("closing device reported as a send failure:\n%s", logs.String())
	}
	if !strings.Contains(logs.String(), "no device connected") {
		t.Error("expected no device warning")
	}

	auditLogger.mu.Lock()
	defer auditLogger.mu.Unlock()
	if len(auditLogger.Outcomes) != 1 || auditLogger.Outcomes[0] != "left:dropped" {
		t.Errorf("audit outcomes = %v, want [left:dropped]", auditLogger.Outcomes)
	}
}

func TestTelemetryBroadcast(t *testing.T) {
	b, _ := newTestBroker()
	device := newFakePeer("pi", RoleDeviceTelemetry)
	b.Register(device)

	a := newFakePeer("a", RoleBrowserTelemetry)
	c := newFakePeer("c", RoleBrowserTelemetry)
	control := newFakePeer("ctl", RoleBrowserControl)
	b.Register(a)
	b.Register(c)
	b.Register(control)

	b.HandleMessage(context.Background(), device, []byte(`{"kind":"distance","value":42.5}`))

	for _, p := range []*fakePeer{a, c} {
		msgs := p.Messages()
		if len(msgs) != 1 || msgs[0] != `{"kind":"distance","value":42.5}` {
			t.Errorf("%s received %v", p.id, msgs)
		}
	}
	if len(control.Messages()) != 0 || len(device.Messages()) != 0 {
		t.Error("telemetry reached a non-telemetry peer")
	}
}

func TestTelemetryBroadcastIsolatesFailure(t *testing.T) {
	b, _ := newTestBroker()
	device := newFakePeer("pi", RoleDeviceTelemetry)
	b.Register(device)

	const n = 5
	peers := make([]*fakePeer, n)
	for i := range peers {
		peers[i] = newFakePeer(fmt.Sprintf("browser-%d", i), RoleBrowserTelemetry)
		peers[i].fail = i == 0
		b.Register(peers[i])
	}

	b.HandleMessage(context.Background(), device, []byte(`{"kind":"distance","value":99}`))

	delivered := 0
	for _, p := range peers {
		delivered += len(p.Messages())
	}
	if delivered != n-1 {
		t.Errorf("delivered to %d peers, want %d", delivered, n-1)
	}
}

func TestTelemetryDiscards(t *testing.T) {
	b, _ := newTestBroker()
	device := newFakePeer("pi", RoleDeviceTelemetry)
	browser := newFakePeer("browser", RoleBrowserTelemetry)
	b.Register(device)
	b.Register(browser)

	for _, p := range []string{
		`{"kind":"distance","value":-1}`,
		`{"kind":"distance"}`,
		`{"kind":"distance","value":`,
	} {
		b.HandleMessage(context.Background(), device, []byte(p))
	}

	if len(browser.Messages()) != 0 {
		t.Errorf("browser received %v", browser.Messages())
	}

	b.HandleMessage(context.Background(), device, []byte(`{"type":"distance","value":12}`))
	if msgs := browser.Messages(); len(msgs) != 1 || msgs[0] != `{"kind":"distance","value":12}` {
		t.Errorf("legacy sample not normalized: %v", msgs)
	}
}

func TestUnexpectedInboundIsLoggedOnly(t *testing.T) {
	b, logs := newTestBroker()
	device := newFakePeer("device", RoleDeviceControl)
	telemetryPeer := newFakePeer("pi", RoleDeviceTelemetry)
	browser := newFakePeer("browser", RoleBrowserTelemetry)
	b.Register(device)
	b.Register(telemetryPeer)
	b.Register(browser)

	b.HandleMessage(context.Background(), browser, []byte(`{"action":"forward"}`))
	b.HandleMessage(context.Background(), device, []byte(`{"kind":"distance","value":50}`))

	if len(device.Messages()) != 0 || len(browser.Messages()) != 0 {
		t.Error("unexpected inbound traffic was routed")
	}
	if strings.Count(logs.String(), "unexpected message") != 2 {
		t.Errorf("expected two unexpected-message logs, got %q", logs.String())
	}
}

func TestDeviceSlotReplacement(t *testing.T) {
	b, _ := newTestBroker()
	first := newFakePeer("first", RoleDeviceControl)
	second := newFakePeer("second", RoleDeviceControl)

	b.Register(first)
	b.Register(second)

	if !first.Closed() {
		t.Error("displaced device connection was not closed")
	}

	// The old connection's read loop unregisters it after the close.
	b.Unregister(first)
	if !b.Stats().DeviceControl {
		t.Fatal("unregistering the displaced peer cleared the new one")
	}

	if err := b.Forward([]byte(`{"action":"stop"}`)); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if len(second.Messages()) != 1 || len(first.Messages()) != 0 {
		t.Error("command not routed to the replacement device")
	}
}

func TestStatsAndCloseAll(t *testing.T) {
	b, _ := newTestBroker()
	peers := []*fakePeer{
		newFakePeer("c1", RoleBrowserControl),
		newFakePeer("c2", RoleBrowserControl),
		newFakePeer("t1", RoleBrowserTelemetry),
		newFakePeer("dc", RoleDeviceControl),
	}
	for _, p := range peers {
		b.Register(p)
	}

	want := Stats{BrowserControl: 2, BrowserTelemetry: 1, DeviceControl: true}
	if got := b.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}

	b.CloseAll()
	for _, p := range peers {
		if !p.Closed() {
			t.Errorf("%s not closed", p.id)
		}
	}
}

func TestControlAudit(t *testing.T) {
	b, _ := newTestBroker()
	auditLogger := &MockAuditLogger{}
	b.SetAuditLogger(auditLogger)
	browser := newFakePeer("browser", RoleBrowserControl)

	b.HandleMessage(context.Background(), browser, []byte(`{"action":"left"}`))
	b.Register(newFakePeer("device", RoleDeviceControl))
	b.HandleMessage(context.Background(), browser, []byte(`{"action":"right"}`))
	b.HandleMessage(context.Background(), browser, []byte(`{"value":1}`))

	want := []string{"left:dropped", "right:forwarded", ":rejected"}
	if len(auditLogger.Outcomes) != len(want) {
		t.Fatalf("outcomes = %v, want %v", auditLogger.Outcomes, want)
	}
	for i := range want {
		if auditLogger.Outcomes[i] != want[i] {
			t.Errorf("outcome %d = %s, want %s", i, auditLogger.Outcomes[i], want[i])
		}
	}
}

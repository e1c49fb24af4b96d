package relay

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Role is the class of a connection, fixed by its endpoint.
type Role int

const (
	RoleBrowserControl Role = iota
	RoleBrowserTelemetry
	RoleDeviceControl
	RoleDeviceTelemetry
)

func (r Role) String() string {
	switch r {
	case RoleBrowserControl:
		return "browser-control"
	case RoleBrowserTelemetry:
		return "browser-telemetry"
	case RoleDeviceControl:
		return "device-control"
	case RoleDeviceTelemetry:
		return "device-telemetry"
	default:
		return "unknown"
	}
}

// IsDevice reports whether the role is a single-slot device role.
func (r Role) IsDevice() bool {
	return r == RoleDeviceControl || r == RoleDeviceTelemetry
}

// ErrPeerClosed is returned when sending to a closed peer.
var ErrPeerClosed = errors.New("peer closed")

// Peer is one accepted connection.
type Peer interface {
	ID() string
	Role() Role
	Send(data []byte) error
	Close() error
}

// wsPeer is a websocket-backed Peer. Writes are serialized by mu.
type wsPeer struct {
	id           string
	role         Role
	subject      string
	remote       string
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func newWSPeer(conn *websocket.Conn, role Role, subject string, writeTimeout time.Duration) *wsPeer {
	return &wsPeer{
		id:           uuid.NewString(),
		role:         role,
		subject:      subject,
		remote:       conn.RemoteAddr().String(),
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (p *wsPeer) ID() string { return p.id }

func (p *wsPeer) Role() Role { return p.role }

// Send writes one text message.
func (p *wsPeer) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPeerClosed
	}
	_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// ping writes a ping control frame.
func (p *wsPeer) ping() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPeerClosed
	}
	return p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(p.writeTimeout))
}

// Close sends a close frame and closes the connection. Safe to call repeatedly.
func (p *wsPeer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		_ = p.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(p.writeTimeout))
		p.mu.Unlock()
		err = p.conn.Close()
	})
	return err
}

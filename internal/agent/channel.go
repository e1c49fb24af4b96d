package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/message"
)

// Relay endpoints dialed by the agent.
const (
	PathControl   = "/pi_control"
	PathTelemetry = "/pi_distance"
)

// closeGrace bounds the close handshake on shutdown.
const closeGrace = time.Second

// dial opens one channel to the relay.
func (a *Agent) dial(ctx context.Context, path string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: a.cfg.DialTimeout,
	}

	header := http.Header{}
	if a.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+a.cfg.Token)
	}

	url := a.cfg.BrokerURL + path
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	return conn, nil
}

// closeOnDone closes conn when ctx is done. The returned func releases the
// watcher once the session is over.
func closeOnDone(ctx context.Context, conn *websocket.Conn) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "agent shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
			_ = conn.Close()
		case <-done:
		}
	}()

	return func() {
		close(done)
		_ = conn.Close()
	}
}

// commandSession reads commands until the channel fails. Bad payloads are
// discarded by the dispatcher and the channel stays open.
func (a *Agent) commandSession(ctx context.Context) error {
	conn, err := a.dial(ctx, PathControl)
	if err != nil {
		return err
	}
	release := closeOnDone(ctx, conn)
	defer release()

	a.commandUp.Store(true)
	defer a.commandUp.Store(false)
	a.log.Infof("command channel connected to %s", a.cfg.BrokerURL)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if isClosed(err) {
				return nil
			}
			return fmt.Errorf("command channel read: %w", err)
		}
		if msgType != websocket.TextMessage {
			a.log.Warnf("ignoring non-text message on command channel")
			continue
		}

		if a.halted.Load() {
			a.log.Debugf("shutting down, dropping command %q", data)
			continue
		}

		// Errors are logged and audited by the dispatcher.
		_ = a.commands.Handle(ctx, data)
	}
}

// telemetrySession pushes the latest valid sample every TelemetryInterval.
// Nothing is sent while the slot holds no reading.
func (a *Agent) telemetrySession(ctx context.Context) error {
	conn, err := a.dial(ctx, PathTelemetry)
	if err != nil {
		return err
	}
	release := closeOnDone(ctx, conn)
	defer release()

	a.telemetryUp.Store(true)
	defer a.telemetryUp.Store(false)
	a.log.Infof("telemetry channel connected to %s", a.cfg.BrokerURL)

	// The relay never writes here; reading keeps control frames flowing and
	// surfaces a dead connection.
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			a.log.Warnf("unexpected message on telemetry channel: %q", data)
		}
	}()

	ticker := time.NewTicker(a.cfg.TelemetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if isClosed(err) {
				return nil
			}
			return fmt.Errorf("telemetry channel read: %w", err)
		case <-ticker.C:
			v, ok := a.samples.Valid()
			if !ok {
				continue
			}
			payload, err := message.Distance(v).Encode()
			if err != nil {
				return err
			}
			_ = conn.SetWriteDeadline(time.Now().Add(a.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return fmt.Errorf("telemetry channel write: %w", err)
			}
		}
	}
}

// isClosed reports whether err is a normal end of a channel.
func isClosed(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

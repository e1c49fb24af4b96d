//
//
package relay

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pion/logging"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/audit"
	"github.com/developerersmarty/driverless-surveillance-robot/internal/auth"
)

// ServerConfig holds listener and connection settings.
type ServerConfig struct {
	Addr           string
	StaticDir      string
	AllowedOrigins []string
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	ReadLimit      int64

	// LoggerFactory for creating loggers. If nil, uses DefaultLoggerFactory.
	LoggerFactory logging.LoggerFactory
}

// Server serves the relay endpoints and the status API.
type Server struct {
	broker         *Broker
	authMiddleware *auth.Middleware
	cfg            ServerConfig
	upgrader       websocket.Upgrader
	engine         *gin.Engine
	httpServer     *http.Server
	startTime      time.Time
	log            logging.LeveledLogger
}

// NewServer creates a relay server. A nil auth middleware disables auth.
func NewServer(broker *Broker, authMiddleware *auth.Middleware, cfg ServerConfig) *Server {
	if authMiddleware == nil {
		authMiddleware = auth.NewMiddleware()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	if cfg.PongTimeout <= cfg.PingInterval {
		cfg.PongTimeout = 3 * cfg.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 4096
	}

	loggerFactory := cfg.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	s := &Server{
		broker:         broker,
		authMiddleware: authMiddleware,
		cfg:            cfg,
		startTime:      time.Now(),
		log:            loggerFactory.NewLogger("relay"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.engine = s.setupRouter()

	return s
}

// Handler returns the HTTP handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Infof("relay listening on %s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server and closes every websocket peer.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	err := s.httpServer.Shutdown(ctx)
	// Shutdown does not track hijacked connections.
	s.broker.CloseAll()

	if err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// checkOrigin allows every origin unless an allow-list is configured.
// Requests without an Origin header (the device agent) are always allowed.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// scopeFor returns the token scope required to open a role's endpoint.
func scopeFor(role Role) string {
	switch role {
	case RoleBrowserControl:
		return auth.ScopeControl
	case RoleBrowserTelemetry:
		return auth.ScopeTelemetry
	default:
		return auth.ScopeDevice
	}
}

// serveWS returns the upgrade handler for one role.
func (s *Server) serveWS(role Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := s.authMiddleware.Authorize(c.Request, scopeFor(role))
		if err != nil {
			s.log.Warnf("%s connection from %s refused: %v", role, c.ClientIP(), err)
			status, code := http.StatusUnauthorized, "UNAUTHORIZED"
			if isForbidden(err) {
				status, code = http.StatusForbidden, "FORBIDDEN"
			}
			writeError(c, status, code, err.Error())
			return
		}

		conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			s.log.Warnf("websocket upgrade failed for %s: %v", role, err)
			return
		}

		peer := newWSPeer(conn, role, claims.Subject, s.cfg.WriteTimeout)
		ctx := auth.WithClaims(audit.WithSubject(c.Request.Context(), claims.Subject), claims)
		s.servePeer(ctx, peer)
	}
}

// servePeer registers the peer and runs its read loop until the connection ends.
func (s *Server) servePeer(ctx context.Context, peer *wsPeer) {
	conn := peer.conn
	conn.SetReadLimit(s.cfg.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	})

	s.broker.Register(peer)
	defer func() {
		s.broker.Unregister(peer)
		_ = peer.Close()
	}()

	done := make(chan struct{})
	defer close(done)
	go s.pingLoop(peer, done)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debugf("%s %s read error: %v", peer.role, peer.id, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			s.log.Warnf("ignoring non-text message on %s from %s", peer.role, peer.id)
			continue
		}

		s.broker.HandleMessage(ctx, peer, data)
	}
}

// pingLoop keeps the connection alive until done is closed or a ping fails.
func (s *Server) pingLoop(peer *wsPeer, done <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := peer.ping(); err != nil {
				return
			}
		}
	}
}

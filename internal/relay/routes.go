//
//
package relay

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/developerersmarty/driverless-surveillance-robot/internal/auth"
)

// Endpoint paths.
const (
	PathControl    = "/control"
	PathDistance   = "/distance"
	PathPiControl  = "/pi_control"
	PathPiDistance = "/pi_distance"
	PathHealth     = "/health"
	PathStatus     = "/api/status"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// setupRouter registers all routes on a new gin engine.
func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.AllowedOrigins,
			AllowMethods: []string{"GET", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET(PathHealth, s.handleHealth)
	r.GET(PathStatus, s.handleStatus)

	r.GET(PathControl, s.serveWS(RoleBrowserControl))
	r.GET(PathDistance, s.serveWS(RoleBrowserTelemetry))
	r.GET(PathPiControl, s.serveWS(RoleDeviceControl))
	r.GET(PathPiDistance, s.serveWS(RoleDeviceTelemetry))

	if s.cfg.StaticDir != "" {
		files := http.FileServer(http.Dir(s.cfg.StaticDir))
		r.NoRoute(gin.WrapH(files))
	}

	return r
}

// handleHealth reports liveness.
func (s *Server) handleHealth(c *gin.Context) {
	writeSuccess(c, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

// handleStatus reports the registries.
func (s *Server) handleStatus(c *gin.Context) {
	stats := s.broker.Stats()
	writeSuccess(c, gin.H{
		"connections":     stats,
		"deviceConnected": stats.DeviceControl,
		"authEnabled":     s.authMiddleware.Enabled(),
		"uptime":          time.Since(s.startTime).Round(time.Second).String(),
	})
}

func isForbidden(err error) bool {
	return errors.Is(err, auth.ErrForbidden)
}

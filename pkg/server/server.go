// Package server is the local HTTP surface for the kiosk UI: session
// state, attendance checks, and the manual camera override.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"faceclock/pkg/config"
	"faceclock/pkg/hrapi"
	"faceclock/pkg/logging"
	"faceclock/pkg/session"
)

// Session is the attendance state machine the handlers drive.
type Session interface {
	Check(ctx context.Context, kind hrapi.CheckKind) (*session.AttendanceEvent, error)
	Snapshot() session.Snapshot
	Events() []session.AttendanceEvent
}

// Presence exposes the presence monitor's state and the manual override.
type Presence interface {
	Present() bool
	Toggle() bool
}

// CameraState reports camera power for the state view.
type CameraState interface {
	Powered() bool
}

// Server serves the kiosk API on the configured listen address.
type Server struct {
	http *http.Server
}

// New builds the router and returns an unstarted server.
func New(cfg config.ServerConfig, sess Session, presence Presence, cam CameraState) *Server {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"session":  sess.Snapshot(),
			"presence": presence.Present(),
			"camera":   cam.Powered(),
		})
	})

	r.GET("/events", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"events": sess.Events()})
	})

	r.POST("/attendance/check", func(c *gin.Context) {
		var payload struct {
			Type string `json:"type" binding:"required"`
		}
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
			return
		}

		var kind hrapi.CheckKind
		switch payload.Type {
		case "in":
			kind = hrapi.CheckIn
		case "out":
			kind = hrapi.CheckOut
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be \"in\" or \"out\""})
			return
		}

		event, err := sess.Check(c.Request.Context(), kind)
		if err != nil {
			status, body := attemptErrorResponse(err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, gin.H{"event": event})
	})

	r.POST("/camera/toggle", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"camera": presence.Toggle()})
	})

	return &Server{
		http: &http.Server{
			Addr:              cfg.Listen,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// attemptErrorResponse maps an attempt failure to an HTTP status and a
// body carrying both the machine code and the kiosk message.
func attemptErrorResponse(err error) (int, gin.H) {
	var ae *session.AttemptError
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, gin.H{"error": err.Error()}
	}

	status := http.StatusInternalServerError
	switch ae.Code {
	case session.ErrCodeAttemptInFlight:
		status = http.StatusConflict
	case session.ErrCodeNoFrame, session.ErrCodeNoMatch:
		status = http.StatusUnprocessableEntity
	case session.ErrCodeCacheNotReady, session.ErrCodeCacheLoadFailed:
		status = http.StatusServiceUnavailable
	case session.ErrCodeEmbeddingFailed, session.ErrCodeMatchUnavailable, session.ErrCodeRecordingFailed:
		status = http.StatusBadGateway
	}

	return status, gin.H{
		"code":    string(ae.Code),
		"message": ae.Message,
		"retry":   ae.Retry,
	}
}

// Start serves until Shutdown. It returns nil on graceful close.
func (s *Server) Start() error {
	logging.Component("server").WithFields(logging.Fields{"listen": s.http.Addr}).Info("kiosk API listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

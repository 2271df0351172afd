// Package api serves map sessions over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"web/rentmap/cluster"
	"web/rentmap/logger"
	"web/rentmap/metrics"
	"web/rentmap/runner"
	"web/rentmap/viewport"
)

type Server struct {
	sessions runner.SessionService
	log      *slog.Logger
}

// NewServer fronts sessions, which may be an in-process runner or a remote
// runner.Client.
func NewServer(sessions runner.SessionService) *Server {
	return &Server{sessions: sessions, log: logger.L()}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.AccessMiddleware(s.log))
	r.Use(cors())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/api/pins", s.handleListPins)
	r.GET("/api/pins/:id", s.handleGetPin)

	r.POST("/api/sessions", s.handleCreateSession)
	r.GET("/api/sessions", s.handleListSessions)
	r.GET("/api/sessions/:id", s.handleGetSession)
	r.DELETE("/api/sessions/:id", s.handleCloseSession)
	r.POST("/api/sessions/:id/events", s.handleDispatch)
	r.POST("/api/sessions/:id/restore", s.handleRestore)
	r.GET("/api/sessions/:id/geojson", s.handleGeoJSON)
	r.GET("/api/sessions/:id/summary", s.handleSummary)

	r.GET("/api/snapshots", s.handleListSnapshots)

	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) handleListPins(c *gin.Context) {
	pins, err := s.sessions.Pins(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pins)
}

func (s *Server) handleGetPin(c *gin.Context) {
	pins, err := s.sessions.Pins(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	pin, ok := pins.Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "pin not found"})
		return
	}
	c.JSON(http.StatusOK, pin)
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req struct {
		Strategy string `json:"strategy"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}

	v, err := s.sessions.CreateSession(c.Request.Context(), req.Strategy)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (s *Server) handleListSessions(c *gin.Context) {
	infos, err := s.sessions.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, infos)
}

func (s *Server) handleListSnapshots(c *gin.Context) {
	infos, err := s.sessions.ListSnapshots(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, infos)
}

func (s *Server) handleGetSession(c *gin.Context) {
	v, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleCloseSession(c *gin.Context) {
	if err := s.sessions.Close(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDispatch(c *gin.Context) {
	var ev viewport.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event"})
		return
	}

	v, err := s.sessions.Dispatch(c.Request.Context(), c.Param("id"), ev)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleRestore(c *gin.Context) {
	v, err := s.sessions.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleGeoJSON(c *gin.Context) {
	v, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, FeatureCollection(v))
}

func (s *Server) handleSummary(c *gin.Context) {
	v, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cluster.Summarize(v.Partition))
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, runner.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case runner.IsInvalidArgument(err), errors.Is(err, cluster.ErrInvalidPin):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.Error("request_failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Package api exposes the command pipeline over HTTP and websockets.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maitre/internal/assistant"
	"maitre/internal/auth"
	"maitre/internal/capture"
	"maitre/internal/logger"
	"maitre/internal/monitoring"
	"maitre/internal/speech"
)

// Options holds the services the server routes to
type Options struct {
	Assistant *assistant.Assistant
	Sessions  *capture.Manager
	Hub       *speech.Hub // nil disables the websocket endpoint
	Tokens    *auth.Tokens
	Monitor   *monitoring.Monitor
	Metrics   *monitoring.MetricsCollector
	Logger    *zap.Logger
}

// Server is the HTTP front of the assistant
type Server struct {
	router    *gin.Engine
	assistant *assistant.Assistant
	sessions  *capture.Manager
	hub       *speech.Hub
	tokens    *auth.Tokens
	monitor   *monitoring.Monitor
	metrics   *monitoring.MetricsCollector
	logger    *zap.Logger
}

// NewServer builds the router. gin's mode is left to the caller.
func NewServer(opts Options) *Server {
	l := opts.Logger
	if l == nil {
		l = zap.NewNop()
	}
	monitor := opts.Monitor
	if monitor == nil {
		monitor = monitoring.NewMonitor()
	}

	router := gin.New()
	router.Use(logger.Recovery(l), logger.GinMiddleware(l))

	s := &Server{
		router:    router,
		assistant: opts.Assistant,
		sessions:  opts.Sessions,
		hub:       opts.Hub,
		tokens:    opts.Tokens,
		monitor:   monitor,
		metrics:   opts.Metrics,
		logger:    l,
	}
	s.setupRoutes()
	return s
}

// Router returns the Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)

	authed := auth.Middleware(s.tokens)

	v1 := s.router.Group("/api/v1", authed)
	{
		v1.POST("/voice/command", s.voiceCommand)

		v1.POST("/voice/sessions", s.createSession)
		v1.POST("/voice/sessions/:id/events", s.sessionEvent)
		v1.POST("/voice/sessions/:id/start", s.startSession)
		v1.POST("/voice/sessions/:id/stop", s.stopSession)
		v1.DELETE("/voice/sessions/:id", s.deleteSession)

		v1.GET("/orders", s.listOrders)
		v1.GET("/orders/:number", s.getOrder)
		v1.GET("/menu", s.listMenu)
		v1.PUT("/orders/:number/status", s.updateOrderStatus)
	}

	if s.hub != nil {
		s.router.GET("/ws/voice", authed, s.voiceSocket)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"metrics": s.monitor.GetMetrics(),
	})
}

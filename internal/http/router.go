package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/saker-ai/voice-relay/internal/ws"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "voice-relay"

// NewRouter builds the gin engine serving health, debug, capability, REST and
// websocket routes.
func NewRouter(deps Dependencies, wsHandler *ws.Handler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	api := &api{deps: deps, logger: logger}

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		connections := 0
		if deps.Connections != nil {
			connections = deps.Connections.Count()
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"service":     ServiceName,
			"connections": connections,
		})
	})
	router.GET("/debug/config", api.debugConfig)

	if wsHandler != nil {
		router.GET("/ws", func(c *gin.Context) {
			wsHandler.Handle(c.Writer, c.Request)
		})
		router.GET("/ws/stream", func(c *gin.Context) {
			wsHandler.HandleStream(c.Writer, c.Request)
		})
	}

	v1 := router.Group("/api/v1")
	v1.GET("/capabilities/providers", api.providers)
	v1.GET("/capabilities/languages", api.languages)
	v1.POST("/translate", api.translate)
	v1.POST("/stt/transcribe", api.transcribe)
	v1.GET("/stt/languages", api.sttLanguages)

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", latency),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// internal/api/server.go
// HTTP server setup shared by all three agent binaries.

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"league-core/internal/config"
	"league-core/internal/middleware"
	"league-core/internal/websocket"
)

// Server is the thin HTTP shell around a Dispatcher.
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

// New builds a Server exposing /health and /mcp, plus /ws when hub is
// non-nil (the league manager is the only agent that runs a spectator
// feed; referees and players pass nil).
func New(cfg *config.Config, dispatcher *Dispatcher, hub *websocket.Hub, agentType string, logger *zap.Logger, startedAt time.Time) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.BodyLimit())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "X-Request-ID"},
	}))

	router.GET("/health", HealthCheck(agentType, cfg.Agent.AgentID, startedAt))
	router.POST("/mcp", MCPHandler(dispatcher))

	if hub != nil {
		go hub.Run()
		router.GET("/ws", websocket.HandleConnection(hub, logger))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{router: router, http: srv, logger: logger}
}

// Start begins listening for HTTP requests; it blocks until the server
// stops or fails.
func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.http.Shutdown(ctx)
}

// Package server exposes the HTTP API: persona/agora/shared-post CRUD, the
// simulation endpoint (JSON, SSE, or WebSocket), health, and metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agora/internal/config"
	"agora/internal/logging"
	"agora/internal/simulation"
	"agora/internal/store"
)

// SimulationRunner is the orchestration engine surface the server needs.
type SimulationRunner interface {
	Run(ctx context.Context, req simulation.RunRequest, onProgress simulation.ProgressFunc) (*simulation.SimulationResult, error)
}

// cachedRun keeps a completed run for later retrieval, scoped to the caller
// that started it.
type cachedRun struct {
	owner  string
	result *simulation.SimulationResult
}

// Server owns the gin engine and the wired collaborators.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	store  *store.SQLiteStore
	runner SimulationRunner
	cache  *lru.Cache[string, cachedRun]

	upgrader  websocket.Upgrader
	logger    logging.Logger
	startTime time.Time
}

// New builds the server around its collaborators. It does not listen yet.
func New(cfg config.ServerConfig, cacheSize int, st *store.SQLiteStore, runner SimulationRunner, logger logging.Logger) (*Server, error) {
	cache, err := lru.New[string, cachedRun](cacheSize)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowOrigins) == 0 || (len(cfg.AllowOrigins) == 1 && cfg.AllowOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", identityHeader}
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	s := &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:    cfg.Addr(),
			Handler: engine,
		},
		store:  st,
		runner: runner,
		cache:  cache,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:    logging.OrNop(logger),
		startTime: time.Now(),
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	api.Use(s.identityMiddleware())

	personas := api.Group("/personas")
	{
		personas.GET("", s.handleListPersonas)
		personas.POST("", s.handleCreatePersona)
		personas.GET("/:id", s.handleGetPersona)
		personas.PUT("/:id", s.handleUpdatePersona)
		personas.DELETE("/:id", s.handleDeletePersona)
	}

	agoras := api.Group("/agoras")
	{
		agoras.GET("", s.handleListAgoras)
		agoras.POST("", s.handleCreateAgora)
		agoras.GET("/:id", s.handleGetAgora)
		agoras.PUT("/:id", s.handleUpdateAgora)
		agoras.DELETE("/:id", s.handleDeleteAgora)
	}

	posts := api.Group("/shared-posts")
	{
		posts.GET("", s.handleListSharedPosts)
		posts.POST("", s.handleCreateSharedPost)
		posts.GET("/:id", s.handleGetSharedPost)
		posts.DELETE("/:id", s.handleDeleteSharedPost)
		posts.POST("/:id/approve", s.handleApproveSharedPost)
	}

	api.POST("/simulate", s.handleSimulate)
	api.GET("/simulate/ws", s.handleSimulateWS)
	api.GET("/simulations/:id", s.handleGetSimulation)
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

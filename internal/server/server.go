package server

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tuncanbit/recon/internal/reconcile"
	"github.com/tuncanbit/recon/internal/server/handlers"
	"github.com/tuncanbit/recon/internal/server/middleware"
	"github.com/tuncanbit/recon/internal/server/websocket"
	"github.com/tuncanbit/recon/pkg/config"
)

type Server struct {
	Engine     *reconcile.Engine
	TestEngine *reconcile.Engine
	Cfg        *config.Config
	Logger     zerolog.Logger
	Router     *gin.Engine
	httpServer *http.Server
	WsHub      *websocket.WsHub
	DB         *sql.DB
}

func New(cfg *config.Config, engine, testEngine *reconcile.Engine, logger zerolog.Logger, wsHub *websocket.WsHub, db *sql.DB) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		Cfg:        cfg,
		Engine:     engine,
		TestEngine: testEngine,
		Logger:     logger,
		Router:     router,
		WsHub:      wsHub,
		DB:         db,
	}
}

func (s *Server) SetupRouter() {
	mw := middleware.NewMiddleware(s.Cfg, s.Logger)
	mw.SetupMiddleware(s.Router)

	handler := handlers.New(
		s.Engine,
		s.TestEngine,
		s.Logger,
		s.Cfg,
		s.WsHub,
		s.DB,
	)
	handler.SetupHandlers(s.Router)
}

func (s *Server) Start() {
	s.SetupRouter()

	s.httpServer = &http.Server{
		Addr:         s.Cfg.Server.Host + ":" + s.Cfg.Server.Port,
		Handler:      s.Router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	s.Logger.Info().Msgf("Starting server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-stopChan
	s.Logger.Info().Msg("Shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	s.Logger.Info().Msg("Server exited gracefully")
}

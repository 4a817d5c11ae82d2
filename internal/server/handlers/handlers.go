package handlers

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tuncanbit/recon/internal/reconcile"
	"github.com/tuncanbit/recon/internal/server/middleware"
	"github.com/tuncanbit/recon/internal/server/websocket"
	"github.com/tuncanbit/recon/pkg/config"
)

type Handlers struct {
	Engine     *reconcile.Engine
	TestEngine *reconcile.Engine
	Logger     zerolog.Logger
	Config     *config.Config
	WsHub      *websocket.WsHub
	DB         *sql.DB
}

func New(engine, testEngine *reconcile.Engine, logger zerolog.Logger, cfg *config.Config, hub *websocket.WsHub, db *sql.DB) *Handlers {
	return &Handlers{
		Engine:     engine,
		TestEngine: testEngine,
		Logger:     logger,
		Config:     cfg,
		WsHub:      hub,
		DB:         db,
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	mw := middleware.NewMiddleware(h.Config, h.Logger)
	eventHandler := NewEventHandler(h.Engine, h.TestEngine, h.Logger)
	wsHandler := NewWebSocketHandler(h.WsHub, h.Config.WebSocket, h.Logger)
	healthHandler := NewHealthHandler(h.DB)

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// WebSocket endpoint
	router.GET("/status", wsHandler.HandleConnection)

	v1 := router.Group("/v1")
	{
		events := v1.Group("/events")
		{
			events.POST("", eventHandler.HandleEvent)
			// Simulated event injection never ships to production.
			if h.Config.Server.Environment != "production" {
				events.POST("/test", mw.APIKeyMiddleware(), eventHandler.HandleTestEvent)
			}
		}
	}
}

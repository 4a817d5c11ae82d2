package main

import (
	"github.com/tuncanbit/recon/internal/infrastructure/clients"
	"github.com/tuncanbit/recon/internal/infrastructure/database"
	"github.com/tuncanbit/recon/internal/intake"
	"github.com/tuncanbit/recon/internal/reconcile"
	"github.com/tuncanbit/recon/internal/repositories/ledgerrepo"
	"github.com/tuncanbit/recon/internal/server"
	"github.com/tuncanbit/recon/internal/server/websocket"
	"github.com/tuncanbit/recon/pkg/config"
	"github.com/tuncanbit/recon/pkg/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewWithConfig(cfg.Logger)

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.ShutDown()

	ledger := ledgerrepo.New(db.Db, log)
	notifier := clients.NewNotifierClient(&cfg.Notifier, log)

	wsHub := websocket.NewWsHub(log)
	go wsHub.Run()

	service := reconcile.NewService(ledger, notifier, wsHub, cfg.Billing, log)
	guard := reconcile.NewGuard(ledger, log)

	verifiedAuth := intake.New(intake.SourceVerified, cfg.Webhook.SigningSecret, log)
	testAuth := intake.New(intake.SourceTrustedTest, "", log)

	engine := reconcile.NewEngine(verifiedAuth, guard, service, cfg.Webhook.ProcessingTimeout, cfg.Webhook.StoreTimeout, log)
	testEngine := reconcile.NewEngine(testAuth, guard, service, cfg.Webhook.ProcessingTimeout, cfg.Webhook.StoreTimeout, log)

	srv := server.New(cfg, engine, testEngine, log, wsHub, db.Db)
	srv.Start()
}

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/demenago/devis-saas/internal/billing"
	"github.com/demenago/devis-saas/internal/config"
	"github.com/demenago/devis-saas/internal/db"
	"github.com/demenago/devis-saas/internal/mail"
	"github.com/demenago/devis-saas/internal/models"
	"github.com/demenago/devis-saas/internal/server"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	auditFlag       = flag.Bool("audit", false, "Count devis without entreprise and exit")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	cfg := config.Load()

	dbConn, err := db.ConnectAndMigrate(log)
	if err != nil {
		log.Fatalw("connexion DB", "error", err)
	}
	if *migrateOnlyFlag {
		log.Info("migrations completed; exiting as requested")
		return
	}
	if *auditFlag {
		var count int64
		if err := dbConn.Model(&models.Devis{}).
			Where("entreprise_id IS NULL OR entreprise_id = 0").
			Count(&count).Error; err != nil {
			log.Fatalw("audit failed", "error", err)
		}
		log.Infow("audit devis orphelins", "count", count)
		if count > 0 {
			os.Exit(1)
		}
		return
	}

	deps := server.Deps{
		DB:      dbConn,
		Cfg:     cfg,
		Mailer:  mail.NewSMTPMailer(cfg),
		Billing: billing.NewStripeProvider(cfg.StripeKey),
		Log:     log,
	}
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: server.New(deps)}

	go func() {
		log.Infow("server listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnw("error during shutdown", "error", err)
	}
	log.Info("server gracefully stopped")
}

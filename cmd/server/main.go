package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	"github.com/nifgashim/trek-api/internal/auth"
	"github.com/nifgashim/trek-api/internal/checkin"
	"github.com/nifgashim/trek-api/internal/config"
	"github.com/nifgashim/trek-api/internal/database"
	"github.com/nifgashim/trek-api/internal/handlers"
	"github.com/nifgashim/trek-api/internal/notifier"
	"github.com/nifgashim/trek-api/internal/payments"
	"github.com/nifgashim/trek-api/internal/store"
	"github.com/nifgashim/trek-api/internal/token"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Connect to Database
	db := database.Connect(cfg)
	st := store.New(db)
	codec := token.NewCodec()

	// Outbound notifications
	sender := notifier.NewResendSender(cfg.EmailAPIKey, cfg.EmailFrom, logger)
	mailer := notifier.NewTokenMailer(sender, cfg.FrontendURL)

	var announcer payments.Announcer
	if cfg.DiscordBotToken != "" && cfg.DiscordNotificationsChannelID != "" {
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			logger.WithError(err).Warn("discord announcer not initialized")
		} else {
			announcer = notifier.NewDiscordAnnouncer(session, cfg.DiscordNotificationsChannelID, logger)
		}
	}

	// Core components
	reconciler := payments.NewReconciler(st, codec, mailer, announcer, logger)
	verifier := checkin.NewVerifier(st, codec, logger)
	authHandler := auth.NewAuthHandler(cfg, db)

	// Initialize Router
	r := chi.NewRouter()

	handlers.RegisterRoutes(r, handlers.Handlers{
		Auth:         authHandler,
		Registration: handlers.NewRegistrationHandler(st, reconciler, authHandler, logger),
		Webhook: handlers.NewWebhookHandler(
			payments.TranzilaAdapter{Terminal: cfg.TranzilaTerminal},
			payments.MeshulamAdapter{PageCode: cfg.MeshulamPageCode},
			reconciler,
			logger,
		),
		Scan:        handlers.NewScanHandler(verifier, authHandler),
		Admin:       handlers.NewAdminHandler(st, reconciler, mailer, authHandler, logger),
		ScannerKeys: handlers.NewScannerKeyHandler(db, authHandler),
		Export:      handlers.NewExportHandler(st, logger),
	})

	// Start Server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// engforum/main.go
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"engforum/config"
	"engforum/database"
	"engforum/email"
	"engforum/handlers"
	"engforum/models"
	"engforum/session"
	"engforum/utils"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

type Application struct {
	db          *database.DatabaseService
	rateLimiter *models.RateLimiter
	logger      *slog.Logger
	mailer      models.MailService
	sessions    *session.Manager
}

// Methods to satisfy the handlers.App interface
func (a *Application) DB() *database.DatabaseService    { return a.db }
func (a *Application) RateLimiter() *models.RateLimiter { return a.rateLimiter }
func (a *Application) Logger() *slog.Logger             { return a.logger }
func (a *Application) Mailer() models.MailService       { return a.mailer }
func (a *Application) Sessions() *session.Manager       { return a.sessions }

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- External Configuration ---
	port := utils.GetEnv("FORUM_PORT", "8080")
	dbPath := utils.GetEnv("FORUM_DB_PATH", "./forum.db?_journal_mode=WAL&_foreign_keys=on")

	sessionSecret := os.Getenv("FORUM_SESSION_SECRET")
	if sessionSecret == "" {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			logger.Error("Failed to generate session secret", "error", err)
			os.Exit(1)
		}
		sessionSecret = hex.EncodeToString(secretBytes)
		logger.Warn("FORUM_SESSION_SECRET not set, using a random secret. Sessions will not survive restarts.")
	}

	smtpPort, err := strconv.Atoi(utils.GetEnv("FORUM_SMTP_PORT", strconv.Itoa(config.DefaultSMTPPort)))
	if err != nil {
		logger.Warn("Invalid FORUM_SMTP_PORT integer, using default", "value", utils.GetEnv("FORUM_SMTP_PORT", ""), "default", config.DefaultSMTPPort)
		smtpPort = config.DefaultSMTPPort
	}
	mailCfg := email.Config{
		Host:      utils.GetEnv("FORUM_SMTP_HOST", ""),
		Port:      smtpPort,
		Username:  utils.GetEnv("FORUM_SMTP_USERNAME", ""),
		Password:  utils.GetEnv("FORUM_SMTP_PASSWORD", ""),
		FromEmail: utils.GetEnv("FORUM_SMTP_FROM", ""),
		FromName:  utils.GetEnv("FORUM_SMTP_FROM_NAME", config.DefaultFromName),
	}

	rateLimitEvery, err := time.ParseDuration(utils.GetEnv("FORUM_RATE_EVERY", config.DefaultRateLimitEvery))
	if err != nil {
		logger.Warn("Invalid FORUM_RATE_EVERY duration, using default", "value", utils.GetEnv("FORUM_RATE_EVERY", ""), "default", config.DefaultRateLimitEvery)
		rateLimitEvery, _ = time.ParseDuration(config.DefaultRateLimitEvery)
	}
	rateLimitBurst, err := strconv.Atoi(utils.GetEnv("FORUM_RATE_BURST", strconv.Itoa(config.DefaultRateLimitBurst)))
	if err != nil {
		logger.Warn("Invalid FORUM_RATE_BURST integer, using default", "value", utils.GetEnv("FORUM_RATE_BURST", ""), "default", config.DefaultRateLimitBurst)
		rateLimitBurst = config.DefaultRateLimitBurst
	}
	rateLimitPrune, err := time.ParseDuration(utils.GetEnv("FORUM_RATE_PRUNE", config.DefaultRateLimitPrune))
	if err != nil {
		logger.Warn("Invalid FORUM_RATE_PRUNE duration, using default", "value", utils.GetEnv("FORUM_RATE_PRUNE", ""), "default", config.DefaultRateLimitPrune)
		rateLimitPrune, _ = time.ParseDuration(config.DefaultRateLimitPrune)
	}
	rateLimitExpire, err := time.ParseDuration(utils.GetEnv("FORUM_RATE_EXPIRE", config.DefaultRateLimitExpire))
	if err != nil {
		logger.Warn("Invalid FORUM_RATE_EXPIRE duration, using default", "value", utils.GetEnv("FORUM_RATE_EXPIRE", ""), "default", config.DefaultRateLimitExpire)
		rateLimitExpire, _ = time.ParseDuration(config.DefaultRateLimitExpire)
	}

	dbService, err := database.InitDB(dbPath, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbService.DB.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	if err := handlers.LoadTemplates(); err != nil {
		logger.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	app := &Application{
		db:          dbService,
		rateLimiter: models.NewRateLimiter(rateLimitEvery, rateLimitBurst, rateLimitPrune, rateLimitExpire),
		logger:      logger,
		mailer:      email.NewService(mailCfg, logger),
		sessions:    session.NewManager(sessionSecret, logger),
	}

	if mailCfg.Host == "" {
		logger.Info("SMTP not configured, welcome emails will be logged only")
	}

	mux := handlers.SetupRouter(app)
	finalHandler := handlers.CSRFMiddleware(handlers.SecurityHeadersMiddleware(mux))

	// --- Graceful Shutdown ---
	server := &http.Server{Addr: ":" + port, Handler: finalHandler}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("engforum server started successfully",
		"version", config.AppVersion,
		"address", "http://localhost:"+port,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("Server exiting")
}

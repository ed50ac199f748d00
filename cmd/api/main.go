package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/bankcards/card-service/internal/config"
	"github.com/bankcards/card-service/internal/handler"
	"github.com/bankcards/card-service/internal/notify"
	"github.com/bankcards/card-service/internal/repository"
	"github.com/bankcards/card-service/internal/scheduler"
	"github.com/bankcards/card-service/internal/service"
	"github.com/bankcards/card-service/internal/utils"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize cipher for card numbers at rest
	cipher, err := utils.NewCipher([]byte(cfg.EncryptionKey))
	if err != nil {
		logger.Fatalf("Failed to initialize cipher: %v", err)
	}

	// Initialize layers
	userRepo := repository.NewUserRepository(db)
	cardRepo := repository.NewCardRepository(db)

	var notifier service.Notifier = service.NopNotifier{}
	if cfg.SMTPHost != "" {
		notifier = notify.NewEmailSender(cfg, logger)
	}

	cardSvc := service.NewCardService(cardRepo, userRepo, cipher, cfg.HMACSecret, notifier, logger)
	userSvc := service.NewUserService(userRepo, cardRepo, cipher, cfg.JWTSecret, logger)
	h := handler.NewHandler(userSvc, cardSvc, logger)

	// Start the card expiry sweep
	sweeper := scheduler.NewExpirySweeper(cardSvc, logger)
	cronJob, err := sweeper.Start(cfg.ExpirySchedule)
	if err != nil {
		logger.Fatalf("Failed to start expiry sweep: %v", err)
	}
	defer cronJob.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      h.Routes(cfg.JWTSecret, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}

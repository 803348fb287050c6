package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/health-consult-server/internal/api"
	"github.com/health-consult-server/internal/audit"
	"github.com/health-consult-server/internal/config"
	"github.com/health-consult-server/internal/database"
	"github.com/health-consult-server/internal/domain"
	"github.com/health-consult-server/internal/knowledge"
	"github.com/health-consult-server/internal/repository"
	"github.com/health-consult-server/internal/service"
	"github.com/health-consult-server/internal/store"
	"github.com/health-consult-server/pkg/llm"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"host":  cfg.Server.Host,
		"port":  cfg.Server.Port,
		"store": cfg.Store.Driver,
		"llm":   cfg.LLM.Provider,
	}).Info("Starting health consultation server")

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Delegated LLM collaborators. Provider "none" runs the server on the
	// rule-based pipelines alone.
	var collaborator llm.Service
	if strings.ToLower(cfg.LLM.Provider) != "none" {
		inner, err := llm.NewService(ctx, cfg.LLM)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create LLM service")
		}
		collaborator = llm.NewResilientService(inner, cfg.LLM, logger)
	}
	var chat llm.ChatModel
	var analyzer llm.TextAnalyzer
	if collaborator != nil {
		chat = collaborator
		analyzer = collaborator
	}

	// Optional Redis cache for delegated analysis responses.
	var cache *llm.AnalysisCache
	if cfg.Cache.Enabled {
		cache, err = llm.NewAnalysisCache(cfg.Cache)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis cache")
		}
		defer cache.Close()
	}

	// Persistence backend.
	var (
		diseases   domain.DiseaseRepository
		convos     domain.ConversationRepository
		reportRepo domain.ReportRepository
		profiles   domain.UserProfileRepository
		auditStore audit.Store
	)

	switch strings.ToLower(cfg.Store.Driver) {
	case "postgres":
		runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := runner.Up(); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		runner.Close()

		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		diseases = repository.NewDiseaseRepository(db.Pool, logger)
		convos = repository.NewConversationRepository(db.Pool, logger)
		reportRepo = repository.NewReportRepository(db.Pool, logger)
		profiles = repository.NewUserProfileRepository(db.Pool, logger)

		if cfg.Store.AuditEnabled {
			auditStore, err = audit.NewPostgresStoreFromURL(configManager.GetDatabaseURL())
			if err != nil {
				logger.WithError(err).Fatal("Failed to open audit store")
			}
			defer auditStore.Close()
		}

	case "sqlite":
		st, err := store.NewSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open SQLite store")
		}
		defer st.Close()

		diseases = st
		convos = st
		reportRepo = st
		profiles = st

		if cfg.Store.AuditEnabled {
			auditStore, err = audit.NewSQLiteStore(cfg.Store.AuditPath)
			if err != nil {
				logger.WithError(err).Fatal("Failed to open audit store")
			}
			defer auditStore.Close()
		}
	}

	// Services.
	kb := knowledge.Default()

	analysisService := service.NewAnalyzer(logger, kb, analyzer, cache, diseases, convos)
	if auditStore != nil {
		analysisService.WithAudit(auditStore)
	}

	synthesizer := service.NewReportSynthesizer(logger, chat, convos)
	reportService := service.NewReportService(logger, analysisService, synthesizer, reportRepo, convos, profiles)

	assistant, err := service.NewAssistant(logger, chat, cfg.Cache.LRUSize)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create assistant")
	}

	server := api.NewServer(configManager, logger, assistant, analysisService, reportService, convos, profiles)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newLogger builds the application logger from the logging configuration.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	}

	return logger
}

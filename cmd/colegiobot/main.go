package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"colegiobot/internal/config"
	"colegiobot/internal/constants"
	"colegiobot/internal/database"
	"colegiobot/internal/models"
	"colegiobot/internal/panel"
	"colegiobot/internal/responder"
	"colegiobot/internal/retry"
	"colegiobot/internal/service"
	"colegiobot/internal/tracing"
	"colegiobot/pkg/circuitbreaker"
	"colegiobot/pkg/openrouter"
	"colegiobot/pkg/twilio"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("ColegioBot %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Local development keys live in .env; absence is fine in production.
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, relying on process environment")
	}

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting ColegioBot")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	applyLogLevel(logger, cfg.LogLevel)

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Initialize database with exponential backoff retry
	var db *database.Database
	dbBackoffConfig := retry.DefaultBackoffConfig()
	dbBackoffConfig.InitialDelay = time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond
	dbBackoffConfig.MaxDelay = time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond
	dbBackoffConfig.MaxAttempts = constants.DefaultDatabaseRetryAttempts
	backoff := retry.NewBackoff(dbBackoffConfig)

	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer db.Close()

	var sender twilio.Client
	if cfg.Twilio.Configured() {
		sender = twilio.NewClient(twilio.Options{
			BaseURL:    cfg.Twilio.APIBaseURL,
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			FromNumber: cfg.Twilio.FromNumber,
			Timeout:    time.Duration(cfg.Twilio.TimeoutSec) * time.Second,
		})
	} else {
		logger.Warn("Twilio credentials not set, outbound delivery disabled")
	}

	var llmClient openrouter.Client
	if cfg.LLM.Configured() {
		llmClient = openrouter.NewClient(openrouter.Options{
			BaseURL:     cfg.LLM.APIBaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		})
	} else {
		logger.Warn("OPENROUTER_API_KEY not set, replies use rule-based responder only")
	}

	twilioBreaker := circuitbreaker.NewWithLogger("twilio",
		uint32(cfg.Twilio.MaxFailures),
		time.Duration(cfg.Twilio.CooldownSec)*time.Second,
		logger)
	llmBreaker := circuitbreaker.NewWithLogger("openrouter",
		uint32(cfg.LLM.MaxFailures),
		time.Duration(cfg.LLM.CooldownSec)*time.Second,
		logger)

	rules := responder.NewRuleResponder(&cfg.School)
	generator := responder.NewLLMResponder(llmClient, llmBreaker, rules, &cfg.School, logger,
		time.Duration(cfg.LLM.TimeoutSec)*time.Second)

	sendBackoffConfig := retry.DefaultBackoffConfig()
	sendBackoffConfig.InitialDelay = time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond
	sendBackoffConfig.MaxDelay = time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond
	sendBackoffConfig.MaxAttempts = cfg.Retry.MaxAttempts
	sendBackoff := retry.NewBackoff(sendBackoffConfig)

	conversation := service.NewConversationService(db, generator, sender, twilioBreaker, sendBackoff, logger)

	renderer, err := panel.NewRenderer(cfg.School.Name, cfg.Timezone)
	if err != nil {
		return fmt.Errorf("failed to initialize panel renderer: %w", err)
	}

	// The watcher keeps the effective log level in sync with the config
	// file; everything else is wired once at startup.
	watcher := config.NewWatcher(*configPath, logger)
	watcher.OnChange(func(updated *models.Config) {
		applyLogLevel(logger, updated.LogLevel)
	})
	go func() {
		if err := watcher.Start(ctx); err != nil {
			logger.WithError(err).Warn("Configuration watcher stopped")
		}
	}()

	server := NewServer(cfg, conversation, renderer, db, llmClient, location, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}

func applyLogLevel(logger *logrus.Logger, configured string) {
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
		return
	}

	if configured == "" {
		logger.SetLevel(logrus.InfoLevel)
		return
	}

	level, err := logrus.ParseLevel(configured)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", configured)
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	logger.SetLevel(level)
}

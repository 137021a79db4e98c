package main

import (
	"github.com/xaenox/tag-bot/internal/bot"
	"github.com/xaenox/tag-bot/internal/storage"
	"github.com/xaenox/tag-bot/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize persistence
	var persister storage.Persister
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		logger.Info("Using PostgreSQL persistence")
		persister, err = storage.NewPostgresPersister(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize persistence", zap.Error(err))
		}
	default:
		logger.Info("Using file persistence", zap.String("path", cfg.Storage.Path))
		persister = storage.NewFilePersister(cfg.Storage.Path)
	}
	defer persister.Close()

	// Load the tag store; a file that exists but cannot be parsed is fatal,
	// starting over an unreadable file would silently lose every tag.
	store, err := storage.NewTagStore(persister, logger)
	if err != nil {
		logger.Fatal("Failed to load tag store", zap.Error(err))
	}

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, store, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}

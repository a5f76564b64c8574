package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"fleamarket/internal/config"
	"fleamarket/internal/handlers"
	"fleamarket/internal/logging"
	"fleamarket/internal/storage"
	"fleamarket/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Auto migrate models
	if err := db.AutoMigrate(&models.User{}, &models.IPAddress{}, &models.Item{}); err != nil {
		logger.Fatal("failed to auto migrate models", zap.Error(err))
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize image storage", zap.Error(err))
	}

	r := handlers.NewRouter(handlers.Deps{
		DB:    db,
		Store: store,
		Log:   logger,
		Cfg:   cfg,
	})

	addr := cfg.Server.Addr()
	logger.Info("starting api server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// openDatabase connects gorm using the configured dialect.
func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Dialect {
	case config.DialectMySQL:
		return gorm.Open(mysql.Open(cfg.MySQLDSN()), &gorm.Config{})
	case config.DialectPostgres:
		return gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", cfg.Dialect)
	}
}

// buildStore constructs the configured image storage backend.
func buildStore(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendS3:
		return storage.NewS3Store(context.Background(), cfg.Storage)
	default:
		return storage.NewDiskStore(cfg.Upload.Dir, cfg.Storage.Thumbnails, logger)
	}
}

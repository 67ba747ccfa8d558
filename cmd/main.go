package main

import (
	"log/slog"
	"os"

	"github.com/conduitapi/conduit/internal/auth"
	"github.com/conduitapi/conduit/internal/config"
	"github.com/conduitapi/conduit/internal/core"
	"github.com/conduitapi/conduit/internal/database"
	"github.com/conduitapi/conduit/internal/utils/databaseutils"
	"github.com/golang-cz/devslog"
)

type application struct {
	config  *config.Config
	logger  *slog.Logger
	core    *core.Core
	auth    *auth.Auth
	session databaseutils.Session
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		configLogger("debug").Error("loading configuration", "error", err)
		os.Exit(1)
	}

	logger := configLogger(cfg.LogLevel)
	logger.Info("starting application")

	db, err := database.Open(cfg.DB)
	if err != nil {
		logger.Error("opening database connection", "error", err)
		os.Exit(1)
	}

	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database connection", "error", err)
		}
	}()

	if err := database.Migrate(db, cfg.DB.Driver); err != nil {
		logger.Error("migrating database schema", "error", err)
		os.Exit(1)
	}

	logger.Info("database connection established", "driver", cfg.DB.Driver)

	sqlTemplate := databaseutils.NewSQLTemplate(db, cfg.DB.QueryTimeout)
	app := &application{
		config:  cfg,
		logger:  logger,
		core:    core.NewCore(logger, sqlTemplate),
		auth:    auth.New(cfg.JWT.Secret, cfg.JWT.TTL),
		session: databaseutils.NewSession(db),
	}

	if err := app.serve(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func configLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelDebug
	}

	handler := devslog.NewHandler(
		os.Stdout, &devslog.Options{
			HandlerOptions: &slog.HandlerOptions{
				AddSource: true,
				Level:     slogLevel,
			},
			NewLineAfterLog: false,
		})

	return slog.New(handler)
}

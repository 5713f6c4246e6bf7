package main

import (
	"context"
	"log"

	"Gin_postgres_redis_inventory/app"
	"Gin_postgres_redis_inventory/config"
	"Gin_postgres_redis_inventory/logger"
	"Gin_postgres_redis_inventory/routes"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogJSON); err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	application := app.MustNew(cfg)
	defer application.Close()

	if err := app.BootstrapFirstAdmin(ctx, cfg, application.Store); err != nil {
		logger.Error(ctx, "bootstrap admin failed", logger.ErrorF(err))
	}

	routes.RegisterRoutes(application.Router, application)

	logger.Info(ctx, "listening",
		logger.String("port", cfg.Port),
		logger.String("mirror", cfg.MirrorBackend),
	)
	if err := application.Router.Run(":" + cfg.Port); err != nil {
		logger.Error(ctx, "server stopped", logger.ErrorF(err))
	}
}

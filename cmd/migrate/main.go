package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/migrations"
	"github.com/noah-isme/school-admin-api/pkg/config"
	"github.com/noah-isme/school-admin-api/pkg/database"
	"github.com/noah-isme/school-admin-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	ran, err := database.Migrate(context.Background(), db, migrations.Files, logr)
	if err != nil {
		logr.Fatal("migration failed", zap.Error(err), zap.Strings("applied", ran))
	}
	logr.Info("migrations complete", zap.Int("applied", len(ran)))
}

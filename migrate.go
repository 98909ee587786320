package main

import (
	"fmt"
	"os"

	"github.com/uptrace/bun"

	"valet-ticketing/internal/database/migrations"
	"valet-ticketing/internal/logger"
)

// runMigrations applies pending SQL migrations at startup. Set
// AUTO_MIGRATE=false when migrations are applied out of band.
func runMigrations(db *bun.DB, log *logger.Logger) {
	opts := migrations.DefaultOptions()
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		opts.MigrationsDir = dir
	}

	runner := migrations.NewRunner(db, opts)
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
	log.Info("DATABASE", "Migrations up to date")
}

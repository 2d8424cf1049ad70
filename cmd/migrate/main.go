package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/pflag"

	"github.com/fixora/gatekeeper/infrastructure/adapter/postgres"
	"github.com/fixora/gatekeeper/infrastructure/service/logger"
)

func main() {
	mode := pflag.StringP("mode", "m", "up", "migration mode: up or down")
	steps := pflag.Int("steps", 0, "with --mode=down, how many migrations to revert (0 = all)")
	dir := pflag.String("dir", "migrations", "directory holding NNN_name.{up,down}.sql files")
	dsn := pflag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	pflag.Parse()

	if *dsn == "" {
		log.Fatal("DATABASE_URL environment variable or --database-url is required")
	}

	base := logger.NewLogrus(logger.LoggerConfig{Level: "info", Format: "text"})

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	migrations, err := postgres.LoadMigrations(os.DirFS(*dir))
	if err != nil {
		log.Fatalf("failed to load migrations: %v", err)
	}

	migrator := postgres.NewMigrator(db, base)
	switch strings.ToLower(*mode) {
	case "up":
		n, err := migrator.Up(ctx, migrations)
		if err != nil {
			log.Fatalf("migration up failed: %v", err)
		}
		base.WithField("applied", n).Info("Migration up completed successfully")
	case "down":
		n, err := migrator.Down(ctx, migrations, *steps)
		if err != nil {
			log.Fatalf("migration down failed: %v", err)
		}
		base.WithField("reverted", n).Info("Migration down completed successfully")
	default:
		log.Fatalf("unknown mode: %s", *mode)
	}
}

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"quotaflow-go/internal/config"
	"quotaflow-go/internal/migrations"

	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

func main() {
	dsn := flag.String("dsn", "", "PostgreSQL connection string (defaults to storage.postgres_dsn)")
	configPath := flag.String("config", os.Getenv("QUOTAFLOW_CONFIG"), "path to configuration file")
	action := flag.String("action", "up", "migration action: up, down, or version")
	steps := flag.Int("steps", 1, "steps to migrate when action=down")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if *dsn == "" {
		cfg, err := config.LoadFile(*configPath)
		if err != nil {
			log.WithError(err).Fatal("load configuration")
		}
		*dsn = cfg.Storage.PostgresDSN
	}
	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "missing -dsn and storage.postgres_dsn is empty")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	m, err := migrations.OpenPostgres(ctx, db)
	if err != nil {
		log.WithError(err).Fatal("prepare migrations")
	}
	defer func() { _ = m.Close() }()

	switch *action {
	case "up":
		if err := m.Up(); err != nil {
			log.WithError(err).Fatal("migrate up")
		}
		log.Info("migrations applied")
	case "down":
		if err := m.Down(*steps); err != nil {
			log.WithError(err).Fatal("migrate down")
		}
		log.WithField("steps", *steps).Info("migrations rolled back")
	case "version":
		version, dirty, ok, err := m.Version()
		if err != nil {
			log.WithError(err).Fatal("read version")
		}
		if !ok {
			log.Info("no migrations applied")
			return
		}
		log.WithFields(log.Fields{"version": version, "dirty": dirty}).Info("current migration version")
	default:
		fmt.Fprintf(os.Stderr, "unknown action %q (expected up, down, version)\n", *action)
		os.Exit(2)
	}
}

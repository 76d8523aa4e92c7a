package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"dubaihaus/internal/adapters/catalog"
	"dubaihaus/internal/adapters/observability"
	redisad "dubaihaus/internal/adapters/redis"
	"dubaihaus/internal/app"
	"dubaihaus/internal/shared"
	mysqlrepo "dubaihaus/internal/storage/mysql"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Minute, "give up waiting for the sync after this long")
	flag.Parse()

	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, "syncer")

	log.Info().
		Str("base", cfg.CatalogBase).
		Int("workers", cfg.SyncWorkers).
		Int("page_size", cfg.SyncPageSize).
		Bool("details", cfg.SyncDetails).
		Msg("syncer starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	client, err := catalog.New(cfg.CatalogBase, cfg.CatalogKey, cfg.CatalogRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize catalog client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	syncer := app.NewSyncService(client, mysqlrepo.New(db), cache, shared.SystemClock, app.SyncOptions{
		PageSize:     cfg.SyncPageSize,
		Workers:      cfg.SyncWorkers,
		FetchDetails: cfg.SyncDetails,
	})

	res, err := syncer.SyncCatalog(ctx)
	if err != nil {
		log.Error().Err(err).Str("run_id", res.RunID).Msg("sync failed")
		os.Exit(1)
	}
	log.Info().
		Str("run_id", res.RunID).
		Int("fetched", res.Fetched).
		Int("processed", res.Processed).
		Int("failed", res.Failed).
		Msg("sync completed")
}

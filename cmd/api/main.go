package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"dubaihaus/internal/adapters/catalog"
	"dubaihaus/internal/adapters/fx"
	server "dubaihaus/internal/adapters/http_server"
	"dubaihaus/internal/adapters/observability"
	redisad "dubaihaus/internal/adapters/redis"
	"dubaihaus/internal/adapters/translator"
	"dubaihaus/internal/app"
	"dubaihaus/internal/domain"
	"dubaihaus/internal/shared"
	mysqlrepo "dubaihaus/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unreachable; queries will hit the database")
	}

	// deps
	repo := mysqlrepo.New(db)
	client, err := catalog.New(cfg.CatalogBase, cfg.CatalogKey, cfg.CatalogRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("catalog client init failed")
	}

	syncer := app.NewSyncService(client, repo, cache, shared.SystemClock, app.SyncOptions{
		PageSize:     cfg.SyncPageSize,
		Workers:      cfg.SyncWorkers,
		FetchDetails: cfg.SyncDetails,
	})
	queries := app.NewQueryService(repo, cache, syncer, shared.SystemClock, cfg.CacheTTL)
	rates := app.NewRateService(repo, rateProvider(cfg), shared.SystemClock)
	translations := app.NewTranslationService(repo, translationProvider(cfg), shared.SystemClock)

	go warmTaxonomy(ctx, client)

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Listings:   queries,
		Sync:       syncer,
		Rates:      rates,
		Translator: translations,
		Taxonomy:   client,
	})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	translations.Drain()
	syncer.Wait()
}

// rateProvider returns nil without a key; conversions then fall back to source prices.
func rateProvider(cfg shared.Config) domain.RateProvider {
	c, err := fx.New(cfg.FXBase, cfg.FXKey, cfg.FXBaseCurrency)
	if err != nil {
		log.Warn().Err(err).Msg("exchange rate provider disabled")
		return nil
	}
	return c
}

// translationProvider returns nil without a key; texts then pass through untranslated.
func translationProvider(cfg shared.Config) domain.TranslationProvider {
	c, err := translator.New(cfg.TranslateBase, cfg.TranslateKey)
	if err != nil {
		log.Warn().Err(err).Msg("translation provider disabled")
		return nil
	}
	return c
}

// warmTaxonomy loads every taxonomy list once so the first requests hit the cache.
func warmTaxonomy(ctx context.Context, c *catalog.Client) {
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range domain.TaxonomyKinds {
		g.Go(func() error {
			n := len(c.ListTaxonomy(gctx, kind))
			log.Debug().Str("kind", string(kind)).Int("items", n).Msg("taxonomy warmed")
			return nil
		})
	}
	_ = g.Wait()
}

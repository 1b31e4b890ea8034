package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/oksasatya/newsletter/config"
	"github.com/oksasatya/newsletter/internal/container"
	"github.com/oksasatya/newsletter/internal/observability"
	"github.com/oksasatya/newsletter/internal/router"
	"github.com/oksasatya/newsletter/pkg/helpers"
	"github.com/oksasatya/newsletter/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.MustLoad()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); cfg.LogLevel != "" && err == nil {
		logger.SetLevel(lvl)
	}
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitOTel(ctx, logger, observability.OtelConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.AppName,
		Environment: cfg.Env,
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
		SampleRatio: cfg.OTelSampleRatio,
	})

	if cfg.StorageDriver == container.DriverPostgres {
		if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	}

	c, err := container.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}
	defer c.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.NewEngine(c),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.WithFields(logrus.Fields{
			"port":      cfg.Port,
			"storage":   cfg.StorageDriver,
			"messenger": cfg.MessengerDriver,
			"lifecycle": cfg.Lifecycle,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	if err := shutdownTracing(ctxShutdown); err != nil {
		logger.WithError(err).Warn("flush traces failed")
	}
	logger.Info("server exited properly")
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"feedwatch/internal/core"
	"feedwatch/internal/features/rss"
	"feedwatch/internal/server"
)

func main() {
	// Load .env file if it exists
	godotenv.Load()

	config, err := core.LoadConfig()
	if err != nil {
		core.NewLogger(core.LoggerOptions{}).Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := core.NewLogger(core.LoggerOptions{Level: config.Log.Level, Format: config.Log.Format})

	if err := run(config, logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(config *core.Config, logger *core.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var db *core.Database
	if config.Database.Path != "" {
		var err error
		db, err = core.OpenSQLite(ctx, config.Database.Path, logger)
		if err != nil {
			return err
		}
		defer func() {
			db.LogStats()
			db.Close()
		}()
	} else {
		logger.Warn("No database path configured, feeds will not survive a restart")
	}

	registry := core.NewRegistry(logger)
	if err := registry.Register(rss.NewFeature(logger, db, rss.NewConfig(config))); err != nil {
		return err
	}
	if err := registry.InitAll(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(err, registry.ShutdownAll(shutdownCtx))
	}

	srv := server.New(config, logger, registry, db)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Server exited properly")
	return nil
}

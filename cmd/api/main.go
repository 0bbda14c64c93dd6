package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docwatch/docwatch/internal/config"
	"github.com/docwatch/docwatch/internal/db"
	"github.com/docwatch/docwatch/internal/repo"
	"github.com/docwatch/docwatch/internal/scheduler"
)

func main() {

	// Load configuration
	cfg := config.Load()

	if cfg.LogFormat == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	// Connect to database FIRST
	database, err := db.Connect(
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBUser,
		cfg.DBPass,
	)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)

	log.Println("Successfully connected to the database")

	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName,
	)
	if err := db.Run(databaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Background poll loop shares the dispatcher with the API's trigger endpoint.
	loop := scheduler.New(
		repo.NewScheduleRepo(database),
		newDispatcher(cfg),
		cfg.TickInterval,
		cfg.StaleClaimAfter,
	)
	loop.Start()

	r := newRouter(database, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			log.Println("Starting server (HTTPS) on :" + cfg.Port)
			errCh <- srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		log.Println("Starting server on :" + cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal(err)
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown", "error", err)
	}

	// Stop the poll loop last so in-flight firings drain before the process exits.
	loop.Stop()
	slog.Info("shutdown complete")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sguter90/airmaestro/pkg/puller"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the AirMaestro API server",
	Long: `Start the HTTP API. When FETCH_INTERVAL is set, enabled devices are pulled
periodically and merged into the store.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app := appFromCommand(cmd)
	cfg := app.cfg

	if cfg.Server.JWTSecret == "" || cfg.Server.JWTSecret == "change_me_in_production" {
		return errors.New("JWT_SECRET environment variable is not set or has an invalid value")
	}

	// Users, devices and reports always live in PostgreSQL
	dbManager, err := app.DB()
	if err != nil {
		return err
	}

	store, err := app.Store()
	if err != nil {
		return err
	}

	routeManager := NewRouteManager(cfg, dbManager, store, nil, app.log, app.metrics)
	pullerService := puller.NewPullerService(app.FetchService(), dbManager, routeManager.ingestor, app.log, cfg.Fetch.Interval)
	routeManager.puller = pullerService
	routeManager.Setup()

	if cfg.Fetch.Interval > 0 {
		pullerService.Start()
		defer pullerService.Stop()
	}

	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Handler:      routeManager.Router,
		Addr:         addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		app.log.Info("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			app.log.ErrorWithError(err, "server shutdown error")
		}
	}()

	app.log.Logger.Info().Str("addr", addr).Str("store", cfg.Store.Backend).Msg("starting AirMaestro server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

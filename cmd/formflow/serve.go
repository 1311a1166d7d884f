package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/formflow/internal/api"
	"github.com/gyaneshwarpardhi/formflow/internal/config"
	"github.com/gyaneshwarpardhi/formflow/internal/engine"
	"github.com/gyaneshwarpardhi/formflow/internal/logging"
)

func newServeCmd() *cobra.Command {
	var addr, cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP routing server",
		Long:  `Loads the form config, watches it for changes and serves routing, simulation and repair endpoints.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(addr, cfgPath)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&cfgPath, "config", defaultConfig, "Path to forms YAML config")
	return cmd
}

func serve(addr, cfgPath string) error {
	loader, err := config.NewLoader(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := loader.Config()
	slog.SetDefault(logging.New(cfg.Log))

	cat, err := engine.BuildCatalog(cfg)
	if err != nil {
		return fmt.Errorf("build forms: %w", err)
	}
	for _, w := range config.Lint(cfg) {
		slog.Warn("config lint", "warning", w)
	}
	slog.Info("forms loaded", "forms", cat.Len(), "path", cfgPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(ctx, cat, cfg.Engine)

	loader.OnChange(func(newCfg *config.Config) {
		next, err := eng.Apply(newCfg)
		if err != nil {
			slog.Warn("hot-reload skipped: config invalid", "err", err)
			return
		}
		slog.Info("forms hot-reloaded", "forms", next.Len())
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      api.New(eng, loader),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			eng.Shutdown()
			return fmt.Errorf("server: %w", err)
		}
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel()
	eng.Shutdown()
	slog.Info("goodbye")
	return nil
}

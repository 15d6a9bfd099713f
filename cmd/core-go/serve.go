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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sitemanager/core-go/internal/config"
	"sitemanager/core-go/internal/db"
	"sitemanager/core-go/internal/httpapi"
	"sitemanager/core-go/internal/metrics"
	"sitemanager/core-go/internal/refresher"
	"sitemanager/core-go/internal/tree"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the site tree HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}
}

// loadConfig reads .env (when present) and the environment, then applies flag overrides.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("addr") {
		cfg.HTTPAddr = flags.addr
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	return cfg, nil
}

func loadBaseline(path string) ([]*tree.Node, error) {
	if path == "" {
		return nil, nil
	}
	nodes, err := tree.LoadBaselineYAML(path)
	if err != nil {
		return nil, fmt.Errorf("load baseline tree %q: %w", path, err)
	}
	return nodes, nil
}

func runServe(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	logger := httpapi.NewLogger(cfg.LogLevel)

	baseline, err := loadBaseline(cfg.DefaultTreePath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	proc := tree.NewProcessor(logger, baseline, m)

	var (
		pool    *db.Pool
		queries refresher.Queries
	)
	if cfg.DatabaseURL != "" {
		p, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer p.Close()
		pool = p
		queries = p.Queries()
	} else {
		logger.Warn().Msg("DATABASE_URL not set; dataset storage disabled")
	}

	worker := refresher.New(logger, queries, proc, refresher.Options{PollInterval: cfg.RefreshInterval}, m)
	go worker.Run(ctx)

	h := httpapi.NewHandler(logger, pool, httpapi.Options{
		Processor:   proc,
		Snapshots:   worker,
		Metrics:     m,
		CORSOrigins: cfg.CORSOrigins,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Bool("storage", pool != nil).Msg("core-go listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
	return nil
}

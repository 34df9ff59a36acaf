// Package main runs the in-memory development backend.
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

	"github.com/j-veylop/stockscanner-tui/internal/devapi"
	"github.com/j-veylop/stockscanner-tui/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr, level string
		cfg         devapi.Config
	)

	root := &cobra.Command{
		Use:           "devapi",
		Short:         "In-memory Stock Scanner backend for development",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			logger.Configure(os.Stderr, logger.ParseLevel(level))
			cfg.Secret = []byte(os.Getenv("DEVAPI_SECRET"))
			return run(addr, cfg)
		},
	}
	root.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "listen address")
	root.Flags().DurationVar(&cfg.Latency, "latency", 0, "artificial delay added to every response")
	root.Flags().DurationVar(&cfg.TokenTTL, "token-ttl", time.Hour, "lifetime of issued tokens")
	root.Flags().IntVar(&cfg.RateLimit, "rate-limit", 120, "requests allowed per minute")
	root.Flags().StringVar(&level, "log-level", "info", "log level: debug|info|warn|error")
	return root
}

func run(addr string, cfg devapi.Config) error {
	srv, err := devapi.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("development API listening", "addr", addr)
		for _, u := range devapi.DemoUsers {
			logger.Info("demo account", "username", u.Username, "password", u.Password, "premium", u.Premium)
		}
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

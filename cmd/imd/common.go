package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vixalie/interactive-model-downloader/internal/cache"
	"github.com/vixalie/interactive-model-downloader/internal/config"
	"github.com/vixalie/interactive-model-downloader/internal/httpclient"
)

// loadConfig loads the layered configuration: file, then environment.
// An empty path selects the default location.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newHTTPClient builds the catalog HTTP client from the configuration.
func newHTTPClient(cfg config.Config) (*httpclient.Client, error) {
	proxy, err := cfg.Proxy.URL()
	if err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}
	return httpclient.NewClient(httpclient.Options{
		Token: cfg.CivitaiToken,
		Proxy: proxy,
	}), nil
}

// openCache opens the configured cache database.
func openCache(cfg config.Config, logger *slog.Logger) (*cache.Store, error) {
	path, err := cfg.ResolveCachePath()
	if err != nil {
		return nil, err
	}
	return cache.Open(cache.Options{Path: path, Logger: logger})
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[imd] Received interrupt, shutting down...")
		cancel()
	}()

	return ctx, cancel
}

// newLogger builds the CLI logger. Verbose switches from warnings to
// debug output.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

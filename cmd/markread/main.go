package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/markread/internal/app"
	"github.com/GriffinCanCode/markread/internal/infrastructure/config"
	"github.com/GriffinCanCode/markread/internal/infrastructure/logging"
	"github.com/GriffinCanCode/markread/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/markread/internal/ipc"
	"github.com/GriffinCanCode/markread/internal/loader"
	"github.com/GriffinCanCode/markread/internal/server"
	"github.com/GriffinCanCode/markread/internal/webview"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "markread: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags override env vars
	port := flag.String("port", cfg.Server.Port, "HTTP port")
	host := flag.String("host", cfg.Server.Host, "HTTP listen address")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development mode (console logs, debug level)")
	flag.Parse()
	cfg.Server.Port = *port
	cfg.Server.Host = *host
	cfg.Logging.Development = *dev

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	logger.Info("Starting MarkRead",
		zap.String("addr", cfg.Addr()),
		zap.Int("chunk_size", cfg.Bridge.ChunkSize),
		zap.Duration("transfer_ttl", cfg.Bridge.TransferTTL),
	)

	metrics := monitoring.NewMetrics()

	wv := webview.DefaultConfig()
	wv.ScriptTimeout = cfg.Surface.ScriptTimeout
	wv.SweepInterval = cfg.Bridge.SweepInterval

	ld := loader.DefaultConfig()
	ld.Timeout = cfg.Fetch.Timeout
	ld.Retries = cfg.Fetch.Retries

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, err := app.NewManager(ctx, app.Options{
		WebView: wv,
		Loader:  ld,
		Bridge: []ipc.Option{
			ipc.WithChunkSize(cfg.Bridge.ChunkSize),
			ipc.WithTransferTTL(cfg.Bridge.TransferTTL),
			ipc.WithMaxPostSize(cfg.Bridge.MaxPostSize),
		},
		Logger:   logger.Logger,
		Recorder: metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer manager.Close()

	srv := server.NewServer(cfg, manager, metrics, logger.Logger)

	// Initial file from the command line, sent once the surface is ready
	if path := flag.Arg(0); path != "" {
		if err := manager.OpenFile(ctx, path); err != nil {
			logger.Warn("failed to open initial file", zap.String("path", path), zap.Error(err))
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down gracefully...")
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	return nil
}

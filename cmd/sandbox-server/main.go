package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ojbox/internal/sandbox/engine"
	"ojbox/internal/sandbox/observer"
	"ojbox/internal/server"
	"ojbox/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultConfigPath = "configs/sandbox_server.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if os.Geteuid() != 0 {
		logger.Warn(context.Background(), "not running as root, every run will fail with ROOT_REQUIRED")
	}

	runLogger, err := logger.NewLogger(appCfg.Logger)
	if err != nil {
		logger.Error(context.Background(), "init run recorder failed", zap.Error(err))
		return
	}
	defer func() {
		_ = runLogger.Close()
	}()
	appCfg.Sandbox.Recorder = observer.NewLogRecorder(runLogger.Zap())

	eng, err := engine.NewEngine(appCfg.Sandbox)
	if err != nil {
		logger.Error(context.Background(), "init sandbox engine failed", zap.Error(err))
		return
	}

	httpServer := server.NewHTTPServer(appCfg.Server, eng)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "sandbox http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

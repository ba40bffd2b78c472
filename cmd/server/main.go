package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/offerledger/pnl-backend/internal/adapter/grpc"
	"github.com/offerledger/pnl-backend/internal/app"
	"github.com/offerledger/pnl-backend/internal/config"
	"github.com/offerledger/pnl-backend/internal/trace"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (defaults only when empty)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).WithField("path", *configPath).Fatal("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := trace.Init(cfg.Trace.Enabled, version, os.Stderr); err != nil {
		logger.WithError(err).Fatal("failed to initialise tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := trace.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("failed to flush traces")
		}
	}()

	// 2. Initialize repositories and cache
	deps, cleanup, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to wire dependencies")
	}
	defer cleanup()

	// 3. Initialize services (use cases)
	reportService := app.NewReportService(cfg, deps, logger)

	// 4. Start gRPC server
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(grpcadapter.AuthInterceptor(cfg.Server.APIToken, logger)),
	)
	grpcadapter.RegisterReportServiceServer(grpcServer, grpcadapter.NewServer(reportService, logger))
	if cfg.Server.Reflection {
		reflection.Register(grpcServer)
	}

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		logger.WithError(err).WithField("addr", cfg.Server.Addr).Fatal("failed to listen")
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":    cfg.Server.Addr,
			"version": version,
		}).Info("gRPC server listening")
		serveErr <- grpcServer.Serve(lis)
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
		grpcServer.GracefulStop()
	case err := <-serveErr:
		if err != nil {
			logger.WithError(err).Error("gRPC server failed")
		}
	}
	logger.Info("gRPC server stopped")
}

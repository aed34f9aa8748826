package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/gst-invoices/internal/async"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/export"
	"github.com/joseph-ayodele/gst-invoices/internal/invoices"
	"github.com/joseph-ayodele/gst-invoices/internal/pipeline"
	"github.com/joseph-ayodele/gst-invoices/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gstd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := common.LoadConfig()
	if err != nil {
		return err
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	processor, err := pipeline.Build(cfg, logger)
	if err != nil {
		return err
	}
	repo, err := server.ConnectRepository(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc := invoices.NewService(invoices.Config{
		UploadDir:       cfg.Server.UploadDir,
		ReviewThreshold: cfg.Server.ReviewThreshold,
	}, processor, repo, logger)
	queue := async.NewProcessorQueue(svc, logger,
		async.WithWorkers(cfg.Server.Workers),
		async.WithQueueSize(cfg.Server.QueueSize),
		async.WithProcessTimeout(cfg.Server.ProcessTimeout),
	)
	svc.AttachQueue(queue)

	// gRPC
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(server.UnaryLoggingInterceptor(logger)))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)
	server.RegisterInvoiceServiceServer(grpcServer, server.NewInvoiceServer(svc, logger))

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}

	// HTTP
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewHTTPHandler(svc, export.NewService(logger), repo, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc.serve", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		logger.Info("http.serve", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("gstd.shutdown.start")
	case serveErr = <-errCh:
		logger.Error("gstd.serve.failed", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http.shutdown.failed", "error", err)
	}
	grpcServer.GracefulStop()
	queue.Shutdown(shutdownCtx)
	logger.Info("gstd.shutdown.done")
	return serveErr
}

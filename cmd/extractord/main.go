// Command extractord claims uploaded files from the status store and runs
// them through the extraction pipeline on a worker pool.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/store-extractor/internal/bootstrap"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/core/async"
	"github.com/joseph-ayodele/store-extractor/internal/extract"
	"github.com/joseph-ayodele/store-extractor/internal/intake"
	"github.com/joseph-ayodele/store-extractor/internal/pipeline"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open stores", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer stores.Close()
	if stores.Claimer == nil {
		logger.Error("store backend cannot claim uploads", "backend", cfg.Store.Backend)
		os.Exit(2)
	}

	blob, closeBlob, err := bootstrap.OpenBlob(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer closeBlob()

	providers, closeProviders := bootstrap.Providers(cfg.LLM, logger)
	defer closeProviders()

	processor := pipeline.NewProcessor(blob, stores.Uploads, stores.Records, extract.NewDispatcher(providers, logger), logger)
	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Worker.Workers),
		async.WithQueueSize(cfg.Worker.QueueSize),
		async.WithProcessTimeout(cfg.Worker.ProcessTimeout),
	)
	poller := intake.NewPoller(stores.Claimer, queue, cfg.Worker.PollInterval, cfg.Worker.PollBatch, logger)

	// gRPC health surface
	lis, err := net.Listen("tcp", cfg.Worker.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Worker.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()
	logger.Info("extractord listening", "addr", cfg.Worker.GRPCAddr, "workers", cfg.Worker.Workers)

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("poller stopped", "error", err)
	}

	logger.Info("shutting down")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ProcessTimeout+10*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	logger.Info("stopped")
}

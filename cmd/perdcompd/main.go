package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/danieceiflora/perdcomp01-sub000/internal/app"
	"github.com/danieceiflora/perdcomp01-sub000/internal/async"
	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
	"github.com/danieceiflora/perdcomp01-sub000/internal/ingest"
	"github.com/danieceiflora/perdcomp01-sub000/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := app.OpenDatabase(ctx, cfg.Database, false, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err, "driver", cfg.Database.Driver)
		os.Exit(1)
	}
	a := app.New(db, cfg, logger)
	defer a.Close()

	queue := async.NewProcessorQueue(a.Processor, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(cfg.Ingest.JobTimeout),
	)

	if len(cfg.Ingest.WatchDirs) > 0 {
		paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       cfg.Ingest.WatchDirs,
			InitialScan: true,
			Debounce:    cfg.Ingest.Debounce,
			Logger:      logger,
		})
		if err != nil {
			logger.Error("failed to start watcher", "error", err, "dirs", cfg.Ingest.WatchDirs)
			os.Exit(1)
		}
		go ingest.Feed(ctx, a.Ingestor, queue, paths, logger)
		go func() {
			for err := range errs {
				logger.Error("watcher error", "error", err)
			}
		}()
	}

	if cfg.Audit.Schedule != "" {
		c, err := a.Audit.Schedule(cfg.Audit.Schedule)
		if err != nil {
			logger.Error("invalid audit schedule", "error", err)
			os.Exit(1)
		}
		c.Start()
		defer c.Stop()
	}

	api := server.New(server.Deps{
		Ingestor:  a.Ingestor,
		Queue:     queue,
		Documents: a.Documents,
		Jobs:      a.Jobs,
		Empresas:  a.Empresas,
		Claims:    a.Claims,
		Entries:   a.Entries,
		Ledger:    a.Ledger,
		Export:    a.Export,
		Health:    a.Health,
	}, logger,
		server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		server.WithRequestTimeout(cfg.Server.RequestTimeout),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	go func() {
		logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	go watchHealth(ctx, a, healthServer, logger)

	go func() {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
}

// watchHealth mirrors database reachability into the gRPC health status.
func watchHealth(ctx context.Context, a *app.App, hs *health.Server, logger *slog.Logger) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ok := a.Health(ctx) == nil
			if ok == serving {
				continue
			}
			serving = ok
			status := grpc_health_v1.HealthCheckResponse_SERVING
			if !ok {
				status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			}
			logger.Warn("health status changed", "status", status.String())
			hs.SetServingStatus("", status)
		}
	}
}

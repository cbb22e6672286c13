// Package main provides the planning server binary: a gRPC planning service
// with Prometheus metrics, an optional plan archive and catalog hot reload.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cory-johannsen/craftplan/internal/bootstrap"
	"github.com/cory-johannsen/craftplan/internal/config"
	"github.com/cory-johannsen/craftplan/internal/observability"
	"github.com/cory-johannsen/craftplan/internal/planning/planner"
	"github.com/cory-johannsen/craftplan/internal/planning/search"
	"github.com/cory-johannsen/craftplan/internal/planserver"
	"github.com/cory-johannsen/craftplan/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	healthInterval := flag.Duration("db-health", 30*time.Second, "plan archive health check interval")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting plan server",
		zap.String("grpc_addr", cfg.PlanServer.Addr()),
		zap.String("heuristic", cfg.Search.Heuristic),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewSearchMetrics(reg)

	catalogs, err := bootstrap.LoadCatalogs(cfg.Content.CatalogDir, logger)
	if err != nil {
		logger.Fatal("loading catalogs", zap.Error(err))
	}
	planning, err := bootstrap.NewPlanning(ctx, cfg, catalogs, logger,
		planner.WithSearchOptions(search.WithObserver(metrics)),
	)
	if err != nil {
		logger.Fatal("assembling planner", zap.Error(err))
	}
	defer planning.Close()

	grpcServer := planserver.NewGRPCServer(planserver.NewServer(planning.Service, logger), logger)

	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func(context.Context) error {
			lis, err := net.Listen("tcp", cfg.PlanServer.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.PlanServer.Addr(), err)
			}
			logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: func(ctx context.Context) {
			stopped := make(chan struct{})
			go func() {
				grpcServer.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-ctx.Done():
				grpcServer.Stop()
			}
		},
	})

	if cfg.PlanServer.MetricsPort != 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsServer := &http.Server{
			Addr:              cfg.PlanServer.MetricsAddr(),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		lifecycle.Add("metrics", &server.FuncService{
			StartFn: func(context.Context) error {
				logger.Info("metrics listening", zap.String("addr", metricsServer.Addr))
				if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			},
			StopFn: func(ctx context.Context) {
				_ = metricsServer.Shutdown(ctx)
			},
		})
	}

	if cfg.PlanServer.Watch {
		watcher := planserver.NewWatcher(cfg.Content.CatalogDir, planning.Registry, logger, 0)
		lifecycle.Add("catalog-watcher", &server.FuncService{StartFn: watcher.Run})
	}

	if planning.Pool != nil {
		pool := planning.Pool
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func(ctx context.Context) error {
				ticker := time.NewTicker(*healthInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
						if err := pool.Health(ctx, 5*time.Second); err != nil {
							logger.Warn("database health check failed", zap.Error(err))
						}
					}
				}
			},
		})
	}

	logger.Info("plan server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Strings("catalogs", planning.Registry.IDs()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

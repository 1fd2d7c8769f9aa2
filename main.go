// entry point of the application
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"instadl/internal/config"
	"instadl/internal/depmanager"
	"instadl/internal/fetcher"
	"instadl/internal/finalizer"
	httprouter "instadl/internal/infrastructure/delivery/http"
	"instadl/internal/observability"
	"instadl/internal/orchestrator"
	"instadl/internal/registry"
	"instadl/internal/sessions"
	httpserver "instadl/pkg/http/server"
	"instadl/pkg/logger"
	"instadl/pkg/pool"
)

const dirPerm = 0o755

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Options{
		AddSource: true,
		Level:     cfg.App.LogLevel,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	for _, dir := range []string{cfg.Dir.Outputs, cfg.Dir.Temp, cfg.Dir.Cache} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			log.ErrorContext(ctx, "create dir", slog.String("dir", dir), slog.Any("error", err))
			stop()
			os.Exit(1)
		}
	}

	metrics := observability.New()

	depMgr := depmanager.New(log, cfg)

	log.InfoContext(ctx, "checking if yt-dlp and ffmpeg are installed. it may take some time...")

	if err := depMgr.Start(ctx); err != nil {
		log.ErrorContext(ctx, "depmanager start", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	ft := fetcher.NewYTdlp(log, cfg, depMgr)
	sessionCache := sessions.New(log)
	reg := registry.New(log)
	workers := pool.New(cfg.Job.Workers)
	fin := finalizer.New(log, cfg.Dir.Outputs, cfg.Finalize.Attempts, cfg.Finalize.Interval)

	svc := orchestrator.New(cfg, log, ft, sessionCache, reg, workers, fin, metrics)

	router := httprouter.New(log, cfg, svc, metrics)

	httpSrv := httpserver.New(router, httpserver.Options{
		Addr:            cfg.HTTP.Port,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	log.InfoContext(ctx, "instadl started", slog.String("port", cfg.HTTP.Port))

	select {
	case <-ctx.Done():
	case err := <-httpSrv.Notify():
		log.ErrorContext(ctx, "http server", slog.Any("error", err))
	}

	if err := httpSrv.Shutdown(); err != nil {
		log.Error(err.Error())
	}

	workers.Stop()

	log.InfoContext(ctx, "instadl shut down gracefully")
}

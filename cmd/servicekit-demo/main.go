package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jvilloa/servicekit/config"
	"github.com/jvilloa/servicekit/logsvc"
	"github.com/jvilloa/servicekit/registry"
	"github.com/jvilloa/servicekit/service"
	"github.com/jvilloa/servicekit/session"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupLogging(reg *registry.Registry, cfg *config.Config) *logsvc.Service {
	logSvc, err := logsvc.New(reg, logsvc.WithLevel(logsvc.ParseLevel(cfg.LogLevel)))
	if err != nil {
		log.Fatalf("Failed to create log service: %v", err)
	}
	if err := logSvc.RegisterConsumer(logsvc.NewSlogPrinter("stdout", os.Stdout, cfg.LogLevel, cfg.LogFormat)); err != nil {
		log.Fatalf("Failed to register log printer: %v", err)
	}
	slog.SetDefault(slog.New(session.NewHandler(logSvc.Handler())))
	return logSvc
}

func main() {
	cfg := setupConfig()
	reg := registry.New(cfg, clockwork.NewRealClock())

	setupLogging(reg, cfg)
	slog.Info("Application starting", "log_level", cfg.LogLevel, "log_format", cfg.LogFormat)

	heartbeat, err := service.New(reg, "heartbeat", 1, service.WithShutdownHook(func(stage registry.Stage) error {
		slog.Info("Heartbeat shutting down", "stage", string(stage))
		return nil
	}))
	if err != nil {
		slog.Error("Failed to create heartbeat service", "error", err)
		os.Exit(1)
	}

	sess := session.New("demo")
	sess.Set("started_at", time.Now().Format(time.RFC3339))
	ctx := session.With(context.Background(), sess)

	if _, err := heartbeat.Fork(ctx, func(taskCtx context.Context) error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-taskCtx.Done():
				return taskCtx.Err()
			case <-ticker.C:
				slog.InfoContext(taskCtx, "Heartbeat tick")
			}
		}
	}); err != nil {
		slog.Error("Failed to start heartbeat loop", "error", err)
		os.Exit(1)
	}

	reg.HandleSignals()
	slog.Info("Running, send SIGINT or SIGTERM to shut down")
	select {}
}

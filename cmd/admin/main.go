package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	environment "tgadmin/internal/env"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env, err := environment.Setup(ctx)
	if err != nil {
		log.Fatalf("Failed to setup environment: %v", err)
	}

	logger := env.Logger
	logger.Info("starting admin panel")

	// Observability server in background
	go func() {
		logger.Info("starting observability server", slog.String("addr", env.Servers.HTTP.Observability.Addr))
		if err := env.Servers.HTTP.Observability.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("observability server error", slog.Any("error", err))
		}
	}()

	// Admin API server in background
	go func() {
		if err := env.Servers.API.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server error", slog.Any("error", err))
		}
	}()

	// Менеджер бота сам решает, поднимать ли клиента, по конфигу из БД
	go env.Services.BotManager.Run(ctx)

	if err := env.Services.Workers.Start(); err != nil {
		logger.Error("failed to start workers", slog.Any("error", err))
		return
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("admin panel started, press Ctrl+C to stop")
	<-quit

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), env.Config.ShutdownDuration)
	defer shutdownCancel()

	env.Services.Workers.Stop()

	if err := env.Servers.API.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown error", slog.Any("error", err))
	}
	if err := env.Servers.HTTP.Observability.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
		logger.Error("observability server shutdown error", slog.Any("error", err))
	}

	for _, closer := range env.Closers {
		closer()
	}

	logger.Info("application stopped")
}

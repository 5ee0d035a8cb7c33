// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// The messaging-sync command imports provider message batches and reconciles
// channel syncs with blocklist changes, driven by NATS events.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/cmd/messaging-sync/service"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/log"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/utils"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const gracefulShutdownTimeout = 25 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	var (
		portF = flag.String("p", "", "health server port, overrides HEALTH_PORT")
		bindF = flag.String("bind", "*", "interface to bind the health server on")
	)
	flag.Parse()

	log.InitStructureLogConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.InfoContext(ctx, "starting messaging sync service",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	otelConfig := utils.OTelConfigFromEnv()
	if otelConfig.ServiceVersion == "" {
		otelConfig.ServiceVersion = Version
	}
	otelShutdown, err := utils.SetupOTelSDKWithConfig(ctx, otelConfig)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up OpenTelemetry", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shut down OpenTelemetry", "error", err)
		}
	}()

	cfg := service.GetConfig(ctx)
	port := cfg.HealthPort
	if *portF != "" {
		port = *portF
	}
	host := *bindF
	if host == "*" {
		host = ""
	}

	var wg sync.WaitGroup

	checks := make(map[string]readinessCheck)
	for name, check := range service.ReadinessChecks(ctx) {
		checks[name] = check
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return handleMessageImport(ctx, &wg) })
	g.Go(func() error { return handleBlocklistSync(ctx, &wg) })
	g.Go(func() error { return handleHealthServer(ctx, &wg, net.JoinHostPort(host, port), checks) })
	if err := g.Wait(); err != nil {
		slog.ErrorContext(gctx, "failed to start messaging sync service", "error", err)
		stop()
		wg.Wait()
		service.Close(context.Background())
		return 1
	}

	slog.InfoContext(ctx, "messaging sync service started")
	<-ctx.Done()
	slog.InfoContext(context.Background(), "shutdown signal received")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	exitCode := 0
	select {
	case <-done:
		slog.InfoContext(context.Background(), "graceful shutdown completed")
	case <-time.After(gracefulShutdownTimeout):
		slog.WarnContext(context.Background(), "graceful shutdown timed out")
		exitCode = 1
	}

	service.Close(context.Background())
	return exitCode
}

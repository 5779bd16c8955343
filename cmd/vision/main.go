// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command vision starts the detection evaluation API server.
//
// Usage:
//
//	go run ./cmd/vision -db /var/lib/aleutian/vision
//	go run ./cmd/vision -port 9090 -debug
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/vision/health
//
//	# Create a dataset
//	curl -X POST http://localhost:8080/v1/vision/datasets \
//	  -H "Content-Type: application/json" \
//	  -d '{"name": "animals", "media_type": "image"}'
//
//	# Run an evaluation
//	curl -X POST http://localhost:8080/v1/vision/datasets/animals/evaluate \
//	  -H "Content-Type: application/json" \
//	  -d '{"pred_field": "predictions", "eval_key": "eval1"}'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianVision/pkg/logging"
	"github.com/AleutianAI/AleutianVision/services/vision"
	"github.com/AleutianAI/AleutianVision/services/vision/dataset"
	storage "github.com/AleutianAI/AleutianVision/services/vision/storage/badger"
	"github.com/AleutianAI/AleutianVision/services/vision/telemetry"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	dbPath := flag.String("db", "", "Dataset database directory (in-memory when empty)")
	logDir := flag.String("log-dir", "", "Directory for log files (stderr only when empty)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger, closeLogs, err := logging.New(logging.Config{
		Level:   logLevel,
		Service: "vision",
		LogDir:  *logDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closeLogs() }()
	slog.SetDefault(logger)

	if err := run(*port, *dbPath, *debug); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(port int, dbPath string, debug bool) error {
	ctx := context.Background()

	shutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	storageCfg := storage.DefaultConfig()
	storageCfg.Path = dbPath
	storageCfg.InMemory = dbPath == ""
	if storageCfg.InMemory {
		slog.Warn("No -db path given; datasets will not survive restarts")
	}

	db, err := storage.Open(storageCfg)
	if err != nil {
		return fmt.Errorf("open dataset database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Warn("Database close failed", "error", err)
		}
	}()

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	svc := vision.NewService(dataset.NewStore(db), vision.DefaultServiceConfig())
	handlers := vision.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.Middleware("vision.http"))
	if debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	vision.RegisterRoutes(v1, handlers)

	if metrics := telemetry.MetricsHandler(); metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting vision server", "addr", srv.Addr, "db", dbPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		slog.Info("Shutting down vision server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

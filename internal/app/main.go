package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/emberlog/emberlog"
	"github.com/emberlog/emberlog/internal/config"
	"github.com/emberlog/emberlog/internal/metrics"
	errorsUtils "github.com/emberlog/emberlog/pkg/errors"
	"github.com/emberlog/emberlog/pkg/httpserver"
	"github.com/emberlog/emberlog/pkg/logger"
)

func Run() {
	// Config

	cfg, err := config.New()
	if err != nil {
		log.Fatal(errorsUtils.WrapPathErr(err))
	}

	// Logger
	logger.SetupLogger(cfg.Log.Level)
	log.Info("Logger has been set up")

	// Pipeline
	log.Infof("Starting pipeline, %s backend", cfg.Storage.Backend)
	counters := metrics.New()
	pipeline, err := emberlog.Start(context.Background(), cfg, counters)
	if err != nil {
		log.Fatal(errorsUtils.WrapPathErr(err))
	}
	log.Info("Pipeline started")

	// Prometheus server
	log.Infof("Starting metrics server...")
	log.Debugf("Server port: %s", cfg.Prometheus.Port)
	metricsHandler := echo.New()
	metrics.ConfigureRouter(metricsHandler)
	metricsServer := httpserver.New(metricsHandler, httpserver.Port(cfg.Prometheus.Port))

	// Waiting signal
	log.Info("Configuring graceful shutdown")
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		log.Info("app - Run - signal: " + s.String())
	case err := <-metricsServer.Notify():
		log.Info(errorsUtils.WrapPathErr(err))
	}

	// Graceful shutdown
	log.Info("Shutting down...")
	if err := metricsServer.Shutdown(); err != nil {
		log.Error(errorsUtils.WrapPathErr(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.WorkerShutdownTimeout())
	defer cancel()
	if err := pipeline.Close(ctx); err != nil {
		log.Error(errorsUtils.WrapPathErr(err))
	}
}

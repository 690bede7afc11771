// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/api"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/breaker"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/config"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/dispatcher"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/metrics"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/scheduler"
	"github.com/oculairmedia/huly-webhook-implementation-sub001/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newCmdServer() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Runs the webhook delivery server: the scheduler, dispatcher and operational HTTP surface.",
		RunE: func(command *cobra.Command, args []string) error {
			command.SilenceUsage = true
			return runServer(command)
		},
	}

	return cmd
}

// runServer wires the Scheduler, Dispatcher and Circuit Breaker Manager
// around the persistent store and serves the operational HTTP API until an
// interrupt or termination signal is received.
//
// It does not receive document-change transactions itself: translate(batch)
// is invoked synchronously by the host platform on its own transaction
// thread (§6 "Inbound — Platform trigger callback") and writes Events
// directly to this process's store. This server only drains that store.
func runServer(command *cobra.Command) error {
	cfg, err := config.FromCommand(command)
	if err != nil {
		return err
	}
	setLogLevel(cfg.LogLevel)

	sqlStore, err := store.New(cfg.DSN, logger)
	if err != nil {
		return err
	}
	if err := sqlStore.Migrate(); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	deliveryMetrics := metrics.NewWithRegisterer(registry)

	clock := clockwork.NewRealClock()

	breakerManager := breaker.NewManager(breaker.DefaultParams(), clock, logger)
	disp := dispatcher.New(clock, logger)

	schedulerConfig := scheduler.Config{
		PollInterval:  cfg.PollInterval,
		BatchSize:     cfg.BatchSize,
		WorkerCount:   cfg.WorkerCount,
		BaseDelay:     cfg.BaseDelay,
		MaxDelay:      cfg.MaxDelay,
		DrainDeadline: cfg.DrainDeadline,
		StatsPeriod:   cfg.StatsPeriod,
		Metrics:       deliveryMetrics,
	}
	sched := scheduler.New(sqlStore, disp, breakerManager, clock, logger, schedulerConfig, time.Now().UnixNano())

	router := mux.NewRouter()
	api.Register(router, &api.Context{Store: sqlStore, Logger: logger}, registry)

	srv := &http.Server{
		Addr:           cfg.ListenAddress,
		Handler:        router,
		ReadTimeout:    180 * time.Second,
		WriteTimeout:   180 * time.Second,
		IdleTimeout:    180 * time.Second,
		MaxHeaderBytes: 1 << 20,
		ErrorLog:       log.New(&logrusWriter{logger}, "", 0),
	}

	sched.Start()

	go func() {
		logger.WithField("addr", srv.Addr).Info("webhookd API server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("failed to listen and serve")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	sig := <-c
	logger.WithField("shutdown-signal", sig.String()).Info("shutting down")

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DrainDeadline)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("error shutting down API server")
	}

	return nil
}

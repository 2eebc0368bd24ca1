package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cluster "github.com/MadAppGang/animcluster"
	"github.com/MadAppGang/animcluster/internal/config"
	"github.com/MadAppGang/animcluster/internal/logger"
	"github.com/MadAppGang/animcluster/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a .json or .yaml config file")
	envPath := flag.String("env", ".env", "path to a .env file with overrides")
	flag.Parse()

	if err := config.LoadDotenv(*envPath); err != nil {
		// logger is not set up yet, LOG_LEVEL may come from this file
		logger.L().Warn("env file not loaded", "path", *envPath, "error", err)
	}
	log := logger.Setup()

	cfg := &config.Config{}
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Error("config load failed", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		log.Error("config env override failed", "error", err)
		os.Exit(1)
	}

	opts := cfg.Options()
	srv := server.New(server.Config{
		Options:  &opts,
		MaxViews: cfg.GetMaxViews(),
		Metrics:  cluster.NewMetrics(prometheus.DefaultRegisterer),
		Gatherer: prometheus.DefaultGatherer,
		Logger:   log,
	})

	httpSrv := &http.Server{
		Addr:              cfg.GetAddr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening",
			"addr", httpSrv.Addr,
			"min_distance", opts.MinDistance,
			"move_duration", opts.MoveDuration.String(),
			"show_clusters", opts.ShowClusters,
			"press_radius", opts.PressRadius,
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	srv.Close()
}

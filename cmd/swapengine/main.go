// Command swapengine runs the cross-chain swap engine HTTP service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/OpenBridge-Network/swap_engine/internal/chains"
	"github.com/OpenBridge-Network/swap_engine/internal/config"
	"github.com/OpenBridge-Network/swap_engine/internal/confirm"
	"github.com/OpenBridge-Network/swap_engine/internal/features"
	"github.com/OpenBridge-Network/swap_engine/internal/gas"
	"github.com/OpenBridge-Network/swap_engine/internal/httpapi"
	"github.com/OpenBridge-Network/swap_engine/internal/metrics"
	"github.com/OpenBridge-Network/swap_engine/internal/retry"
	"github.com/OpenBridge-Network/swap_engine/internal/transport"
	"github.com/OpenBridge-Network/swap_engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the engine configuration file")
	flag.Parse()

	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		logger.NewDefault("main").WithError(err).Error("load configuration")
		os.Exit(1)
	}
	cfg.ApplyEnv()

	log := logger.New("main", cfg.Logging.Level)

	registry, err := chains.NewRegistry(cfg.Chains)
	if err != nil {
		log.WithError(err).Error("build chain registry")
		os.Exit(1)
	}

	gate := features.NewGate(registry, features.NewDefaults())
	tracker := confirm.NewTracker(registry)
	estimator := gas.NewEstimator(registry, gas.DefaultTables(), nil, log)
	collector := metrics.NewCollector("swapengine")

	backend, err := transport.NewHTTPTransport(transport.HTTPConfig{
		BaseURL:   cfg.Transport.BaseURL,
		APIKey:    cfg.Transport.APIKey,
		Timeout:   time.Duration(cfg.Transport.TimeoutMs) * time.Millisecond,
		RateLimit: cfg.Transport.RateLimit,
		Burst:     cfg.Transport.Burst,
	}, log)
	if err != nil {
		log.WithError(err).Error("build bridge transport")
		os.Exit(1)
	}

	server := httpapi.NewServer(httpapi.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutS) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutS) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutS) * time.Second,
		Registry:     registry,
		Gate:         gate,
		Estimator:    estimator,
		Tracker:      tracker,
		Backend:      backend,
		Metrics:      collector,
		Logger:       log,
		RetryPolicy: retry.Policy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond,
			MaxDelay:   time.Duration(cfg.Retry.MaxDelayMs) * time.Millisecond,
			Timeout:    time.Duration(cfg.Retry.TimeoutMs) * time.Millisecond,
		},
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("http server")
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownGraceS)*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown")
		os.Exit(1)
	}
}

// Command beamformer-server stands up the shared memory control plane
// region and serves it against an in-process compute backend until
// interrupted. It also exposes a Prometheus metrics endpoint.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	beamformer "github.com/ehrlich-b/beamformer-shm"
	"github.com/ehrlich-b/beamformer-shm/internal/compute"
	"github.com/ehrlich-b/beamformer-shm/internal/config"
	"github.com/ehrlich-b/beamformer-shm/internal/logging"
	"github.com/ehrlich-b/beamformer-shm/internal/promexport"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		logging.Error("failed to load server config", "err", err)
		os.Exit(1)
	}

	logger := logging.Default()

	backend := compute.NewStub()
	collector := promexport.NewCollector()

	params := beamformer.InstanceParams{
		Compute:      backend,
		RegionName:   cfg.RegionName,
		PollInterval: cfg.QueuePollInterval,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instance, err := beamformer.CreateAndServe(ctx, params, &beamformer.Options{
		Context:  ctx,
		Logger:   logger,
		Observer: collector,
	})
	if err != nil {
		logger.Errorf("failed to create region: %v", err)
		os.Exit(1)
	}
	defer beamformer.StopAndDelete(context.Background(), instance)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		logger.Infof("metrics listening on %s", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics server failed: %v", err)
		}
	}()

	logger.Infof("serving region %s", cfg.RegionName)
	<-ctx.Done()
	logger.Info("shutting down")
}

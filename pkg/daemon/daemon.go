// Package daemon wires the orchestrator process together: chain clients,
// signer, aggregator, pending store, sweep scheduler, and the HTTP
// surfaces for submissions, health, and metrics.
package daemon

import (
	"context"
	"fmt"

	"github.com/mohitM0/eliza-tx/pkg/aggregator"
	"github.com/mohitM0/eliza-tx/pkg/api"
	"github.com/mohitM0/eliza-tx/pkg/chainclient"
	"github.com/mohitM0/eliza-tx/pkg/circuitbreaker"
	"github.com/mohitM0/eliza-tx/pkg/config"
	"github.com/mohitM0/eliza-tx/pkg/health"
	"github.com/mohitM0/eliza-tx/pkg/logger"
	"github.com/mohitM0/eliza-tx/pkg/orchestrator"
	"github.com/mohitM0/eliza-tx/pkg/scheduler"
	"github.com/mohitM0/eliza-tx/pkg/signer"
	"github.com/mohitM0/eliza-tx/pkg/store"
)

// Daemon is the assembled orchestrator process
type Daemon struct {
	cfg      *config.Config
	logger   logger.Logger
	registry *chainclient.Registry
	store    *store.PendingStore
	breakers map[int]*circuitbreaker.CircuitBreaker
	service  *orchestrator.Service
	sweeper  *scheduler.Worker
}

// New builds the daemon from configuration
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	stdLogger := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)

	specs := make([]chainclient.ChainSpec, 0, len(cfg.Chains))
	for _, chainCfg := range cfg.Chains {
		specs = append(specs, chainclient.ChainSpec{
			ChainID:       chainCfg.ChainID,
			Name:          chainCfg.Name,
			RPCURL:        chainCfg.RPCURL,
			GasMultiplier: cfg.GasMultiplier,
			MaxGasPrice:   chainCfg.MaxGasPrice,
		})
	}
	registry, err := chainclient.NewRegistry(ctx, specs, stdLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create chain registry: %v", err)
	}

	pendingStore, err := store.Open(ctx, cfg.DatabaseURL, stdLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to open pending store: %v", err)
	}

	readers := make(map[int]orchestrator.ChainReader, len(cfg.Chains))
	breakers := make(map[int]*circuitbreaker.CircuitBreaker, len(cfg.Chains))
	for chainID := range cfg.Chains {
		client, err := registry.Resolve(chainID)
		if err != nil {
			return nil, err
		}
		readers[chainID] = client
		breakers[chainID] = circuitbreaker.NewCircuitBreaker(
			config.GetChainName(chainID),
			cfg.CircuitBreaker.Enabled,
			cfg.CircuitBreaker.Threshold,
			cfg.CircuitBreaker.WindowDuration,
			cfg.CircuitBreaker.ResetTimeout,
			stdLogger,
		)
	}

	service := orchestrator.New(
		readers,
		signer.New(cfg.SignerEndpoint, cfg.SignerAPIKey, stdLogger),
		aggregator.New(cfg.AggregatorEndpoint, stdLogger),
		pendingStore,
		breakers,
		orchestrator.Config{
			ConfirmMaxAttempts: cfg.ConfirmMaxAttempts,
			ConfirmInterval:    cfg.ConfirmInterval,
			SettleDelay:        cfg.SettleDelay,
			SweepWorkers:       cfg.WorkerCount,
		},
		stdLogger,
	)

	return &Daemon{
		cfg:      cfg,
		logger:   stdLogger,
		registry: registry,
		store:    pendingStore,
		breakers: breakers,
		service:  service,
		sweeper:  scheduler.NewWorker(service, cfg.SweepSchedule, stdLogger),
	}, nil
}

// Start runs the daemon until the context is cancelled
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start sweep worker: %v", err)
	}

	healthServer := health.NewServer(d.cfg.MetricsPort, d.registry, d.breakers, d.store)
	go healthServer.Start()

	apiServer := api.NewServer(d.cfg.APIPort, d.service, d.logger)
	go apiServer.Start()

	d.logger.Info("Orchestrator running: %d chain(s), sweep schedule %q", len(d.cfg.Chains), d.cfg.SweepSchedule)
	<-ctx.Done()

	d.logger.Info("Shutting down")
	d.sweeper.Stop()
	d.service.Wait()
	if err := d.store.Close(); err != nil {
		d.logger.Error("Failed to close store: %v", err)
	}
	return nil
}

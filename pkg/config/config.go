package config

import (
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/joho/godotenv"

	"github.com/mohitM0/eliza-tx/pkg/logger"
)

// Config holds the configuration for the orchestrator service
type Config struct {
	SignerEndpoint     string
	SignerAPIKey       string
	AggregatorEndpoint string
	DatabaseURL        string
	Chains             map[int]ChainConfig
	WorkerCount        int
	SweepSchedule      string
	MetricsPort        string
	APIPort            string
	ConfirmMaxAttempts int
	ConfirmInterval    time.Duration
	SettleDelay        time.Duration
	GasMultiplier      float64
	MaxGasPrice        *big.Int
	CircuitBreaker     CircuitBreakerConfig
	LoggerConfig       LoggerConfig
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// ChainConfig holds the configuration for a specific blockchain
type ChainConfig struct {
	ChainID     int
	Name        string
	RPCURL      string
	MaxGasPrice *big.Int
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	workerCount, err := GetEnvWorkerCount()
	if err != nil {
		return nil, err
	}

	sweepSchedule := GetEnvSweepSchedule()

	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	apiPort, err := GetEnvAPIPort()
	if err != nil {
		return nil, err
	}

	confirmAttempts, err := GetEnvConfirmAttempts()
	if err != nil {
		return nil, err
	}

	confirmInterval, err := GetEnvConfirmInterval()
	if err != nil {
		return nil, err
	}

	settleDelay, err := GetEnvSettleDelay()
	if err != nil {
		return nil, err
	}

	gasMultiplier, err := GetEnvGasMultiplier()
	if err != nil {
		return nil, err
	}

	maxGasPrice, err := GetEnvMaxGasPrice()
	if err != nil {
		return nil, err
	}

	cbEnabled, err := GetEnvCircuitBreakerEnabled()
	if err != nil {
		return nil, err
	}

	cbThreshold, err := GetEnvCircuitBreakerThreshold()
	if err != nil {
		return nil, err
	}

	cbWindow, err := GetEnvCircuitBreakerWindow()
	if err != nil {
		return nil, err
	}

	cbReset, err := GetEnvCircuitBreakerReset()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	chainConfigs, err := GetEnvChainConfigs(maxGasPrice)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SignerEndpoint:     GetEnvSignerEndpoint(),
		SignerAPIKey:       GetEnvSignerAPIKey(),
		AggregatorEndpoint: GetEnvAggregatorEndpoint(),
		DatabaseURL:        GetEnvDatabaseURL(),
		Chains:             chainConfigs,
		WorkerCount:        workerCount,
		SweepSchedule:      sweepSchedule,
		MetricsPort:        metricsPort,
		APIPort:            apiPort,
		ConfirmMaxAttempts: confirmAttempts,
		ConfirmInterval:    confirmInterval,
		SettleDelay:        settleDelay,
		GasMultiplier:      gasMultiplier,
		MaxGasPrice:        maxGasPrice,
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:        cbEnabled,
			Threshold:      cbThreshold,
			WindowDuration: cbWindow,
			ResetTimeout:   cbReset,
		},
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
	}

	// Validate required environment variables
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.SignerEndpoint == "" {
		return fmt.Errorf("SIGNER_API_URL environment variable is required")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if len(cfg.Chains) == 0 {
		return fmt.Errorf("at least one chain configuration is required")
	}
	for chainID, chainConfig := range cfg.Chains {
		if chainConfig.RPCURL == "" {
			return fmt.Errorf("CHAIN_%d_RPC_URL for chain %d is required", chainID, chainID)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/mohitM0/eliza-tx/pkg/logger"
)

const (
	// DefaultAggregatorEndpoint is the route planning service
	DefaultAggregatorEndpoint = "https://li.quest"

	// DefaultWorkerCount defines the default number of workers draining a sweep batch
	DefaultWorkerCount = 5

	// DefaultSweepSchedule runs the resumption sweep every 15 minutes
	DefaultSweepSchedule = "*/15 * * * *"

	// DefaultMetricsPort defines the default port for the metrics server
	DefaultMetricsPort = "8080"

	// DefaultAPIPort defines the default port for the submission API
	DefaultAPIPort = "8081"

	// DefaultConfirmAttempts defines how many receipt polls a transaction gets
	DefaultConfirmAttempts = 360

	// DefaultConfirmInterval defines the pause between receipt polls in seconds
	DefaultConfirmInterval = 5

	// DefaultSettleDelay defines the pause after confirmation before the first
	// bridge status query in seconds; indexers lag the chain
	DefaultSettleDelay = 90

	// DefaultGasMultiplier pads the suggested gas price
	DefaultGasMultiplier = 1.1

	// DefaultMaxGasPrice defines the maximum gas price for transactions
	DefaultMaxGasPrice = "150000000000" // 150 Gwei

	// DefaultCircuitBreakerEnabled defines whether the circuit breaker is enabled
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of failures before the circuit breaker trips
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the time window for the circuit breaker in seconds
	DefaultCircuitBreakerWindow = 5

	// DefaultCircuitBreakerReset defines the reset timeout for the circuit breaker in seconds
	DefaultCircuitBreakerReset = 15
)

// GetEnvSignerEndpoint returns the custodial signing service endpoint
func GetEnvSignerEndpoint() string {
	return os.Getenv("SIGNER_API_URL")
}

// GetEnvSignerAPIKey returns the bearer token for the signing service
func GetEnvSignerAPIKey() string {
	return os.Getenv("SIGNER_API_KEY")
}

// GetEnvAggregatorEndpoint returns the aggregator endpoint from environment variables
func GetEnvAggregatorEndpoint() string {
	endpoint := os.Getenv("AGGREGATOR_API_URL")
	if endpoint == "" {
		return DefaultAggregatorEndpoint
	}
	return endpoint
}

// GetEnvDatabaseURL returns the PostgreSQL connection string
func GetEnvDatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// GetEnvWorkerCount returns the number of sweep workers from environment variables
func GetEnvWorkerCount() (int, error) {
	workerCount := os.Getenv("WORKER_COUNT")
	if workerCount == "" {
		return DefaultWorkerCount, nil
	}

	count, err := strconv.Atoi(workerCount)
	if err != nil {
		return 0, fmt.Errorf("invalid WORKER_COUNT value: %s, must be an integer", workerCount)
	}
	if count <= 0 {
		return 0, fmt.Errorf("WORKER_COUNT must be greater than 0")
	}
	return count, nil
}

// GetEnvSweepSchedule returns the cron expression for the resumption sweep
func GetEnvSweepSchedule() string {
	schedule := os.Getenv("SWEEP_SCHEDULE")
	if schedule == "" {
		return DefaultSweepSchedule
	}
	return schedule
}

// GetEnvMetricsPort returns the metrics server port from environment variables
func GetEnvMetricsPort() (string, error) {
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		return DefaultMetricsPort, nil
	}

	if _, err := strconv.Atoi(metricsPort); err != nil {
		return "", fmt.Errorf("invalid METRICS_PORT value: %s, must be a valid integer", metricsPort)
	}
	return metricsPort, nil
}

// GetEnvAPIPort returns the submission API port from environment variables
func GetEnvAPIPort() (string, error) {
	apiPort := os.Getenv("API_PORT")
	if apiPort == "" {
		return DefaultAPIPort, nil
	}

	if _, err := strconv.Atoi(apiPort); err != nil {
		return "", fmt.Errorf("invalid API_PORT value: %s, must be a valid integer", apiPort)
	}
	return apiPort, nil
}

// GetEnvConfirmAttempts returns the receipt polling budget from environment variables
func GetEnvConfirmAttempts() (int, error) {
	attempts := os.Getenv("CONFIRMATION_ATTEMPTS")
	if attempts == "" {
		return DefaultConfirmAttempts, nil
	}

	attemptsInt, err := strconv.Atoi(attempts)
	if err != nil {
		return 0, fmt.Errorf("invalid CONFIRMATION_ATTEMPTS value: %s, must be an integer", attempts)
	}
	if attemptsInt <= 0 {
		return 0, fmt.Errorf("CONFIRMATION_ATTEMPTS must be greater than 0")
	}
	return attemptsInt, nil
}

// GetEnvConfirmInterval returns the pause between receipt polls from environment variables
func GetEnvConfirmInterval() (time.Duration, error) {
	interval := os.Getenv("CONFIRMATION_INTERVAL")
	if interval == "" {
		return DefaultConfirmInterval * time.Second, nil
	}

	parsed, err := time.ParseDuration(interval)
	if err != nil {
		return 0, fmt.Errorf("invalid CONFIRMATION_INTERVAL value: %s, must be a valid duration string", interval)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("CONFIRMATION_INTERVAL must be greater than 0")
	}
	return parsed, nil
}

// GetEnvSettleDelay returns the post-confirmation settle delay from environment variables
func GetEnvSettleDelay() (time.Duration, error) {
	delay := os.Getenv("SETTLE_DELAY")
	if delay == "" {
		return DefaultSettleDelay * time.Second, nil
	}

	parsed, err := time.ParseDuration(delay)
	if err != nil {
		return 0, fmt.Errorf("invalid SETTLE_DELAY value: %s, must be a valid duration string", delay)
	}
	return parsed, nil
}

// GetEnvGasMultiplier returns the gas price padding factor from environment variables
func GetEnvGasMultiplier() (float64, error) {
	multiplier := os.Getenv("GAS_PRICE_MULTIPLIER")
	if multiplier == "" {
		return DefaultGasMultiplier, nil
	}

	parsed, err := strconv.ParseFloat(multiplier, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid GAS_PRICE_MULTIPLIER value: %s, must be a number", multiplier)
	}
	if parsed < 1 {
		return 0, fmt.Errorf("GAS_PRICE_MULTIPLIER must be at least 1")
	}
	return parsed, nil
}

// GetEnvMaxGasPrice returns the maximum gas price from environment variables
func GetEnvMaxGasPrice() (*big.Int, error) {
	maxGasPrice := os.Getenv("MAX_GAS_PRICE")
	if maxGasPrice == "" {
		maxGasPrice = DefaultMaxGasPrice
	}

	maxGasPriceBig := new(big.Int)
	if _, ok := maxGasPriceBig.SetString(maxGasPrice, 10); !ok {
		return nil, fmt.Errorf("invalid MAX_GAS_PRICE value: %s, must be a valid integer string", maxGasPrice)
	}

	if maxGasPriceBig.Cmp(big.NewInt(0)) < 0 {
		return nil, fmt.Errorf("MAX_GAS_PRICE must be greater than or equal to 0")
	}
	return maxGasPriceBig, nil
}

// GetEnvCircuitBreakerEnabled returns whether the circuit breaker is enabled from environment variables
func GetEnvCircuitBreakerEnabled() (bool, error) {
	enabled := os.Getenv("CIRCUIT_BREAKER_ENABLED")
	if enabled == "" {
		return DefaultCircuitBreakerEnabled, nil
	}

	if enabled == "true" {
		return true, nil
	} else if enabled == "false" {
		return false, nil
	}

	return false, fmt.Errorf("invalid CIRCUIT_BREAKER_ENABLED value: %s, must be 'true' or 'false'", enabled)
}

// GetEnvCircuitBreakerThreshold returns the circuit breaker threshold from environment variables
func GetEnvCircuitBreakerThreshold() (int, error) {
	threshold := os.Getenv("CIRCUIT_BREAKER_THRESHOLD")
	if threshold == "" {
		return DefaultCircuitBreakerThreshold, nil
	}

	thresholdInt, err := strconv.Atoi(threshold)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_THRESHOLD value: %s, must be an integer", threshold)
	}
	if thresholdInt <= 0 {
		return 0, fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must be greater than 0")
	}
	return thresholdInt, nil
}

// GetEnvCircuitBreakerWindow returns the circuit breaker window duration from environment variables
func GetEnvCircuitBreakerWindow() (time.Duration, error) {
	window := os.Getenv("CIRCUIT_BREAKER_WINDOW")
	if window == "" {
		return DefaultCircuitBreakerWindow * time.Second, nil
	}

	parsed, err := time.ParseDuration(window)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_WINDOW value: %s, must be a valid duration string", window)
	}
	return parsed, nil
}

// GetEnvCircuitBreakerReset returns the circuit breaker reset timeout from environment variables
func GetEnvCircuitBreakerReset() (time.Duration, error) {
	reset := os.Getenv("CIRCUIT_BREAKER_RESET")
	if reset == "" {
		return DefaultCircuitBreakerReset * time.Second, nil
	}

	parsed, err := time.ParseDuration(reset)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_RESET value: %s, must be a valid duration string", reset)
	}
	return parsed, nil
}

// GetEnvLogLevel returns the log level from environment variables
func GetEnvLogLevel() (logger.Level, error) {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return logger.InfoLevel, nil
	}

	parsed, err := logger.ParseLevel(level)
	if err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL value: %s", level)
	}
	return parsed, nil
}

// GetEnvLogColoring returns whether log coloring is enabled from environment variables
func GetEnvLogColoring() (bool, error) {
	coloring := os.Getenv("LOG_COLORING")
	if coloring == "" {
		return true, nil
	}

	if coloring == "true" {
		return true, nil
	} else if coloring == "false" {
		return false, nil
	}

	return false, fmt.Errorf("invalid LOG_COLORING value: %s, must be 'true' or 'false'", coloring)
}

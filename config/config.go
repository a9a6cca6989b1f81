// Package config builds a single immutable configuration value from the
// process environment at startup. Nothing else in this module reads
// os.Getenv directly: every component receives a *Config (or a narrower
// view of it) from its constructor.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cast"

	"github.com/ordinals-plus/indexer/internal/model"
)

// ProviderType selects which upstream inscription provider implementation
// the adapter talks to.
type ProviderType string

const (
	ProviderTypeNode ProviderType = "node"
	ProviderTypeAPI  ProviderType = "api"
)

// Config is the fully-resolved, validated set of tunables for one indexer
// process. It is constructed once, by FromEnv; the only later change is the
// start command filling in an empty WorkerID before any component sees it.
type Config struct {
	// Upstream provider
	IndexerURL   string
	ProviderType ProviderType
	OrdiscanAPIKey string
	ProviderTimeout time.Duration
	Network      model.Network

	// Shared KV
	RedisURL string

	// Worker tuning
	WorkerID              string
	PollInterval          time.Duration
	BatchSize             int64
	ConcurrentProcessing  int
	StartInscription      int64
	HighFailureThreshold  float64

	// Cache
	CacheTTL time.Duration
}

const (
	defaultIndexerURL    = "http://localhost:80"
	defaultRedisURL      = "redis://localhost:6379"
	defaultPollInterval  = 5 * time.Second
	defaultBatchSize     = 100
	defaultConcurrency   = 10
	defaultCacheTTL      = 3600 * time.Second
	defaultStart         = 0
	defaultNetwork       = model.NetworkMainnet
	defaultProviderType  = ProviderTypeNode
	defaultHighFailure   = 0.8
	defaultProviderTimeout = 10 * time.Second
)

// FromEnv reads the environment variables documented in spec.md §6 and
// produces a validated Config, or an error describing the first invalid
// setting encountered. Missing WorkerID is left empty; callers that need an
// auto-generated identity fill it in themselves (the start command does).
func FromEnv() (*Config, error) {
	cfg := &Config{
		IndexerURL:           envOr("INDEXER_URL", defaultIndexerURL),
		RedisURL:             envOr("REDIS_URL", defaultRedisURL),
		WorkerID:             os.Getenv("WORKER_ID"),
		ProviderTimeout:      defaultProviderTimeout,
		OrdiscanAPIKey:       os.Getenv("ORDISCAN_API_KEY"),
	}

	var err error
	if cfg.PollInterval, err = envDuration("POLL_INTERVAL", defaultPollInterval, time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = envInt64("BATCH_SIZE", defaultBatchSize); err != nil {
		return nil, err
	}
	if cfg.ConcurrentProcessing, err = envInt("CONCURRENT_PROCESSING", defaultConcurrency); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = envDuration("CACHE_TTL", defaultCacheTTL, time.Second); err != nil {
		return nil, err
	}
	if cfg.StartInscription, err = envInt64("START_INSCRIPTION", defaultStart); err != nil {
		return nil, err
	}
	if cfg.HighFailureThreshold, err = envFloat("HIGH_FAILURE_THRESHOLD", defaultHighFailure); err != nil {
		return nil, err
	}

	networkRaw := envOr("NETWORK", string(defaultNetwork))
	cfg.Network, err = model.ParseNetwork(networkRaw)
	if err != nil {
		return nil, fmt.Errorf("config: NETWORK: %w", err)
	}

	providerRaw := ProviderType(envOr("PROVIDER_TYPE", string(defaultProviderType)))
	switch providerRaw {
	case ProviderTypeNode, ProviderTypeAPI:
		cfg.ProviderType = providerRaw
	default:
		return nil, fmt.Errorf("config: PROVIDER_TYPE: unrecognised value %q", providerRaw)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate re-checks invariants that depend on more than one field, such as
// the api provider requiring an API key. Called by FromEnv; exported so
// tests can build a Config by hand and still validate it.
func (c *Config) Validate() error {
	if c.ProviderType == ProviderTypeAPI && c.OrdiscanAPIKey == "" {
		return fmt.Errorf("config: PROVIDER_TYPE=api requires ORDISCAN_API_KEY")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.ConcurrentProcessing <= 0 {
		return fmt.Errorf("config: CONCURRENT_PROCESSING must be positive, got %d", c.ConcurrentProcessing)
	}
	if c.HighFailureThreshold <= 0 || c.HighFailureThreshold > 1 {
		return fmt.Errorf("config: HIGH_FAILURE_THRESHOLD must be in (0, 1], got %v", c.HighFailureThreshold)
	}
	if c.StartInscription < 0 {
		return fmt.Errorf("config: START_INSCRIPTION must be non-negative, got %d", c.StartInscription)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

// envDuration parses an environment variable expressed in unit-less
// integers (the spec documents POLL_INTERVAL and CACHE_TTL as plain
// numbers) by multiplying by unit, falling back to time.ParseDuration for
// operators who prefer "5s"-style strings.
func envDuration(key string, def time.Duration, unit time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return time.Duration(n) * unit, nil
}

package config

import (
	"errors"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type RelayConfig struct {
	// APIUrl is the base URL of the fee relay service.
	APIUrl string
	APIKey string

	// Network selects the relay program: "mainnet" or "devnet".
	Network string

	Timeout    time.Duration
	MaxRetries int

	// RateLimit is the number of relay API requests per second, RateBurst the bucket size.
	RateLimit int
	RateBurst int

	// ContextCacheSize bounds how many wallets keep a cached relay context.
	ContextCacheSize int
}

func (c *RelayConfig) Key() string {
	return RELAY_CONFIG_KEY
}

func (c *RelayConfig) Load() error {
	c.APIUrl = common.GetEnvOrDefault("RELAY_API_URL", "http://localhost:9000")
	c.APIKey = common.GetEnvOrDefault("RELAY_API_KEY", "")
	c.Network = common.GetEnvOrDefault("RELAY_NETWORK", "mainnet")
	c.Timeout = time.Duration(common.GetEnvOrDefaultInt("RELAY_TIMEOUT", 10)) * time.Second
	c.MaxRetries = common.GetEnvOrDefaultInt("RELAY_MAX_RETRIES", 2)
	c.RateLimit = common.GetEnvOrDefaultInt("RELAY_RATE_LIMIT", 20)
	c.RateBurst = common.GetEnvOrDefaultInt("RELAY_RATE_BURST", 5)
	c.ContextCacheSize = common.GetEnvOrDefaultInt("RELAY_CONTEXT_CACHE_SIZE", 1024)
	return c.Validate()
}

func (c *RelayConfig) Validate() error {
	if c.APIUrl == "" {
		return errors.New("invalid relay config: missing api url")
	}
	if c.Network != "mainnet" && c.Network != "devnet" {
		return errors.New("invalid relay config: network must be mainnet or devnet")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 || c.ContextCacheSize <= 0 || c.MaxRetries < 0 {
		return errors.New("invalid relay config: limits must be positive")
	}
	return nil
}

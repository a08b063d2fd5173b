package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"
)

const (
	DefaultsBackendBolt  = "bolt"
	DefaultsBackendRedis = "redis"
)

type PlannerConfig struct {
	// DefaultSlippageBps applies when neither the request nor the wallet defaults set slippage.
	// Default: 50
	DefaultSlippageBps int

	// DBPath is the path to the BoltDB file for pool snapshots and wallet defaults.
	// Default: "./data/relay-swap.db"
	DBPath string

	// PersistenceEnabled controls whether pool snapshots are persisted to disk.
	// Default: true
	PersistenceEnabled bool

	// DefaultsBackend stores wallet defaults in "bolt" or "redis".
	DefaultsBackend string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
}

func (c *PlannerConfig) Key() string {
	return PLANNER_CONFIG_KEY
}

func (c *PlannerConfig) Load() error {
	c.DefaultSlippageBps = common.GetEnvOrDefaultInt("PLANNER_DEFAULT_SLIPPAGE_BPS", 50)
	c.DBPath = common.GetEnvOrDefault("PLANNER_DB_PATH", "./data/relay-swap.db")
	c.PersistenceEnabled = common.GetEnvOrDefault("PLANNER_PERSISTENCE_ENABLED", "true") == "true"
	c.DefaultsBackend = common.GetEnvOrDefault("PLANNER_DEFAULTS_BACKEND", DefaultsBackendBolt)
	c.RedisAddr = common.GetEnvOrDefault("PLANNER_REDIS_ADDR", "localhost:6379")
	c.RedisPassword = common.GetEnvOrDefault("PLANNER_REDIS_PASSWORD", "")
	c.RedisDB = common.GetEnvOrDefaultInt("PLANNER_REDIS_DB", 0)
	return c.Validate()
}

func (c *PlannerConfig) Validate() error {
	if c.DefaultSlippageBps < 0 || c.DefaultSlippageBps >= 10000 {
		return errors.New("invalid planner config: default slippage must be in [0, 10000)")
	}
	if c.DefaultsBackend != DefaultsBackendBolt && c.DefaultsBackend != DefaultsBackendRedis {
		return errors.New("invalid planner config: defaults backend must be bolt or redis")
	}
	if c.DefaultsBackend == DefaultsBackendRedis && c.RedisAddr == "" {
		return errors.New("invalid planner config: missing redis address")
	}
	return nil
}

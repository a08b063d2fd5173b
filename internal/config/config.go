package config

import (
	"errors"
	"slices"
	"strconv"

	"github.com/andrew-solarstorm/go-packages/common"
)

type ServerEnv = string

var (
	DevEnv     ServerEnv = "dev"
	StagingEnv ServerEnv = "staging"
	ProdEnv    ServerEnv = "prod"
)

const (
	GENERAL_CONFIG_KEY = "general-config"
	RPC_CONFIG_KEY     = "rpc-config"
	RELAY_CONFIG_KEY   = "relay-config"
	PLANNER_CONFIG_KEY = "planner-config"
)

type GeneralConfig struct {
	HTTPPort string
	HTTPHost string
	Env      string
	LogLevel string
	// AdminToken guards the admin routes when set.
	AdminToken string
}

func (gc *GeneralConfig) Key() string {
	return GENERAL_CONFIG_KEY
}

func (gc *GeneralConfig) Load() error {
	gc.HTTPPort = common.GetEnvOrDefault("HTTP_PORT", "8080")
	gc.HTTPHost = common.GetEnvOrDefault("HTTP_HOST", "localhost")
	gc.Env = common.GetEnvOrDefault("ENV", "dev")
	gc.LogLevel = common.GetEnvOrDefault("LOG_LEVEL", "info")
	gc.AdminToken = common.GetEnvOrDefault("ADMIN_TOKEN", "")
	return gc.Validate()
}

func (gc *GeneralConfig) Validate() error {
	if gc.HTTPPort == "" || gc.HTTPHost == "" {
		return errors.New("invalid server config")
	}
	if _, err := strconv.Atoi(gc.HTTPPort); err != nil {
		return errors.New("invalid server config: HTTP_PORT must be a number")
	}
	if !slices.Contains([]ServerEnv{DevEnv, StagingEnv, ProdEnv}, gc.Env) {
		return errors.New("invalid server config: ENV must be dev, staging or prod")
	}
	if gc.Env == ProdEnv && gc.AdminToken == "" {
		return errors.New("invalid server config: ADMIN_TOKEN is required in prod")
	}
	return nil
}

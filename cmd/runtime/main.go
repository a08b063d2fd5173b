package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/relay-swap/internal/adapters/blockchain"
	"github.com/hxuan190/relay-swap/internal/config"
	"github.com/hxuan190/relay-swap/internal/http"
	"github.com/hxuan190/relay-swap/internal/services"
	"github.com/hxuan190/relay-swap/internal/services/market"
	"github.com/hxuan190/relay-swap/internal/services/planner"
	"github.com/hxuan190/relay-swap/internal/services/relay"
)

// @title Relay Swap API
// @version 1.0-beta
// @description Fee-relayed swap planning for Solana constant-product pools.
// @description
// @description ## - Features
// @description - **Routing**: direct or two-hop routes, exact input and exact output
// @description - **Account analysis**: destination, transit and relay accounts the swap must create
// @description - **Fee relayer**: sponsor quota, rent minimums and fee payer cached per wallet and validated before submission
// @description - **Slippage protection**: minimum output and maximum input thresholds
// @description
// @description ## - Usage Tips
// @description - Use smallest token units (lamports for SOL, base units for SPL tokens)
// @description - Call /api/v1/relay/validate before submitting; on a stale result call /api/v1/relay/update and plan again
// @description - Default slippage is 50 bps (0.5%) unless the wallet stored its own
// @BasePath /
// @schemes https http
// @tag.name plan
// @tag.description Plan fee-relayed swaps
// @tag.name relay
// @tag.description Fee relayer context per wallet
// @tag.name defaults
// @tag.description Per-wallet swap defaults
// @tag.name pools
// @tag.description Pool snapshot

func main() {
	// load env
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Error().Err(err).Msg("failed to load env")
		return
	}

	general := &config.GeneralConfig{}

	// di container config
	conf := container.NewConf(
		general,
		&config.RPCConfig{},
		&config.RelayConfig{},
		&config.PlannerConfig{},
	)

	// di container
	dic, err := container.New(
		// config
		conf,

		// adapters
		&blockchain.ChainService{},

		// services
		&market.PoolStore{},
		&relay.Service{},
		&planner.Service{},

		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}
	services.SetLevel(general.LogLevel)

	// Run() waits for SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	// Run() doesn't call Stop(), we must do it manually
	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}

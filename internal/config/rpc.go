package config

import (
	"errors"
	"slices"

	"github.com/andrew-solarstorm/go-packages/common"
)

type RPCConfig struct {
	RPCUrl string
	// Commitment used for account and rent reads: processed, confirmed or finalized
	Commitment string
}

func (r *RPCConfig) Key() string {
	return RPC_CONFIG_KEY
}

func (r *RPCConfig) Load() error {
	r.RPCUrl = common.GetEnvOrDefault("RPC_URL", "https://api.mainnet-beta.solana.com")
	r.Commitment = common.GetEnvOrDefault("RPC_COMMITMENT", "confirmed")
	return r.Validate()
}

func (r *RPCConfig) Validate() error {
	if r.RPCUrl == "" {
		return errors.New("invalid rpc config")
	}
	if !slices.Contains([]string{"processed", "confirmed", "finalized"}, r.Commitment) {
		return errors.New("invalid rpc commitment")
	}
	return nil
}

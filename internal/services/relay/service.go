package relay

import (
	"github.com/gagliardetto/solana-go"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/relay-swap/internal/adapters/blockchain"
	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/config"
	"github.com/hxuan190/relay-swap/internal/services"
	"github.com/hxuan190/relay-swap/internal/services/builder"
)

const ServiceName = "relay-context-svc"

// Service exposes per-wallet ContextManagers backed by the relay API and the chain.
type Service struct {
	container.BaseDIInstance

	logger   *services.ServiceLogger
	pdas     *builder.PDADeriver
	registry *Registry
}

func (s *Service) ID() string {
	return ServiceName
}

func (s *Service) Configure(c container.IContainer) error {
	s.logger = services.NewServiceLogger(s)

	cfg := c.GetConfig(config.RELAY_CONFIG_KEY).(*config.RelayConfig)
	chain := c.Instance(blockchain.CHAIN_SERVICE).(*blockchain.ChainService)

	client := NewHTTPClient(cfg.APIUrl,
		WithAPIKey(cfg.APIKey),
		WithTimeout(cfg.Timeout),
		WithMaxRetries(cfg.MaxRetries),
		WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	)
	s.pdas = builder.NewPDADeriver(common.RelayProgramID(cfg.Network))
	s.registry = NewRegistry(NewLoader(client, chain, chain, s.pdas), cfg.ContextCacheSize)

	s.logger.Info().
		Str("network", cfg.Network).
		Str("program", s.pdas.ProgramID().String()).
		Int("cacheSize", cfg.ContextCacheSize).
		Msg("[RelayService] configured")
	return nil
}

func (s *Service) Manager(owner solana.PublicKey) *ContextManager {
	return s.registry.Manager(owner)
}

func (s *Service) PDAs() *builder.PDADeriver {
	return s.pdas
}

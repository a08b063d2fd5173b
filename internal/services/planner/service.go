package planner

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/relay-swap/internal/adapters/blockchain"
	"github.com/hxuan190/relay-swap/internal/adapters/cache"
	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/config"
	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/services"
	"github.com/hxuan190/relay-swap/internal/services/builder"
	"github.com/hxuan190/relay-swap/internal/services/market"
	"github.com/hxuan190/relay-swap/internal/services/relay"
)

const ServiceName = "planner-svc"

const maxSessions = 4096

// DefaultsStore keeps per-wallet swap defaults.
type DefaultsStore interface {
	GetDefaults(ctx context.Context, wallet solana.PublicKey) (domain.SwapDefaults, bool, error)
	SetDefaults(ctx context.Context, wallet solana.PublicKey, d domain.SwapDefaults) error
}

// Service wires the planner to the pool store, the chain and the relay contexts.
type Service struct {
	container.BaseDIInstance

	logger   *services.ServiceLogger
	planner  *Planner
	relay    *relay.Service
	defaults DefaultsStore
	redis    *cache.DefaultsStore
	sessions *common.BoundedLRU[solana.PublicKey, *Session]

	defaultSlippageBps uint16
}

func (s *Service) ID() string {
	return ServiceName
}

func (s *Service) Configure(c container.IContainer) error {
	s.logger = services.NewServiceLogger(s)

	cfg := c.GetConfig(config.PLANNER_CONFIG_KEY).(*config.PlannerConfig)
	store := c.Instance(market.ServiceName).(*market.PoolStore)
	chain := c.Instance(blockchain.CHAIN_SERVICE).(*blockchain.ChainService)
	s.relay = c.Instance(relay.ServiceName).(*relay.Service)

	analyzer := builder.NewAccountAnalyzer(chain, s.relay.PDAs())
	s.planner = NewPlanner(store, analyzer, func(owner solana.PublicKey) ContextProvider {
		return s.relay.Manager(owner)
	})
	s.sessions = newSessionCache(maxSessions)
	s.defaultSlippageBps = uint16(cfg.DefaultSlippageBps)

	switch cfg.DefaultsBackend {
	case config.DefaultsBackendRedis:
		s.redis = cache.New(cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		s.defaults = s.redis
	default:
		if store.Storage() == nil {
			return fmt.Errorf("bolt defaults backend needs storage")
		}
		s.defaults = store.Storage()
	}

	s.logger.Info().
		Str("defaultsBackend", cfg.DefaultsBackend).
		Uint16("defaultSlippageBps", s.defaultSlippageBps).
		Msg("[PlannerService] configured")
	return nil
}

func (s *Service) Start() error {
	if s.redis != nil {
		if err := s.redis.Ping(context.Background()); err != nil {
			s.logger.Warn().Err(err).Msg("[PlannerService] redis defaults store unreachable")
		}
	}
	return nil
}

func (s *Service) Stop() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

func (s *Service) Planner() *Planner {
	return s.planner
}

func (s *Service) Defaults() DefaultsStore {
	return s.defaults
}

func (s *Service) DefaultSlippageBps() uint16 {
	return s.defaultSlippageBps
}

// Relay exposes the wallet context managers.
func (s *Service) Relay() *relay.Service {
	return s.relay
}

// newSessionCache bounds the wallet sessions. Evicting a session supersedes its plan in flight,
// so a wallet that comes back with a new session never gets an older plan's result.
func newSessionCache(size int) *common.BoundedLRU[solana.PublicKey, *Session] {
	return common.NewBoundedLRU(size, func(_ solana.PublicKey, s *Session) {
		s.Cancel()
	})
}

// Session returns the wallet's plan session. A new plan for the wallet supersedes the one in flight.
func (s *Service) Session(owner solana.PublicKey) *Session {
	return s.sessions.GetOrCreate(owner, func() *Session {
		return NewSession(s.planner)
	})
}

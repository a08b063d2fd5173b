package market

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/relay-swap/internal/adapters/persistence"
	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/config"
	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/metrics"
	"github.com/hxuan190/relay-swap/internal/services"
)

const ServiceName = "pool-store-svc"

// PoolStore holds the latest pool snapshot supplied by the caller.
// Readers get an immutable slice; Replace swaps the whole snapshot.
type PoolStore struct {
	container.BaseDIInstance

	logger  *services.ServiceLogger
	storage *persistence.Storage
	persist bool

	// writeMu orders Replace calls so the persisted snapshot matches the served one
	writeMu  sync.Mutex
	snapshot atomic.Pointer[[]domain.Pool]
}

// NewPoolStore builds a store without the container. storage may be nil.
func NewPoolStore(storage *persistence.Storage) *PoolStore {
	s := &PoolStore{storage: storage, persist: storage != nil}
	s.logger = services.NewServiceLogger(s)
	return s
}

func (s *PoolStore) ID() string {
	return ServiceName
}

func (s *PoolStore) Configure(c container.IContainer) error {
	s.logger = services.NewServiceLogger(s)
	cfg := c.GetConfig(config.PLANNER_CONFIG_KEY).(*config.PlannerConfig)

	if !cfg.PersistenceEnabled && cfg.DefaultsBackend != config.DefaultsBackendBolt {
		return nil
	}
	storage, err := persistence.NewStorage(cfg.DBPath)
	if err != nil {
		return err
	}
	s.storage = storage
	s.persist = cfg.PersistenceEnabled
	return nil
}

func (s *PoolStore) Start() error {
	if !s.persist || s.storage == nil {
		s.logger.Info().Msg("[PoolStore] persistence disabled, waiting for first snapshot")
		return nil
	}
	pools, err := s.storage.LoadPoolSnapshot()
	if err != nil {
		s.logger.Error().Err(err).Msg("[PoolStore] failed to load persisted snapshot")
		return nil
	}
	if pools == nil {
		s.logger.Info().Msg("[PoolStore] no persisted snapshot found")
		return nil
	}
	s.store(pools)
	s.logger.Info().Int("pools", len(pools)).Msg("[PoolStore] restored persisted snapshot")
	return nil
}

func (s *PoolStore) Stop() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}

// Storage returns the bolt storage, nil when neither snapshots nor defaults use it.
func (s *PoolStore) Storage() *persistence.Storage {
	return s.storage
}

// ListPools returns the current snapshot. Before the first snapshot it fails with common.ErrNotReady.
func (s *PoolStore) ListPools(_ context.Context) ([]domain.Pool, error) {
	p := s.snapshot.Load()
	if p == nil {
		return nil, common.ErrNotReady
	}
	return *p, nil
}

// Replace validates and installs a new snapshot, then persists it when enabled.
// An invalid pool rejects the whole snapshot.
func (s *PoolStore) Replace(pools []domain.Pool) error {
	for i := range pools {
		if err := ValidatePool(&pools[i]); err != nil {
			return fmt.Errorf("pool %d (%s): %w", i, pools[i].Address, err)
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snapshot := make([]domain.Pool, len(pools))
	copy(snapshot, pools)
	s.store(snapshot)
	s.logger.Info().Int("pools", len(snapshot)).Msg("[PoolStore] snapshot replaced")

	if s.persist && s.storage != nil {
		if err := s.storage.SavePoolSnapshot(snapshot); err != nil {
			s.logger.Error().Err(err).Msg("[PoolStore] failed to persist snapshot")
		}
	}
	return nil
}

func (s *PoolStore) store(pools []domain.Pool) {
	s.snapshot.Store(&pools)
	metrics.PoolCount.Set(float64(len(pools)))
	metrics.PoolSnapshotReplacements.Inc()
}

// ValidatePool checks the invariants a pool snapshot must hold.
func ValidatePool(p *domain.Pool) error {
	switch {
	case p.Address.IsZero():
		return fmt.Errorf("%w: missing address", common.ErrInvalidToken)
	case p.TokenMintA.IsZero() || p.TokenMintB.IsZero():
		return fmt.Errorf("%w: missing mint", common.ErrInvalidToken)
	case p.TokenMintA.Equals(p.TokenMintB):
		return fmt.Errorf("%w: both sides hold the same mint", common.ErrInvalidToken)
	case !p.HasValidFee():
		return fmt.Errorf("%w: fee must lie in [0, 1)", common.ErrInvalidAmount)
	}
	return nil
}

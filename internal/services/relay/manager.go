package relay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/singleflight"

	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/metrics"
	"github.com/hxuan190/relay-swap/internal/services"
)

const (
	flightLoad   = "load"
	flightUpdate = "update"
)

// ContextManager owns the relay context of one wallet.
// Readers get the current snapshot without locking and a reload swaps the pointer,
// so a reader sees either the old context or the new one.
type ContextManager struct {
	owner  solana.PublicKey
	loader ContextLoader
	logger *services.ServiceLogger

	// writeMu orders Update's store and Validate's compare so the stale flag always
	// describes the context it was computed against. It is never held across a load.
	writeMu sync.Mutex
	current atomic.Pointer[domain.RelayContext]
	// stale is set when Validate found the cached context out of date and cleared by Update.
	stale  atomic.Bool
	flight singleflight.Group
}

func NewContextManager(owner solana.PublicKey, loader ContextLoader) *ContextManager {
	return &ContextManager{
		owner:  owner,
		loader: loader,
		logger: services.NewComponentLogger("ContextManager"),
	}
}

func (m *ContextManager) Owner() solana.PublicKey {
	return m.owner
}

// Cached returns the current snapshot without loading, nil before the first load.
func (m *ContextManager) Cached() *domain.RelayContext {
	return m.current.Load()
}

// GetCurrentContext returns the cached context, loading it on first use.
// Concurrent first calls share one load.
func (m *ContextManager) GetCurrentContext(ctx context.Context) (*domain.RelayContext, error) {
	if c := m.current.Load(); c != nil {
		return c, nil
	}
	fresh, err := m.load(ctx, flightLoad)
	if err != nil {
		return nil, err
	}
	// another caller may have stored an Update result while this load was in flight
	if m.current.CompareAndSwap(nil, fresh) {
		return fresh, nil
	}
	return m.current.Load(), nil
}

// Update forces a reload and replaces the cached context.
// On failure the previous context stays in place and the error is returned.
func (m *ContextManager) Update(ctx context.Context) error {
	fresh, err := m.load(ctx, flightUpdate)
	if err != nil {
		m.logger.Warn().Err(err).Str("owner", m.owner.String()).Msg("[ContextManager] update failed")
		return err
	}
	m.writeMu.Lock()
	m.current.Store(fresh)
	m.stale.Store(false)
	m.writeMu.Unlock()
	m.logger.Debug().Str("owner", m.owner.String()).Msg("[ContextManager] context updated")
	return nil
}

// Validate loads a fresh context and reports whether it equals the cached one.
// A mismatch marks the manager stale and leaves the cache untouched. Only Update clears
// the stale flag: a later Validate that matches again still reports true but does not
// make Guard pass, because plans priced in between may have used the outdated context.
// With nothing cached the fresh context is stored and Validate reports true.
func (m *ContextManager) Validate(ctx context.Context) (bool, error) {
	fresh, err := m.load(ctx, flightUpdate)
	if err != nil {
		metrics.RelayContextValidations.WithLabelValues("error").Inc()
		return false, err
	}

	m.writeMu.Lock()
	if m.current.CompareAndSwap(nil, fresh) {
		m.writeMu.Unlock()
		metrics.RelayContextValidations.WithLabelValues("valid").Inc()
		return true, nil
	}
	valid := m.current.Load().Equal(fresh)
	if !valid {
		m.stale.Store(true)
	}
	m.writeMu.Unlock()

	if !valid {
		metrics.RelayContextValidations.WithLabelValues("stale").Inc()
		m.logger.Info().Str("owner", m.owner.String()).Msg("[ContextManager] cached context is stale")
		return false, nil
	}
	metrics.RelayContextValidations.WithLabelValues("valid").Inc()
	return true, nil
}

// IsStale reports whether the last Validate found the cache out of date.
func (m *ContextManager) IsStale() bool {
	return m.stale.Load()
}

// Guard is called before submitting a transaction priced with used.
// It fails with common.ErrStaleContext when the cache is known to be stale
// or used is no longer the cached context.
func (m *ContextManager) Guard(used *domain.RelayContext) error {
	if m.stale.Load() {
		return fmt.Errorf("%w: validate reported a change, update before submitting", common.ErrStaleContext)
	}
	if used == nil || !used.Equal(m.current.Load()) {
		return fmt.Errorf("%w: plan was priced with an older context", common.ErrStaleContext)
	}
	return nil
}

// load runs one loader call per key at a time. The shared call is detached from
// the caller's cancellation so one abandoned caller does not fail the others.
func (m *ContextManager) load(ctx context.Context, key string) (*domain.RelayContext, error) {
	ch := m.flight.DoChan(key, func() (any, error) {
		return m.loader.Load(context.WithoutCancel(ctx), m.owner)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.RelayContext), nil
	}
}

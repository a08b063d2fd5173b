package relay

import (
	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/services"
)

// Registry keeps one ContextManager per wallet, evicting the least recently used.
type Registry struct {
	loader   ContextLoader
	managers *common.BoundedLRU[solana.PublicKey, *ContextManager]
}

func NewRegistry(loader ContextLoader, maxWallets int) *Registry {
	logger := services.NewComponentLogger("RelayRegistry")
	return &Registry{
		loader: loader,
		managers: common.NewBoundedLRU(maxWallets, func(owner solana.PublicKey, _ *ContextManager) {
			logger.Debug().Str("owner", owner.String()).Msg("[RelayRegistry] evicted context manager")
		}),
	}
}

// Manager returns the wallet's ContextManager, creating it on first use.
func (r *Registry) Manager(owner solana.PublicKey) *ContextManager {
	return r.managers.GetOrCreate(owner, func() *ContextManager {
		return NewContextManager(owner, r.loader)
	})
}

// Lookup returns the wallet's ContextManager without creating one.
func (r *Registry) Lookup(owner solana.PublicKey) (*ContextManager, bool) {
	return r.managers.Get(owner)
}

func (r *Registry) Forget(owner solana.PublicKey) {
	r.managers.Remove(owner)
}

func (r *Registry) Len() int {
	return r.managers.Len()
}

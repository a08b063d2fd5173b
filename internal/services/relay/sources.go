package relay

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/relay-swap/internal/domain"
)

// APIClient is the fee relay service.
type APIClient interface {
	GetFeePayerAddress(ctx context.Context) (solana.PublicKey, error)
	GetUsageStatus(ctx context.Context, owner solana.PublicKey) (domain.UsageStatus, error)
}

// ChainRentSource reads rent and fee parameters from the chain.
type ChainRentSource interface {
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
	GetFeePerSignature(ctx context.Context) (uint64, error)
}

// ContextLoader produces a fresh relay context for one wallet.
type ContextLoader interface {
	Load(ctx context.Context, owner solana.PublicKey) (*domain.RelayContext, error)
}

package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/metrics"
)

// AccountInfoSource looks up on-chain accounts. A missing account is (nil, nil).
// common.ErrNotReady means the source has no answer yet.
type AccountInfoSource interface {
	GetAccountInfo(ctx context.Context, address solana.PublicKey) (*domain.AccountInfo, error)
}

// DestinationRequest selects where the output of a swap lands.
type DestinationRequest struct {
	// Destination is an existing token account supplied by the caller, optional.
	Destination *solana.PublicKey
	Mint        solana.PublicKey
	Owner       solana.PublicKey
}

// AccountAnalyzer decides which token accounts of a swap exist and which must be created.
type AccountAnalyzer struct {
	accounts AccountInfoSource
	pdas     *PDADeriver
}

func NewAccountAnalyzer(accounts AccountInfoSource, pdas *PDADeriver) *AccountAnalyzer {
	return &AccountAnalyzer{accounts: accounts, pdas: pdas}
}

// AnalyzeDestination resolves the destination account for req.
func (a *AccountAnalyzer) AnalyzeDestination(ctx context.Context, req DestinationRequest) (*domain.DestinationAnalysis, error) {
	if req.Owner.IsZero() {
		return nil, fmt.Errorf("%w: missing owner", common.ErrAccountAnalysisFailed)
	}

	// native output is unwrapped into the main account through a temporary wrapped account
	if req.Mint.Equals(common.NativeMint) {
		return &domain.DestinationAnalysis{
			Destination:           req.Owner,
			DestinationOwner:      req.Owner,
			NeedCreateDestination: true,
			IsNativeWrap:          true,
		}, nil
	}

	if req.Destination != nil && !req.Destination.IsZero() {
		return &domain.DestinationAnalysis{
			Destination:      *req.Destination,
			DestinationOwner: req.Owner,
		}, nil
	}

	ata, _, err := GetATAAddress(req.Owner, req.Mint)
	if err != nil {
		return nil, fmt.Errorf("%w: derive destination: %v", common.ErrAccountAnalysisFailed, err)
	}

	info, err := a.lookup(ctx, domain.AccountDestination, ata)
	if err != nil {
		return nil, err
	}

	return &domain.DestinationAnalysis{
		Destination:           ata,
		DestinationOwner:      req.Owner,
		NeedCreateDestination: info == nil || !isTokenProgram(info.Owner),
	}, nil
}

// AnalyzeTransit returns the transit account of a two-hop path, nil for a direct path.
func (a *AccountAnalyzer) AnalyzeTransit(pp domain.PoolsPair, owner solana.PublicKey) (*domain.TokenAccount, error) {
	transitMint, ok := pp.Transit()
	if !ok {
		return nil, nil
	}
	address, _, err := a.pdas.TransitAccount(owner, transitMint)
	if err != nil {
		return nil, fmt.Errorf("%w: derive transit: %v", common.ErrAccountAnalysisFailed, err)
	}
	return &domain.TokenAccount{Address: address, Mint: transitMint}, nil
}

// NeedsCreateTransit is true when the transit account is missing or holds another mint.
func (a *AccountAnalyzer) NeedsCreateTransit(ctx context.Context, transit *domain.TokenAccount) (bool, error) {
	if transit == nil {
		return false, nil
	}
	info, err := a.lookup(ctx, domain.AccountTransit, transit.Address)
	if err != nil {
		return false, err
	}
	if info == nil {
		return true, nil
	}
	return !info.Mint.Equals(transit.Mint), nil
}

func (a *AccountAnalyzer) lookup(ctx context.Context, kind domain.AccountKind, address solana.PublicKey) (*domain.AccountInfo, error) {
	info, err := a.accounts.GetAccountInfo(ctx, address)
	switch {
	case err == nil && info == nil:
		metrics.AccountLookups.WithLabelValues(kind.String(), "missing").Inc()
		return nil, nil
	case err == nil:
		metrics.AccountLookups.WithLabelValues(kind.String(), "found").Inc()
		return info, nil
	case errors.Is(err, common.ErrNotReady), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		metrics.AccountLookups.WithLabelValues(kind.String(), "not_ready").Inc()
		return nil, err
	default:
		metrics.AccountLookups.WithLabelValues(kind.String(), "error").Inc()
		return nil, fmt.Errorf("%w: %s account %s: %v", common.ErrAccountAnalysisFailed, kind, address, err)
	}
}

func isTokenProgram(owner solana.PublicKey) bool {
	return owner.Equals(common.TokenProgramID) || owner.Equals(common.Token2022ID)
}

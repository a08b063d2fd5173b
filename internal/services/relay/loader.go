package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/metrics"
	"github.com/hxuan190/relay-swap/internal/services/builder"
)

// Loader reads every relay context field in parallel and assembles the snapshot
// only when all of them succeeded.
type Loader struct {
	api      APIClient
	rent     ChainRentSource
	accounts builder.AccountInfoSource
	pdas     *builder.PDADeriver
}

func NewLoader(api APIClient, rent ChainRentSource, accounts builder.AccountInfoSource, pdas *builder.PDADeriver) *Loader {
	return &Loader{api: api, rent: rent, accounts: accounts, pdas: pdas}
}

// Load fails with common.ErrRelayUnauthorized when any read fails, wrapping the read's own error
// so a lagging node (common.ErrNotReady) stays distinguishable. A partial context is never returned.
func (l *Loader) Load(ctx context.Context, owner solana.PublicKey) (*domain.RelayContext, error) {
	start := time.Now()
	defer func() {
		metrics.RelayContextLoadDuration.Observe(time.Since(start).Seconds())
	}()

	relayAddress, _, err := l.pdas.RelayAccount(owner)
	if err != nil {
		metrics.RelayContextLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: derive relay account: %v", common.ErrRelayUnauthorized, err)
	}

	var (
		tokenRent, relayRent, feePerSignature uint64
		feePayer                              solana.PublicKey
		relayInfo                             *domain.AccountInfo
		usage                                 domain.UsageStatus
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := l.rent.GetMinimumBalanceForRentExemption(gctx, common.TokenAccountSize)
		if err != nil {
			return fmt.Errorf("token account rent: %w", err)
		}
		tokenRent = v
		return nil
	})
	g.Go(func() error {
		v, err := l.rent.GetMinimumBalanceForRentExemption(gctx, common.RelayAccountSize)
		if err != nil {
			return fmt.Errorf("relay account rent: %w", err)
		}
		relayRent = v
		return nil
	})
	g.Go(func() error {
		v, err := l.rent.GetFeePerSignature(gctx)
		if err != nil {
			return fmt.Errorf("fee per signature: %w", err)
		}
		feePerSignature = v
		return nil
	})
	g.Go(func() error {
		v, err := l.api.GetFeePayerAddress(gctx)
		if err != nil {
			return fmt.Errorf("fee payer: %w", err)
		}
		if v.IsZero() {
			return fmt.Errorf("fee payer: empty address")
		}
		feePayer = v
		return nil
	})
	g.Go(func() error {
		v, err := l.accounts.GetAccountInfo(gctx, relayAddress)
		if err != nil {
			return fmt.Errorf("relay account: %w", err)
		}
		relayInfo = v
		return nil
	})
	g.Go(func() error {
		v, err := l.api.GetUsageStatus(gctx, owner)
		if err != nil {
			return fmt.Errorf("usage status: %w", err)
		}
		usage = v
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.RelayContextLoads.WithLabelValues("canceled").Inc()
			return nil, ctxErr
		}
		metrics.RelayContextLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", common.ErrRelayUnauthorized, err)
	}

	status := domain.RelayAccountStatus{Address: relayAddress, State: domain.RelayAccountNotYetCreated}
	if relayInfo != nil {
		status.State = domain.RelayAccountCreated
		status.Balance = relayInfo.Lamports
	}

	metrics.RelayContextLoads.WithLabelValues("ok").Inc()
	return &domain.RelayContext{
		Owner:                      owner,
		MinimumTokenAccountBalance: tokenRent,
		MinimumRelayAccountBalance: relayRent,
		LamportsPerSignature:       feePerSignature,
		FeePayerAddress:            feePayer,
		RelayAccountStatus:         status,
		UsageStatus:                usage,
	}, nil
}

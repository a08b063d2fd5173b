package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/metrics"
	"github.com/hxuan190/relay-swap/internal/services"
	"github.com/hxuan190/relay-swap/internal/services/builder"
	"github.com/hxuan190/relay-swap/internal/services/router"
)

// PoolDataSource supplies the pool snapshot to plan against.
type PoolDataSource interface {
	ListPools(ctx context.Context) ([]domain.Pool, error)
}

// AccountAnalyzer resolves destination and transit accounts.
type AccountAnalyzer interface {
	AnalyzeDestination(ctx context.Context, req builder.DestinationRequest) (*domain.DestinationAnalysis, error)
	AnalyzeTransit(pp domain.PoolsPair, owner solana.PublicKey) (*domain.TokenAccount, error)
	NeedsCreateTransit(ctx context.Context, transit *domain.TokenAccount) (bool, error)
}

// ContextProvider is one wallet's relay context.
type ContextProvider interface {
	GetCurrentContext(ctx context.Context) (*domain.RelayContext, error)
	Guard(used *domain.RelayContext) error
}

// ContextResolver returns the relay context provider of a wallet.
type ContextResolver func(owner solana.PublicKey) ContextProvider

// Planner turns a trade request into a fee-aware SwapPlan.
type Planner struct {
	pools    PoolDataSource
	analyzer AccountAnalyzer
	contexts ContextResolver
	graphs   *router.GraphCache
	logger   *services.ServiceLogger
}

func NewPlanner(pools PoolDataSource, analyzer AccountAnalyzer, contexts ContextResolver) *Planner {
	return &Planner{
		pools:    pools,
		analyzer: analyzer,
		contexts: contexts,
		graphs:   router.NewGraphCache(),
		logger:   services.NewComponentLogger("Planner"),
	}
}

// TradeRequest is a plan request expressed in trade tokens.
type TradeRequest struct {
	Owner       solana.PublicKey
	From        domain.TradeToken
	To          domain.TradeToken
	Amount      uint64
	Mode        domain.SwapMode
	SlippageBps uint16
	Destination *solana.PublicKey
}

// PlanTrade resolves both trade tokens to mints and plans the swap.
// Fiat tokens cannot be swapped on-chain and fail with common.ErrInvalidToken.
func (p *Planner) PlanTrade(ctx context.Context, req TradeRequest) (*domain.SwapPlan, error) {
	source, err := mintOf(req.From)
	if err != nil {
		return nil, err
	}
	destination, err := mintOf(req.To)
	if err != nil {
		return nil, err
	}
	return p.Plan(ctx, domain.PlanRequest{
		Owner:           req.Owner,
		SourceMint:      source,
		DestinationMint: destination,
		Amount:          req.Amount,
		Mode:            req.Mode,
		SlippageBps:     req.SlippageBps,
		Destination:     req.Destination,
	})
}

func mintOf(t domain.TradeToken) (solana.PublicKey, error) {
	switch tok := t.(type) {
	case domain.CryptoToken:
		return tok.Token.Mint, nil
	case *domain.CryptoToken:
		if tok == nil {
			return solana.PublicKey{}, fmt.Errorf("%w: missing token", common.ErrInvalidToken)
		}
		return tok.Token.Mint, nil
	case domain.FiatToken:
		return solana.PublicKey{}, fmt.Errorf("%w: fiat %s", common.ErrInvalidToken, tok.Currency)
	case *domain.FiatToken:
		return solana.PublicKey{}, fmt.Errorf("%w: fiat", common.ErrInvalidToken)
	default:
		return solana.PublicKey{}, fmt.Errorf("%w: missing token", common.ErrInvalidToken)
	}
}

// Plan picks the best route, resolves the accounts to create and prices the plan
// with the wallet's relay context. Account and relay reads run concurrently.
func (p *Planner) Plan(ctx context.Context, req domain.PlanRequest) (plan *domain.SwapPlan, err error) {
	start := time.Now()
	defer func() {
		metrics.PlanDuration.WithLabelValues(req.Mode.String()).Observe(time.Since(start).Seconds())
		metrics.PlanRequests.WithLabelValues(req.Mode.String(), planStatus(err)).Inc()
	}()

	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	pools, err := p.pools.ListPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}

	quote, candidates := router.NewRouter(p.graphs.Get(pools)).BestRoute(req.SourceMint, req.DestinationMint, req.Amount, req.Mode)
	if candidates == 0 {
		return nil, fmt.Errorf("%w: %s -> %s", common.ErrNoRouteFound, req.SourceMint, req.DestinationMint)
	}
	if quote == nil {
		return nil, fmt.Errorf("%w: %d candidate paths, amount %d", common.ErrInsufficientLiquidity, candidates, req.Amount)
	}

	var (
		destination   *domain.DestinationAnalysis
		transit       *domain.TokenAccount
		createTransit bool
		relayContext  *domain.RelayContext
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := p.analyzer.AnalyzeDestination(gctx, builder.DestinationRequest{
			Destination: req.Destination,
			Mint:        req.DestinationMint,
			Owner:       req.Owner,
		})
		if err != nil {
			return err
		}
		destination = d
		return nil
	})
	g.Go(func() error {
		t, err := p.analyzer.AnalyzeTransit(quote.PoolsPair, req.Owner)
		if err != nil || t == nil {
			return err
		}
		needs, err := p.analyzer.NeedsCreateTransit(gctx, t)
		if err != nil {
			return err
		}
		transit, createTransit = t, needs
		return nil
	})
	g.Go(func() error {
		rc, err := p.contexts(req.Owner).GetCurrentContext(gctx)
		if err != nil {
			return err
		}
		relayContext = rc
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	return assemble(req, quote, destination, transit, createTransit, relayContext)
}

// CheckSubmittable is called right before submission. It fails with common.ErrStaleContext
// when the plan's relay context is no longer the one the wallet's context manager trusts.
func (p *Planner) CheckSubmittable(plan *domain.SwapPlan, owner solana.PublicKey) error {
	return p.contexts(owner).Guard(plan.RelayContext)
}

func validateRequest(req *domain.PlanRequest) error {
	switch {
	case req.Amount == 0:
		return fmt.Errorf("%w: amount must be positive", common.ErrInvalidAmount)
	case uint64(req.SlippageBps) >= common.BpsDenominator:
		return fmt.Errorf("%w: got %d", common.ErrInvalidSlippage, req.SlippageBps)
	case req.Mode != domain.SwapModeExactIn && req.Mode != domain.SwapModeExactOut:
		return fmt.Errorf("%w: unknown swap mode", common.ErrInvalidAmount)
	case req.Owner.IsZero():
		return fmt.Errorf("%w: missing owner", common.ErrInvalidToken)
	case req.SourceMint.IsZero() || req.DestinationMint.IsZero():
		return fmt.Errorf("%w: missing mint", common.ErrInvalidToken)
	case req.SourceMint.Equals(req.DestinationMint):
		return fmt.Errorf("%w: source and destination are the same mint", common.ErrInvalidToken)
	}
	return nil
}

func assemble(
	req domain.PlanRequest,
	quote *router.RouteQuote,
	destination *domain.DestinationAnalysis,
	transit *domain.TokenAccount,
	createTransit bool,
	rc *domain.RelayContext,
) (*domain.SwapPlan, error) {
	plan := &domain.SwapPlan{
		PoolsPair:      quote.PoolsPair,
		Hops:           quote.Hops,
		Mode:           req.Mode,
		InputAmount:    quote.AmountIn,
		OutputAmount:   quote.AmountOut,
		SlippageBps:    req.SlippageBps,
		PriceImpactBps: router.CalculatePriceImpactRoute(quote.Hops),
		Destination:    *destination,
		Transit:        transit,
		RelayContext:   rc,
	}

	keep := common.BpsDenominator - uint64(req.SlippageBps)
	plan.MinimumOutput = router.MulDiv(quote.AmountOut, keep, common.BpsDenominator)
	if req.Mode == domain.SwapModeExactOut {
		maxIn := router.MulDiv(quote.AmountIn, common.BpsDenominator+uint64(req.SlippageBps), common.BpsDenominator)
		if maxIn < quote.AmountIn {
			return nil, fmt.Errorf("%w: maximum input overflows", common.ErrInvalidAmount)
		}
		plan.MaximumInput = maxIn
	}

	creations := newCreationSet()
	if req.SourceMint.Equals(common.NativeMint) {
		if err := creations.addWrappedNative(req.Owner, rc); err != nil {
			return nil, err
		}
	}
	if destination.NeedCreateDestination {
		if destination.IsNativeWrap {
			if err := creations.addWrappedNative(req.Owner, rc); err != nil {
				return nil, err
			}
		} else {
			creations.add(domain.AccountCreation{
				Address: destination.Destination,
				Mint:    req.DestinationMint,
				Kind:    domain.AccountDestination,
				Rent:    rc.MinimumTokenAccountBalance,
			})
		}
	}
	if transit != nil && createTransit {
		creations.add(domain.AccountCreation{
			Address: transit.Address,
			Mint:    transit.Mint,
			Kind:    domain.AccountTransit,
			Rent:    rc.MinimumTokenAccountBalance,
		})
	}
	if !rc.RelayAccountStatus.Exists() {
		creations.add(domain.AccountCreation{
			Address: rc.RelayAccountStatus.Address,
			Kind:    domain.AccountRelay,
			Rent:    rc.MinimumRelayAccountBalance,
		})
	}
	plan.Creations = creations.list

	plan.Fees.AccountCreation = creations.rent
	plan.Fees.NetworkFee = common.SignaturesPerRelayedTx * rc.LamportsPerSignature
	plan.Fees.Total = plan.Fees.AccountCreation + plan.Fees.NetworkFee
	plan.UsesSponsor = rc.UsageStatus.IsFreeTransactionFeeAvailable(plan.Fees.Total)

	return plan, nil
}

// creationSet lists each account once, in the order first seen.
type creationSet struct {
	seen map[solana.PublicKey]struct{}
	list []domain.AccountCreation
	rent uint64
}

func newCreationSet() *creationSet {
	return &creationSet{seen: make(map[solana.PublicKey]struct{})}
}

func (s *creationSet) add(c domain.AccountCreation) {
	if _, ok := s.seen[c.Address]; ok {
		return
	}
	s.seen[c.Address] = struct{}{}
	s.list = append(s.list, c)
	s.rent += c.Rent
}

func (s *creationSet) addWrappedNative(owner solana.PublicKey, rc *domain.RelayContext) error {
	address, _, err := builder.GetATAAddress(owner, common.NativeMint)
	if err != nil {
		return fmt.Errorf("%w: derive wrapped native account: %v", common.ErrAccountAnalysisFailed, err)
	}
	s.add(domain.AccountCreation{
		Address: address,
		Mint:    common.NativeMint,
		Kind:    domain.AccountWrappedNative,
		Rent:    rc.MinimumTokenAccountBalance,
	})
	return nil
}

func planStatus(err error) string {
	if err == nil {
		return "ok"
	}
	return common.ErrorKind(err)
}

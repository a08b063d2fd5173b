package planner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/services/builder"
	"github.com/hxuan190/relay-swap/internal/services/relay"
)

const (
	tokenRent = 2039280
	relayRent = 890880
)

var (
	owner    = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	feePayer = solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")

	mintUSDC = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	mintUSDT = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	mintMSOL = solana.MustPublicKeyFromBase58("mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So")
)

func key(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = b
	k[31] = b
	return k
}

func poolAt(b byte, mintA, mintB solana.PublicKey, reserveA, reserveB uint64) domain.Pool {
	return domain.Pool{
		Address:        key(b),
		TokenMintA:     mintA,
		TokenMintB:     mintB,
		ReserveA:       reserveA,
		ReserveB:       reserveB,
		FeeNumerator:   3,
		FeeDenominator: 1000,
	}
}

type fakePools struct {
	pools []domain.Pool
	err   error
}

func (f *fakePools) ListPools(context.Context) ([]domain.Pool, error) {
	return f.pools, f.err
}

type fakeAnalyzer struct {
	destination   domain.DestinationAnalysis
	destErr       error
	transit       *domain.TokenAccount
	createTransit bool
}

func (f *fakeAnalyzer) AnalyzeDestination(context.Context, builder.DestinationRequest) (*domain.DestinationAnalysis, error) {
	if f.destErr != nil {
		return nil, f.destErr
	}
	d := f.destination
	return &d, nil
}

func (f *fakeAnalyzer) AnalyzeTransit(pp domain.PoolsPair, _ solana.PublicKey) (*domain.TokenAccount, error) {
	if len(pp.Pools) != 2 {
		return nil, nil
	}
	return f.transit, nil
}

func (f *fakeAnalyzer) NeedsCreateTransit(context.Context, *domain.TokenAccount) (bool, error) {
	return f.createTransit, nil
}

type fakeContext struct {
	rc  *domain.RelayContext
	err error
	get func(ctx context.Context) (*domain.RelayContext, error)
}

func (f *fakeContext) GetCurrentContext(ctx context.Context) (*domain.RelayContext, error) {
	if f.get != nil {
		return f.get(ctx)
	}
	return f.rc, f.err
}

func (f *fakeContext) Guard(used *domain.RelayContext) error {
	if !used.Equal(f.rc) {
		return common.ErrStaleContext
	}
	return nil
}

func relayContext(usage domain.UsageStatus, relayCreated bool) *domain.RelayContext {
	state := domain.RelayAccountNotYetCreated
	if relayCreated {
		state = domain.RelayAccountCreated
	}
	return &domain.RelayContext{
		Owner:                      owner,
		MinimumTokenAccountBalance: tokenRent,
		MinimumRelayAccountBalance: relayRent,
		LamportsPerSignature:       5000,
		FeePayerAddress:            feePayer,
		RelayAccountStatus:         domain.RelayAccountStatus{Address: key(90), State: state},
		UsageStatus:                usage,
	}
}

func twoHopPools() []domain.Pool {
	return []domain.Pool{
		poolAt(1, mintUSDT, mintMSOL, 500, 1000),
		poolAt(2, mintMSOL, mintUSDC, 2000, 4000),
	}
}

func newTestPlanner(pools []domain.Pool, analyzer *fakeAnalyzer, fc *fakeContext) *Planner {
	return NewPlanner(&fakePools{pools: pools}, analyzer, func(solana.PublicKey) ContextProvider { return fc })
}

func exactIn(amount uint64, slippage uint16) domain.PlanRequest {
	return domain.PlanRequest{
		Owner:           owner,
		SourceMint:      mintUSDT,
		DestinationMint: mintUSDC,
		Amount:          amount,
		Mode:            domain.SwapModeExactIn,
		SlippageBps:     slippage,
	}
}

func TestPlanTwoHopEndToEnd(t *testing.T) {
	analyzer := &fakeAnalyzer{
		destination:   domain.DestinationAnalysis{Destination: key(70), DestinationOwner: owner, NeedCreateDestination: true},
		transit:       &domain.TokenAccount{Address: key(71), Mint: mintMSOL},
		createTransit: true,
	}
	fc := &fakeContext{rc: relayContext(domain.UsageStatus{CurrentUsage: 0, MaxUsage: 10}, true)}

	plan, err := newTestPlanner(twoHopPools(), analyzer, fc).Plan(context.Background(), exactIn(100, 50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.PoolsPair.Pools) != 2 || plan.InputAmount != 100 || plan.OutputAmount != 305 {
		t.Fatalf("unexpected route: %d pools, in %d, out %d", len(plan.PoolsPair.Pools), plan.InputAmount, plan.OutputAmount)
	}
	if plan.MinimumOutput != 303 {
		t.Errorf("minimum output = %d, want 303", plan.MinimumOutput)
	}
	if plan.MaximumInput != 0 {
		t.Errorf("exact in plan should not carry a maximum input, got %d", plan.MaximumInput)
	}
	if !plan.Destination.NeedCreateDestination {
		t.Error("destination should need creation")
	}
	if len(plan.Creations) != 2 || !plan.NeedsCreation(key(70)) || !plan.NeedsCreation(key(71)) {
		t.Fatalf("unexpected creations: %+v", plan.Creations)
	}
	if plan.Fees.AccountCreation != 2*tokenRent || plan.Fees.NetworkFee != 10000 {
		t.Errorf("unexpected fees: %+v", plan.Fees)
	}
	if plan.Fees.Total != plan.Fees.AccountCreation+plan.Fees.NetworkFee {
		t.Errorf("total %d is not the sum of its parts", plan.Fees.Total)
	}
	if !plan.UsesSponsor {
		t.Error("sponsor quota is available, plan should use it")
	}
	if plan.RelayContext != fc.rc {
		t.Error("plan should carry the context it was priced with")
	}
}

func TestPlanListsSharedAccountOnce(t *testing.T) {
	shared := key(70)
	analyzer := &fakeAnalyzer{
		destination:   domain.DestinationAnalysis{Destination: shared, DestinationOwner: owner, NeedCreateDestination: true},
		transit:       &domain.TokenAccount{Address: shared, Mint: mintMSOL},
		createTransit: true,
	}
	fc := &fakeContext{rc: relayContext(domain.UsageStatus{MaxUsage: 10}, true)}

	plan, err := newTestPlanner(twoHopPools(), analyzer, fc).Plan(context.Background(), exactIn(100, 50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Creations) != 1 {
		t.Fatalf("expected one creation, got %+v", plan.Creations)
	}
	if plan.Fees.AccountCreation != tokenRent {
		t.Errorf("rent counted %d, want %d", plan.Fees.AccountCreation, tokenRent)
	}
}

func TestPlanIncludesRelayAccountRent(t *testing.T) {
	analyzer := &fakeAnalyzer{destination: domain.DestinationAnalysis{Destination: key(70), DestinationOwner: owner}}
	fc := &fakeContext{rc: relayContext(domain.UsageStatus{MaxUsage: 10}, false)}
	pools := []domain.Pool{poolAt(1, mintUSDT, mintUSDC, 1_000_000, 1_000_000)}

	plan, err := newTestPlanner(pools, analyzer, fc).Plan(context.Background(), exactIn(1000, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Creations) != 1 || plan.Creations[0].Kind != domain.AccountRelay {
		t.Fatalf("expected only the relay account, got %+v", plan.Creations)
	}
	if plan.Fees.AccountCreation != relayRent {
		t.Errorf("rent = %d, want %d", plan.Fees.AccountCreation, relayRent)
	}
	if plan.Transit != nil {
		t.Error("direct route has no transit account")
	}
}

func TestPlanNativeSourceWrapsOnce(t *testing.T) {
	analyzer := &fakeAnalyzer{destination: domain.DestinationAnalysis{Destination: key(70), DestinationOwner: owner}}
	fc := &fakeContext{rc: relayContext(domain.UsageStatus{MaxUsage: 10}, true)}
	pools := []domain.Pool{poolAt(1, common.NativeMint, mintUSDC, 1_000_000, 1_000_000)}

	req := exactIn(1000, 0)
	req.SourceMint = common.NativeMint
	plan, err := newTestPlanner(pools, analyzer, fc).Plan(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wrapped, _, err := builder.GetATAAddress(owner, common.NativeMint)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Creations) != 1 || plan.Creations[0].Kind != domain.AccountWrappedNative || !plan.Creations[0].Address.Equals(wrapped) {
		t.Fatalf("expected the wrapped native account, got %+v", plan.Creations)
	}
}

func TestPlanSponsorExhausted(t *testing.T) {
	analyzer := &fakeAnalyzer{destination: domain.DestinationAnalysis{Destination: key(70), DestinationOwner: owner}}
	fc := &fakeContext{rc: relayContext(domain.UsageStatus{CurrentUsage: 10, MaxUsage: 10}, true)}
	pools := []domain.Pool{poolAt(1, mintUSDT, mintUSDC, 1_000_000, 1_000_000)}

	plan, err := newTestPlanner(pools, analyzer, fc).Plan(context.Background(), exactIn(1000, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.UsesSponsor {
		t.Error("exhausted quota must not use the sponsor")
	}
}

func TestPlanExactOut(t *testing.T) {
	analyzer := &fakeAnalyzer{destination: domain.DestinationAnalysis{Destination: key(70), DestinationOwner: owner}}
	fc := &fakeContext{rc: relayContext(domain.UsageStatus{MaxUsage: 10}, true)}
	pools := []domain.Pool{poolAt(1, mintUSDT, mintUSDC, 1000, 1000)}

	req := exactIn(100, 100)
	req.Mode = domain.SwapModeExactOut
	plan, err := newTestPlanner(pools, analyzer, fc).Plan(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.InputAmount != 111 || plan.OutputAmount != 100 {
		t.Errorf("in %d out %d, want 111 and 100", plan.InputAmount, plan.OutputAmount)
	}
	if plan.MaximumInput != 112 {
		t.Errorf("maximum input = %d, want 112", plan.MaximumInput)
	}
	if plan.MinimumOutput != 99 {
		t.Errorf("minimum output = %d, want 99", plan.MinimumOutput)
	}
}

func TestPlanRejectsBadRequests(t *testing.T) {
	p := newTestPlanner(twoHopPools(), &fakeAnalyzer{}, &fakeContext{rc: relayContext(domain.UsageStatus{}, true)})

	sameMint := exactIn(100, 0)
	sameMint.DestinationMint = mintUSDT
	noOwner := exactIn(100, 0)
	noOwner.Owner = solana.PublicKey{}

	tests := []struct {
		name string
		req  domain.PlanRequest
		want error
	}{
		{"zero amount", exactIn(0, 0), common.ErrInvalidAmount},
		{"slippage at 100%", exactIn(100, 10000), common.ErrInvalidSlippage},
		{"same mint", sameMint, common.ErrInvalidToken},
		{"missing owner", noOwner, common.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Plan(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPlanDistinguishesNoRouteFromLiquidity(t *testing.T) {
	fc := &fakeContext{rc: relayContext(domain.UsageStatus{}, true)}
	analyzer := &fakeAnalyzer{}

	unrelated := []domain.Pool{poolAt(1, mintUSDT, mintMSOL, 1000, 1000)}
	_, err := newTestPlanner(unrelated, analyzer, fc).Plan(context.Background(), exactIn(100, 0))
	if !errors.Is(err, common.ErrNoRouteFound) || errors.Is(err, common.ErrInsufficientLiquidity) {
		t.Errorf("expected no route, got %v", err)
	}

	shallow := []domain.Pool{poolAt(1, mintUSDT, mintUSDC, 1000, 1000)}
	req := exactIn(1000, 0)
	req.Mode = domain.SwapModeExactOut
	_, err = newTestPlanner(shallow, analyzer, fc).Plan(context.Background(), req)
	if !errors.Is(err, common.ErrInsufficientLiquidity) {
		t.Errorf("expected insufficient liquidity, got %v", err)
	}
}

func TestPlanPropagatesRelayFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{destination: domain.DestinationAnalysis{Destination: key(70), DestinationOwner: owner}}
	fc := &fakeContext{err: fmt.Errorf("%w: fee payer: boom", common.ErrRelayUnauthorized)}

	_, err := newTestPlanner(twoHopPools(), analyzer, fc).Plan(context.Background(), exactIn(100, 0))
	if !errors.Is(err, common.ErrRelayUnauthorized) {
		t.Errorf("expected relay unauthorized, got %v", err)
	}
}

func TestPlanPropagatesAnalysisFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{destErr: fmt.Errorf("%w: rpc down", common.ErrAccountAnalysisFailed)}
	fc := &fakeContext{rc: relayContext(domain.UsageStatus{}, true)}

	_, err := newTestPlanner(twoHopPools(), analyzer, fc).Plan(context.Background(), exactIn(100, 0))
	if !errors.Is(err, common.ErrAccountAnalysisFailed) {
		t.Errorf("expected analysis failure, got %v", err)
	}
}

func TestPlanPoolsNotReady(t *testing.T) {
	p := NewPlanner(&fakePools{err: common.ErrNotReady}, &fakeAnalyzer{}, func(solana.PublicKey) ContextProvider {
		return &fakeContext{}
	})
	if _, err := p.Plan(context.Background(), exactIn(100, 0)); !errors.Is(err, common.ErrNotReady) {
		t.Errorf("expected not ready, got %v", err)
	}
}

func TestPlanTrade(t *testing.T) {
	analyzer := &fakeAnalyzer{destination: domain.DestinationAnalysis{Destination: key(70), DestinationOwner: owner}}
	fc := &fakeContext{rc: relayContext(domain.UsageStatus{MaxUsage: 10}, true)}
	p := newTestPlanner(twoHopPools(), analyzer, fc)

	usdt := domain.CryptoToken{Token: domain.NewToken(mintUSDT, 6, "USDT")}
	usdc := domain.CryptoToken{Token: domain.NewToken(mintUSDC, 6, "USDC")}

	plan, err := p.PlanTrade(context.Background(), TradeRequest{Owner: owner, From: usdt, To: &usdc, Amount: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.OutputAmount != 305 {
		t.Errorf("output = %d, want 305", plan.OutputAmount)
	}

	_, err = p.PlanTrade(context.Background(), TradeRequest{Owner: owner, From: domain.FiatToken{Currency: "USD"}, To: usdc, Amount: 100})
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Errorf("fiat source: got %v, want invalid token", err)
	}
	_, err = p.PlanTrade(context.Background(), TradeRequest{Owner: owner, From: usdt, Amount: 100})
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Errorf("missing destination: got %v, want invalid token", err)
	}
}

func TestPlanReturnsCallerCancellation(t *testing.T) {
	analyzer := &fakeAnalyzer{destination: domain.DestinationAnalysis{Destination: key(70), DestinationOwner: owner}}
	fc := &fakeContext{get: func(ctx context.Context) (*domain.RelayContext, error) {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", common.ErrRelayUnauthorized, ctx.Err())
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPlanner(twoHopPools(), analyzer, fc).Plan(ctx, exactIn(100, 0))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context canceled, got %v", err)
	}
}

func TestSessionSupersedesInFlightPlan(t *testing.T) {
	analyzer := &fakeAnalyzer{destination: domain.DestinationAnalysis{Destination: key(70), DestinationOwner: owner}}
	rc := relayContext(domain.UsageStatus{MaxUsage: 10}, true)
	started := make(chan struct{})
	var calls atomic.Int32
	fc := &fakeContext{rc: rc, get: func(ctx context.Context) (*domain.RelayContext, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return rc, nil
	}}
	session := NewSession(newTestPlanner(twoHopPools(), analyzer, fc))

	firstErr := make(chan error, 1)
	go func() {
		_, err := session.Plan(context.Background(), exactIn(100, 0))
		firstErr <- err
	}()
	<-started

	plan, err := session.Plan(context.Background(), exactIn(50, 0))
	if err != nil {
		t.Fatalf("newest plan failed: %v", err)
	}
	if plan.InputAmount != 50 {
		t.Errorf("newest plan input = %d, want 50", plan.InputAmount)
	}

	select {
	case err := <-firstErr:
		if !errors.Is(err, common.ErrSuperseded) {
			t.Errorf("first plan: got %v, want superseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first plan was never canceled")
	}
}

func blockingPlanner(started chan struct{}) *Planner {
	analyzer := &fakeAnalyzer{destination: domain.DestinationAnalysis{Destination: key(70), DestinationOwner: owner}}
	rc := relayContext(domain.UsageStatus{MaxUsage: 10}, true)
	var calls atomic.Int32
	fc := &fakeContext{rc: rc, get: func(ctx context.Context) (*domain.RelayContext, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return rc, nil
	}}
	return newTestPlanner(twoHopPools(), analyzer, fc)
}

func TestSessionCancel(t *testing.T) {
	started := make(chan struct{})
	session := NewSession(blockingPlanner(started))

	errs := make(chan error, 1)
	go func() {
		_, err := session.Plan(context.Background(), exactIn(100, 0))
		errs <- err
	}()
	<-started
	session.Cancel()

	select {
	case err := <-errs:
		if !errors.Is(err, common.ErrSuperseded) {
			t.Errorf("canceled plan: got %v, want superseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("plan was never canceled")
	}

	if _, err := session.Plan(context.Background(), exactIn(50, 0)); err != nil {
		t.Errorf("session should stay usable after Cancel: %v", err)
	}
}

func TestEvictedSessionIsSuperseded(t *testing.T) {
	started := make(chan struct{})
	p := blockingPlanner(started)
	sessions := newSessionCache(1)
	create := func() *Session { return NewSession(p) }

	evicted := sessions.GetOrCreate(owner, create)
	errs := make(chan error, 1)
	go func() {
		_, err := evicted.Plan(context.Background(), exactIn(100, 0))
		errs <- err
	}()
	<-started

	// another wallet takes the only slot
	sessions.GetOrCreate(key(5), create)

	select {
	case err := <-errs:
		if !errors.Is(err, common.ErrSuperseded) {
			t.Errorf("evicted plan: got %v, want superseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("evicted plan kept running")
	}

	if fresh := sessions.GetOrCreate(owner, create); fresh == evicted {
		t.Error("wallet should get a new session after eviction")
	}
}

type switchingLoader struct {
	rc atomic.Pointer[domain.RelayContext]
}

func (l *switchingLoader) Load(context.Context, solana.PublicKey) (*domain.RelayContext, error) {
	return l.rc.Load(), nil
}

func TestCheckSubmittableAfterContextChange(t *testing.T) {
	loader := &switchingLoader{}
	loader.rc.Store(relayContext(domain.UsageStatus{CurrentUsage: 1, MaxUsage: 10}, true))
	manager := relay.NewContextManager(owner, loader)

	analyzer := &fakeAnalyzer{destination: domain.DestinationAnalysis{Destination: key(70), DestinationOwner: owner}}
	p := NewPlanner(&fakePools{pools: twoHopPools()}, analyzer, func(solana.PublicKey) ContextProvider { return manager })

	ctx := context.Background()
	plan, err := p.Plan(ctx, exactIn(100, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.CheckSubmittable(plan, owner); err != nil {
		t.Fatalf("fresh plan should be submittable: %v", err)
	}

	loader.rc.Store(relayContext(domain.UsageStatus{CurrentUsage: 2, MaxUsage: 10}, true))
	if ok, err := manager.Validate(ctx); err != nil || ok {
		t.Fatalf("validate = %v, %v; want false", ok, err)
	}
	if err := p.CheckSubmittable(plan, owner); !errors.Is(err, common.ErrStaleContext) {
		t.Errorf("expected stale context, got %v", err)
	}

	if err := manager.Update(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.CheckSubmittable(plan, owner); !errors.Is(err, common.ErrStaleContext) {
		t.Errorf("plan priced with the old context must stay unsubmittable, got %v", err)
	}

	replanned, err := p.Plan(ctx, exactIn(100, 0))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.CheckSubmittable(replanned, owner); err != nil {
		t.Errorf("replanned plan should be submittable: %v", err)
	}
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	gohttp "net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/http/httputil"
	"github.com/hxuan190/relay-swap/internal/services/builder"
	"github.com/hxuan190/relay-swap/internal/services/market"
	"github.com/hxuan190/relay-swap/internal/services/planner"
	"github.com/hxuan190/relay-swap/internal/services/relay"
)

const adminToken = "secret"

var (
	wallet   = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	feePayer = solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	mintUSDC = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	mintUSDT = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	mintMSOL = solana.MustPublicKeyFromBase58("mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So")
	mintBONK = solana.MustPublicKeyFromBase58("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
)

type missingAccounts struct{}

func (missingAccounts) GetAccountInfo(context.Context, solana.PublicKey) (*domain.AccountInfo, error) {
	return nil, nil
}

type switchingLoader struct {
	rc atomic.Pointer[domain.RelayContext]
}

func (l *switchingLoader) Load(context.Context, solana.PublicKey) (*domain.RelayContext, error) {
	return l.rc.Load(), nil
}

type memoryDefaults struct {
	mu sync.Mutex
	m  map[solana.PublicKey]domain.SwapDefaults
}

func (s *memoryDefaults) GetDefaults(_ context.Context, w solana.PublicKey) (domain.SwapDefaults, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.m[w]
	return d, ok, nil
}

func (s *memoryDefaults) SetDefaults(_ context.Context, w solana.PublicKey, d domain.SwapDefaults) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[w] = d
	return nil
}

type fakeBackend struct {
	planner  *planner.Planner
	session  *planner.Session
	defaults planner.DefaultsStore
}

func (b *fakeBackend) Session(solana.PublicKey) *planner.Session { return b.session }
func (b *fakeBackend) Planner() *planner.Planner                 { return b.planner }
func (b *fakeBackend) Defaults() planner.DefaultsStore           { return b.defaults }
func (b *fakeBackend) DefaultSlippageBps() uint16                { return 50 }

type fixedBlockhash struct{}

func (fixedBlockhash) GetBlockhash(context.Context) (solana.Hash, uint64, error) {
	return solana.Hash{1, 2, 3}, 1234, nil
}

type testServer struct {
	engine *gin.Engine
	loader *switchingLoader
}

func testRelayContext(currentUsage uint64) *domain.RelayContext {
	return &domain.RelayContext{
		Owner:                      wallet,
		MinimumTokenAccountBalance: 2039280,
		MinimumRelayAccountBalance: 890880,
		LamportsPerSignature:       5000,
		FeePayerAddress:            feePayer,
		RelayAccountStatus:         domain.RelayAccountStatus{State: domain.RelayAccountCreated},
		UsageStatus:                domain.UsageStatus{CurrentUsage: currentUsage, MaxUsage: 10},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loader := &switchingLoader{}
	loader.rc.Store(testRelayContext(1))
	registry := relay.NewRegistry(loader, 16)

	analyzer := builder.NewAccountAnalyzer(missingAccounts{}, builder.NewPDADeriver(common.RelayProgramIDMainnet))
	pools := market.NewPoolStore(nil)
	p := planner.NewPlanner(pools, analyzer, func(owner solana.PublicKey) planner.ContextProvider {
		return registry.Manager(owner)
	})
	backend := &fakeBackend{
		planner:  p,
		session:  planner.NewSession(p),
		defaults: &memoryDefaults{m: make(map[solana.PublicKey]domain.SwapDefaults)},
	}

	handlers := []httputil.IHttpHandler{
		NewPlanHandler(backend, fixedBlockhash{}),
		NewRelayHandler(registry),
		NewDefaultsHandler(backend),
		NewPoolHandler(pools),
	}
	return &testServer{engine: NewEngine(handlers, nil, adminToken), loader: loader}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func (s *testServer) do(t *testing.T, method, target string, body any, auth string) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: invalid body %q: %v", method, target, rec.Body.String(), err)
		}
	}
	return rec.Code, env
}

func poolBody(address solana.PublicKey, mintA, mintB solana.PublicKey, reserveA, reserveB string) PoolBody {
	return PoolBody{
		Address:        address.String(),
		TokenMintA:     mintA.String(),
		TokenMintB:     mintB.String(),
		ReserveA:       reserveA,
		ReserveB:       reserveB,
		FeeNumerator:   3,
		FeeDenominator: 1000,
	}
}

func (s *testServer) loadPools(t *testing.T) {
	t.Helper()
	req := ReplacePoolsRequest{Pools: []PoolBody{
		poolBody(solana.MustPublicKeyFromBase58("HJPjoWUrhoZzkNfRpHuieeFk9WcZWjwy6PBjZ81ngndJ"), mintUSDT, mintMSOL, "500", "1000"),
		poolBody(solana.MustPublicKeyFromBase58("58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2"), mintMSOL, mintUSDC, "2000", "4000"),
	}}
	if code, env := s.do(t, gohttp.MethodPut, "/api/v1/admin/pools", req, adminToken); code != gohttp.StatusOK {
		t.Fatalf("replace pools: %d %s", code, env.Error)
	}
}

func planQuery(path string, extra map[string]string) string {
	q := url.Values{}
	q.Set("wallet", wallet.String())
	q.Set("inputMint", mintUSDT.String())
	q.Set("outputMint", mintUSDC.String())
	q.Set("amount", "100")
	for k, v := range extra {
		q.Set(k, v)
	}
	return path + "?" + q.Encode()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(gohttp.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	if rec.Code != gohttp.StatusOK {
		t.Errorf("health = %d", rec.Code)
	}
}

func TestAdminPoolsRequireToken(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, gohttp.MethodPut, "/api/v1/admin/pools", ReplacePoolsRequest{}, "")
	if code != gohttp.StatusUnauthorized {
		t.Errorf("without token: %d, want 401", code)
	}
	code, _ = s.do(t, gohttp.MethodPut, "/api/v1/admin/pools", ReplacePoolsRequest{}, "wrong")
	if code != gohttp.StatusUnauthorized {
		t.Errorf("wrong token: %d, want 401", code)
	}
}

func TestReplacePoolsRejectsInvalidPool(t *testing.T) {
	s := newTestServer(t)
	bad := poolBody(solana.MustPublicKeyFromBase58("HJPjoWUrhoZzkNfRpHuieeFk9WcZWjwy6PBjZ81ngndJ"), mintUSDT, mintUSDT, "1", "1")
	code, env := s.do(t, gohttp.MethodPut, "/api/v1/admin/pools", ReplacePoolsRequest{Pools: []PoolBody{bad}}, adminToken)
	if code != gohttp.StatusUnprocessableEntity || env.Code != "UNPROCESSABLE" {
		t.Errorf("same-mint pool: %d %s, want 422", code, env.Code)
	}

	noReserve := poolBody(solana.MustPublicKeyFromBase58("HJPjoWUrhoZzkNfRpHuieeFk9WcZWjwy6PBjZ81ngndJ"), mintUSDT, mintUSDC, "-1", "1")
	code, _ = s.do(t, gohttp.MethodPut, "/api/v1/admin/pools", ReplacePoolsRequest{Pools: []PoolBody{noReserve}}, adminToken)
	if code != gohttp.StatusUnprocessableEntity {
		t.Errorf("negative reserve: %d, want 422", code)
	}
}

func TestPoolStats(t *testing.T) {
	s := newTestServer(t)
	if code, _ := s.do(t, gohttp.MethodGet, "/api/v1/pools/stats", nil, ""); code != gohttp.StatusServiceUnavailable {
		t.Errorf("stats before snapshot: %d, want 503", code)
	}
	s.loadPools(t)

	code, env := s.do(t, gohttp.MethodGet, "/api/v1/pools/stats", nil, "")
	if code != gohttp.StatusOK {
		t.Fatalf("stats: %d %s", code, env.Error)
	}
	var stats PoolStatsResponse
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.PoolCount != 2 || stats.TokenCount != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestGetPlan(t *testing.T) {
	s := newTestServer(t)
	if code, _ := s.do(t, gohttp.MethodGet, planQuery("/api/v1/plan", nil), nil, ""); code != gohttp.StatusServiceUnavailable {
		t.Errorf("plan before snapshot: %d, want 503", code)
	}
	s.loadPools(t)

	code, env := s.do(t, gohttp.MethodGet, planQuery("/api/v1/plan", nil), nil, "")
	if code != gohttp.StatusOK {
		t.Fatalf("plan: %d %s", code, env.Error)
	}
	var plan PlanResponse
	if err := json.Unmarshal(env.Data, &plan); err != nil {
		t.Fatal(err)
	}
	if plan.AmountOut != "305" || plan.HopCount != 2 || len(plan.RoutePath) != 3 {
		t.Errorf("unexpected route: %+v", plan)
	}
	// server default slippage of 50 bps
	if plan.MinimumOutput != "303" || plan.SlippageBps != 50 {
		t.Errorf("minimum output %s at %d bps", plan.MinimumOutput, plan.SlippageBps)
	}
	if !plan.NeedCreateDestination || plan.Transit == "" || len(plan.AccountsToCreate) != 2 {
		t.Errorf("unexpected accounts: %+v", plan.AccountsToCreate)
	}
	if !plan.UsesSponsor || plan.FeePayer != feePayer.String() {
		t.Errorf("expected sponsored plan paid by %s, got %+v", feePayer, plan)
	}
}

func TestGetPlanErrors(t *testing.T) {
	s := newTestServer(t)
	s.loadPools(t)

	tests := []struct {
		name   string
		extra  map[string]string
		status int
	}{
		{"bad amount", map[string]string{"amount": "abc"}, gohttp.StatusBadRequest},
		{"zero amount", map[string]string{"amount": "0"}, gohttp.StatusBadRequest},
		{"bad mode", map[string]string{"swapMode": "Both"}, gohttp.StatusBadRequest},
		{"slippage at 100%", map[string]string{"slippageBps": "10000"}, gohttp.StatusBadRequest},
		{"bad wallet", map[string]string{"wallet": "nope"}, gohttp.StatusBadRequest},
		{"no route", map[string]string{"outputMint": mintBONK.String()}, gohttp.StatusNotFound},
		{"insufficient liquidity", map[string]string{"swapMode": "ExactOut", "amount": "4000"}, gohttp.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, gohttp.MethodGet, planQuery("/api/v1/plan", tt.extra), nil, "")
			if code != tt.status {
				t.Errorf("status = %d (%s), want %d", code, env.Error, tt.status)
			}
			if env.Success {
				t.Error("error response flagged as success")
			}
		})
	}
}

func TestPlanUsesWalletDefaults(t *testing.T) {
	s := newTestServer(t)
	s.loadPools(t)

	target := "/api/v1/defaults/" + wallet.String()
	code, env := s.do(t, gohttp.MethodGet, target, nil, "")
	if code != gohttp.StatusOK {
		t.Fatalf("get defaults: %d %s", code, env.Error)
	}
	var got DefaultsResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Stored || got.SlippageBps != 50 || got.SwapMode != "ExactIn" {
		t.Errorf("unexpected server defaults: %+v", got)
	}

	if code, env := s.do(t, gohttp.MethodPut, target, DefaultsBody{SlippageBps: 10000}, ""); code != gohttp.StatusBadRequest {
		t.Errorf("invalid slippage stored: %d %s", code, env.Error)
	}
	if code, env := s.do(t, gohttp.MethodPut, target, DefaultsBody{SlippageBps: 100, SwapMode: "ExactIn"}, ""); code != gohttp.StatusOK {
		t.Fatalf("put defaults: %d %s", code, env.Error)
	}

	code, env = s.do(t, gohttp.MethodGet, planQuery("/api/v1/plan", nil), nil, "")
	if code != gohttp.StatusOK {
		t.Fatalf("plan: %d %s", code, env.Error)
	}
	var plan PlanResponse
	if err := json.Unmarshal(env.Data, &plan); err != nil {
		t.Fatal(err)
	}
	if plan.SlippageBps != 100 || plan.MinimumOutput != "301" {
		t.Errorf("wallet defaults ignored: %d bps, minimum %s", plan.SlippageBps, plan.MinimumOutput)
	}

	// an explicit query value wins over the stored default
	code, env = s.do(t, gohttp.MethodGet, planQuery("/api/v1/plan", map[string]string{"slippageBps": "0"}), nil, "")
	if code != gohttp.StatusOK {
		t.Fatalf("plan: %d %s", code, env.Error)
	}
	if err := json.Unmarshal(env.Data, &plan); err != nil {
		t.Fatal(err)
	}
	if plan.SlippageBps != 0 || plan.MinimumOutput != "305" {
		t.Errorf("query slippage ignored: %d bps, minimum %s", plan.SlippageBps, plan.MinimumOutput)
	}
}

func TestRelayContextLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.loadPools(t)
	walletQuery := "?wallet=" + wallet.String()

	code, env := s.do(t, gohttp.MethodGet, "/api/v1/relay/context"+walletQuery, nil, "")
	if code != gohttp.StatusOK {
		t.Fatalf("context: %d %s", code, env.Error)
	}
	var rc RelayContextResponse
	if err := json.Unmarshal(env.Data, &rc); err != nil {
		t.Fatal(err)
	}
	if rc.FeePayer != feePayer.String() || rc.CurrentUsage != 1 || !rc.SponsorAvailable {
		t.Errorf("unexpected context: %+v", rc)
	}

	code, env = s.do(t, gohttp.MethodGet, planQuery("/api/v1/plan/setup", nil), nil, "")
	if code != gohttp.StatusOK {
		t.Fatalf("setup: %d %s", code, env.Error)
	}
	var setup SetupResponse
	if err := json.Unmarshal(env.Data, &setup); err != nil {
		t.Fatal(err)
	}
	if len(setup.Instructions) != 1 || setup.LastValidBlockHeight != 1234 {
		t.Errorf("unexpected setup: %+v", setup)
	}
	if setup.Instructions[0].ProgramID != common.ATAProgramID.String() {
		t.Errorf("setup instruction program = %s", setup.Instructions[0].ProgramID)
	}

	// the sponsor state moves on: validate flags the cache as stale
	s.loader.rc.Store(testRelayContext(2))
	code, env = s.do(t, gohttp.MethodGet, "/api/v1/relay/validate"+walletQuery, nil, "")
	if code != gohttp.StatusOK {
		t.Fatalf("validate: %d %s", code, env.Error)
	}
	var v ValidateResponse
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatal(err)
	}
	if v.Valid || !v.Stale {
		t.Errorf("validate = %+v, want stale", v)
	}

	if code, env := s.do(t, gohttp.MethodGet, planQuery("/api/v1/plan/setup", nil), nil, ""); code != gohttp.StatusConflict {
		t.Errorf("setup with stale context: %d %s, want 409", code, env.Error)
	}

	code, env = s.do(t, gohttp.MethodPost, "/api/v1/relay/update"+walletQuery, nil, "")
	if code != gohttp.StatusOK {
		t.Fatalf("update: %d %s", code, env.Error)
	}
	if err := json.Unmarshal(env.Data, &rc); err != nil {
		t.Fatal(err)
	}
	if rc.CurrentUsage != 2 {
		t.Errorf("update kept the old context: %+v", rc)
	}

	if code, env := s.do(t, gohttp.MethodGet, planQuery("/api/v1/plan/setup", nil), nil, ""); code != gohttp.StatusOK {
		t.Errorf("setup after update: %d %s", code, env.Error)
	}
}

func TestRelayRequiresWallet(t *testing.T) {
	s := newTestServer(t)
	if code, _ := s.do(t, gohttp.MethodGet, "/api/v1/relay/context?wallet=bad", nil, ""); code != gohttp.StatusBadRequest {
		t.Errorf("bad wallet: %d, want 400", code)
	}
}

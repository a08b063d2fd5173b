package http

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/http/httputil"
	"github.com/hxuan190/relay-swap/internal/services/builder"
	"github.com/hxuan190/relay-swap/internal/services/planner"
	"github.com/hxuan190/relay-swap/internal/services/router"
)

// PlanBackend is what the plan routes need from the planner service.
type PlanBackend interface {
	Session(owner solana.PublicKey) *planner.Session
	Planner() *planner.Planner
	Defaults() planner.DefaultsStore
	DefaultSlippageBps() uint16
}

// BlockhashSource supplies a recent blockhash for setup transactions.
type BlockhashSource interface {
	GetBlockhash(ctx context.Context) (solana.Hash, uint64, error)
}

type PlanHandler struct {
	backend   PlanBackend
	blockhash BlockhashSource
}

func NewPlanHandler(backend PlanBackend, blockhash BlockhashSource) *PlanHandler {
	return &PlanHandler{backend: backend, blockhash: blockhash}
}

func (h *PlanHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getPlan)
	pub.GET("/setup", h.getSetup)
}

func (h *PlanHandler) Root() string {
	return "/plan"
}

// PlanRequest represents the parameters for planning a fee-relayed swap
type PlanRequest struct {
	// Wallet that signs the swap (Solana base58 public key)
	Wallet string `form:"wallet" binding:"required" example:"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"`

	// Input token mint address
	InputMint string `form:"inputMint" binding:"required" example:"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"`

	// Output token mint address
	OutputMint string `form:"outputMint" binding:"required" example:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`

	// Amount in smallest token units. Exact input for ExactIn, desired output for ExactOut
	Amount string `form:"amount" binding:"required" example:"1000000"`

	// Swap mode. Falls back to the wallet defaults, then ExactIn
	SwapMode string `form:"swapMode" enums:"ExactIn,ExactOut" example:"ExactIn"`

	// Slippage tolerance in basis points. Falls back to the wallet defaults, then the server default
	SlippageBps string `form:"slippageBps" example:"50"`

	// Existing token account to receive into (optional)
	Destination string `form:"destination" example:""`
}

// HopInfo describes one pool along the chosen path
type HopInfo struct {
	PoolAddress string `json:"poolAddress"`
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	AmountIn    string `json:"amountIn"`
	AmountOut   string `json:"amountOut"`
}

// AccountInfo is an account the swap transaction creates
type AccountInfo struct {
	Address string `json:"address"`
	Mint    string `json:"mint,omitempty"`
	// One of destination, transit, relay, wrappedNative
	Kind string `json:"kind" enums:"destination,transit,relay,wrappedNative"`
	// Rent-exempt deposit in lamports
	Rent string `json:"rent"`
}

// FeeInfo is the cost on top of the swap, in lamports
type FeeInfo struct {
	AccountCreation string `json:"accountCreation"`
	NetworkFee      string `json:"networkFee"`
	Total           string `json:"total"`
}

// PlanResponse contains the fee-aware swap plan
type PlanResponse struct {
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	SwapMode   string `json:"swapMode" enums:"ExactIn,ExactOut"`

	AmountIn  string `json:"amountIn" example:"1000000"`
	AmountOut string `json:"amountOut" example:"998000"`

	// Minimum output the swap instruction accepts after slippage
	MinimumOutput string `json:"minimumOutput" example:"993010"`

	// Maximum input after slippage, ExactOut only
	MaximumInput string `json:"maximumInput,omitempty"`

	SlippageBps         uint16 `json:"slippageBps" example:"50"`
	PriceImpactBps      uint16 `json:"priceImpactBps" example:"25"`
	PriceImpactPercent  string `json:"priceImpactPercent" example:"0.25%"`
	PriceImpactSeverity string `json:"priceImpactSeverity" enums:"none,low,moderate,high,extreme"`
	PriceImpactWarning  string `json:"priceImpactWarning"`

	Hops      []HopInfo `json:"hops"`
	RoutePath []string  `json:"routePath"`
	HopCount  int       `json:"hopCount" example:"1"`

	Destination           string `json:"destination"`
	DestinationOwner      string `json:"destinationOwner"`
	NeedCreateDestination bool   `json:"needCreateDestination"`
	IsNativeWrap          bool   `json:"isNativeWrap"`
	Transit               string `json:"transit,omitempty"`

	AccountsToCreate []AccountInfo `json:"accountsToCreate"`
	Fees             FeeInfo       `json:"fees"`

	// Whether the fee relayer sponsors this transaction
	UsesSponsor bool   `json:"usesSponsor"`
	FeePayer    string `json:"feePayer"`
}

// InstructionInfo is one serialized setup instruction
type InstructionInfo struct {
	ProgramID string        `json:"programId"`
	Accounts  []AccountMeta `json:"accounts"`
	// Base64 instruction data
	Data string `json:"data"`
}

type AccountMeta struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

// SetupResponse contains a submittable plan and the instructions creating its token accounts
type SetupResponse struct {
	Plan                 PlanResponse      `json:"plan"`
	Instructions         []InstructionInfo `json:"instructions"`
	RecentBlockhash      string            `json:"recentBlockhash"`
	LastValidBlockHeight uint64            `json:"lastValidBlockHeight"`
}

func (h *PlanHandler) parsePlanRequest(c *gin.Context) (domain.PlanRequest, bool) {
	var req PlanRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.HandleBadRequest(c, "invalid query parameters: "+err.Error())
		return domain.PlanRequest{}, false
	}

	owner, err := solana.PublicKeyFromBase58(req.Wallet)
	if err != nil {
		httputil.HandleBadRequest(c, "invalid wallet address")
		return domain.PlanRequest{}, false
	}
	inputMint, err := solana.PublicKeyFromBase58(req.InputMint)
	if err != nil {
		httputil.HandleBadRequest(c, "invalid inputMint address")
		return domain.PlanRequest{}, false
	}
	outputMint, err := solana.PublicKeyFromBase58(req.OutputMint)
	if err != nil {
		httputil.HandleBadRequest(c, "invalid outputMint address")
		return domain.PlanRequest{}, false
	}
	amount, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil || amount == 0 {
		httputil.HandleBadRequest(c, "invalid amount: must be a positive integer")
		return domain.PlanRequest{}, false
	}

	out := domain.PlanRequest{
		Owner:           owner,
		SourceMint:      inputMint,
		DestinationMint: outputMint,
		Amount:          amount,
	}

	if req.Destination != "" {
		destination, err := solana.PublicKeyFromBase58(req.Destination)
		if err != nil {
			httputil.HandleBadRequest(c, "invalid destination address")
			return domain.PlanRequest{}, false
		}
		out.Destination = &destination
	}

	defaults := h.walletDefaults(c.Request.Context(), owner)

	out.Mode = defaults.Mode
	if req.SwapMode != "" {
		mode, ok := domain.ParseSwapMode(req.SwapMode)
		if !ok {
			httputil.HandleBadRequest(c, "invalid swapMode: must be ExactIn or ExactOut")
			return domain.PlanRequest{}, false
		}
		out.Mode = mode
	}

	out.SlippageBps = defaults.SlippageBps
	if req.SlippageBps != "" {
		bps, err := strconv.ParseUint(req.SlippageBps, 10, 16)
		if err != nil {
			httputil.HandleBadRequest(c, "invalid slippageBps")
			return domain.PlanRequest{}, false
		}
		out.SlippageBps = uint16(bps)
	}
	return out, true
}

// walletDefaults falls back to the server defaults when the wallet has none or the store fails.
func (h *PlanHandler) walletDefaults(ctx context.Context, owner solana.PublicKey) domain.SwapDefaults {
	fallback := domain.SwapDefaults{SlippageBps: h.backend.DefaultSlippageBps(), Mode: domain.SwapModeExactIn}
	store := h.backend.Defaults()
	if store == nil {
		return fallback
	}
	d, ok, err := store.GetDefaults(ctx, owner)
	if err != nil {
		log.Warn().Err(err).Str("wallet", owner.String()).Msg("failed to read swap defaults")
		return fallback
	}
	if !ok {
		return fallback
	}
	return d
}

// @Summary Plan a fee-relayed swap
// @Description Finds the best direct or two-hop route, resolves the token accounts the swap must create
// @Description and prices the transaction with the wallet's fee relayer context.
// @Description A newer plan request for the same wallet supersedes one still in flight.
// @Tags plan
// @Produce json
// @Param wallet query string true "Wallet address"
// @Param inputMint query string true "Input token mint address"
// @Param outputMint query string true "Output token mint address"
// @Param amount query string true "Amount in smallest token units"
// @Param swapMode query string false "Swap mode" Enums(ExactIn, ExactOut)
// @Param slippageBps query int false "Slippage tolerance in basis points"
// @Param destination query string false "Existing destination token account"
// @Success 200 {object} PlanResponse
// @Failure 400 {object} httputil.Response "Invalid request parameters"
// @Failure 404 {object} httputil.Response "No route or insufficient liquidity"
// @Failure 409 {object} httputil.Response "Superseded by a newer request"
// @Failure 503 {object} httputil.Response "Fee relayer or account data unavailable"
// @Router /api/v1/plan [get]
func (h *PlanHandler) getPlan(c *gin.Context) {
	req, ok := h.parsePlanRequest(c)
	if !ok {
		return
	}

	plan, err := h.backend.Session(req.Owner).Plan(c.Request.Context(), req)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	httputil.HandleSuccess(c, buildPlanResponse(plan))
}

// @Summary Plan a swap and build its account setup instructions
// @Description Same as /plan, then checks the relay context is still current and returns the
// @Description idempotent token account creations with a recent blockhash.
// @Tags plan
// @Produce json
// @Param wallet query string true "Wallet address"
// @Param inputMint query string true "Input token mint address"
// @Param outputMint query string true "Output token mint address"
// @Param amount query string true "Amount in smallest token units"
// @Param swapMode query string false "Swap mode" Enums(ExactIn, ExactOut)
// @Param slippageBps query int false "Slippage tolerance in basis points"
// @Param destination query string false "Existing destination token account"
// @Success 200 {object} SetupResponse
// @Failure 409 {object} httputil.Response "Relay context is stale, update it first"
// @Router /api/v1/plan/setup [get]
func (h *PlanHandler) getSetup(c *gin.Context) {
	req, ok := h.parsePlanRequest(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	plan, err := h.backend.Session(req.Owner).Plan(ctx, req)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	if err := h.backend.Planner().CheckSubmittable(plan, req.Owner); err != nil {
		httputil.HandleError(c, err)
		return
	}

	blockhash, lastValid, err := h.blockhash.GetBlockhash(ctx)
	if err != nil {
		httputil.HandleHttpError(c, common.HTTPErrorUnavailable("recent blockhash unavailable"))
		return
	}

	payer := req.Owner
	if plan.UsesSponsor {
		payer = plan.RelayContext.FeePayerAddress
	}
	ixs, err := encodeInstructions(builder.SetupInstructions(plan, payer, req.Owner))
	if err != nil {
		httputil.HandleError(c, err)
		return
	}

	httputil.HandleSuccess(c, SetupResponse{
		Plan:                 buildPlanResponse(plan),
		Instructions:         ixs,
		RecentBlockhash:      blockhash.String(),
		LastValidBlockHeight: lastValid,
	})
}

func encodeInstructions(ixs []solana.Instruction) ([]InstructionInfo, error) {
	out := make([]InstructionInfo, 0, len(ixs))
	for _, ix := range ixs {
		data, err := ix.Data()
		if err != nil {
			return nil, fmt.Errorf("encode instruction: %w", err)
		}
		metas := make([]AccountMeta, 0, len(ix.Accounts()))
		for _, m := range ix.Accounts() {
			metas = append(metas, AccountMeta{Pubkey: m.PublicKey.String(), IsSigner: m.IsSigner, IsWritable: m.IsWritable})
		}
		out = append(out, InstructionInfo{
			ProgramID: ix.ProgramID().String(),
			Accounts:  metas,
			Data:      base64.StdEncoding.EncodeToString(data),
		})
	}
	return out, nil
}

func buildPlanResponse(plan *domain.SwapPlan) PlanResponse {
	hops := make([]HopInfo, 0, len(plan.Hops))
	for _, hop := range plan.Hops {
		hops = append(hops, HopInfo{
			PoolAddress: hop.Pool.Address.String(),
			InputMint:   hop.InputMint.String(),
			OutputMint:  hop.OutputMint.String(),
			AmountIn:    strconv.FormatUint(hop.AmountIn, 10),
			AmountOut:   strconv.FormatUint(hop.AmountOut, 10),
		})
	}

	path := plan.PoolsPair.Hops()
	routePath := make([]string, 0, len(path))
	for _, mint := range path {
		routePath = append(routePath, mint.String())
	}

	accounts := make([]AccountInfo, 0, len(plan.Creations))
	for _, a := range plan.Creations {
		info := AccountInfo{
			Address: a.Address.String(),
			Kind:    a.Kind.String(),
			Rent:    strconv.FormatUint(a.Rent, 10),
		}
		if !a.Mint.IsZero() {
			info.Mint = a.Mint.String()
		}
		accounts = append(accounts, info)
	}

	resp := PlanResponse{
		InputMint:             plan.PoolsPair.Source.String(),
		OutputMint:            plan.PoolsPair.Destination.String(),
		SwapMode:              plan.Mode.String(),
		AmountIn:              strconv.FormatUint(plan.InputAmount, 10),
		AmountOut:             strconv.FormatUint(plan.OutputAmount, 10),
		MinimumOutput:         strconv.FormatUint(plan.MinimumOutput, 10),
		SlippageBps:           plan.SlippageBps,
		PriceImpactBps:        plan.PriceImpactBps,
		PriceImpactPercent:    fmt.Sprintf("%.2f%%", float64(plan.PriceImpactBps)/100.0),
		PriceImpactSeverity:   string(router.GetPriceImpactSeverity(plan.PriceImpactBps)),
		PriceImpactWarning:    router.GetPriceImpactWarning(plan.PriceImpactBps),
		Hops:                  hops,
		RoutePath:             routePath,
		HopCount:              len(plan.Hops),
		Destination:           plan.Destination.Destination.String(),
		DestinationOwner:      plan.Destination.DestinationOwner.String(),
		NeedCreateDestination: plan.Destination.NeedCreateDestination,
		IsNativeWrap:          plan.Destination.IsNativeWrap,
		AccountsToCreate:      accounts,
		Fees: FeeInfo{
			AccountCreation: strconv.FormatUint(plan.Fees.AccountCreation, 10),
			NetworkFee:      strconv.FormatUint(plan.Fees.NetworkFee, 10),
			Total:           strconv.FormatUint(plan.Fees.Total, 10),
		},
		UsesSponsor: plan.UsesSponsor,
	}
	if plan.Mode == domain.SwapModeExactOut {
		resp.MaximumInput = strconv.FormatUint(plan.MaximumInput, 10)
	}
	if plan.Transit != nil {
		resp.Transit = plan.Transit.Address.String()
	}
	if plan.RelayContext != nil {
		resp.FeePayer = plan.RelayContext.FeePayerAddress.String()
	}
	return resp
}

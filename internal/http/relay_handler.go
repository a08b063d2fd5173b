package http

import (
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/http/httputil"
	"github.com/hxuan190/relay-swap/internal/services/relay"
)

// ContextManagers hands out the per-wallet relay context managers.
type ContextManagers interface {
	Manager(owner solana.PublicKey) *relay.ContextManager
}

type RelayHandler struct {
	managers ContextManagers
}

func NewRelayHandler(managers ContextManagers) *RelayHandler {
	return &RelayHandler{managers: managers}
}

func (h *RelayHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/context", h.getContext)
	pub.POST("/update", h.update)
	pub.GET("/validate", h.validate)
}

func (h *RelayHandler) Root() string {
	return "/relay"
}

// RelayContextResponse is the fee relayer state used to price a wallet's swaps
type RelayContextResponse struct {
	Wallet                     string `json:"wallet"`
	FeePayer                   string `json:"feePayer"`
	MinimumTokenAccountBalance string `json:"minimumTokenAccountBalance" example:"2039280"`
	MinimumRelayAccountBalance string `json:"minimumRelayAccountBalance" example:"890880"`
	LamportsPerSignature       string `json:"lamportsPerSignature" example:"5000"`

	RelayAccount        string `json:"relayAccount"`
	RelayAccountState   string `json:"relayAccountState" enums:"notYetCreated,created"`
	RelayAccountBalance string `json:"relayAccountBalance"`

	CurrentUsage uint64 `json:"currentUsage" example:"3"`
	MaxUsage     uint64 `json:"maxUsage" example:"100"`
	AmountUsed   string `json:"amountUsed"`
	MaxAmount    string `json:"maxAmount"`
	// Whether the sponsor still has free transactions left in this window
	SponsorAvailable bool `json:"sponsorAvailable"`
}

// ValidateResponse reports whether the cached relay context is still current
type ValidateResponse struct {
	Valid bool `json:"valid"`
	Stale bool `json:"stale"`
}

func walletParam(c *gin.Context) (solana.PublicKey, bool) {
	wallet, err := solana.PublicKeyFromBase58(c.Query("wallet"))
	if err != nil {
		httputil.HandleBadRequest(c, "invalid wallet address")
		return solana.PublicKey{}, false
	}
	return wallet, true
}

// @Summary Get the relay context
// @Description Returns the cached fee relayer context of a wallet, loading it on first use.
// @Tags relay
// @Produce json
// @Param wallet query string true "Wallet address"
// @Success 200 {object} RelayContextResponse
// @Failure 503 {object} httputil.Response "Fee relayer unavailable"
// @Router /api/v1/relay/context [get]
func (h *RelayHandler) getContext(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	rc, err := h.managers.Manager(wallet).GetCurrentContext(c.Request.Context())
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	httputil.HandleSuccess(c, buildRelayContextResponse(rc))
}

// @Summary Reload the relay context
// @Description Fetches a fresh context and replaces the cached one. Clears a stale flag set by validate.
// @Tags relay
// @Produce json
// @Param wallet query string true "Wallet address"
// @Success 200 {object} RelayContextResponse
// @Failure 503 {object} httputil.Response "Fee relayer unavailable, the previous context is kept"
// @Router /api/v1/relay/update [post]
func (h *RelayHandler) update(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	manager := h.managers.Manager(wallet)
	if err := manager.Update(c.Request.Context()); err != nil {
		httputil.HandleError(c, err)
		return
	}
	httputil.HandleSuccess(c, buildRelayContextResponse(manager.Cached()))
}

// @Summary Validate the relay context
// @Description Compares a fresh fetch with the cached context. A mismatch marks it stale until the next update.
// @Tags relay
// @Produce json
// @Param wallet query string true "Wallet address"
// @Success 200 {object} ValidateResponse
// @Router /api/v1/relay/validate [get]
func (h *RelayHandler) validate(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	manager := h.managers.Manager(wallet)
	valid, err := manager.Validate(c.Request.Context())
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	httputil.HandleSuccess(c, ValidateResponse{Valid: valid, Stale: manager.IsStale()})
}

func buildRelayContextResponse(rc *domain.RelayContext) RelayContextResponse {
	return RelayContextResponse{
		Wallet:                     rc.Owner.String(),
		FeePayer:                   rc.FeePayerAddress.String(),
		MinimumTokenAccountBalance: strconv.FormatUint(rc.MinimumTokenAccountBalance, 10),
		MinimumRelayAccountBalance: strconv.FormatUint(rc.MinimumRelayAccountBalance, 10),
		LamportsPerSignature:       strconv.FormatUint(rc.LamportsPerSignature, 10),
		RelayAccount:               rc.RelayAccountStatus.Address.String(),
		RelayAccountState:          rc.RelayAccountStatus.State.String(),
		RelayAccountBalance:        strconv.FormatUint(rc.RelayAccountStatus.Balance, 10),
		CurrentUsage:               rc.UsageStatus.CurrentUsage,
		MaxUsage:                   rc.UsageStatus.MaxUsage,
		AmountUsed:                 strconv.FormatUint(rc.UsageStatus.AmountUsed, 10),
		MaxAmount:                  strconv.FormatUint(rc.UsageStatus.MaxAmount, 10),
		SponsorAvailable:           !rc.UsageStatus.Exhausted(),
	}
}

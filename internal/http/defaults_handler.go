package http

import (
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/relay-swap/internal/adapters/cache"
	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/http/httputil"
)

type DefaultsHandler struct {
	backend PlanBackend
}

func NewDefaultsHandler(backend PlanBackend) *DefaultsHandler {
	return &DefaultsHandler{backend: backend}
}

func (h *DefaultsHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/:wallet", h.getDefaults)
	pub.PUT("/:wallet", h.putDefaults)
}

func (h *DefaultsHandler) Root() string {
	return "/defaults"
}

// DefaultsBody is a wallet's remembered swap preferences
type DefaultsBody struct {
	SlippageBps uint16 `json:"slippageBps" example:"50"`
	SwapMode    string `json:"swapMode" enums:"ExactIn,ExactOut" example:"ExactIn"`
}

// DefaultsResponse adds whether the values were stored for the wallet or are server defaults
type DefaultsResponse struct {
	DefaultsBody
	Stored bool `json:"stored"`
}

func (h *DefaultsHandler) store(c *gin.Context) (solana.PublicKey, bool) {
	wallet, err := solana.PublicKeyFromBase58(c.Param("wallet"))
	if err != nil {
		httputil.HandleBadRequest(c, "invalid wallet address")
		return solana.PublicKey{}, false
	}
	if h.backend.Defaults() == nil {
		httputil.HandleHttpError(c, common.HTTPErrorUnavailable("defaults store disabled"))
		return solana.PublicKey{}, false
	}
	return wallet, true
}

// @Summary Get swap defaults
// @Tags defaults
// @Produce json
// @Param wallet path string true "Wallet address"
// @Success 200 {object} DefaultsResponse
// @Router /api/v1/defaults/{wallet} [get]
func (h *DefaultsHandler) getDefaults(c *gin.Context) {
	wallet, ok := h.store(c)
	if !ok {
		return
	}
	d, stored, err := h.backend.Defaults().GetDefaults(c.Request.Context(), wallet)
	if err != nil {
		handleStoreError(c, err)
		return
	}
	if !stored {
		d = domain.SwapDefaults{SlippageBps: h.backend.DefaultSlippageBps(), Mode: domain.SwapModeExactIn}
	}
	httputil.HandleSuccess(c, DefaultsResponse{
		DefaultsBody: DefaultsBody{SlippageBps: d.SlippageBps, SwapMode: d.Mode.String()},
		Stored:       stored,
	})
}

// @Summary Store swap defaults
// @Tags defaults
// @Accept json
// @Produce json
// @Param wallet path string true "Wallet address"
// @Param body body DefaultsBody true "Defaults"
// @Success 200 {object} DefaultsResponse
// @Failure 400 {object} httputil.Response "Invalid slippage or swap mode"
// @Router /api/v1/defaults/{wallet} [put]
func (h *DefaultsHandler) putDefaults(c *gin.Context) {
	wallet, ok := h.store(c)
	if !ok {
		return
	}
	var body DefaultsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httputil.HandleBadRequest(c, "invalid body: "+err.Error())
		return
	}
	if uint64(body.SlippageBps) >= common.BpsDenominator {
		httputil.HandleError(c, common.ErrInvalidSlippage)
		return
	}
	mode, ok := domain.ParseSwapMode(body.SwapMode)
	if !ok {
		httputil.HandleBadRequest(c, "invalid swapMode: must be ExactIn or ExactOut")
		return
	}

	d := domain.SwapDefaults{SlippageBps: body.SlippageBps, Mode: mode}
	if err := h.backend.Defaults().SetDefaults(c.Request.Context(), wallet, d); err != nil {
		handleStoreError(c, err)
		return
	}
	httputil.HandleSuccess(c, DefaultsResponse{
		DefaultsBody: DefaultsBody{SlippageBps: d.SlippageBps, SwapMode: d.Mode.String()},
		Stored:       true,
	})
}

func handleStoreError(c *gin.Context, err error) {
	if errors.Is(err, cache.ErrDisabled) {
		httputil.HandleHttpError(c, common.HTTPErrorUnavailable("defaults store disabled"))
		return
	}
	httputil.HandleHttpError(c, common.HTTPErrorInternalError("defaults store failed"))
}

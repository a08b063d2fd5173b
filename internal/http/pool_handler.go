package http

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/http/httputil"
)

// PoolCatalog is the pool snapshot the planner routes over.
type PoolCatalog interface {
	ListPools(ctx context.Context) ([]domain.Pool, error)
	Replace(pools []domain.Pool) error
}

type PoolHandler struct {
	pools PoolCatalog
}

func NewPoolHandler(pools PoolCatalog) *PoolHandler {
	return &PoolHandler{pools: pools}
}

func (h *PoolHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/stats", h.getStats)
	pub.GET("/list", h.listPools)
	admin.PUT("", h.replacePools)
}

func (h *PoolHandler) Root() string {
	return "/pools"
}

// PoolStatsResponse contains statistics about the current pool snapshot
type PoolStatsResponse struct {
	// Number of pools in the snapshot
	PoolCount int `json:"pool_count" example:"120"`

	// Number of distinct mints across all pools
	TokenCount int `json:"token_count" example:"64"`
}

// PoolBody is one constant-product pool. Reserves are strings to keep 64-bit precision in JSON
type PoolBody struct {
	Address        string `json:"address" binding:"required"`
	ProgramID      string `json:"programId"`
	TokenMintA     string `json:"tokenMintA" binding:"required"`
	TokenMintB     string `json:"tokenMintB" binding:"required"`
	TokenVaultA    string `json:"tokenVaultA"`
	TokenVaultB    string `json:"tokenVaultB"`
	ReserveA       string `json:"reserveA" binding:"required" example:"1000000000"`
	ReserveB       string `json:"reserveB" binding:"required" example:"25000000"`
	FeeNumerator   uint64 `json:"feeNumerator" example:"25"`
	FeeDenominator uint64 `json:"feeDenominator" example:"10000"`
}

// ReplacePoolsRequest is a complete pool snapshot
type ReplacePoolsRequest struct {
	Pools []PoolBody `json:"pools"`
}

// PoolListResponse contains the pools of the current snapshot
type PoolListResponse struct {
	Pools []PoolBody `json:"pools"`
	Total int        `json:"total" example:"120"`
}

// @Summary Pool snapshot statistics
// @Tags pools
// @Produce json
// @Success 200 {object} PoolStatsResponse
// @Failure 503 {object} httputil.Response "No snapshot yet"
// @Router /api/v1/pools/stats [get]
func (h *PoolHandler) getStats(c *gin.Context) {
	pools, err := h.pools.ListPools(c.Request.Context())
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	mints := make(map[solana.PublicKey]struct{}, 2*len(pools))
	for i := range pools {
		mints[pools[i].TokenMintA] = struct{}{}
		mints[pools[i].TokenMintB] = struct{}{}
	}
	httputil.HandleSuccess(c, PoolStatsResponse{PoolCount: len(pools), TokenCount: len(mints)})
}

// @Summary List pools
// @Tags pools
// @Produce json
// @Success 200 {object} PoolListResponse
// @Failure 503 {object} httputil.Response "No snapshot yet"
// @Router /api/v1/pools/list [get]
func (h *PoolHandler) listPools(c *gin.Context) {
	pools, err := h.pools.ListPools(c.Request.Context())
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	out := make([]PoolBody, 0, len(pools))
	for i := range pools {
		out = append(out, toPoolBody(&pools[i]))
	}
	httputil.HandleSuccess(c, PoolListResponse{Pools: out, Total: len(out)})
}

// @Summary Replace the pool snapshot
// @Description Installs a complete pool snapshot. One invalid pool rejects the whole request.
// @Tags pools
// @Accept json
// @Produce json
// @Param body body ReplacePoolsRequest true "Pool snapshot"
// @Success 200 {object} PoolStatsResponse
// @Failure 422 {object} httputil.Response "Invalid pool"
// @Router /api/v1/admin/pools [put]
func (h *PoolHandler) replacePools(c *gin.Context) {
	var req ReplacePoolsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequest(c, "invalid body: "+err.Error())
		return
	}

	pools := make([]domain.Pool, 0, len(req.Pools))
	for i := range req.Pools {
		pool, err := fromPoolBody(&req.Pools[i])
		if err != nil {
			httputil.HandleHttpError(c, common.HTTPErrorUnprocessable(fmt.Sprintf("pool %d: %v", i, err)))
			return
		}
		pools = append(pools, pool)
	}
	if err := h.pools.Replace(pools); err != nil {
		httputil.HandleHttpError(c, common.HTTPErrorUnprocessable(err.Error()))
		return
	}
	h.getStats(c)
}

func toPoolBody(p *domain.Pool) PoolBody {
	return PoolBody{
		Address:        p.Address.String(),
		ProgramID:      p.ProgramID.String(),
		TokenMintA:     p.TokenMintA.String(),
		TokenMintB:     p.TokenMintB.String(),
		TokenVaultA:    p.TokenVaultA.String(),
		TokenVaultB:    p.TokenVaultB.String(),
		ReserveA:       strconv.FormatUint(p.ReserveA, 10),
		ReserveB:       strconv.FormatUint(p.ReserveB, 10),
		FeeNumerator:   p.FeeNumerator,
		FeeDenominator: p.FeeDenominator,
	}
}

func fromPoolBody(b *PoolBody) (domain.Pool, error) {
	var (
		p   domain.Pool
		err error
	)
	if p.Address, err = solana.PublicKeyFromBase58(b.Address); err != nil {
		return p, fmt.Errorf("address: %w", err)
	}
	if p.TokenMintA, err = solana.PublicKeyFromBase58(b.TokenMintA); err != nil {
		return p, fmt.Errorf("tokenMintA: %w", err)
	}
	if p.TokenMintB, err = solana.PublicKeyFromBase58(b.TokenMintB); err != nil {
		return p, fmt.Errorf("tokenMintB: %w", err)
	}
	for _, opt := range []struct {
		name string
		raw  string
		dst  *solana.PublicKey
	}{
		{"programId", b.ProgramID, &p.ProgramID},
		{"tokenVaultA", b.TokenVaultA, &p.TokenVaultA},
		{"tokenVaultB", b.TokenVaultB, &p.TokenVaultB},
	} {
		if opt.raw == "" {
			continue
		}
		if *opt.dst, err = solana.PublicKeyFromBase58(opt.raw); err != nil {
			return p, fmt.Errorf("%s: %w", opt.name, err)
		}
	}
	if p.ReserveA, err = strconv.ParseUint(b.ReserveA, 10, 64); err != nil {
		return p, fmt.Errorf("reserveA: %w", err)
	}
	if p.ReserveB, err = strconv.ParseUint(b.ReserveB, 10, 64); err != nil {
		return p, fmt.Errorf("reserveB: %w", err)
	}
	p.FeeNumerator = b.FeeNumerator
	p.FeeDenominator = b.FeeDenominator
	return p, nil
}

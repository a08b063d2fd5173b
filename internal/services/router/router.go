package router

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/metrics"
)

// RouteQuote is a candidate path with the amounts computed along it.
type RouteQuote struct {
	PoolsPair domain.PoolsPair
	Hops      []domain.HopQuote
	AmountIn  uint64
	AmountOut uint64
}

// QuoteExactIn chains OutputAmount through the path. ok is false when any hop cannot trade.
func QuoteExactIn(pp domain.PoolsPair, inputAmount uint64) (*RouteQuote, bool) {
	if !pp.Valid() || inputAmount == 0 {
		return nil, false
	}
	hops := make([]domain.HopQuote, len(pp.Pools))
	mint := pp.Source
	amount := inputAmount
	for i, pool := range pp.Pools {
		out, ok := OutputAmount(pool, amount, pool.AToB(mint))
		if !ok {
			return nil, false
		}
		next := pool.Other(mint)
		hops[i] = domain.HopQuote{Pool: pool, InputMint: mint, OutputMint: next, AmountIn: amount, AmountOut: out}
		mint, amount = next, out
	}
	return &RouteQuote{PoolsPair: pp, Hops: hops, AmountIn: inputAmount, AmountOut: amount}, true
}

// QuoteExactOut runs InputAmount backward from the destination. ok is false when any hop cannot deliver.
func QuoteExactOut(pp domain.PoolsPair, desiredOutput uint64) (*RouteQuote, bool) {
	if !pp.Valid() || desiredOutput == 0 {
		return nil, false
	}
	hops := make([]domain.HopQuote, len(pp.Pools))
	mint := pp.Destination
	amount := desiredOutput
	for i := len(pp.Pools) - 1; i >= 0; i-- {
		pool := pp.Pools[i]
		prev := pool.Other(mint)
		in, ok := InputAmount(pool, amount, pool.AToB(prev))
		if !ok {
			return nil, false
		}
		hops[i] = domain.HopQuote{Pool: pool, InputMint: prev, OutputMint: mint, AmountIn: in, AmountOut: amount}
		mint, amount = prev, in
	}
	return &RouteQuote{PoolsPair: pp, Hops: hops, AmountIn: amount, AmountOut: desiredOutput}, true
}

// BestPoolsPairForInput picks the candidate with the largest final output.
// Ties keep the earliest candidate. Nil when no candidate can trade.
func BestPoolsPairForInput(inputAmount uint64, candidates []domain.PoolsPair) *RouteQuote {
	var best *RouteQuote
	for _, pp := range candidates {
		quote, ok := QuoteExactIn(pp, inputAmount)
		if !ok {
			continue
		}
		if best == nil || quote.AmountOut > best.AmountOut {
			best = quote
		}
	}
	return best
}

// BestPoolsPairForEstimatedOutput picks the candidate needing the smallest input for estimatedOutput.
// A candidate with any infeasible hop is discarded whole. Ties keep the earliest candidate.
func BestPoolsPairForEstimatedOutput(estimatedOutput uint64, candidates []domain.PoolsPair) *RouteQuote {
	var best *RouteQuote
	for _, pp := range candidates {
		quote, ok := QuoteExactOut(pp, estimatedOutput)
		if !ok {
			continue
		}
		if best == nil || quote.AmountIn < best.AmountIn {
			best = quote
		}
	}
	return best
}

type Router struct {
	Graph *PoolGraph
}

func NewRouter(graph *PoolGraph) *Router {
	return &Router{Graph: graph}
}

// BestRoute enumerates candidates and selects by mode. It returns the number of candidates seen
// so callers can tell "no path" (0) from "no path with enough liquidity" (> 0).
func (r *Router) BestRoute(source, destination solana.PublicKey, amount uint64, mode domain.SwapMode) (*RouteQuote, int) {
	start := time.Now()
	defer func() {
		metrics.RouteSearchDuration.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
	}()

	candidates := r.Graph.FindRoutesForPair(source, destination)
	metrics.RouteCandidates.Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		return nil, 0
	}

	if mode == domain.SwapModeExactOut {
		return BestPoolsPairForEstimatedOutput(amount, candidates), len(candidates)
	}
	return BestPoolsPairForInput(amount, candidates), len(candidates)
}

package router

import (
	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/relay-swap/internal/domain"
)

// MaxHops bounds route length. Deeper paths are not searched.
const MaxHops = 2

// FindRoutesForPair enumerates every 1-hop path followed by every 2-hop path from source to destination.
// The returned slice is shared by later calls for the same pair and must not be modified.
func (g *PoolGraph) FindRoutesForPair(source, destination solana.PublicKey) []domain.PoolsPair {
	if source.Equals(destination) {
		return nil
	}
	key := edgeKey{from: source, to: destination}

	g.routesMu.Lock()
	defer g.routesMu.Unlock()
	if cached, ok := g.routes[key]; ok {
		return cached
	}

	var routes []domain.PoolsPair
	for _, pool := range g.edges[key] {
		routes = append(routes, domain.PoolsPair{
			Pools:       []*domain.Pool{pool},
			Source:      source,
			Destination: destination,
		})
	}

	for _, transit := range g.neighbors[source] {
		if transit.Equals(destination) {
			continue
		}
		second := g.edges[edgeKey{from: transit, to: destination}]
		if len(second) == 0 {
			continue
		}
		for _, first := range g.edges[edgeKey{from: source, to: transit}] {
			for _, last := range second {
				routes = append(routes, domain.PoolsPair{
					Pools:       []*domain.Pool{first, last},
					Source:      source,
					Destination: destination,
				})
			}
		}
	}

	g.routes[key] = routes
	return routes
}

// FindRoutesForPair is a convenience wrapper for one-off searches over a pool list.
func FindRoutesForPair(source, destination solana.PublicKey, pools []domain.Pool) []domain.PoolsPair {
	return NewPoolGraph(pools).FindRoutesForPair(source, destination)
}

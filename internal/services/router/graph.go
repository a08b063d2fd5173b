package router

import (
	"sync"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/metrics"
)

// FNV-1a constants for zero-allocation hashing
const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

type edgeKey struct {
	from solana.PublicKey
	to   solana.PublicKey
}

// PoolGraph is an immutable token graph built from one pool snapshot.
// Neighbor and pool order follow the order of the snapshot so route enumeration is deterministic.
type PoolGraph struct {
	pools       []*domain.Pool
	neighbors   map[solana.PublicKey][]solana.PublicKey
	edges       map[edgeKey][]*domain.Pool
	fingerprint uint64

	routesMu sync.Mutex
	routes   map[edgeKey][]domain.PoolsPair
}

// NewPoolGraph indexes pools by the mints they connect. Pools that trade a mint against itself are skipped.
func NewPoolGraph(pools []domain.Pool) *PoolGraph {
	g := &PoolGraph{
		pools:       make([]*domain.Pool, 0, len(pools)),
		neighbors:   make(map[solana.PublicKey][]solana.PublicKey),
		edges:       make(map[edgeKey][]*domain.Pool),
		fingerprint: Fingerprint(pools),
		routes:      make(map[edgeKey][]domain.PoolsPair),
	}

	for i := range pools {
		pool := pools[i]
		if pool.TokenMintA.Equals(pool.TokenMintB) {
			continue
		}
		p := &pool
		g.pools = append(g.pools, p)
		g.addEdge(p.TokenMintA, p.TokenMintB, p)
		g.addEdge(p.TokenMintB, p.TokenMintA, p)
	}
	return g
}

func (g *PoolGraph) addEdge(from, to solana.PublicKey, pool *domain.Pool) {
	key := edgeKey{from: from, to: to}
	if _, ok := g.edges[key]; !ok {
		g.neighbors[from] = append(g.neighbors[from], to)
	}
	g.edges[key] = append(g.edges[key], pool)
}

func (g *PoolGraph) Fingerprint() uint64 {
	return g.fingerprint
}

func (g *PoolGraph) PoolCount() int {
	return len(g.pools)
}

func (g *PoolGraph) TokenCount() int {
	return len(g.neighbors)
}

// GetDirectRoutesForPair returns pools trading source against destination in snapshot order.
func (g *PoolGraph) GetDirectRoutesForPair(source, destination solana.PublicKey) []*domain.Pool {
	return g.edges[edgeKey{from: source, to: destination}]
}

// Neighbors returns mints that share at least one pool with mint.
func (g *PoolGraph) Neighbors(mint solana.PublicKey) []solana.PublicKey {
	return g.neighbors[mint]
}

// Fingerprint hashes everything a quote depends on, so a changed reserve yields a new graph.
func Fingerprint(pools []domain.Pool) uint64 {
	h := uint64(fnvOffset64)
	hashKey := func(k solana.PublicKey) {
		for _, b := range k {
			h ^= uint64(b)
			h *= fnvPrime64
		}
	}
	hashU64 := func(v uint64) {
		for i := 0; i < 8; i++ {
			h ^= (v >> (i * 8)) & 0xFF
			h *= fnvPrime64
		}
	}
	for i := range pools {
		p := &pools[i]
		hashKey(p.Address)
		hashKey(p.TokenMintA)
		hashKey(p.TokenMintB)
		hashU64(p.ReserveA)
		hashU64(p.ReserveB)
		hashU64(p.FeeNumerator)
		hashU64(p.FeeDenominator)
	}
	hashU64(uint64(len(pools)))
	return h
}

// GraphCache keeps the graph of the latest pool snapshot. It is owned by one planner,
// there is no process-wide route state.
type GraphCache struct {
	mu      sync.Mutex
	current atomic.Pointer[PoolGraph]
}

func NewGraphCache() *GraphCache {
	return &GraphCache{}
}

// Get returns the cached graph when pools hash to the same fingerprint, otherwise rebuilds it.
func (c *GraphCache) Get(pools []domain.Pool) *PoolGraph {
	fp := Fingerprint(pools)
	if g := c.current.Load(); g != nil && g.fingerprint == fp {
		metrics.GraphCacheHits.Inc()
		return g
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if g := c.current.Load(); g != nil && g.fingerprint == fp {
		metrics.GraphCacheHits.Inc()
		return g
	}
	metrics.GraphRebuilds.Inc()
	g := NewPoolGraph(pools)
	c.current.Store(g)
	return g
}

package domain

import (
	"github.com/gagliardetto/solana-go"
)

// Pool is a read-only constant-product pool snapshot.
type Pool struct {
	Address        solana.PublicKey `json:"address"`
	ProgramID      solana.PublicKey `json:"programId"`
	TokenMintA     solana.PublicKey `json:"tokenMintA"`
	TokenMintB     solana.PublicKey `json:"tokenMintB"`
	TokenVaultA    solana.PublicKey `json:"tokenVaultA"`
	TokenVaultB    solana.PublicKey `json:"tokenVaultB"`
	ReserveA       uint64           `json:"reserveA"`
	ReserveB       uint64           `json:"reserveB"`
	FeeNumerator   uint64           `json:"feeNumerator"`
	FeeDenominator uint64           `json:"feeDenominator"`
}

// HasValidFee reports whether the fee fraction lies in [0, 1).
func (p *Pool) HasValidFee() bool {
	return p.FeeDenominator > 0 && p.FeeNumerator < p.FeeDenominator
}

// Connects reports whether the pool trades between the two mints in either direction.
func (p *Pool) Connects(x, y solana.PublicKey) bool {
	return (p.TokenMintA.Equals(x) && p.TokenMintB.Equals(y)) ||
		(p.TokenMintA.Equals(y) && p.TokenMintB.Equals(x))
}

// Has reports whether one side of the pool holds mint.
func (p *Pool) Has(mint solana.PublicKey) bool {
	return p.TokenMintA.Equals(mint) || p.TokenMintB.Equals(mint)
}

// Other returns the mint on the opposite side of mint.
func (p *Pool) Other(mint solana.PublicKey) solana.PublicKey {
	if p.TokenMintA.Equals(mint) {
		return p.TokenMintB
	}
	return p.TokenMintA
}

// Reserves returns (reserveIn, reserveOut) for a swap that sells inputMint.
func (p *Pool) Reserves(inputMint solana.PublicKey) (uint64, uint64) {
	if p.TokenMintA.Equals(inputMint) {
		return p.ReserveA, p.ReserveB
	}
	return p.ReserveB, p.ReserveA
}

// AToB reports whether selling inputMint moves the pool from side A to side B.
func (p *Pool) AToB(inputMint solana.PublicKey) bool {
	return p.TokenMintA.Equals(inputMint)
}

// PoolsPair is a path of one or two pools from Source to Destination.
type PoolsPair struct {
	Pools       []*Pool          `json:"pools"`
	Source      solana.PublicKey `json:"source"`
	Destination solana.PublicKey `json:"destination"`
}

// Transit returns the intermediate mint of a two-hop path.
func (pp PoolsPair) Transit() (solana.PublicKey, bool) {
	if len(pp.Pools) != 2 {
		return solana.PublicKey{}, false
	}
	return pp.Pools[0].Other(pp.Source), true
}

// Hops returns the input mint of every hop followed by the destination.
func (pp PoolsPair) Hops() []solana.PublicKey {
	mints := make([]solana.PublicKey, 0, len(pp.Pools)+1)
	current := pp.Source
	mints = append(mints, current)
	for _, p := range pp.Pools {
		current = p.Other(current)
		mints = append(mints, current)
	}
	return mints
}

// Valid checks the path shape: one or two pools, chained through a shared transit mint.
func (pp PoolsPair) Valid() bool {
	switch len(pp.Pools) {
	case 1:
		return pp.Pools[0].Connects(pp.Source, pp.Destination)
	case 2:
		if !pp.Pools[0].Has(pp.Source) || !pp.Pools[1].Has(pp.Destination) {
			return false
		}
		transit := pp.Pools[0].Other(pp.Source)
		return !transit.Equals(pp.Source) && !transit.Equals(pp.Destination) &&
			pp.Pools[1].Other(pp.Destination).Equals(transit)
	default:
		return false
	}
}

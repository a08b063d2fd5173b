package domain

import (
	"github.com/gagliardetto/solana-go"
)

type SwapMode uint8

const (
	SwapModeExactIn SwapMode = iota
	SwapModeExactOut
)

func (m SwapMode) String() string {
	switch m {
	case SwapModeExactIn:
		return "ExactIn"
	case SwapModeExactOut:
		return "ExactOut"
	default:
		return "UNKNOWN"
	}
}

// ParseSwapMode accepts "ExactIn" and "ExactOut".
func ParseSwapMode(s string) (SwapMode, bool) {
	switch s {
	case "ExactIn", "":
		return SwapModeExactIn, true
	case "ExactOut":
		return SwapModeExactOut, true
	default:
		return 0, false
	}
}

// PlanRequest describes one trade to plan.
type PlanRequest struct {
	Owner           solana.PublicKey
	SourceMint      solana.PublicKey
	DestinationMint solana.PublicKey
	// Amount is the exact input for ExactIn and the desired output for ExactOut.
	Amount      uint64
	Mode        SwapMode
	SlippageBps uint16
	// Destination is an existing token account the caller wants to receive into (optional).
	Destination *solana.PublicKey
}

// HopQuote is the amounts of one pool along the chosen path.
type HopQuote struct {
	Pool       *Pool            `json:"pool"`
	InputMint  solana.PublicKey `json:"inputMint"`
	OutputMint solana.PublicKey `json:"outputMint"`
	AmountIn   uint64           `json:"amountIn"`
	AmountOut  uint64           `json:"amountOut"`
}

// FeeEstimate is what the sponsor (or the user, without sponsorship) pays on top of the swap.
type FeeEstimate struct {
	AccountCreation uint64 `json:"accountCreation"`
	NetworkFee      uint64 `json:"networkFee"`
	Total           uint64 `json:"total"`
}

// SwapPlan is built fresh for every planning call.
type SwapPlan struct {
	PoolsPair      PoolsPair           `json:"poolsPair"`
	Hops           []HopQuote          `json:"hops"`
	Mode           SwapMode            `json:"mode"`
	InputAmount    uint64              `json:"inputAmount"`
	OutputAmount   uint64              `json:"outputAmount"`
	MinimumOutput  uint64              `json:"minimumOutput"`
	MaximumInput   uint64              `json:"maximumInput,omitempty"`
	SlippageBps    uint16              `json:"slippageBps"`
	PriceImpactBps uint16              `json:"priceImpactBps"`
	Destination    DestinationAnalysis `json:"destination"`
	Transit        *TokenAccount       `json:"transit,omitempty"`
	Creations      []AccountCreation   `json:"creations"`
	Fees           FeeEstimate         `json:"fees"`
	UsesSponsor    bool                `json:"usesSponsor"`
	RelayContext   *RelayContext       `json:"relayContext"`
}

// NeedsCreation reports whether address is among the accounts to create.
func (p *SwapPlan) NeedsCreation(address solana.PublicKey) bool {
	for _, c := range p.Creations {
		if c.Address.Equals(address) {
			return true
		}
	}
	return false
}

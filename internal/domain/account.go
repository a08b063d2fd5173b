package domain

import (
	"github.com/gagliardetto/solana-go"
)

// TokenAccount is an address holding Mint. Existence is looked up, never stored.
type TokenAccount struct {
	Address solana.PublicKey `json:"address"`
	Mint    solana.PublicKey `json:"mint"`
}

// AccountInfo is the subset of on-chain account data the planner needs.
// Mint is zero when the account is not a token account.
type AccountInfo struct {
	Owner    solana.PublicKey
	Mint     solana.PublicKey
	Lamports uint64
}

func (a *AccountInfo) IsTokenAccount() bool {
	return a != nil && !a.Mint.IsZero()
}

// AccountKind tells why an account has to be created.
type AccountKind uint8

const (
	AccountDestination AccountKind = iota
	AccountTransit
	AccountRelay
	AccountWrappedNative
)

func (k AccountKind) String() string {
	switch k {
	case AccountDestination:
		return "destination"
	case AccountTransit:
		return "transit"
	case AccountRelay:
		return "relay"
	case AccountWrappedNative:
		return "wrappedNative"
	default:
		return "UNKNOWN"
	}
}

// AccountCreation is an account the transaction must create, with its rent cost.
type AccountCreation struct {
	Address solana.PublicKey `json:"address"`
	Mint    solana.PublicKey `json:"mint,omitempty"`
	Kind    AccountKind      `json:"kind"`
	Rent    uint64           `json:"rent"`
}

// DestinationAnalysis is the result of resolving where swap output lands.
type DestinationAnalysis struct {
	Destination           solana.PublicKey
	DestinationOwner      solana.PublicKey
	NeedCreateDestination bool
	// IsNativeWrap marks a native SOL destination that is received through a temporary wrapped account.
	IsNativeWrap bool
}

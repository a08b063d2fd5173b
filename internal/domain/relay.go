package domain

import (
	"github.com/gagliardetto/solana-go"
)

type RelayAccountState uint8

const (
	RelayAccountNotYetCreated RelayAccountState = iota
	RelayAccountCreated
)

func (s RelayAccountState) String() string {
	switch s {
	case RelayAccountNotYetCreated:
		return "notYetCreated"
	case RelayAccountCreated:
		return "created"
	default:
		return "UNKNOWN"
	}
}

// RelayAccountStatus is the on-chain state of the user's relay account.
type RelayAccountStatus struct {
	Address solana.PublicKey  `json:"address"`
	State   RelayAccountState `json:"state"`
	Balance uint64            `json:"balance"`
}

func (s RelayAccountStatus) Exists() bool {
	return s.State == RelayAccountCreated
}

// UsageStatus is the sponsor quota window for one user.
// MaxAmount of zero means the sponsor does not cap the sponsored amount.
type UsageStatus struct {
	CurrentUsage uint64 `json:"currentUsage"`
	MaxUsage     uint64 `json:"maxUsage"`
	AmountUsed   uint64 `json:"amountUsed"`
	MaxAmount    uint64 `json:"maxAmount"`
}

func (u UsageStatus) Exhausted() bool {
	return u.CurrentUsage >= u.MaxUsage
}

// IsFreeTransactionFeeAvailable reports whether the sponsor still covers a transaction costing fee.
func (u UsageStatus) IsFreeTransactionFeeAvailable(fee uint64) bool {
	if u.Exhausted() {
		return false
	}
	if u.MaxAmount == 0 {
		return true
	}
	return u.AmountUsed <= u.MaxAmount && fee <= u.MaxAmount-u.AmountUsed
}

// RelayContext is an immutable snapshot of fee relayer state. It is replaced wholesale, never edited.
type RelayContext struct {
	Owner                      solana.PublicKey   `json:"owner"`
	MinimumTokenAccountBalance uint64             `json:"minimumTokenAccountBalance"`
	MinimumRelayAccountBalance uint64             `json:"minimumRelayAccountBalance"`
	LamportsPerSignature       uint64             `json:"lamportsPerSignature"`
	FeePayerAddress            solana.PublicKey   `json:"feePayerAddress"`
	RelayAccountStatus         RelayAccountStatus `json:"relayAccountStatus"`
	UsageStatus                UsageStatus        `json:"usageStatus"`
}

// Equal compares two contexts field by field. A nil context equals only nil.
func (c *RelayContext) Equal(other *RelayContext) bool {
	if c == nil || other == nil {
		return c == other
	}
	return *c == *other
}

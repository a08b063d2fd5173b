// Package common contains common constants and variables used across services
package common

import "github.com/gagliardetto/solana-go"

var (
	TokenProgramID  = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ID     = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	ATAProgramID    = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SystemProgramID = solana.SystemProgramID

	// NativeMint is the wrapped SOL mint.
	NativeMint = solana.SolMint

	// Fee relay programs per network
	RelayProgramIDMainnet = solana.MustPublicKeyFromBase58("12YKFL4mnZz6CBEGePrf293mEzueQM3h8VLPUJsKpGs9")
	RelayProgramIDDevnet  = solana.MustPublicKeyFromBase58("6xKJFyuM6UHCT8F5SBxnjGt6ZrZYjsVfnAnAeHPU775k")

	RelaySeed   = "relay"
	TransitSeed = "transit"
)

const (
	// TokenAccountSize is the data length of an SPL token account.
	TokenAccountSize uint64 = 165

	// RelayAccountSize is the data length of the relay account (a bare system account).
	RelayAccountSize uint64 = 0

	// SignaturesPerRelayedTx counts the user and the fee payer.
	SignaturesPerRelayedTx uint64 = 2

	BpsDenominator uint64 = 10000
)

// RelayProgramID returns the relay program for a network name ("mainnet" or "devnet").
func RelayProgramID(network string) solana.PublicKey {
	if network == "devnet" {
		return RelayProgramIDDevnet
	}
	return RelayProgramIDMainnet
}

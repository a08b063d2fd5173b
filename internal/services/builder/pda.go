package builder

import (
	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/relay-swap/internal/common"
)

func GetATAAddress(wallet, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return GetATAAddressForMint(wallet, mint, common.TokenProgramID)
}

// GetATAAddressForMint derives the associated token account of (wallet, mint) under tokenProgram.
func GetATAAddressForMint(wallet, mint, tokenProgram solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			wallet[:],
			tokenProgram[:],
			mint[:],
		},
		common.ATAProgramID,
	)
}

// PDADeriver derives relay program addresses for one network.
type PDADeriver struct {
	programID solana.PublicKey
}

func NewPDADeriver(programID solana.PublicKey) *PDADeriver {
	return &PDADeriver{programID: programID}
}

func (d *PDADeriver) ProgramID() solana.PublicKey {
	return d.programID
}

// RelayAccount is the per-user account the sponsor funds fees from.
func (d *PDADeriver) RelayAccount(owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			owner[:],
			[]byte(common.RelaySeed),
		},
		d.programID,
	)
}

// TransitAccount holds the interim token of a two-hop swap.
func (d *PDADeriver) TransitAccount(owner, transitMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			owner[:],
			transitMint[:],
			[]byte(common.TransitSeed),
		},
		d.programID,
	)
}

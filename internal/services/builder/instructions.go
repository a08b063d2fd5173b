package builder

import (
	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/domain"
)

// CreateATAInstruction creates an idempotent ATA creation instruction.
func CreateATAInstruction(payer, owner, mint solana.PublicKey) solana.Instruction {
	return CreateATAInstructionForMint(payer, owner, mint, common.TokenProgramID)
}

func CreateATAInstructionForMint(payer, owner, mint, tokenProgram solana.PublicKey) solana.Instruction {
	ata, _, _ := GetATAAddressForMint(owner, mint, tokenProgram)
	return &createATAInstructionGeneric{
		payer:        payer,
		ata:          ata,
		owner:        owner,
		mint:         mint,
		tokenProgram: tokenProgram,
	}
}

// SetupInstructions returns the ATA creations a plan needs before the swap, paid by payer.
// Transit and relay accounts are created by the relay program itself and are not included.
func SetupInstructions(plan *domain.SwapPlan, payer, owner solana.PublicKey) []solana.Instruction {
	var ixs []solana.Instruction
	for _, c := range plan.Creations {
		switch c.Kind {
		case domain.AccountDestination, domain.AccountWrappedNative:
			ixs = append(ixs, CreateATAInstruction(payer, owner, c.Mint))
		}
	}
	return ixs
}

type createATAInstructionGeneric struct {
	payer        solana.PublicKey
	ata          solana.PublicKey
	owner        solana.PublicKey
	mint         solana.PublicKey
	tokenProgram solana.PublicKey
}

func (i *createATAInstructionGeneric) ProgramID() solana.PublicKey {
	return common.ATAProgramID
}

func (i *createATAInstructionGeneric) Accounts() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		{PublicKey: i.payer, IsSigner: true, IsWritable: true},
		{PublicKey: i.ata, IsSigner: false, IsWritable: true},
		{PublicKey: i.owner, IsSigner: false, IsWritable: false},
		{PublicKey: i.mint, IsSigner: false, IsWritable: false},
		{PublicKey: common.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: i.tokenProgram, IsSigner: false, IsWritable: false},
	}
}

// Data is the CreateIdempotent discriminator.
func (i *createATAInstructionGeneric) Data() ([]byte, error) {
	return []byte{1}, nil
}

package blockchain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/config"
	"github.com/hxuan190/relay-swap/internal/domain"
)

const CHAIN_SERVICE = "chain-rpc-svc"

const blockhashTTL = 2 * time.Second

// feeProbePayer signs nothing; it only gives the fee probe message a payer.
var feeProbePayer = solana.MustPublicKeyFromBase58("11111111111111111111111111111112")

type CachedBlockhash struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	Slot                 uint64
	UpdatedAt            time.Time
}

// ChainService reads accounts, rent and fees over Solana JSON-RPC.
type ChainService struct {
	container.BaseDIInstance

	rpcClient  *rpc.Client
	commitment rpc.CommitmentType

	mu      sync.RWMutex
	current *CachedBlockhash
}

func NewChainService(rpcClient *rpc.Client, commitment rpc.CommitmentType) *ChainService {
	return &ChainService{rpcClient: rpcClient, commitment: commitment}
}

func (svc *ChainService) ID() string {
	return CHAIN_SERVICE
}

func (svc *ChainService) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.rpcClient = rpc.New(rpcConfig.RPCUrl)
	svc.commitment = rpc.CommitmentType(rpcConfig.Commitment)
	return nil
}

func (svc *ChainService) Start() error {
	if _, _, err := svc.GetBlockhash(context.Background()); err != nil {
		log.Warn().Err(err).Msg("[ChainService] failed to fetch initial blockhash, will retry on first request")
	}
	return nil
}

// GetAccountInfo returns nil for a missing account. Token accounts carry their mint.
func (svc *ChainService) GetAccountInfo(ctx context.Context, address solana.PublicKey) (*domain.AccountInfo, error) {
	res, err := svc.rpcClient.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: svc.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, nil
	}

	info := &domain.AccountInfo{
		Owner:    res.Value.Owner,
		Lamports: res.Value.Lamports,
	}
	if res.Value.Owner.Equals(common.TokenProgramID) || res.Value.Owner.Equals(common.Token2022ID) {
		mint, err := decodeTokenMint(res.Value.Data.GetBinary())
		if err != nil {
			return nil, fmt.Errorf("decode token account %s: %w", address, err)
		}
		info.Mint = mint
	}
	return info, nil
}

func decodeTokenMint(data []byte) (solana.PublicKey, error) {
	if uint64(len(data)) < common.TokenAccountSize {
		return solana.PublicKey{}, fmt.Errorf("token account data too short: %d bytes", len(data))
	}
	var acc token.Account
	if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
		return solana.PublicKey{}, err
	}
	return acc.Mint, nil
}

func (svc *ChainService) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	return svc.rpcClient.GetMinimumBalanceForRentExemption(ctx, size, svc.commitment)
}

// GetFeePerSignature prices a single-signature transfer message.
func (svc *ChainService) GetFeePerSignature(ctx context.Context) (uint64, error) {
	blockhash, _, err := svc.GetBlockhash(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, feeProbePayer, feeProbePayer).Build()},
		blockhash,
		solana.TransactionPayer(feeProbePayer),
	)
	if err != nil {
		return 0, fmt.Errorf("build fee probe: %w", err)
	}
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("encode fee probe: %w", err)
	}

	res, err := svc.rpcClient.GetFeeForMessage(ctx, base64.StdEncoding.EncodeToString(msg), svc.commitment)
	if err != nil {
		return 0, err
	}
	if res == nil || res.Value == nil {
		// the blockhash expired between fetch and probe
		return 0, common.ErrNotReady
	}
	return *res.Value, nil
}

// GetBlockhash returns a recent blockhash, refreshed at most every blockhashTTL.
// On RPC failure the last known blockhash is returned when there is one.
func (svc *ChainService) GetBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	svc.mu.RLock()
	cached := svc.current
	svc.mu.RUnlock()

	if cached != nil && time.Since(cached.UpdatedAt) < blockhashTTL {
		return cached.Blockhash, cached.LastValidBlockHeight, nil
	}

	res, err := svc.rpcClient.GetLatestBlockhash(ctx, svc.commitment)
	if err != nil {
		if cached != nil {
			return cached.Blockhash, cached.LastValidBlockHeight, nil
		}
		return solana.Hash{}, 0, err
	}

	svc.mu.Lock()
	svc.current = &CachedBlockhash{
		Blockhash:            res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
		Slot:                 res.Context.Slot,
		UpdatedAt:            time.Now(),
	}
	svc.mu.Unlock()

	return res.Value.Blockhash, res.Value.LastValidBlockHeight, nil
}

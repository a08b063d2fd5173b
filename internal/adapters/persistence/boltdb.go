package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/relay-swap/internal/domain"
)

const (
	PoolsBucket    = "pools"
	DefaultsBucket = "defaults"

	DefaultDBPath = "./data/relay-swap.db"

	snapshotKey     = "snapshot"
	snapshotMetaKey = "snapshot-meta"

	schemaKey     = "_schema"
	schemaVersion = "1"
)

type StoredPool struct {
	Address        string `json:"address"`
	ProgramID      string `json:"programId"`
	TokenMintA     string `json:"tokenMintA"`
	TokenMintB     string `json:"tokenMintB"`
	TokenVaultA    string `json:"tokenVaultA"`
	TokenVaultB    string `json:"tokenVaultB"`
	ReserveA       uint64 `json:"reserveA"`
	ReserveB       uint64 `json:"reserveB"`
	FeeNumerator   uint64 `json:"feeNumerator"`
	FeeDenominator uint64 `json:"feeDenominator"`
}

type StoredSnapshotMeta struct {
	Count   int   `json:"count"`
	SavedAt int64 `json:"savedAt"`
}

type StoredDefaults struct {
	SlippageBps uint16 `json:"slippageBps"`
	Mode        string `json:"mode"`
}

type Storage struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	// writing the schema marker creates both buckets, so reads on a fresh file see empty buckets
	for _, bucket := range []string{PoolsBucket, DefaultsBucket} {
		if err := db.Set(bucket, []byte(schemaKey), []byte(schemaVersion)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize bucket %s: %w", bucket, err)
		}
	}

	log.Info().Str("path", dbPath).Msg("[Storage] opened database")

	return &Storage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SavePoolSnapshot stores the snapshot as one ordered value so route enumeration order survives a restart.
func (s *Storage) SavePoolSnapshot(pools []domain.Pool) error {
	stored := make([]StoredPool, len(pools))
	for i := range pools {
		stored[i] = poolToStored(&pools[i])
	}
	data, err := sonic.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal pool snapshot: %w", err)
	}
	meta, err := sonic.Marshal(StoredSnapshotMeta{Count: len(pools), SavedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot meta: %w", err)
	}

	batch := s.db.NewBatch()
	for key, value := range map[string][]byte{snapshotKey: data, snapshotMetaKey: meta} {
		value := value
		op := &boltdb.WriteOperation{
			Bucket: []byte(PoolsBucket),
			Key:    []byte(key),
			Value:  &value,
			Op:     boltdb.OpSet,
		}
		if err := batch.Add(op); err != nil {
			return fmt.Errorf("failed to add %s to batch: %w", key, err)
		}
	}

	if err := batch.Execute(); err != nil {
		log.Error().Err(err).Int("count", len(pools)).Msg("[Storage] FAILED to execute snapshot batch")
		return err
	}

	log.Info().Int("count", len(pools)).Msg("[Storage] saved pool snapshot")
	return nil
}

// LoadPoolSnapshot returns the last saved snapshot, nil when none was saved.
// Pools that fail to decode are skipped.
func (s *Storage) LoadPoolSnapshot() ([]domain.Pool, error) {
	data, err := s.db.List(PoolsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	raw, ok := data[snapshotKey]
	if !ok {
		return nil, nil
	}

	var stored []StoredPool
	if err := sonic.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pool snapshot: %w", err)
	}

	pools := make([]domain.Pool, 0, len(stored))
	conversionFailed := 0
	for i := range stored {
		pool, err := storedToPool(&stored[i])
		if err != nil {
			log.Error().Str("address", stored[i].Address).Err(err).Msg("[Storage] failed to convert stored pool, skipping")
			conversionFailed++
			continue
		}
		pools = append(pools, pool)
	}

	if conversionFailed > 0 {
		log.Error().
			Int("total_in_db", len(stored)).
			Int("loaded", len(pools)).
			Int("conversion_failed", conversionFailed).
			Msg("[Storage] pool loading completed with errors")
	} else {
		log.Info().Int("loaded", len(pools)).Msg("[Storage] pool loading completed successfully")
	}
	return pools, nil
}

// GetDefaults returns the wallet's stored defaults. ok is false when none are stored.
func (s *Storage) GetDefaults(_ context.Context, wallet solana.PublicKey) (domain.SwapDefaults, bool, error) {
	data, err := s.db.List(DefaultsBucket)
	if err != nil {
		return domain.SwapDefaults{}, false, fmt.Errorf("failed to list defaults: %w", err)
	}
	raw, ok := data[wallet.String()]
	if !ok {
		return domain.SwapDefaults{}, false, nil
	}
	d, err := DecodeDefaults(raw)
	if err != nil {
		return domain.SwapDefaults{}, false, err
	}
	return d, true, nil
}

func (s *Storage) SetDefaults(_ context.Context, wallet solana.PublicKey, d domain.SwapDefaults) error {
	data, err := EncodeDefaults(d)
	if err != nil {
		return err
	}
	return s.db.Set(DefaultsBucket, []byte(wallet.String()), data)
}

// EncodeDefaults is the wire form of SwapDefaults shared by every defaults backend.
func EncodeDefaults(d domain.SwapDefaults) ([]byte, error) {
	data, err := sonic.Marshal(StoredDefaults{SlippageBps: d.SlippageBps, Mode: d.Mode.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defaults: %w", err)
	}
	return data, nil
}

func DecodeDefaults(raw []byte) (domain.SwapDefaults, error) {
	var stored StoredDefaults
	if err := sonic.Unmarshal(raw, &stored); err != nil {
		return domain.SwapDefaults{}, fmt.Errorf("failed to unmarshal defaults: %w", err)
	}
	mode, ok := domain.ParseSwapMode(stored.Mode)
	if !ok {
		return domain.SwapDefaults{}, fmt.Errorf("invalid stored swap mode %q", stored.Mode)
	}
	return domain.SwapDefaults{SlippageBps: stored.SlippageBps, Mode: mode}, nil
}

func poolToStored(pool *domain.Pool) StoredPool {
	return StoredPool{
		Address:        pool.Address.String(),
		ProgramID:      pool.ProgramID.String(),
		TokenMintA:     pool.TokenMintA.String(),
		TokenMintB:     pool.TokenMintB.String(),
		TokenVaultA:    pool.TokenVaultA.String(),
		TokenVaultB:    pool.TokenVaultB.String(),
		ReserveA:       pool.ReserveA,
		ReserveB:       pool.ReserveB,
		FeeNumerator:   pool.FeeNumerator,
		FeeDenominator: pool.FeeDenominator,
	}
}

func storedToPool(stored *StoredPool) (domain.Pool, error) {
	pool := domain.Pool{
		ReserveA:       stored.ReserveA,
		ReserveB:       stored.ReserveB,
		FeeNumerator:   stored.FeeNumerator,
		FeeDenominator: stored.FeeDenominator,
	}

	keys := []struct {
		name  string
		value string
		dst   *solana.PublicKey
	}{
		{"address", stored.Address, &pool.Address},
		{"programId", stored.ProgramID, &pool.ProgramID},
		{"tokenMintA", stored.TokenMintA, &pool.TokenMintA},
		{"tokenMintB", stored.TokenMintB, &pool.TokenMintB},
		{"tokenVaultA", stored.TokenVaultA, &pool.TokenVaultA},
		{"tokenVaultB", stored.TokenVaultB, &pool.TokenVaultB},
	}
	for _, k := range keys {
		pk, err := solana.PublicKeyFromBase58(k.value)
		if err != nil {
			return domain.Pool{}, fmt.Errorf("invalid %s: %w", k.name, err)
		}
		*k.dst = pk
	}
	return pool, nil
}

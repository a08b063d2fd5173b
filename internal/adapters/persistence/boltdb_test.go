package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/relay-swap/internal/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPoolSnapshotRoundTripKeepsOrder(t *testing.T) {
	s := newTestStorage(t)

	if pools, err := s.LoadPoolSnapshot(); err != nil || pools != nil {
		t.Fatalf("empty database should have no snapshot, got %v, %v", pools, err)
	}

	snapshot := []domain.Pool{
		{
			Address:        solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
			TokenMintA:     solana.SolMint,
			TokenMintB:     solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"),
			ReserveA:       500,
			ReserveB:       1000,
			FeeNumerator:   3,
			FeeDenominator: 1000,
		},
		{
			Address:        solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"),
			TokenMintA:     solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"),
			TokenMintB:     solana.MustPublicKeyFromBase58("mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So"),
			ReserveA:       2000,
			ReserveB:       4000,
			FeeNumerator:   25,
			FeeDenominator: 10000,
		},
	}
	if err := s.SavePoolSnapshot(snapshot); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := s.LoadPoolSnapshot()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != len(snapshot) {
		t.Fatalf("loaded %d pools, want %d", len(loaded), len(snapshot))
	}
	for i := range snapshot {
		if loaded[i] != snapshot[i] {
			t.Errorf("pool %d = %+v, want %+v", i, loaded[i], snapshot[i])
		}
	}
}

func TestDefaults(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	wallet := solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")

	if _, ok, err := s.GetDefaults(ctx, wallet); err != nil || ok {
		t.Fatalf("expected no defaults, got ok=%v err=%v", ok, err)
	}

	want := domain.SwapDefaults{SlippageBps: 75, Mode: domain.SwapModeExactOut}
	if err := s.SetDefaults(ctx, wallet, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.GetDefaults(ctx, wallet)
	if err != nil || !ok {
		t.Fatalf("expected defaults, got ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Errorf("defaults = %+v, want %+v", got, want)
	}
}

func TestDecodeDefaultsRejectsUnknownMode(t *testing.T) {
	if _, err := DecodeDefaults([]byte(`{"slippageBps":50,"mode":"Sideways"}`)); err == nil {
		t.Error("expected error for unknown mode")
	}
}

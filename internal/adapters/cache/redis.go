package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"

	"github.com/hxuan190/relay-swap/internal/adapters/persistence"
	"github.com/hxuan190/relay-swap/internal/domain"
)

// ErrDisabled indicates the redis backend was not configured.
var ErrDisabled = errors.New("redis defaults store disabled")

// DefaultsTTL keeps wallet defaults of inactive wallets from piling up.
const DefaultsTTL = 30 * 24 * time.Hour

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// DefaultsStore keeps per-wallet swap defaults in redis.
type DefaultsStore struct {
	client *redis.Client
	ttl    time.Duration
}

func New(cfg Config) *DefaultsStore {
	if cfg.Addr == "" {
		return &DefaultsStore{}
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultsTTL
	}
	return &DefaultsStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: ttl,
	}
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *DefaultsStore {
	return &DefaultsStore{client: client, ttl: ttl}
}

func (s *DefaultsStore) key(wallet solana.PublicKey) string {
	return fmt.Sprintf("wallet:%s:swap-defaults", wallet)
}

func (s *DefaultsStore) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return ErrDisabled
	}
	return s.client.Ping(ctx).Err()
}

func (s *DefaultsStore) GetDefaults(ctx context.Context, wallet solana.PublicKey) (domain.SwapDefaults, bool, error) {
	if s == nil || s.client == nil {
		return domain.SwapDefaults{}, false, ErrDisabled
	}

	payload, err := s.client.Get(ctx, s.key(wallet)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SwapDefaults{}, false, nil
	}
	if err != nil {
		return domain.SwapDefaults{}, false, err
	}

	d, err := persistence.DecodeDefaults(payload)
	if err != nil {
		return domain.SwapDefaults{}, false, err
	}
	return d, true, nil
}

func (s *DefaultsStore) SetDefaults(ctx context.Context, wallet solana.PublicKey, d domain.SwapDefaults) error {
	if s == nil || s.client == nil {
		return ErrDisabled
	}
	payload, err := persistence.EncodeDefaults(d)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(wallet), payload, s.ttl).Err()
}

func (s *DefaultsStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

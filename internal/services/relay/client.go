package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"golang.org/x/time/rate"

	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/metrics"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 200 * time.Millisecond
	DefaultMaxDelay    = 2 * time.Second
	DefaultBackoffMult = 2.0

	maxResponseBytes = 1 << 20
)

// ErrRejected is returned when the relay service refuses the API key or the wallet.
var ErrRejected = errors.New("relay service rejected the request")

// HTTPClient talks to the fee relay REST API.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithRateLimit caps requests per second with a token bucket of size burst.
func WithRateLimit(perSecond, burst int) ClientOption {
	return func(c *HTTPClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Inf, 1),
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type feePayerResponse struct {
	Pubkey string `json:"pubkey"`
}

type usageResponse struct {
	Limits struct {
		MaxCount  uint64 `json:"max_count"`
		MaxAmount uint64 `json:"max_amount"`
	} `json:"limits"`
	ProcessedFee struct {
		Count       uint64 `json:"count"`
		TotalAmount uint64 `json:"total_amount"`
	} `json:"processed_fee"`
}

func (c *HTTPClient) GetFeePayerAddress(ctx context.Context) (solana.PublicKey, error) {
	var resp feePayerResponse
	if err := c.get(ctx, "fee_payer", "/fee_payer/pubkey", &resp); err != nil {
		return solana.PublicKey{}, err
	}
	pk, err := solana.PublicKeyFromBase58(resp.Pubkey)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid fee payer %q: %w", resp.Pubkey, err)
	}
	return pk, nil
}

func (c *HTTPClient) GetUsageStatus(ctx context.Context, owner solana.PublicKey) (domain.UsageStatus, error) {
	var resp usageResponse
	if err := c.get(ctx, "usage_status", "/free_fee_limits/"+owner.String(), &resp); err != nil {
		return domain.UsageStatus{}, err
	}
	return domain.UsageStatus{
		CurrentUsage: resp.ProcessedFee.Count,
		MaxUsage:     resp.Limits.MaxCount,
		AmountUsed:   resp.ProcessedFee.TotalAmount,
		MaxAmount:    resp.Limits.MaxAmount,
	}, nil
}

// get performs a GET with retries and exponential backoff. Rejections are not retried.
func (c *HTTPClient) get(ctx context.Context, method, path string, result any) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		status, body, err := c.do(ctx, path)
		metrics.RelayAPIRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return fmt.Errorf("%w: status %d", ErrRejected, status)
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("unexpected status %d: %s", status, string(body))
			continue
		case status != http.StatusOK:
			return fmt.Errorf("unexpected status %d: %s", status, string(body))
		}

		if err := sonic.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *HTTPClient) do(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

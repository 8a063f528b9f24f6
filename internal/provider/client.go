package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/listenupapp/artfetch/internal/ratelimit"
)

const (
	// Defaults for providers that were not configured explicitly.
	defaultRPS     = 2.0
	defaultBurst   = 3
	defaultTimeout = 15 * time.Second

	// DefaultCooldown is applied after a 429 without a usable Retry-After.
	DefaultCooldown = 5 * time.Second

	// DefaultUserAgent identifies outbound requests.
	DefaultUserAgent = "artfetch/1.0"

	maxBodyBytes = 8 << 20

	// Breaker trips after this many consecutive failed requests and stays
	// open for breakerOpenFor.
	breakerFailures = 10
	breakerOpenFor  = 30 * time.Second
)

// Endpoint configures outbound behavior for one provider.
type Endpoint struct {
	Timeout time.Duration
	RPS     float64
	Burst   int
}

// ClientConfig configures the shared HTTP client.
type ClientConfig struct {
	UserAgent string
	// Cooldown applied to a provider after a 429.
	Cooldown time.Duration
}

// HTTPClient is the rate-limited, circuit-broken HTTP client shared by
// all adapters. Limits and breakers are keyed by provider name.
type HTTPClient struct {
	http      *http.Client
	limiter   *ratelimit.KeyedRateLimiter
	userAgent string
	cooldown  time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	timeouts map[string]time.Duration
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewHTTPClient creates a client.
func NewHTTPClient(cfg ClientConfig, logger *slog.Logger) *HTTPClient {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		http:      &http.Client{},
		limiter:   ratelimit.New(defaultRPS, defaultBurst),
		userAgent: cfg.UserAgent,
		cooldown:  cfg.Cooldown,
		logger:    logger,
		timeouts:  make(map[string]time.Duration),
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Configure sets the endpoint settings for a provider.
func (c *HTTPClient) Configure(name string, ep Endpoint) {
	if ep.RPS > 0 {
		burst := ep.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter.Configure(name, ratelimit.Limits{RPS: ep.RPS, Burst: burst})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ep.Timeout > 0 {
		c.timeouts[name] = ep.Timeout
	}
}

func (c *HTTPClient) timeout(name string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.timeouts[name]; ok {
		return d
	}
	return defaultTimeout
}

func (c *HTTPClient) breaker(name string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[name]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		// A rejected query says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrBadRequest) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("provider circuit state changed",
				"provider", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	c.breakers[name] = cb
	return cb
}

// Get performs a throttled GET for provider and returns the body of a
// 200 response. Non-200 responses map to the package sentinels.
func (c *HTTPClient) Get(ctx context.Context, provider, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, provider); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	out, err := c.breaker(provider).Execute(func() (interface{}, error) {
		return c.doRequest(ctx, provider, rawURL)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

// doRequest executes a single request with the provider's timeout.
func (c *HTTPClient) doRequest(ctx context.Context, provider, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout(provider))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrBadRequest, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("provider request",
		"provider", provider,
		"url", rawURL,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusTooManyRequests:
		c.limiter.Penalize(provider, c.retryAfter(resp.Header.Get("Retry-After")))
		return nil, ErrRateLimited
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return nil, ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func (c *HTTPClient) retryAfter(header string) time.Duration {
	if header == "" {
		return c.cooldown
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return c.cooldown
}

// CooldownRemaining reports how long provider stays throttled after a 429.
func (c *HTTPClient) CooldownRemaining(provider string) time.Duration {
	return c.limiter.CooldownRemaining(provider)
}

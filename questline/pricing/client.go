// Package pricing fetches token prices for custom validators that need
// to express quest targets in a base currency. Prices are cached with a
// TTL in an LRU so repeated quest checks do not hammer the price API.
package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const (
	cacheSize      = 2048
	defaultTTL     = time.Minute
	requestTimeout = 10 * time.Second
)

type cachedPrice struct {
	price     float64
	timestamp time.Time
}

// TokenInfo carries the per-token metadata validators need for decimal
// adjustment.
type TokenInfo struct {
	Address  string
	Symbol   string
	Decimals int
}

// Client looks up token prices over HTTP. The cache is owned by the
// client and injected wherever validators need price data; there is no
// ambient global state.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	cache    *lru.Cache
	ttl      time.Duration

	mu     sync.RWMutex
	tokens map[string]TokenInfo
}

func NewClient(endpoint, apiKey string, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	cache, _ := lru.New(cacheSize)
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: requestTimeout},
		cache:    cache,
		ttl:      ttl,
		tokens:   make(map[string]TokenInfo),
	}
}

// RegisterToken records decimal metadata for a token address.
func (c *Client) RegisterToken(info TokenInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[strings.ToLower(info.Address)] = info
}

// TokenInfo returns registered metadata for an address, if any.
func (c *Client) TokenInfo(address string) (TokenInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.tokens[strings.ToLower(address)]
	return info, ok
}

// TokenPrice returns the cached price for a token, fetching it when the
// cache entry is missing or older than the TTL. Lookup failures return
// 0 rather than an error so a flaky price API degrades quests to "not
// completed" instead of failing the check.
func (c *Client) TokenPrice(ctx context.Context, address string) float64 {
	key := strings.ToLower(address)

	if entry, ok := c.cache.Get(key); ok {
		cached := entry.(cachedPrice)
		if time.Since(cached.timestamp) < c.ttl {
			return cached.price
		}
	}

	price, err := c.fetchPrice(ctx, key)
	if err != nil {
		slog.Warn("Price lookup failed",
			slog.String("type", "price"),
			slog.String("token", key),
			slog.Any("error", err))
		return 0
	}

	c.cache.Add(key, cachedPrice{price: price, timestamp: time.Now()})
	return price
}

// TokenPrices resolves several tokens, deduplicating addresses.
func (c *Client) TokenPrices(ctx context.Context, addresses []string) map[string]float64 {
	prices := make(map[string]float64, len(addresses))
	for _, address := range addresses {
		key := strings.ToLower(address)
		if _, done := prices[key]; done {
			continue
		}
		prices[key] = c.TokenPrice(ctx, key)
	}
	return prices
}

func (c *Client) fetchPrice(ctx context.Context, address string) (float64, error) {
	body, err := json.Marshal(map[string]string{"tokenAddress": address})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price API returned %s", resp.Status)
	}

	var decoded struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, err
	}
	return decoded.Price, nil
}

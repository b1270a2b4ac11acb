// Package feed is the REST client for the upstream SkyBlock API: the
// paginated auction snapshot and the bazaar order-book summaries.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/arvida42/skyflip/internal/domain"
)

// Client talks to the upstream SkyBlock API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	limiter    domain.RateLimiter
	rateLimit  int
	rateWindow time.Duration
}

// NewClient creates a feed client. baseURL is the API root, e.g.
// "https://api.hypixel.net".
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithRateLimiter makes every request wait on the shared limiter first, so
// all processes holding the same API key stay inside its budget. It returns
// the client for chaining.
func (c *Client) WithRateLimiter(rl domain.RateLimiter, limit int, window time.Duration) *Client {
	c.limiter = rl
	c.rateLimit = limit
	c.rateWindow = window
	return c
}

// AuctionPage fetches one page of the current auction snapshot.
func (c *Client) AuctionPage(ctx context.Context, page int) (APIAuctionPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))

	body, err := c.doGet(ctx, "/skyblock/auctions?"+params.Encode())
	if err != nil {
		return APIAuctionPage{}, fmt.Errorf("feed: auctions page %d: %w", page, err)
	}

	var resp APIAuctionPage
	if err := json.Unmarshal(body, &resp); err != nil {
		return APIAuctionPage{}, fmt.Errorf("feed: decode auctions page %d: %w", page, err)
	}
	if !resp.Success {
		return APIAuctionPage{}, fmt.Errorf("feed: auctions page %d: %w", page, domain.ErrUpstream)
	}
	return resp, nil
}

// BazaarPrices fetches the bazaar snapshot once and returns the top
// sell-order price per requested product. Products missing from the
// response, or with an empty sell summary, are omitted from the result.
func (c *Client) BazaarPrices(ctx context.Context, productIDs []string) (map[string]float64, error) {
	body, err := c.doGet(ctx, "/skyblock/bazaar")
	if err != nil {
		return nil, fmt.Errorf("feed: bazaar: %w", err)
	}

	var resp apiBazaar
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("feed: decode bazaar: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("feed: bazaar: %w", domain.ErrUpstream)
	}

	prices := make(map[string]float64, len(productIDs))
	for _, id := range productIDs {
		product, ok := resp.Products[id]
		if !ok || len(product.SellSummary) == 0 {
			continue
		}
		prices[id] = product.SellSummary[0].PricePerUnit
	}
	return prices, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "hypixel", c.rateLimit, c.rateWindow); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

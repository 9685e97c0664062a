package opendata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"PriceNewsScanner/internal/config"
	"PriceNewsScanner/internal/domain"
	"PriceNewsScanner/internal/ports"
)

// Client reads the Executive Yuan necessities price feed.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ ports.PriceSource = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.OpenDataConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{endpoint: cfg.PricesURL, http: httpClient}
}

// NecessityPrices filters the feed by category and commodity name; empty filters are omitted.
func (c *Client) NecessityPrices(ctx context.Context, category, commodity string) ([]domain.NecessityPrice, error) {
	params := url.Values{}
	if category != "" {
		params.Set("CategoryName", category)
	}
	if commodity != "" {
		params.Set("Name", commodity)
	}

	var prices []domain.NecessityPrice
	if err := c.get(ctx, params, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

func (c *Client) get(ctx context.Context, params url.Values, v any) error {
	target, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.endpoint, err)
	}
	if len(params) > 0 {
		target.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if closeErr := resp.Body.Close(); closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}
	return nil
}

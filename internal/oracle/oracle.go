// Package oracle fetches spot prices for converting ledger amounts into
// the external rail's native unit. A failed quote is always a hard
// error; the engine never falls back to a stale or default price.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

type Client interface {
	// SpotPrice returns the quote-currency price of one base unit for a
	// pair like "ETH-USD".
	SpotPrice(ctx context.Context, pair string) (float64, error)
}

// HTTPClient reads a Coinbase-style price endpoint:
// GET {base}/{pair}/spot -> {"data":{"amount":"2510.42", ...}}.
type HTTPClient struct {
	base string
	hc   *http.Client
}

func NewHTTPClient(base string) *HTTPClient {
	return &HTTPClient{
		base: base,
		hc:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) SpotPrice(ctx context.Context, pair string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/"+pair+"/spot", nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("oracle: fetch %s: %w", pair, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("oracle: fetch %s: status %d", pair, resp.StatusCode)
	}

	var body struct {
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("oracle: decode %s: %w", pair, err)
	}
	price, err := strconv.ParseFloat(body.Data.Amount, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("oracle: bad quote %q for %s", body.Data.Amount, pair)
	}
	return price, nil
}

// Fixed is a constant-price Client for tests.
type Fixed struct {
	Price float64
	Err   error
}

func (f Fixed) SpotPrice(context.Context, string) (float64, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Price, nil
}

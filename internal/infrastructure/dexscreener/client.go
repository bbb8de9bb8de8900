// Package dexscreener searches DEX pairs through the public Dexscreener API.
package dexscreener

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"livefeed/internal/application/port"
	"livefeed/internal/domain"
)

const serviceName = "dexscreener"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SearchPairs calls /latest/dex/search?q=term. A response without pairs
// yields an empty slice.
func (c *Client) SearchPairs(ctx context.Context, term string) ([]domain.TokenPair, error) {
	endpoint := c.baseURL + "/latest/dex/search?q=" + url.QueryEscape(term)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dexscreener search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.UpstreamError{Service: serviceName, Status: resp.StatusCode}
	}
	if !gjson.ValidBytes(body) {
		return nil, &domain.UpstreamError{Service: serviceName, Status: resp.StatusCode, Body: "malformed search payload"}
	}

	pairs := gjson.GetBytes(body, "pairs").Array()
	out := make([]domain.TokenPair, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, domain.TokenPair{
			BaseToken: domain.TokenRef{
				Name:    p.Get("baseToken.name").String(),
				Symbol:  p.Get("baseToken.symbol").String(),
				Address: p.Get("baseToken.address").String(),
			},
			QuoteSymbol:  p.Get("quoteToken.symbol").String(),
			ChainID:      p.Get("chainId").String(),
			DexID:        p.Get("dexId").String(),
			PriceUSD:     p.Get("priceUsd").String(),
			LiquidityUSD: p.Get("liquidity.usd").Float(),
			Volume24h:    p.Get("volume.h24").Float(),
			FDV:          p.Get("fdv").Float(),
		})
	}
	return out, nil
}

var _ port.TokenSearch = (*Client)(nil)

// Package pyth talks to the Pyth Hermes REST API: feed discovery and
// latest-price lookups.
package pyth

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"livefeed/internal/application/port"
	"livefeed/internal/domain"
	"livefeed/internal/domain/fixedpoint"
)

const serviceName = "pyth"

// StatusObserver records upstream response codes (0 for transport errors).
type StatusObserver interface {
	UpstreamStatus(service string, code int)
}

type noopObserver struct{}

func (noopObserver) UpstreamStatus(string, int) {}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	HTTPClient *http.Client
	Observer   StatusObserver
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	observer   StatusObserver
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	var obs StatusObserver = noopObserver{}
	if opts.Observer != nil {
		obs = opts.Observer
	}
	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: hc,
		limiter:    rate.NewLimiter(limit, burst),
		observer:   obs,
	}
}

// DiscoverFeeds calls /v2/price_feeds?query=...&asset_type=...
func (c *Client) DiscoverFeeds(ctx context.Context, symbol string, assetType domain.AssetType) ([]domain.FeedCandidate, error) {
	params := url.Values{}
	params.Set("query", symbol)
	params.Set("asset_type", string(assetType))

	body, err := c.get(ctx, "/v2/price_feeds", params)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsArray() {
		return nil, &domain.UpstreamError{Service: serviceName, Status: http.StatusOK, Body: "malformed price_feeds payload"}
	}

	var out []domain.FeedCandidate
	gjson.ParseBytes(body).ForEach(func(_, item gjson.Result) bool {
		attrs := item.Get("attributes")
		out = append(out, domain.FeedCandidate{
			ID:            item.Get("id").String(),
			Base:          attrs.Get("base").String(),
			QuoteCurrency: attrs.Get("quote_currency").String(),
			Symbol:        attrs.Get("symbol").String(),
			DisplaySymbol: attrs.Get("display_symbol").String(),
		})
		return true
	})
	return out, nil
}

// LatestPrice calls /v2/updates/price/latest?ids[]=... and returns the first
// parsed price. An empty parsed list is domain.ErrNotFound.
func (c *Client) LatestPrice(ctx context.Context, feedID string) (domain.RawPrice, error) {
	params := url.Values{}
	params.Add("ids[]", feedID)
	params.Set("parsed", "true")

	body, err := c.get(ctx, "/v2/updates/price/latest", params)
	if err != nil {
		return domain.RawPrice{}, err
	}
	if !gjson.ValidBytes(body) {
		return domain.RawPrice{}, &domain.UpstreamError{Service: serviceName, Status: http.StatusOK, Body: "malformed price payload"}
	}

	parsed := gjson.GetBytes(body, "parsed")
	if !parsed.IsArray() || len(parsed.Array()) == 0 {
		return domain.RawPrice{}, domain.ErrNotFound
	}

	price := parsed.Array()[0].Get("price")
	mantissa := price.Get("price")
	expo := price.Get("expo")
	if !mantissa.Exists() || !expo.Exists() {
		return domain.RawPrice{}, &domain.UpstreamError{Service: serviceName, Status: http.StatusOK, Body: "price entry missing price/expo"}
	}

	e := expo.Int()
	if expo.Type != gjson.Number || float64(e) != expo.Num || e > fixedpoint.MaxExponent || e < -fixedpoint.MaxExponent {
		return domain.RawPrice{}, &domain.UpstreamError{Service: serviceName, Status: http.StatusOK, Body: "price exponent out of range: " + expo.Raw}
	}

	// String() keeps the raw digits of integer JSON numbers, so large
	// mantissas never pass through float64.
	return domain.RawPrice{
		Mantissa:    mantissa.String(),
		Exponent:    int32(e),
		PublishTime: price.Get("publish_time").Int(),
	}, nil
}

var (
	_ port.FeedDiscovery = (*Client)(nil)
	_ port.PriceSource   = (*Client)(nil)
)

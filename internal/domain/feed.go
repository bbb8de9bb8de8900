package domain

import (
	"fmt"
	"strings"
	"time"
)

type AssetType string

const (
	AssetCrypto AssetType = "crypto"
	AssetEquity AssetType = "equity"
	AssetFX     AssetType = "fx"
	AssetMetal  AssetType = "metal"
)

const DefaultQuoteCurrency = "USD"

func (a AssetType) Valid() bool {
	switch a {
	case AssetCrypto, AssetEquity, AssetFX, AssetMetal:
		return true
	}
	return false
}

// FeedQuery identifies one asset pair on the price provider.
type FeedQuery struct {
	Symbol        string    `json:"symbol"`
	QuoteCurrency string    `json:"quoteCurrency"`
	AssetType     AssetType `json:"assetType"`
}

// Normalize trims the fields and fills in the USD / crypto defaults.
func (q FeedQuery) Normalize() FeedQuery {
	q.Symbol = strings.TrimSpace(q.Symbol)
	q.QuoteCurrency = strings.TrimSpace(q.QuoteCurrency)
	if q.QuoteCurrency == "" {
		q.QuoteCurrency = DefaultQuoteCurrency
	}
	q.AssetType = AssetType(strings.TrimSpace(string(q.AssetType)))
	if q.AssetType == "" {
		q.AssetType = AssetCrypto
	}
	return q
}

func (q FeedQuery) Validate() error {
	if q.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if !q.AssetType.Valid() {
		return fmt.Errorf("%w: unsupported asset type %q", ErrValidation, q.AssetType)
	}
	return nil
}

// CacheKey is case-insensitive on symbol and quote; the asset type is used verbatim.
func (q FeedQuery) CacheKey() string {
	return strings.ToLower(q.Symbol) + "/" + strings.ToLower(q.QuoteCurrency) + "/" + string(q.AssetType)
}

func (q FeedQuery) Pair() string {
	return q.Symbol + "/" + q.QuoteCurrency
}

// FeedCandidate is one entry of a feed discovery response.
type FeedCandidate struct {
	ID            string
	Base          string
	QuoteCurrency string
	Symbol        string // provider symbol, e.g. Equity.US.AAPL/USD.PRE
	DisplaySymbol string
}

// FeedCacheEntry is a memoized discovery result.
type FeedCacheEntry struct {
	CacheKey      string    `json:"cacheKey"`
	FeedID        string    `json:"feedId"`
	Symbol        string    `json:"symbol"`
	QuoteCurrency string    `json:"quoteCurrency"`
	AssetType     AssetType `json:"assetType"`
	DisplayLabel  string    `json:"displayLabel"`
	ResolvedAt    time.Time `json:"resolvedAt"`
}

// Resolved reports whether discovery produced a usable feed id.
func (e FeedCacheEntry) Resolved() bool {
	return e.FeedID != ""
}

func (e FeedCacheEntry) Query() FeedQuery {
	return FeedQuery{Symbol: e.Symbol, QuoteCurrency: e.QuoteCurrency, AssetType: e.AssetType}
}

package port

import (
	"context"

	"livefeed/internal/domain"
)

// FeedDiscovery lists candidate feeds for a symbol on the price provider.
// An empty slice with a nil error means the provider knows no such feed.
type FeedDiscovery interface {
	DiscoverFeeds(ctx context.Context, symbol string, assetType domain.AssetType) ([]domain.FeedCandidate, error)
}

// PriceSource returns the latest scaled-integer price for a feed id.
// It returns domain.ErrNotFound when the provider has no data for the id.
type PriceSource interface {
	LatestPrice(ctx context.Context, feedID string) (domain.RawPrice, error)
}

// TokenSearch queries a DEX aggregator for pairs matching a term.
type TokenSearch interface {
	SearchPairs(ctx context.Context, term string) ([]domain.TokenPair, error)
}

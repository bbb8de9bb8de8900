package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"livefeed/internal/application/port"
	"livefeed/internal/domain"
	"livefeed/internal/domain/fixedpoint"
)

// PriceService runs the price pipeline: resolve feed, fetch latest, decode,
// publish.
type PriceService struct {
	resolver  *FeedResolver
	source    port.PriceSource
	publisher port.Publisher[domain.PriceUpdate]
	now       func() time.Time
}

func NewPriceService(resolver *FeedResolver, source port.PriceSource, publisher port.Publisher[domain.PriceUpdate]) *PriceService {
	return &PriceService{
		resolver:  resolver,
		source:    source,
		publisher: publisher,
		now:       time.Now,
	}
}

// GetPrice resolves q and returns its latest decoded price. The update is
// published to subscribers before it is returned.
func (s *PriceService) GetPrice(ctx context.Context, q domain.FeedQuery) (domain.PriceUpdate, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return domain.PriceUpdate{}, err
	}

	entry, err := s.resolver.Resolve(ctx, q)
	if err != nil {
		return domain.PriceUpdate{}, err
	}
	return s.fetch(ctx, q.Symbol, q.QuoteCurrency, entry.FeedID)
}

// Refresh re-fetches and republishes a cached feed.
func (s *PriceService) Refresh(ctx context.Context, entry domain.FeedCacheEntry) (domain.PriceUpdate, error) {
	if !entry.Resolved() {
		return domain.PriceUpdate{}, fmt.Errorf("%w: unresolved feed %s", domain.ErrNotFound, entry.CacheKey)
	}
	return s.fetch(ctx, entry.Symbol, entry.QuoteCurrency, entry.FeedID)
}

func (s *PriceService) fetch(ctx context.Context, symbol, quote, feedID string) (domain.PriceUpdate, error) {
	raw, err := s.source.LatestPrice(ctx, feedID)
	if err != nil {
		return domain.PriceUpdate{}, fmt.Errorf("latest price %s: %w", feedID, err)
	}

	price, err := fixedpoint.Decode(raw.Mantissa, raw.Exponent)
	if err != nil {
		if errors.Is(err, fixedpoint.ErrInvalidMantissa) || errors.Is(err, fixedpoint.ErrExponentOutOfRange) {
			return domain.PriceUpdate{}, &domain.UpstreamError{Service: "price", Status: 200, Body: err.Error()}
		}
		return domain.PriceUpdate{}, err
	}

	update := domain.NewPriceUpdate(symbol, quote, price, feedID, s.now())
	if err := s.publisher.Publish(update); err != nil {
		log.Error().Err(err).Str("feed_id", feedID).Msg("publish price update failed")
	}

	log.Debug().
		Str("symbol", symbol).
		Str("quote", quote).
		Str("price", price).
		Str("feed_id", feedID).
		Msg("price update")
	return update, nil
}

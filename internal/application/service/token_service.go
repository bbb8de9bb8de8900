package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"livefeed/internal/application/port"
	"livefeed/internal/domain"
)

const (
	DefaultChain    = "base"
	DefaultCapTier  = domain.TierTop
	maxTokenResults = 10
)

var supportedChains = map[string]struct{}{
	"base": {}, "ethereum": {}, "bsc": {}, "arbitrum": {}, "solana": {},
}

type DiscoverQuery struct {
	Query   string         `json:"query"`
	Chain   string         `json:"chain"`
	CapTier domain.CapTier `json:"capTier"`
}

type DiscoverResult struct {
	Query   string               `json:"query,omitempty"`
	Chain   string               `json:"chain"`
	CapTier domain.CapTier       `json:"capTier"`
	Count   int                  `json:"count"`
	Results []domain.TokenResult `json:"results"`
}

// TokenService discovers DEX tokens by name/symbol or by chain and cap tier.
type TokenService struct {
	search port.TokenSearch
}

func NewTokenService(search port.TokenSearch) *TokenService {
	return &TokenService{search: search}
}

func (s *TokenService) Discover(ctx context.Context, q DiscoverQuery) (DiscoverResult, error) {
	q.Query = strings.TrimSpace(q.Query)
	q.Chain = strings.ToLower(strings.TrimSpace(q.Chain))
	if q.Chain == "" {
		q.Chain = DefaultChain
	}
	if _, ok := supportedChains[q.Chain]; !ok {
		return DiscoverResult{}, fmt.Errorf("%w: unsupported chain %q", domain.ErrValidation, q.Chain)
	}
	if q.CapTier == "" {
		q.CapTier = DefaultCapTier
	}
	if !q.CapTier.Valid() {
		return DiscoverResult{}, fmt.Errorf("%w: unsupported cap tier %q", domain.ErrValidation, q.CapTier)
	}

	term := q.Query
	if term == "" {
		term = q.Chain
	}
	pairs, err := s.search.SearchPairs(ctx, term)
	if err != nil {
		return DiscoverResult{}, fmt.Errorf("search %q: %w", term, err)
	}

	onChain := make([]domain.TokenPair, 0, len(pairs))
	for _, p := range pairs {
		if p.ChainID == q.Chain {
			onChain = append(onChain, p)
		}
	}
	sort.SliceStable(onChain, func(i, j int) bool {
		return onChain[i].LiquidityUSD > onChain[j].LiquidityUSD
	})

	var tiered []domain.TokenPair
	for _, p := range onChain {
		if domain.TierFor(p.Valuation()) == q.CapTier {
			tiered = append(tiered, p)
		}
	}
	// nothing in the requested tier: show the whole chain instead of nothing
	selected := tiered
	if len(tiered) == 0 {
		selected = onChain
	}
	if len(selected) > maxTokenResults {
		selected = selected[:maxTokenResults]
	}

	results := make([]domain.TokenResult, 0, len(selected))
	for _, p := range selected {
		results = append(results, domain.TokenResult{
			Name:         p.BaseToken.Name,
			Symbol:       p.BaseToken.Symbol,
			Address:      p.BaseToken.Address,
			Chain:        p.ChainID,
			PriceUSD:     p.PriceUSD,
			LiquidityUSD: p.LiquidityUSD,
			Volume24h:    p.Volume24h,
			FDV:          p.FDV,
			Dex:          p.DexID,
			Tier:         domain.TierFor(p.Valuation()),
		})
	}

	log.Debug().
		Str("term", term).
		Str("chain", q.Chain).
		Str("tier", string(q.CapTier)).
		Int("pairs", len(pairs)).
		Int("results", len(results)).
		Msg("token discovery")

	return DiscoverResult{
		Query:   q.Query,
		Chain:   q.Chain,
		CapTier: q.CapTier,
		Count:   len(results),
		Results: results,
	}, nil
}

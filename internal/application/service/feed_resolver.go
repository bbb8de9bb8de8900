package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"livefeed/internal/application/port"
	"livefeed/internal/domain"
)

// DiscoveryTimeout bounds one shared discovery call.
const DiscoveryTimeout = 30 * time.Second

// 盘前/盘后/隔夜/延长时段的股票价格源后缀
var extendedSessionSuffixes = []string{".PRE", ".POST", ".ON", ".EXT"}

// FeedResolver maps asset queries to provider feed ids and memoizes them.
// Resolved entries live for the lifetime of the process; there is no TTL.
// An entry whose feed id came back empty is kept for inspection but does
// not short-circuit the next lookup.
type FeedResolver struct {
	discovery port.FeedDiscovery
	now       func() time.Time

	mu      sync.RWMutex
	entries map[string]domain.FeedCacheEntry
	order   []string // insertion order of keys

	group singleflight.Group
}

func NewFeedResolver(discovery port.FeedDiscovery) *FeedResolver {
	return &FeedResolver{
		discovery: discovery,
		now:       time.Now,
		entries:   make(map[string]domain.FeedCacheEntry),
	}
}

// Resolve returns the cached entry for q or runs discovery. Concurrent
// misses on the same key share one discovery call. The shared call does not
// inherit any one caller's cancellation; each caller stops waiting when its
// own ctx ends.
func (r *FeedResolver) Resolve(ctx context.Context, q domain.FeedQuery) (domain.FeedCacheEntry, error) {
	key := q.CacheKey()
	if e, ok := r.lookup(key); ok && e.Resolved() {
		return e, nil
	}

	ch := r.group.DoChan(key, func() (any, error) {
		if e, ok := r.lookup(key); ok && e.Resolved() {
			return e, nil
		}
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DiscoveryTimeout)
		defer cancel()
		return r.discover(dctx, key, q)
	})

	select {
	case <-ctx.Done():
		return domain.FeedCacheEntry{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.FeedCacheEntry{}, res.Err
		}
		if res.Shared {
			log.Debug().Str("key", key).Msg("feed resolution shared")
		}
		return res.Val.(domain.FeedCacheEntry), nil
	}
}

func (r *FeedResolver) discover(ctx context.Context, key string, q domain.FeedQuery) (domain.FeedCacheEntry, error) {
	candidates, err := r.discovery.DiscoverFeeds(ctx, q.Symbol, q.AssetType)
	if err != nil {
		return domain.FeedCacheEntry{}, fmt.Errorf("discover %s: %w", q.Symbol, err)
	}
	if len(candidates) == 0 {
		return domain.FeedCacheEntry{}, fmt.Errorf("%w: no price feed for %s", domain.ErrNotFound, q.Symbol)
	}

	chosen, ok := SelectFeed(candidates, q)
	if !ok {
		return domain.FeedCacheEntry{}, fmt.Errorf("%w: no price feed for %s", domain.ErrNotFound, q.Pair())
	}

	entry := domain.FeedCacheEntry{
		CacheKey:      key,
		FeedID:        chosen.ID,
		Symbol:        q.Symbol,
		QuoteCurrency: q.QuoteCurrency,
		AssetType:     q.AssetType,
		DisplayLabel:  chosen.DisplaySymbol,
		ResolvedAt:    r.now(),
	}
	r.store(entry)

	if !entry.Resolved() {
		log.Warn().Str("key", key).Msg("feed resolved to empty id")
		return domain.FeedCacheEntry{}, fmt.Errorf("%w: empty feed id for %s", domain.ErrNotFound, q.Pair())
	}

	log.Info().
		Str("key", key).
		Str("feed_id", entry.FeedID).
		Str("display", entry.DisplayLabel).
		Msg("feed resolved")
	return entry, nil
}

// SelectFeed keeps candidates whose base and quote match q (case-insensitive)
// and picks one. Equities prefer the first regular-session feed; everything
// else takes the first match in response order.
func SelectFeed(candidates []domain.FeedCandidate, q domain.FeedQuery) (domain.FeedCandidate, bool) {
	var matched []domain.FeedCandidate
	for _, c := range candidates {
		if strings.EqualFold(c.Base, q.Symbol) && strings.EqualFold(c.QuoteCurrency, q.QuoteCurrency) {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		return domain.FeedCandidate{}, false
	}

	if q.AssetType == domain.AssetEquity {
		for _, c := range matched {
			if !isExtendedSession(c) {
				return c, true
			}
		}
	}
	return matched[0], true
}

func isExtendedSession(c domain.FeedCandidate) bool {
	for _, name := range []string{c.Symbol, c.DisplaySymbol} {
		upper := strings.ToUpper(name)
		for _, suffix := range extendedSessionSuffixes {
			if strings.HasSuffix(upper, suffix) {
				return true
			}
		}
	}
	return false
}

func (r *FeedResolver) lookup(key string) (domain.FeedCacheEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	return e, ok
}

func (r *FeedResolver) store(e domain.FeedCacheEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[e.CacheKey]; !exists {
		r.order = append(r.order, e.CacheKey)
	}
	r.entries[e.CacheKey] = e
}

// Lookup returns the cache entry for q without calling discovery.
func (r *FeedResolver) Lookup(q domain.FeedQuery) (domain.FeedCacheEntry, bool) {
	return r.lookup(q.CacheKey())
}

// Entries returns a snapshot of the cache in insertion order.
func (r *FeedResolver) Entries() []domain.FeedCacheEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.FeedCacheEntry, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.entries[k])
	}
	return out
}

func (r *FeedResolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"livefeed/internal/domain"
)

const DefaultRefreshInterval = time.Minute

// FeedLister exposes the cached feeds to refresh.
type FeedLister interface {
	Entries() []domain.FeedCacheEntry
}

// FeedRefresher re-fetches one cached feed.
type FeedRefresher interface {
	Refresh(ctx context.Context, entry domain.FeedCacheEntry) (domain.PriceUpdate, error)
}

// RefreshObserver receives per-tick statistics.
type RefreshObserver interface {
	TickCompleted(entries, published int, elapsed time.Duration)
}

type noopRefreshObserver struct{}

func (noopRefreshObserver) TickCompleted(int, int, time.Duration) {}

// Refresher periodically republishes every cached feed so subscribers keep
// receiving prices without new requests. Ticks run one after another on a
// single goroutine; a tick that outlasts the interval makes the ticker drop
// the missed beats rather than stack them.
type Refresher struct {
	feeds    FeedLister
	prices   FeedRefresher
	observer RefreshObserver

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRefresher(feeds FeedLister, prices FeedRefresher, observer RefreshObserver) *Refresher {
	if observer == nil {
		observer = noopRefreshObserver{}
	}
	return &Refresher{feeds: feeds, prices: prices, observer: observer}
}

// Start launches the refresh loop. It returns false if the loop is already running.
func (r *Refresher) Start(interval time.Duration) bool {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	go r.loop(ctx, interval, done)
	log.Info().Dur("interval", interval).Msg("price refresh loop started")
	return true
}

// Stop cancels the loop and waits for an in-flight tick to return.
// Stopping a stopped refresher is a no-op.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Info().Msg("price refresh loop stopped")
}

func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *Refresher) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick refreshes every resolved cache entry once and returns how many
// updates were published. Per-entry failures are skipped.
func (r *Refresher) Tick(ctx context.Context) int {
	start := time.Now()
	entries := r.feeds.Entries()
	published := 0

	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if !e.Resolved() {
			continue
		}
		if _, err := r.prices.Refresh(ctx, e); err != nil {
			log.Debug().Err(err).Str("key", e.CacheKey).Msg("refresh skipped")
			continue
		}
		published++
	}

	elapsed := time.Since(start)
	r.observer.TickCompleted(len(entries), published, elapsed)
	log.Debug().
		Int("entries", len(entries)).
		Int("published", published).
		Dur("elapsed", elapsed).
		Msg("refresh tick")
	return published
}

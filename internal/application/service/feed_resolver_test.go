package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livefeed/internal/domain"
)

func btcQuery() domain.FeedQuery {
	return domain.FeedQuery{Symbol: "BTC", QuoteCurrency: "USD", AssetType: domain.AssetCrypto}
}

func TestResolverCachesFeedID(t *testing.T) {
	disc := &fakeDiscovery{candidates: map[string][]domain.FeedCandidate{
		"BTC": {{ID: "f1", Base: "BTC", QuoteCurrency: "USD", DisplaySymbol: "BTC/USD"}},
	}}
	r := NewFeedResolver(disc)
	ctx := context.Background()

	e1, err := r.Resolve(ctx, btcQuery())
	require.NoError(t, err)
	assert.Equal(t, "f1", e1.FeedID)
	assert.Equal(t, "btc/usd/crypto", e1.CacheKey)
	assert.Equal(t, "BTC/USD", e1.DisplayLabel)

	e2, err := r.Resolve(ctx, domain.FeedQuery{Symbol: "btc", QuoteCurrency: "usd", AssetType: domain.AssetCrypto})
	require.NoError(t, err)
	assert.Equal(t, "f1", e2.FeedID)
	assert.EqualValues(t, 1, disc.calls.Load())
	assert.Equal(t, 1, r.Len())
}

func TestResolverNotFound(t *testing.T) {
	disc := &fakeDiscovery{candidates: map[string][]domain.FeedCandidate{
		"ETH": {{ID: "e1", Base: "ETH", QuoteCurrency: "EUR"}},
	}}
	r := NewFeedResolver(disc)
	ctx := context.Background()

	_, err := r.Resolve(ctx, btcQuery())
	assert.ErrorIs(t, err, domain.ErrNotFound, "empty discovery response")

	_, err = r.Resolve(ctx, domain.FeedQuery{Symbol: "ETH", QuoteCurrency: "USD", AssetType: domain.AssetCrypto})
	assert.ErrorIs(t, err, domain.ErrNotFound, "no candidate with matching quote")
	assert.Equal(t, 0, r.Len())
}

func TestResolverPropagatesUpstreamError(t *testing.T) {
	r := NewFeedResolver(&fakeDiscovery{err: &domain.UpstreamError{Service: "pyth", Status: 503}})

	_, err := r.Resolve(context.Background(), btcQuery())
	require.Error(t, err)
	assert.True(t, domain.IsUpstream(err))
}

func TestResolverEmptyFeedIDIsRetried(t *testing.T) {
	disc := &fakeDiscovery{candidates: map[string][]domain.FeedCandidate{
		"BTC": {{ID: "", Base: "BTC", QuoteCurrency: "USD"}},
	}}
	r := NewFeedResolver(disc)
	ctx := context.Background()

	_, err := r.Resolve(ctx, btcQuery())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	e, ok := r.Lookup(btcQuery())
	require.True(t, ok, "unresolved entry is still recorded")
	assert.False(t, e.Resolved())

	disc.candidates["BTC"] = []domain.FeedCandidate{{ID: "f9", Base: "BTC", QuoteCurrency: "USD"}}
	e, err = r.Resolve(ctx, btcQuery())
	require.NoError(t, err)
	assert.Equal(t, "f9", e.FeedID)
	assert.EqualValues(t, 2, disc.calls.Load())
	assert.Equal(t, 1, r.Len())
}

func TestResolverConcurrentMissesShareDiscovery(t *testing.T) {
	disc := &fakeDiscovery{
		candidates: map[string][]domain.FeedCandidate{
			"BTC": {{ID: "f1", Base: "BTC", QuoteCurrency: "USD"}},
		},
		gate: make(chan struct{}),
	}
	r := NewFeedResolver(disc)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]domain.FeedCacheEntry, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Resolve(context.Background(), btcQuery())
		}(i)
	}

	require.Eventually(t, func() bool { return disc.calls.Load() >= 1 }, time.Second, time.Millisecond)
	close(disc.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "f1", results[i].FeedID)
	}
	assert.Equal(t, 1, r.Len())
	assert.LessOrEqual(t, disc.calls.Load(), int32(callers))
}

func TestResolverCancelledCallerDoesNotFailSharedDiscovery(t *testing.T) {
	disc := &fakeDiscovery{
		candidates: map[string][]domain.FeedCandidate{
			"BTC": {{ID: "f1", Base: "BTC", QuoteCurrency: "USD"}},
		},
		gate: make(chan struct{}),
	}
	r := NewFeedResolver(disc)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctxA, btcQuery())
		errA <- err
	}()
	require.Eventually(t, func() bool { return disc.calls.Load() == 1 }, time.Second, time.Millisecond)

	// A gives up while discovery is still in flight
	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	// B joins the same flight and is unaffected by A leaving
	resB := make(chan error, 1)
	var entry domain.FeedCacheEntry
	go func() {
		var err error
		entry, err = r.Resolve(context.Background(), btcQuery())
		resB <- err
	}()
	close(disc.gate)

	select {
	case err := <-resB:
		require.NoError(t, err)
		assert.Equal(t, "f1", entry.FeedID)
	case <-time.After(time.Second):
		t.Fatal("second caller did not resolve")
	}
	assert.Equal(t, int32(1), disc.calls.Load())
	assert.Equal(t, 1, r.Len())
}

func TestSelectFeed(t *testing.T) {
	equity := domain.FeedQuery{Symbol: "AAPL", QuoteCurrency: "USD", AssetType: domain.AssetEquity}

	t.Run("equity prefers regular session", func(t *testing.T) {
		c, ok := SelectFeed([]domain.FeedCandidate{
			{ID: "pre", Base: "AAPL", QuoteCurrency: "USD", Symbol: "Equity.US.AAPL/USD.PRE"},
			{ID: "post", Base: "AAPL", QuoteCurrency: "USD", Symbol: "Equity.US.AAPL/USD.POST"},
			{ID: "reg", Base: "AAPL", QuoteCurrency: "USD", Symbol: "Equity.US.AAPL/USD"},
			{ID: "on", Base: "AAPL", QuoteCurrency: "USD", Symbol: "Equity.US.AAPL/USD.ON"},
		}, equity)
		require.True(t, ok)
		assert.Equal(t, "reg", c.ID)
	})

	t.Run("equity falls back to first match", func(t *testing.T) {
		c, ok := SelectFeed([]domain.FeedCandidate{
			{ID: "other", Base: "MSFT", QuoteCurrency: "USD", Symbol: "Equity.US.MSFT/USD"},
			{ID: "ext", Base: "aapl", QuoteCurrency: "usd", Symbol: "Equity.US.AAPL/USD.EXT"},
			{ID: "pre", Base: "AAPL", QuoteCurrency: "USD", Symbol: "Equity.US.AAPL/USD.PRE"},
		}, equity)
		require.True(t, ok)
		assert.Equal(t, "ext", c.ID)
	})

	t.Run("non-equity takes first match", func(t *testing.T) {
		c, ok := SelectFeed([]domain.FeedCandidate{
			{ID: "wrong-quote", Base: "ETH", QuoteCurrency: "BTC"},
			{ID: "first", Base: "ETH", QuoteCurrency: "USD", Symbol: "Crypto.ETH/USD.PRE"},
			{ID: "second", Base: "ETH", QuoteCurrency: "USD", Symbol: "Crypto.ETH/USD"},
		}, domain.FeedQuery{Symbol: "eth", QuoteCurrency: "usd", AssetType: domain.AssetCrypto})
		require.True(t, ok)
		assert.Equal(t, "first", c.ID)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := SelectFeed([]domain.FeedCandidate{{ID: "x", Base: "SOL", QuoteCurrency: "USD"}}, equity)
		assert.False(t, ok)
	})
}

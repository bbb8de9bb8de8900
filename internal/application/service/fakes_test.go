package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"livefeed/internal/domain"
)

type fakeDiscovery struct {
	candidates map[string][]domain.FeedCandidate // keyed by symbol
	err        error
	gate       chan struct{} // when set, DiscoverFeeds blocks until closed
	calls      atomic.Int32
}

func (f *fakeDiscovery) DiscoverFeeds(ctx context.Context, symbol string, _ domain.AssetType) ([]domain.FeedCandidate, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates[symbol], nil
}

type fakeSource struct {
	mu     sync.Mutex
	prices map[string]domain.RawPrice
	errs   map[string]error
	calls  []string
}

func (f *fakeSource) LatestPrice(_ context.Context, feedID string) (domain.RawPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, feedID)
	if err := f.errs[feedID]; err != nil {
		return domain.RawPrice{}, err
	}
	p, ok := f.prices[feedID]
	if !ok {
		return domain.RawPrice{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type capturePublisher struct {
	mu      sync.Mutex
	updates []domain.PriceUpdate
}

func (p *capturePublisher) Publish(u domain.PriceUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, u)
	return nil
}

func (p *capturePublisher) published() []domain.PriceUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.PriceUpdate(nil), p.updates...)
}

type memStore struct {
	mu      sync.Mutex
	doc     []domain.Strategy
	saves   int
	saveErr error
}

func (m *memStore) Load(context.Context) ([]domain.Strategy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.CloneStrategies(m.doc), nil
}

func (m *memStore) Save(_ context.Context, set []domain.Strategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.doc = domain.CloneStrategies(set)
	return nil
}

func (m *memStore) Close() error { return nil }

var errUpstream = errors.New("connection reset")

package stream

import (
	"context"

	"livefeed/internal/application/broadcast"
	"livefeed/internal/application/port"
	"livefeed/internal/application/service"
)

// Source is something a connection can subscribe a sink to for its lifetime.
type Source interface {
	Subscribe(ctx context.Context, sink port.Sink) (cancel func(), err error)
	// Done is closed when the source will never publish again.
	Done() <-chan struct{}
}

type hubSource[T any] struct {
	hub *broadcast.Hub[T]
}

// FromHub streams every message published on hub after the subscription.
func FromHub[T any](hub *broadcast.Hub[T]) Source {
	return hubSource[T]{hub: hub}
}

func (s hubSource[T]) Subscribe(_ context.Context, sink port.Sink) (func(), error) {
	sub := s.hub.Subscribe(sink)
	return func() { s.hub.Unsubscribe(sub) }, nil
}

func (s hubSource[T]) Done() <-chan struct{} { return s.hub.Done() }

type strategySource struct {
	repo *service.StrategyRepository
	done <-chan struct{}
}

// FromStrategies sends the current strategy set first, then every later set.
// done is the strategy hub's Done channel.
func FromStrategies(repo *service.StrategyRepository, done <-chan struct{}) Source {
	return strategySource{repo: repo, done: done}
}

func (s strategySource) Subscribe(ctx context.Context, sink port.Sink) (func(), error) {
	sub, err := s.repo.Subscribe(ctx, sink)
	if err != nil {
		return nil, err
	}
	return func() { s.repo.Unsubscribe(sub) }, nil
}

func (s strategySource) Done() <-chan struct{} { return s.done }

package port

import (
	"context"

	"livefeed/internal/domain"
)

// StrategyStore persists the strategy set as one document.
// Load returns the whole set in storage order; Save replaces it entirely.
type StrategyStore interface {
	Load(ctx context.Context) ([]domain.Strategy, error)
	Save(ctx context.Context, strategies []domain.Strategy) error
	Close() error
}

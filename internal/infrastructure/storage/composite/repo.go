package composite

import (
	"context"

	"github.com/rs/zerolog/log"

	"livefeed/internal/application/port"
	"livefeed/internal/domain"
)

// Repo reads from the primary store and writes to the primary plus every
// mirror. A mirror failure is logged and does not fail the save.
type Repo struct {
	primary port.StrategyStore
	mirrors []port.StrategyStore
}

func New(primary port.StrategyStore, mirrors ...port.StrategyStore) *Repo {
	// nil mirrors are allowed; filter in constructor for safety
	out := make([]port.StrategyStore, 0, len(mirrors))
	for _, m := range mirrors {
		if m != nil {
			out = append(out, m)
		}
	}
	return &Repo{primary: primary, mirrors: out}
}

func (r *Repo) Load(ctx context.Context) ([]domain.Strategy, error) {
	return r.primary.Load(ctx)
}

func (r *Repo) Save(ctx context.Context, set []domain.Strategy) error {
	if err := r.primary.Save(ctx, set); err != nil {
		return err
	}
	for i, m := range r.mirrors {
		if err := m.Save(ctx, set); err != nil {
			log.Warn().Err(err).Int("mirror", i).Msg("strategy mirror save failed")
		}
	}
	return nil
}

// Close is a no-op. The wrapped stores are owned and closed by whoever
// opened them.
func (r *Repo) Close() error { return nil }

var _ port.StrategyStore = (*Repo)(nil)

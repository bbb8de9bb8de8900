package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"livefeed/internal/application/broadcast"
	"livefeed/internal/application/port"
	"livefeed/internal/domain"
)

// StrategyRepository owns the strategy set. Every mutation is a
// read-modify-write of the whole document followed by a publish of the
// whole post-mutation set.
type StrategyRepository struct {
	store    port.StrategyStore
	hub      *broadcast.Hub[[]domain.Strategy]
	validate *validator.Validate
	now      func() time.Time
	newID    func() (string, error)

	mu sync.Mutex // serializes read-modify-write against the store
}

func NewStrategyRepository(store port.StrategyStore, hub *broadcast.Hub[[]domain.Strategy]) *StrategyRepository {
	return &StrategyRepository{
		store:    store,
		hub:      hub,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		newID:    newStrategyID,
	}
}

// uuid v7 ids sort by creation time.
func newStrategyID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (r *StrategyRepository) Add(ctx context.Context, in domain.StrategyInput) (domain.Strategy, error) {
	in.Symbol = strings.TrimSpace(in.Symbol)
	in.ContractAddress = strings.TrimSpace(in.ContractAddress)
	in.ChainID = strings.TrimSpace(in.ChainID)
	if err := r.validate.Struct(in); err != nil {
		return domain.Strategy{}, validationError(err)
	}

	id, err := r.newID()
	if err != nil {
		return domain.Strategy{}, fmt.Errorf("generate strategy id: %w", err)
	}

	s := domain.Strategy{
		ID:              id,
		Symbol:          in.Symbol,
		ContractAddress: in.ContractAddress,
		ChainID:         in.ChainID,
		Frequency:       orMedium(in.Frequency),
		RiskLevel:       orMedium(in.RiskLevel),
		Active:          in.Active == nil || *in.Active,
		CreatedAt:       r.now().UnixMilli(),
		Meta:            map[string]any{},
	}
	for k, v := range in.Meta {
		s.Meta[k] = v
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, err := r.store.Load(ctx)
	if err != nil {
		return domain.Strategy{}, fmt.Errorf("load strategies: %w", err)
	}
	set = append(set, s)
	if err := r.commit(ctx, set); err != nil {
		return domain.Strategy{}, err
	}

	log.Info().Str("id", s.ID).Str("symbol", s.Symbol).Msg("strategy added")
	return s.Clone(), nil
}

// List returns the set in storage order.
func (r *StrategyRepository) List(ctx context.Context) ([]domain.Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load strategies: %w", err)
	}
	return set, nil
}

// Remove deletes the strategy with id and returns how many records went
// away (0 or 1). Only an empty id is an error.
func (r *StrategyRepository) Remove(ctx context.Context, id string) (int, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, domain.ErrMissingID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, err := r.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load strategies: %w", err)
	}
	before := len(set)
	set = slices.DeleteFunc(set, func(s domain.Strategy) bool { return s.ID == id })
	if err := r.commit(ctx, set); err != nil {
		return 0, err
	}

	removed := before - len(set)
	log.Info().Str("id", id).Int("removed", removed).Msg("strategy removed")
	return removed, nil
}

// Update merges patch into the strategy with id.
func (r *StrategyRepository) Update(ctx context.Context, id string, patch domain.StrategyPatch) (domain.Strategy, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Strategy{}, domain.ErrMissingID
	}
	if err := r.validate.Struct(patch); err != nil {
		return domain.Strategy{}, validationError(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, err := r.store.Load(ctx)
	if err != nil {
		return domain.Strategy{}, fmt.Errorf("load strategies: %w", err)
	}
	idx := slices.IndexFunc(set, func(s domain.Strategy) bool { return s.ID == id })
	if idx < 0 {
		return domain.Strategy{}, fmt.Errorf("%w: strategy %s", domain.ErrNotFound, id)
	}
	set[idx] = patch.Apply(set[idx])
	if err := r.commit(ctx, set); err != nil {
		return domain.Strategy{}, err
	}

	log.Info().Str("id", id).Msg("strategy updated")
	return set[idx].Clone(), nil
}

// Subscribe sends the current set to sink and then registers it on the
// strategy hub. Both happen under the repository lock so the sink never sees
// an older set after a newer one.
func (r *StrategyRepository) Subscribe(ctx context.Context, sink port.Sink) (*broadcast.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load strategies: %w", err)
	}
	payload, err := encodeSet(set)
	if err != nil {
		return nil, err
	}
	if err := sink.Send(payload); err != nil {
		return nil, err
	}
	return r.hub.Subscribe(sink), nil
}

func (r *StrategyRepository) Unsubscribe(sub *broadcast.Subscription) {
	r.hub.Unsubscribe(sub)
}

func (r *StrategyRepository) commit(ctx context.Context, set []domain.Strategy) error {
	if err := r.store.Save(ctx, set); err != nil {
		return fmt.Errorf("save strategies: %w", err)
	}
	if err := r.hub.Publish(domain.CloneStrategies(set)); err != nil {
		log.Error().Err(err).Msg("publish strategies failed")
	}
	return nil
}

// encodeSet matches the hub's serialization so the initial snapshot and
// later publishes look the same on the wire.
func encodeSet(set []domain.Strategy) ([]byte, error) {
	return json.Marshal(domain.CloneStrategies(set))
}

func orMedium(l domain.Level) domain.Level {
	if l == "" {
		return domain.LevelMedium
	}
	return l
}

func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(fields, ", "))
}

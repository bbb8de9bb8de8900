package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livefeed/internal/application/broadcast"
	"livefeed/internal/application/port"
	"livefeed/internal/domain"
)

type setRecorder struct {
	mu   sync.Mutex
	sets [][]domain.Strategy
}

func (r *setRecorder) Send(payload []byte) error {
	var set []domain.Strategy
	if err := json.Unmarshal(payload, &set); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets = append(r.sets, set)
	return nil
}

func (r *setRecorder) last() []domain.Strategy {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sets) == 0 {
		return nil
	}
	return r.sets[len(r.sets)-1]
}

func (r *setRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sets)
}

func newTestRepo(t *testing.T) (*StrategyRepository, *memStore, *setRecorder) {
	t.Helper()
	store := &memStore{}
	hub := broadcast.New[[]domain.Strategy]("strategies")
	repo := NewStrategyRepository(store, hub)

	seq := 0
	repo.newID = func() (string, error) {
		seq++
		return fmt.Sprintf("s%03d", seq), nil
	}
	repo.now = func() time.Time { return time.UnixMilli(int64(1_700_000_000_000 + seq)) }

	rec := &setRecorder{}
	hub.Subscribe(rec)
	return repo, store, rec
}

func validInput() domain.StrategyInput {
	return domain.StrategyInput{
		Symbol:          "BTC/USD",
		ContractAddress: "0xabc",
		ChainID:         "8453",
		Meta:            map[string]any{"note": "dca"},
	}
}

func TestStrategyAddThenList(t *testing.T) {
	repo, _, rec := newTestRepo(t)
	ctx := context.Background()

	s, err := repo.Add(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, "s001", s.ID)
	assert.Equal(t, domain.LevelMedium, s.Frequency)
	assert.Equal(t, domain.LevelMedium, s.RiskLevel)
	assert.True(t, s.Active)
	assert.NotZero(t, s.CreatedAt)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, s, list[0])

	require.Equal(t, 1, rec.count())
	assert.Equal(t, list, rec.last())
}

func TestStrategyAddAssignsUniqueIDs(t *testing.T) {
	store := &memStore{}
	repo := NewStrategyRepository(store, broadcast.New[[]domain.Strategy]("strategies"))
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		s, err := repo.Add(ctx, validInput())
		require.NoError(t, err)
		assert.False(t, seen[s.ID], "duplicate id %s", s.ID)
		seen[s.ID] = true
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].ID, list[i].ID, "ids sort by creation order")
	}
}

func TestStrategyAddValidation(t *testing.T) {
	repo, store, rec := newTestRepo(t)
	ctx := context.Background()

	for name, mutate := range map[string]func(*domain.StrategyInput){
		"symbol":    func(in *domain.StrategyInput) { in.Symbol = "  " },
		"contract":  func(in *domain.StrategyInput) { in.ContractAddress = "" },
		"chain":     func(in *domain.StrategyInput) { in.ChainID = "" },
		"frequency": func(in *domain.StrategyInput) { in.Frequency = "hourly" },
		"risk":      func(in *domain.StrategyInput) { in.RiskLevel = "yolo" },
	} {
		in := validInput()
		mutate(&in)
		_, err := repo.Add(ctx, in)
		assert.ErrorIs(t, err, domain.ErrValidation, name)
	}
	assert.Zero(t, store.saves)
	assert.Zero(t, rec.count())
}

func TestStrategyAddRespectsExplicitFields(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	inactive := false
	in := validInput()
	in.Frequency = domain.LevelHigh
	in.RiskLevel = domain.LevelLow
	in.Active = &inactive

	s, err := repo.Add(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, domain.LevelHigh, s.Frequency)
	assert.Equal(t, domain.LevelLow, s.RiskLevel)
	assert.False(t, s.Active)
}

func TestStrategyRemove(t *testing.T) {
	repo, _, rec := newTestRepo(t)
	ctx := context.Background()

	a, err := repo.Add(ctx, validInput())
	require.NoError(t, err)
	_, err = repo.Add(ctx, validInput())
	require.NoError(t, err)

	n, err := repo.Remove(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Zero(t, n)
	list, _ := repo.List(ctx)
	assert.Len(t, list, 2)

	n, err = repo.Remove(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	list, _ = repo.List(ctx)
	require.Len(t, list, 1)
	assert.NotEqual(t, a.ID, list[0].ID)
	assert.Equal(t, list, rec.last())

	_, err = repo.Remove(ctx, "")
	assert.ErrorIs(t, err, domain.ErrMissingID)
}

func TestStrategyUpdate(t *testing.T) {
	repo, _, rec := newTestRepo(t)
	ctx := context.Background()

	s, err := repo.Add(ctx, validInput())
	require.NoError(t, err)

	high := domain.LevelHigh
	off := false
	updated, err := repo.Update(ctx, s.ID, domain.StrategyPatch{RiskLevel: &high, Active: &off})
	require.NoError(t, err)
	assert.Equal(t, s.ID, updated.ID)
	assert.Equal(t, s.CreatedAt, updated.CreatedAt)
	assert.Equal(t, s.Symbol, updated.Symbol)
	assert.Equal(t, domain.LevelHigh, updated.RiskLevel)
	assert.False(t, updated.Active)
	assert.Equal(t, []domain.Strategy{updated}, rec.last())

	saves := rec.count()
	_, err = repo.Update(ctx, "missing", domain.StrategyPatch{Active: &off})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, saves, rec.count(), "failed update publishes nothing")
	list, _ := repo.List(ctx)
	assert.Equal(t, []domain.Strategy{updated}, list)

	_, err = repo.Update(ctx, "", domain.StrategyPatch{})
	assert.ErrorIs(t, err, domain.ErrMissingID)

	empty := ""
	_, err = repo.Update(ctx, s.ID, domain.StrategyPatch{Symbol: &empty})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStrategySaveFailure(t *testing.T) {
	repo, store, rec := newTestRepo(t)
	store.saveErr = errors.New("disk full")

	_, err := repo.Add(context.Background(), validInput())
	require.Error(t, err)
	assert.Zero(t, rec.count())
}

func TestStrategyPublishedSetIsASnapshot(t *testing.T) {
	repo, _, rec := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Add(ctx, validInput())
	require.NoError(t, err)
	first := rec.last()
	_, err = repo.Add(ctx, validInput())
	require.NoError(t, err)

	assert.Len(t, first, 1)
	assert.Len(t, rec.last(), 2)
}

func TestStrategySubscribeSendsCurrentSetFirst(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Add(ctx, validInput())
	require.NoError(t, err)

	late := &setRecorder{}
	sub, err := repo.Subscribe(ctx, late)
	require.NoError(t, err)
	require.Equal(t, 1, late.count())
	assert.Len(t, late.last(), 1)

	_, err = repo.Add(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, 2, late.count())
	assert.Len(t, late.last(), 2)

	repo.Unsubscribe(sub)
	_, err = repo.Add(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, 2, late.count())
}

func TestStrategySubscribeEmptySetIsArray(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	var got string
	_, err := repo.Subscribe(context.Background(), port.SinkFunc(func(p []byte) error {
		got = string(p)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "[]", got)
}

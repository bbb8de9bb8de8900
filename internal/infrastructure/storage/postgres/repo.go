package postgres

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/jackc/pgx/v5/stdlib"

	"livefeed/internal/application/port"
	"livefeed/internal/domain"
	"livefeed/internal/infrastructure/storage"
)

const documentName = "strategies"

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r, err := NewWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// NewWithDB runs the migration on an existing handle.
func NewWithDB(db *sql.DB) (*Repo, error) {
	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS documents (
  name TEXT PRIMARY KEY,
  payload JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
	return err
}

func (r *Repo) Load(ctx context.Context) ([]domain.Strategy, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE name = $1`, documentName).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.Strategy{}, nil
	}
	if err != nil {
		return nil, err
	}
	return storage.Decode(payload)
}

func (r *Repo) Save(ctx context.Context, set []domain.Strategy) error {
	b, err := storage.Encode(set)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents(name, payload, updated_at) VALUES($1, $2, now())
ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
`, documentName, string(b))
	return err
}

var _ port.StrategyStore = (*Repo)(nil)

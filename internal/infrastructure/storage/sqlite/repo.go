package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"livefeed/internal/application/port"
	"livefeed/internal/domain"
	"livefeed/internal/infrastructure/storage"
)

const documentName = "strategies"

// Repo stores the strategy document as a single row.
type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS documents (
  name TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
`)
	return err
}

func (r *Repo) Load(ctx context.Context) ([]domain.Strategy, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE name = ?`, documentName).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.Strategy{}, nil
	}
	if err != nil {
		return nil, err
	}
	return storage.Decode([]byte(payload))
}

func (r *Repo) Save(ctx context.Context, set []domain.Strategy) error {
	b, err := storage.Encode(set)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents(name, payload, updated_at) VALUES(?, ?, ?)
ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
`, documentName, string(b), time.Now().UnixMilli())
	return err
}

var _ port.StrategyStore = (*Repo)(nil)
